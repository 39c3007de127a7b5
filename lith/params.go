package lith

import (
	"fmt"
	"math"
)

// LogFunc is the injected logging sink (§6: "Logging is provided
// through an injected sink"). The kernel performs no I/O of its own;
// every Simulate/Fit call emits at most one LogFunc call per pipeline
// stage. NoopLog is the default.
type LogFunc func(stage, level, message string)

// NoopLog discards everything.
func NoopLog(string, string, string) {}

// SineType selects the intensity-field formula family (§4.C).
type SineType int

const (
	Sine1D SineType = iota
	Sine2D
	Sine3D
	SineIdeal1D
	SineCustom
)

// OutsideRangeMode controls custom-sample extrapolation (§4.C step 4).
type OutsideRangeMode int

const (
	OutsideZero OutsideRangeMode = iota
	OutsideBoundary
	OutsideCustom
)

// CustomIntensity holds the user-supplied (x, I) samples plus the unit
// metadata needed to place them on the target coordinate axis (§4.C).
type CustomIntensity struct {
	X []float64
	I []float64

	OriginalUnit     string // "pixels", "mm", "um", or "" (infer)
	UnitScale        float64
	OutsideRangeMode OutsideRangeMode
	CustomValue      float64
}

// CumulativeExposure parameterizes the N-segment accumulation mode of
// §4.D. Equal-duration segments, per-segment intensity scale.
type CumulativeExposure struct {
	Enabled   bool
	Segments  int
	SegmentDt float64
	Scales    []float64 // length == Segments
}

// ResponseModel selects the resist law of §4.E.
type ResponseModel int

const (
	ResponseDill ResponseModel = iota
	ResponseIdealThreshold
	ResponseSigmoid
)

// Params is the validated, plain value object of §3. Zero value is not
// valid; build with DefaultParams and override fields, then Validate.
type Params struct {
	// Illumination.
	IAvg float64
	V    float64
	K    float64 // 1D
	Kx   float64 // 2D/3D
	Ky   float64
	Kz   float64

	SineType SineType

	// Exposure.
	TExp       float64
	Cumulative CumulativeExposure

	// Resist.
	C        float64
	CD       float64 // threshold dose; read only when HasCD is true
	HasCD    bool
	Response ResponseModel

	// Geometry.
	Period        float64 // µm; read only when HasPeriod is true (K is used otherwise)
	HasPeriod     bool
	Wavelength    float64 // nm
	WindowPeriods float64 // 1D dynamic-range multiplier (default 4)

	// Optional phase expression source text; compiled lazily.
	PhaseExprSrc string

	// Optional ARC.
	Substrate string
	ARC       string

	// Optional custom intensity samples.
	Custom *CustomIntensity

	// Ideal-exposure 1D extra contrast factor (§4.C).
	Contrast float64

	// Grid sizing.
	NX int
	NY int
	NZ int

	// Target CD widths, for the fitter (§3, §4.H); optional.
	TargetTopWidthNM    float64
	TargetBottomWidthNM float64
	TargetToleranceFrac float64
	HasTargets          bool

	Log LogFunc
}

// DefaultParams returns a Params with the spec's documented defaults:
// K = 2π (a 1 µm period), 1000-point 1D grid, ±4 period window, Dill
// response, no ARC (substrate/arc "none"), no-op logger. NX is set to
// 1000 for every sine type, so the 2000-point ideal-1D grid of
// simulate1D applies only when a caller sets NX to 0.
func DefaultParams() Params {
	return Params{
		IAvg:          1,
		V:             0,
		K:             2 * math.Pi,
		SineType:      Sine1D,
		TExp:          1,
		C:             0.022,
		Response:      ResponseDill,
		Substrate:     "none",
		ARC:           "none",
		Wavelength:    405,
		WindowPeriods: 4,
		NX:            1000,
		Log:           NoopLog,
	}
}

// Validate enforces §3's range/sign contract. Returns ErrInvalidParameter
// on the first violation found; this is the one fatal error kind (§7).
func (p *Params) Validate() error {
	if p.Log == nil {
		p.Log = NoopLog
	}
	if p.IAvg <= 0 || p.IAvg > 1e4 {
		return invalidParam("I_avg", "must be in (0, 1e4]")
	}
	if p.V < 0 || p.V > 1 {
		return invalidParam("V", "must be in [0,1]")
	}
	switch p.SineType {
	case Sine1D, SineIdeal1D:
		if p.HasPeriod {
			if p.Period <= 0 {
				return invalidParam("period", "must be > 0")
			}
		} else if p.K <= 0 || p.K > 100 {
			return invalidParam("K", "must be in (0,100]")
		}
	case Sine2D:
		// The 2D latent-image path (simulate2DLatent) derives its
		// frequency from K/Period exactly like the 1D path; Kx/Ky only
		// matter for the literal non-separable 2D sinusoidal field used
		// by SimulateGrid2D. Either is an acceptable configuration.
		kOK := false
		if p.HasPeriod {
			kOK = p.Period > 0
		} else {
			kOK = p.K > 0 && p.K <= 100
		}
		kxkyOK := p.Kx > 0 && p.Kx <= 100 && p.Ky > 0 && p.Ky <= 100
		if !kOK && !kxkyOK {
			return invalidParam("K/Kx,Ky", "2D sine requires K (or period), or Kx and Ky, in (0,100]")
		}
	case Sine3D:
		if p.Kx <= 0 || p.Kx > 100 || p.Ky <= 0 || p.Ky > 100 || p.Kz <= 0 || p.Kz > 100 {
			return invalidParam("Kx/Ky/Kz", "must be in (0,100]")
		}
	case SineCustom:
		if p.Custom == nil || len(p.Custom.X) == 0 {
			return invalidParam("custom", "custom intensity requires at least one sample")
		}
		if len(p.Custom.X) != len(p.Custom.I) {
			return invalidParam("custom", "x and I must be equal length")
		}
	}
	if p.TExp <= 0 || p.TExp > 1e4 {
		return invalidParam("t_exp", "must be in (0, 1e4]")
	}
	if p.Cumulative.Enabled {
		if p.Cumulative.Segments < 1 {
			return invalidParam("cumulative.segments", "must be >= 1")
		}
		if len(p.Cumulative.Scales) != p.Cumulative.Segments {
			return invalidParam("cumulative.scales", "length must equal segments (ambiguous combination rejected)")
		}
		if p.Cumulative.SegmentDt <= 0 {
			return invalidParam("cumulative.segment_dt", "must be > 0")
		}
	}
	if p.C <= 0 || p.C > 100 {
		return invalidParam("C", "must be in (0,100]")
	}
	if p.HasCD && (p.CD <= 0 || p.CD > 1000) {
		return invalidParam("cd", "must be in (0,1000]")
	}
	if p.Response == ResponseIdealThreshold && !p.HasCD {
		return invalidParam("cd", "required for ideal-threshold response")
	}
	if p.HasTargets {
		if p.TargetTopWidthNM <= 0 || p.TargetBottomWidthNM <= 0 {
			return invalidParam("targets", "top/bottom widths must be > 0")
		}
		if p.TargetToleranceFrac <= 0 {
			return invalidParam("targets.tolerance", "must be > 0")
		}
	}
	if p.WindowPeriods <= 0 {
		p.WindowPeriods = 4
	}
	return nil
}

// ErrorKind tags the structured error/warning kinds of §7.
type ErrorKind string

const (
	ErrInvalidParameter  ErrorKind = "InvalidParameter"
	ErrDegenerate        ErrorKind = "Degenerate"
	ErrInterpolation     ErrorKind = "Interpolation"
	ErrCalibrationAdjust ErrorKind = "CalibrationAdjusted"
	ErrFitFailed         ErrorKind = "FitFailed"
)

// KernelError is the one fatal error kind (§7: InvalidParameter).
type KernelError struct {
	Kind  ErrorKind
	Field string
	Msg   string
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Msg)
}

func invalidParam(field, msg string) error {
	return &KernelError{Kind: ErrInvalidParameter, Field: field, Msg: msg}
}

// Warning is a non-fatal annotation recorded on a Result (§7: the
// remaining error kinds are recovered locally and surfaced here).
type Warning struct {
	Kind    ErrorKind
	Message string
}
