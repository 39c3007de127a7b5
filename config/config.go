// Package config loads JSON preset files onto a lith.Params value,
// field by field, the same way the piano preset loader does.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/dill-sim/lith"
)

// CustomFile is the JSON schema for the custom-intensity sub-object.
type CustomFile struct {
	X                []float64 `json:"x"`
	I                []float64 `json:"i"`
	OriginalUnit     string    `json:"original_unit"`
	UnitScale        *float64  `json:"unit_scale"`
	OutsideRangeMode *string   `json:"outside_range_mode"`
	CustomValue      *float64  `json:"custom_value"`
}

// CumulativeFile is the JSON schema for the cumulative-exposure sub-object.
type CumulativeFile struct {
	Enabled   *bool     `json:"enabled"`
	Segments  *int      `json:"segments"`
	SegmentDt *float64  `json:"segment_dt"`
	Scales    []float64 `json:"scales"`
}

// File is the JSON schema for a dill-sim parameter preset.
type File struct {
	IAvg          *float64        `json:"i_avg"`
	V             *float64        `json:"v"`
	K             *float64        `json:"k"`
	Kx            *float64        `json:"kx"`
	Ky            *float64        `json:"ky"`
	Kz            *float64        `json:"kz"`
	SineType      *string         `json:"sine_type"`
	TExp          *float64        `json:"t_exp"`
	Cumulative    *CumulativeFile `json:"cumulative"`
	C             *float64        `json:"c"`
	CD            *float64        `json:"cd"`
	Response      *string         `json:"response"`
	Period        *float64        `json:"period"`
	Wavelength    *float64        `json:"wavelength_nm"`
	WindowPeriods *float64        `json:"window_periods"`
	PhaseExpr     *string         `json:"phase_expr"`
	Substrate     *string         `json:"substrate"`
	ARC           *string         `json:"arc"`
	Custom        *CustomFile     `json:"custom_intensity"`
	Contrast      *float64        `json:"contrast"`
	NX            *int            `json:"nx"`
	NY            *int            `json:"ny"`
	NZ            *int            `json:"nz"`
	TargetTopNM   *float64        `json:"target_top_width_nm"`
	TargetBotNM   *float64        `json:"target_bottom_width_nm"`
	TargetTolFrac *float64        `json:"target_tolerance_frac"`
}

// Load reads a preset file and applies it on top of lith.DefaultParams.
func Load(path string) (*lith.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := lith.DefaultParams()
	if err := Apply(&p, &f); err != nil {
		return nil, err
	}
	return &p, nil
}

var sineTypeNames = map[string]lith.SineType{
	"1d":       lith.Sine1D,
	"2d":       lith.Sine2D,
	"3d":       lith.Sine3D,
	"ideal_1d": lith.SineIdeal1D,
	"custom":   lith.SineCustom,
}

var responseNames = map[string]lith.ResponseModel{
	"dill":            lith.ResponseDill,
	"ideal_threshold": lith.ResponseIdealThreshold,
	"sigmoid":         lith.ResponseSigmoid,
}

var outsideModeNames = map[string]lith.OutsideRangeMode{
	"zero":     lith.OutsideZero,
	"boundary": lith.OutsideBoundary,
	"custom":   lith.OutsideCustom,
}

// Apply applies a parsed preset file onto an existing Params, field by
// field, rejecting out-of-range values the same way the source JSON
// validator does.
func Apply(dst *lith.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.IAvg != nil {
		if *f.IAvg <= 0 {
			return fmt.Errorf("i_avg must be > 0")
		}
		dst.IAvg = *f.IAvg
	}
	if f.V != nil {
		if *f.V < 0 || *f.V > 1 {
			return fmt.Errorf("v must be in [0,1]")
		}
		dst.V = *f.V
	}
	if f.K != nil {
		dst.K = *f.K
	}
	if f.Kx != nil {
		dst.Kx = *f.Kx
	}
	if f.Ky != nil {
		dst.Ky = *f.Ky
	}
	if f.Kz != nil {
		dst.Kz = *f.Kz
	}
	if f.SineType != nil {
		st, ok := sineTypeNames[strings.ToLower(strings.TrimSpace(*f.SineType))]
		if !ok {
			return fmt.Errorf("unknown sine_type %q", *f.SineType)
		}
		dst.SineType = st
	}
	if f.TExp != nil {
		if *f.TExp <= 0 {
			return fmt.Errorf("t_exp must be > 0")
		}
		dst.TExp = *f.TExp
	}
	if f.Cumulative != nil {
		if err := applyCumulative(dst, f.Cumulative); err != nil {
			return err
		}
	}
	if f.C != nil {
		if *f.C <= 0 {
			return fmt.Errorf("c must be > 0")
		}
		dst.C = *f.C
	}
	if f.CD != nil {
		dst.CD = *f.CD
		dst.HasCD = true
	}
	if f.Response != nil {
		rm, ok := responseNames[strings.ToLower(strings.TrimSpace(*f.Response))]
		if !ok {
			return fmt.Errorf("unknown response %q", *f.Response)
		}
		dst.Response = rm
	}
	if f.Period != nil {
		if *f.Period <= 0 {
			return fmt.Errorf("period must be > 0")
		}
		dst.Period = *f.Period
		dst.HasPeriod = true
	}
	if f.Wavelength != nil {
		if *f.Wavelength <= 0 {
			return fmt.Errorf("wavelength_nm must be > 0")
		}
		dst.Wavelength = *f.Wavelength
	}
	if f.WindowPeriods != nil {
		if *f.WindowPeriods <= 0 {
			return fmt.Errorf("window_periods must be > 0")
		}
		dst.WindowPeriods = *f.WindowPeriods
	}
	if f.PhaseExpr != nil {
		dst.PhaseExprSrc = strings.TrimSpace(*f.PhaseExpr)
	}
	if f.Substrate != nil {
		dst.Substrate = strings.ToLower(strings.TrimSpace(*f.Substrate))
	}
	if f.ARC != nil {
		dst.ARC = strings.ToLower(strings.TrimSpace(*f.ARC))
	}
	if f.Custom != nil {
		c, err := applyCustom(f.Custom)
		if err != nil {
			return err
		}
		dst.Custom = c
		dst.SineType = lith.SineCustom
	}
	if f.Contrast != nil {
		dst.Contrast = *f.Contrast
	}
	if f.NX != nil {
		if *f.NX <= 0 {
			return fmt.Errorf("nx must be > 0")
		}
		dst.NX = *f.NX
	}
	if f.NY != nil {
		if *f.NY <= 0 {
			return fmt.Errorf("ny must be > 0")
		}
		dst.NY = *f.NY
	}
	if f.NZ != nil {
		if *f.NZ <= 0 {
			return fmt.Errorf("nz must be > 0")
		}
		dst.NZ = *f.NZ
	}
	if f.TargetTopNM != nil {
		if *f.TargetTopNM <= 0 {
			return fmt.Errorf("target_top_width_nm must be > 0")
		}
		dst.TargetTopWidthNM = *f.TargetTopNM
		dst.HasTargets = true
	}
	if f.TargetBotNM != nil {
		if *f.TargetBotNM <= 0 {
			return fmt.Errorf("target_bottom_width_nm must be > 0")
		}
		dst.TargetBottomWidthNM = *f.TargetBotNM
		dst.HasTargets = true
	}
	if f.TargetTolFrac != nil {
		if *f.TargetTolFrac <= 0 {
			return fmt.Errorf("target_tolerance_frac must be > 0")
		}
		dst.TargetToleranceFrac = *f.TargetTolFrac
	}

	return nil
}

func applyCumulative(dst *lith.Params, f *CumulativeFile) error {
	if f.Enabled != nil {
		dst.Cumulative.Enabled = *f.Enabled
	}
	if f.Segments != nil {
		if *f.Segments <= 0 {
			return fmt.Errorf("cumulative.segments must be > 0")
		}
		dst.Cumulative.Segments = *f.Segments
	}
	if f.SegmentDt != nil {
		if *f.SegmentDt <= 0 {
			return fmt.Errorf("cumulative.segment_dt must be > 0")
		}
		dst.Cumulative.SegmentDt = *f.SegmentDt
	}
	if f.Scales != nil {
		dst.Cumulative.Scales = append([]float64(nil), f.Scales...)
	}
	return nil
}

func applyCustom(f *CustomFile) (*lith.CustomIntensity, error) {
	if len(f.X) == 0 || len(f.X) != len(f.I) {
		return nil, fmt.Errorf("custom_intensity.x and .i must be non-empty and equal length")
	}
	c := &lith.CustomIntensity{
		X:            append([]float64(nil), f.X...),
		I:            append([]float64(nil), f.I...),
		OriginalUnit: f.OriginalUnit,
		UnitScale:    1.0,
	}
	if f.UnitScale != nil {
		if *f.UnitScale <= 0 {
			return nil, fmt.Errorf("custom_intensity.unit_scale must be > 0")
		}
		c.UnitScale = *f.UnitScale
	}
	if f.OutsideRangeMode != nil {
		mode, ok := outsideModeNames[strings.ToLower(strings.TrimSpace(*f.OutsideRangeMode))]
		if !ok {
			return nil, fmt.Errorf("unknown custom_intensity.outside_range_mode %q", *f.OutsideRangeMode)
		}
		c.OutsideRangeMode = mode
	}
	if f.CustomValue != nil {
		c.CustomValue = *f.CustomValue
	}
	return c, nil
}
