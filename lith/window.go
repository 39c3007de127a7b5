package lith

import "github.com/cwbudde/dill-sim/internal/numutil"

// SimulateExposureWindow accumulates dose over an explicit list of
// exposure-time samples on one fixed spatial grid, returning a single
// Result where SimulateFrames returns one frame per time (§4 supplement, grounded on the
// Python original's enable_exposure_time_window / custom_exposure_times
// path). The grid is built once; each requested time contributes an
// equal share of TExp to the total dose, and the displayed intensity is
// the plain average across times.
func SimulateExposureWindow(db *MaterialDB, params Params, times []float64) (Result, error) {
	p := params
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(times) == 0 {
		return Result{}, &KernelError{Kind: ErrInvalidParameter, Field: "times", Msg: "must supply at least one exposure time"}
	}

	ctx := &buildFieldCtx{phi: ParsePhaseExpr(p.PhaseExprSrc), tau: 1.0}
	if db != nil && (p.Substrate != "" || p.ARC != "") {
		arcp := db.ARCParamsFor(p.Substrate, p.ARC, p.Wavelength)
		ctx.tau = arcp.TransmissionFactor
	}

	n := p.NX
	if n <= 0 {
		n = 1000
	}
	xMin, xMax := -5.0, 5.0
	if p.HasPeriod && p.Period > 0 {
		half := p.WindowPeriods * p.Period
		xMin, xMax = -half, half
	}
	x := numutil.Linspace(xMin, xMax, n)

	dose := make([]float64, n)
	display := make([]float64, n)
	share := 1.0 / float64(len(times))
	for _, t := range times {
		row := p.buildIntensity1D(ctx, x, t)
		for i, v := range row {
			dose[i] += v * p.TExp * share
			display[i] += v * share
		}
	}

	m, etch := p.applyResponse(dose)
	return Result{
		Kind:         KindResult1D,
		XCoords:      x,
		Intensity:    NDArray{Shape: []int{n}, Data: display},
		ExposureDose: NDArray{Shape: []int{n}, Data: dose},
		Thickness:    NDArray{Shape: []int{n}, Data: m},
		M:            NDArray{Shape: []int{n}, Data: m},
		EtchDepth:    NDArray{Shape: []int{n}, Data: etch},
		Warnings:     append([]Warning(nil), ctx.warn...),
	}, nil
}

// Grid2D is the asymmetric rectangular 2D exposure-pattern descriptor
// (§4 supplement, grounded on the Python original's x_min_2d/x_max_2d/
// y_min_2d/y_max_2d/step_size_2d parameters). It generalizes
// simulate2DLatent's symmetric +-half window into independent x/y
// ranges and an explicit step size.
type Grid2D struct {
	XMin, XMax float64
	YMin, YMax float64
	StepSize   float64
}

func (g Grid2D) axis(min, max float64) []float64 {
	step := g.StepSize
	if step <= 0 {
		step = 1
	}
	n := int((max-min)/step) + 1
	if n < 2 {
		n = 2
	}
	return numutil.Linspace(min, max, n)
}

// SimulateGrid2D builds a 2D dose image over grid. When Kx and Ky are
// both set it uses the non-separable 2D sinusoidal field; otherwise it
// builds the separable latent image, and when grid's x and y ranges
// coincide that reduces to exactly simulate2DLatent's D = D0 + D0^T
// construction. Independent ranges reproduce the original source's
// asymmetric routes without special-casing the symmetric path.
func (p *Params) SimulateGrid2D(db *MaterialDB, grid Grid2D) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	ctx := &buildFieldCtx{phi: ParsePhaseExpr(p.PhaseExprSrc), tau: 1.0}
	if db != nil && (p.Substrate != "" || p.ARC != "") {
		arcp := db.ARCParamsFor(p.Substrate, p.ARC, p.Wavelength)
		ctx.tau = arcp.TransmissionFactor
	}

	x := grid.axis(grid.XMin, grid.XMax)
	y := grid.axis(grid.YMin, grid.YMax)
	nx, ny := len(x), len(y)

	dose := make([]float64, nx*ny)
	var intensityData []float64
	if p.Kx > 0 && p.Ky > 0 {
		// The literal non-separable 2D sinusoidal field of §4.C:
		// I(x,y) = I_avg*tau*(1+V*cos(Kx*x+Ky*y+phi(t))). Distinct from
		// the latent-image transpose-add construction below, which
		// models interference from a single 1D pattern instead.
		intensityData = make([]float64, nx*ny)
		for i := 0; i < nx; i++ {
			for j := 0; j < ny; j++ {
				iv := clampNonNegative(p.intensity2D(ctx, x[i], y[j], 0))
				intensityData[i*ny+j] = iv
				dose[i*ny+j] = iv * p.TExp
			}
		}
	} else {
		ix := p.buildIntensity1D(ctx, x, 0)
		iy := p.buildIntensity1D(ctx, y, 0)
		intensityData = broadcastAxisX(ix, ny)
		for i := 0; i < nx; i++ {
			d0x := ix[i] * p.TExp
			for j := 0; j < ny; j++ {
				dose[i*ny+j] = d0x + iy[j]*p.TExp
			}
		}
	}

	cd := p.CD
	if !p.HasCD {
		cd = numutil.Mean(dose)
	}
	doseMin, doseMax := numutil.MinMax(dose)
	doseRange := doseMax - doseMin
	var warnings []Warning
	adjusted := false
	if doseRange > 0 {
		switch {
		case cd > 2*doseMax:
			cd = doseMin + 0.40*doseRange
			adjusted = true
		case cd < doseMin:
			cd = doseMin + 0.60*doseRange
			adjusted = true
		default:
			if coverageFraction(dose, cd) < 0.10 {
				cd = doseMin + 0.30*doseRange
				adjusted = true
			}
		}
	}
	if adjusted {
		warnings = append(warnings, Warning{Kind: ErrCalibrationAdjust, Message: "grid2D threshold cd auto-adjusted to fit dose range"})
	}

	m, etch := idealThresholdResponse(dose, p.C, cd)
	shape := []int{nx, ny}
	return Result{
		Kind:         KindResult2D,
		XCoords:      x,
		YCoords:      y,
		Intensity:    NDArray{Shape: shape, Data: intensityData},
		ExposureDose: NDArray{Shape: shape, Data: dose},
		Thickness:    NDArray{Shape: shape, Data: m},
		M:            NDArray{Shape: shape, Data: m},
		EtchDepth:    NDArray{Shape: shape, Data: etch},
		Warnings:     append(warnings, ctx.warn...),
	}, nil
}

// broadcastAxisX repeats each ix[i] across a row of length ny, the
// row-major counterpart of broadcastRows for non-square grids.
func broadcastAxisX(ix []float64, ny int) []float64 {
	out := make([]float64, len(ix)*ny)
	for i, v := range ix {
		row := out[i*ny : (i+1)*ny]
		for j := range row {
			row[j] = v
		}
	}
	return out
}
