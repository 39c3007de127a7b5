package lith

import (
	"iter"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"

	"github.com/cwbudde/dill-sim/internal/numutil"
)

// Simulate is the grid sweeper of §4.F and the kernel's main entry
// point (§6). It drives the builder/accumulator/response chain over the
// shape implied by Params.SineType and returns a fixed-schema Result.
//
// State machine (§4.F): Idle -> ValidateParams -> BuildField ->
// AccumulateDose -> ApplyResponse -> Return. Any state may short-circuit
// to a recovered failure (warnings attached) except ValidateParams,
// whose failure is the one fatal error (§7).
func Simulate(db *MaterialDB, params Params) (Result, error) {
	p := params
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	log := p.Log

	ctx := &buildFieldCtx{phi: ParsePhaseExpr(p.PhaseExprSrc), tau: 1.0}
	if db != nil && (p.Substrate != "" || p.ARC != "") {
		arcp := db.ARCParamsFor(p.Substrate, p.ARC, p.Wavelength)
		ctx.tau = arcp.TransmissionFactor
	}
	log("BuildField", "info", "field construction started")

	var res Result
	switch p.SineType {
	case Sine2D:
		res = p.simulate2DLatent(ctx)
	case Sine3D:
		res = p.simulate3DStatic(ctx)
	default:
		res = p.simulate1D(ctx)
	}
	res.Warnings = append(res.Warnings, ctx.warn...)

	if isDegenerate(res.Intensity.Data) {
		res.Warnings = append(res.Warnings, Warning{Kind: ErrDegenerate, Message: "no spatial variation (std < 1e-10)"})
		log("ApplyResponse", "warn", "degenerate field")
	}
	log("Return", "info", "simulate complete")
	return res, nil
}

func isDegenerate(xs []float64) bool {
	if len(xs) < 2 {
		return false
	}
	mean := numutil.Mean(xs)
	var sumsq float64
	for _, x := range xs {
		d := x - mean
		sumsq += d * d
	}
	std := math.Sqrt(sumsq / float64(len(xs)))
	return std < 1e-10
}

// simulate1D builds the 1D path (and the ideal-threshold 1D path, which
// shares the same machinery with a different default grid size and
// response law, and the cumulative mode of §4.D).
func (p *Params) simulate1D(ctx *buildFieldCtx) Result {
	n := p.NX
	if n <= 0 {
		n = 1000
		if p.SineType == SineIdeal1D {
			n = 2000
		}
	}

	xMin, xMax := -5.0, 5.0
	if p.HasPeriod && p.Period > 0 {
		half := p.WindowPeriods * p.Period
		xMin, xMax = -half, half
	}
	x := numutil.Linspace(xMin, xMax, n)

	base := p.buildIntensity1D(ctx, x, 0)
	dose, display := p.accumulateDose(base)
	m, etch := p.applyResponse(dose)

	return Result{
		Kind:         KindResult1D,
		XCoords:      x,
		Intensity:    NDArray{Shape: []int{n}, Data: display},
		ExposureDose: NDArray{Shape: []int{n}, Data: dose},
		Thickness:    NDArray{Shape: []int{n}, Data: m},
		M:            NDArray{Shape: []int{n}, Data: m},
		EtchDepth:    NDArray{Shape: []int{n}, Data: etch},
	}
}

func (p *Params) simulate3DStatic(ctx *buildFieldCtx) Result {
	nx, ny, nz := gridDims3(p)
	x := numutil.Linspace(-5, 5, nx)
	y := numutil.Linspace(-5, 5, ny)
	z := numutil.Linspace(-5, 5, nz)

	shape := []int{nx, ny, nz}
	total := nx * ny * nz
	intensity := make([]float64, total)
	dose := make([]float64, total)
	idx := 0
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				iv := clampNonNegative(p.intensity3D(ctx, x[i], y[j], z[k], 0))
				intensity[idx] = iv
				dose[idx] = iv * p.TExp
				idx++
			}
		}
	}
	m, etch := p.applyResponse(dose)

	return Result{
		Kind:         KindResult3D,
		XCoords:      x,
		YCoords:      y,
		ZCoords:      z,
		Intensity:    NDArray{Shape: shape, Data: intensity},
		ExposureDose: NDArray{Shape: shape, Data: dose},
		Thickness:    NDArray{Shape: shape, Data: m},
		M:            NDArray{Shape: shape, Data: m},
		EtchDepth:    NDArray{Shape: shape, Data: etch},
	}
}

func gridDims3(p *Params) (int, int, int) {
	nx, ny, nz := p.NX, p.NY, p.NZ
	if nx <= 0 {
		nx = 50
	}
	if ny <= 0 {
		ny = 50
	}
	if nz <= 0 {
		nz = 50
	}
	return nx, ny, nz
}

// simulate2DLatent builds the 2D latent image (§4.F, the hardest single
// path): a separable 1D intensity in x, broadcast into D0(x,y), then
// symmetrized as D = D0 + D0^T. This transpose-add is the essential
// design choice reproducing the checkerboard latent image from a 1D
// interference pattern; it must be reproduced exactly.
func (p *Params) simulate2DLatent(ctx *buildFieldCtx) Result {
	n := p.NX
	if n <= 0 {
		n = 401
	}
	xMin, xMax := -1000.0, 1000.0
	if p.HasPeriod && p.Period > 0 {
		half := p.WindowPeriods * p.Period
		xMin, xMax = -half, half
	}
	x := numutil.Linspace(xMin, xMax, n)
	y := append([]float64(nil), x...)

	intensity1D := p.buildIntensity1D(ctx, x, 0)

	d0 := make([][]float64, n)
	for i := range d0 {
		d0[i] = make([]float64, n)
		for j := range d0[i] {
			d0[i][j] = intensity1D[i] * p.TExp
		}
	}

	dose := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dose[i*n+j] = d0[i][j] + d0[j][i]
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
			coverage := coverageFraction(dose, cd)
			if coverage < 0.10 {
				cd = doseMin + 0.30*doseRange
				adjusted = true
			}
		}
	}
	if adjusted {
		warnings = append(warnings, Warning{Kind: ErrCalibrationAdjust, Message: "2D threshold cd auto-adjusted to fit dose range"})
		p.Log("AccumulateDose", "warn", "2D latent image threshold recalibrated")
	}

	if nyq := p.nyquistWarning(x, dose); nyq != "" {
		warnings = append(warnings, Warning{Kind: ErrCalibrationAdjust, Message: nyq})
	}

	m, etch := idealThresholdResponse(dose, p.C, cd)

	shape := []int{n, n}
	return Result{
		Kind:         KindResult2D,
		XCoords:      x,
		YCoords:      y,
		Intensity:    NDArray{Shape: shape, Data: broadcastRows(intensity1D, n)},
		ExposureDose: NDArray{Shape: shape, Data: dose},
		Thickness:    NDArray{Shape: shape, Data: m},
		M:            NDArray{Shape: shape, Data: m},
		EtchDepth:    NDArray{Shape: shape, Data: etch},
		Warnings:     warnings,
	}
}

func broadcastRows(row []float64, n int) []float64 {
	out := make([]float64, n*n)
	for i := 0; i < n; i++ {
		copy(out[i*n:(i+1)*n], row)
	}
	return out
}

func coverageFraction(dose []float64, cd float64) float64 {
	if len(dose) == 0 {
		return 0
	}
	count := 0
	for _, d := range dose {
		if d >= cd {
			count++
		}
	}
	return float64(count) / float64(len(dose))
}

// nyquistWarning upgrades the spec's simple "P < 2*step or P >
// range/3" rule with an actual spectral check: a real FFT of the dose
// row flags more than 10% of its energy in the upper half of the
// frequency bins, and the
// finite-difference Laplacian eigen-spread (periodic vs Dirichlet
// boundary) is attached as a secondary numerical-stability diagnostic.
// Neither changes the computed Result; both are advisory.
func (p *Params) nyquistWarning(x []float64, dose []float64) string {
	n := len(x)
	if n < 4 {
		return ""
	}
	step := x[1] - x[0]
	rangeSpan := x[n-1] - x[0]

	if p.HasPeriod && p.Period > 0 {
		if p.Period < 2*step {
			return "period below twice the grid step (aliasing risk)"
		}
		if p.Period > rangeSpan/3 {
			return "period exceeds one third of the simulated range"
		}
	}

	row := dose[:n]
	if spectralAliasFraction(row) > 0.10 {
		return "dose row spectrum carries >10% energy in the upper half of its frequency bins"
	}

	h := step
	periodic := pdefd.Eigenvalues(n, h, pdepoisson.Periodic)
	dirichlet := pdefd.Eigenvalues(n, h, pdepoisson.Dirichlet)
	if eigenSpreadUnstable(periodic) || eigenSpreadUnstable(dirichlet) {
		return "finite-difference Laplacian eigen-spread indicates a poorly resolved grid"
	}
	return ""
}

func eigenSpreadUnstable(eig []float64) bool {
	if len(eig) == 0 {
		return false
	}
	lo, hi := numutil.MinMax(eig)
	return hi != 0 && math.Abs(lo/hi) > 1e6
}

// spectralAliasFraction returns the fraction of spectral energy found
// in the top half of the available frequency bins.
func spectralAliasFraction(row []float64) float64 {
	n := len(row)
	if n < 8 {
		return 0
	}
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return 0
	}
	spec := make([]complex128, n/2+1)
	if err := plan.Forward(spec, row); err != nil {
		return 0
	}
	var total, high float64
	for i, c := range spec {
		mag := real(c)*real(c) + imag(c)*imag(c)
		total += mag
		if i > len(spec)/2 {
			high += mag
		}
	}
	if total == 0 {
		return 0
	}
	return high / total
}

// SimulateFrames drives a 4D animation: one frame per t in ts, returned
// as a finite lazy sequence (§4.F, §6) — each frame is only built when
// the consumer pulls it. Frames use the same grids and response laws as
// Simulate, evaluated at t. 2D frames apply the threshold cd as given:
// they do not recalibrate it and carry no calibration or Nyquist
// warnings. No frame carries a Degenerate warning. Invalid params end
// the sequence before the first frame.
func SimulateFrames(db *MaterialDB, params Params, ts []float64) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for _, t := range ts {
			p := params
			if err := p.Validate(); err != nil {
				return
			}
			ctx := &buildFieldCtx{phi: ParsePhaseExpr(p.PhaseExprSrc), tau: 1.0}
			if db != nil {
				arcp := db.ARCParamsFor(p.Substrate, p.ARC, p.Wavelength)
				ctx.tau = arcp.TransmissionFactor
			}
			var res Result
			switch p.SineType {
			case Sine2D:
				res = p.simulate2DLatentAtT(ctx, t)
			case Sine3D:
				res = p.simulate3DStaticAtT(ctx, t)
			default:
				res = p.simulate1DAtT(ctx, t)
			}
			res.Warnings = append(res.Warnings, ctx.warn...)
			if !yield(Frame{T: t, Result: res}) {
				return
			}
		}
	}
}

func (p *Params) simulate1DAtT(ctx *buildFieldCtx, t float64) Result {
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
	base := p.buildIntensity1D(ctx, x, t)
	dose, display := p.accumulateDose(base)
	m, etch := p.applyResponse(dose)
	return Result{
		Kind:         KindResult1D,
		XCoords:      x,
		Intensity:    NDArray{Shape: []int{n}, Data: display},
		ExposureDose: NDArray{Shape: []int{n}, Data: dose},
		Thickness:    NDArray{Shape: []int{n}, Data: m},
		M:            NDArray{Shape: []int{n}, Data: m},
		EtchDepth:    NDArray{Shape: []int{n}, Data: etch},
	}
}

func (p *Params) simulate2DLatentAtT(ctx *buildFieldCtx, t float64) Result {
	n := p.NX
	if n <= 0 {
		n = 401
	}
	xMin, xMax := -1000.0, 1000.0
	if p.HasPeriod && p.Period > 0 {
		half := p.WindowPeriods * p.Period
		xMin, xMax = -half, half
	}
	x := numutil.Linspace(xMin, xMax, n)
	intensity1D := p.buildIntensity1D(ctx, x, t)
	dose := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d0ij := intensity1D[i] * p.TExp
			d0ji := intensity1D[j] * p.TExp
			dose[i*n+j] = d0ij + d0ji
		}
	}
	cd := p.CD
	if !p.HasCD {
		cd = numutil.Mean(dose)
	}
	m, etch := idealThresholdResponse(dose, p.C, cd)
	shape := []int{n, n}
	return Result{
		Kind:         KindResult2D,
		XCoords:      x,
		YCoords:      append([]float64(nil), x...),
		Intensity:    NDArray{Shape: shape, Data: broadcastRows(intensity1D, n)},
		ExposureDose: NDArray{Shape: shape, Data: dose},
		Thickness:    NDArray{Shape: shape, Data: m},
		M:            NDArray{Shape: shape, Data: m},
		EtchDepth:    NDArray{Shape: shape, Data: etch},
	}
}

func (p *Params) simulate3DStaticAtT(ctx *buildFieldCtx, t float64) Result {
	nx, ny, nz := gridDims3(p)
	x := numutil.Linspace(-5, 5, nx)
	y := numutil.Linspace(-5, 5, ny)
	z := numutil.Linspace(-5, 5, nz)
	shape := []int{nx, ny, nz}
	total := nx * ny * nz
	intensity := make([]float64, total)
	dose := make([]float64, total)
	idx := 0
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				iv := clampNonNegative(p.intensity3D(ctx, x[i], y[j], z[k], t))
				intensity[idx] = iv
				dose[idx] = iv * p.TExp
				idx++
			}
		}
	}
	m, etch := p.applyResponse(dose)
	return Result{
		Kind:         KindResult3D,
		XCoords:      x,
		YCoords:      y,
		ZCoords:      z,
		Intensity:    NDArray{Shape: shape, Data: intensity},
		ExposureDose: NDArray{Shape: shape, Data: dose},
		Thickness:    NDArray{Shape: shape, Data: m},
		M:            NDArray{Shape: shape, Data: m},
		EtchDepth:    NDArray{Shape: shape, Data: etch},
	}
}

// MaterialDBFacade returns the default optical table (§6 material_db).
// Each call builds a fresh table with DefaultMaterialDB.
func MaterialDBFacade() *MaterialDB {
	return DefaultMaterialDB()
}
