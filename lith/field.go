package lith

import (
	"math"
	"sort"
)

// buildFieldCtx carries the pieces the field builder needs that aren't
// already on Params: the compiled phase expression and the ARC
// transmission factor, both derived once per Simulate call.
type buildFieldCtx struct {
	phi   PhaseExpr
	tau   float64 // ARC transmission factor; 1.0 if unused
	warn  []Warning
}

// intensity1D evaluates I(x) at time t for the 1D/ideal-1D sine modes.
func (p *Params) intensity1D(ctx *buildFieldCtx, x, t float64) float64 {
	k := p.K
	if p.HasPeriod {
		k = 2 * math.Pi / p.Period
	}
	phase := k*x + ctx.phi.Eval(t)
	contrast := 1.0
	if p.SineType == SineIdeal1D && p.Contrast != 0 {
		contrast = p.Contrast
	}
	return p.IAvg * ctx.tau * (1 + p.V*contrast*math.Cos(phase))
}

func (p *Params) intensity2D(ctx *buildFieldCtx, x, y, t float64) float64 {
	phase := p.Kx*x + p.Ky*y + ctx.phi.Eval(t)
	return p.IAvg * ctx.tau * (1 + p.V*math.Cos(phase))
}

func (p *Params) intensity3D(ctx *buildFieldCtx, x, y, z, t float64) float64 {
	phase := p.Kx*x + p.Ky*y + p.Kz*z + ctx.phi.Eval(t)
	return p.IAvg * ctx.tau * (1 + p.V*math.Cos(phase))
}

// buildIntensity1D fills I[i] = I(x[i], t). Warnings raised during the
// build (e.g. custom-sample fallback) are appended to ctx.warn.
func (p *Params) buildIntensity1D(ctx *buildFieldCtx, x []float64, t float64) []float64 {
	out := make([]float64, len(x))
	if p.SineType == SineCustom {
		vals, ok := p.customSampleOnAxis(ctx, x)
		if ok {
			for i, v := range vals {
				out[i] = clampNonNegative(v)
			}
			return out
		}
		// Fall back to the formula mode corresponding to the current
		// family (§4.C fail mode): here, plain 1D sinusoidal.
		ctx.warn = append(ctx.warn, Warning{Kind: ErrInterpolation, Message: "custom intensity fallback to formula mode"})
	}
	for i, xi := range x {
		out[i] = clampNonNegative(p.intensity1D(ctx, xi, t))
	}
	return out
}

func clampNonNegative(v float64) float64 {
	if !numFinite(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	return v
}

// customSampleOnAxis performs the unit-inference + piecewise-linear
// interpolation of §4.C precisely. Returns ok=false on any failure
// (caller falls back to the formula mode).
func (p *Params) customSampleOnAxis(ctx *buildFieldCtx, targetX []float64) ([]float64, bool) {
	c := p.Custom
	if c == nil || len(c.X) == 0 || len(c.X) != len(c.I) {
		return nil, false
	}

	xs := append([]float64(nil), c.X...)
	is := append([]float64(nil), c.I...)

	// Step 4: sort by x if not monotone.
	if !isSortedFloats(xs) {
		idx := make([]int, len(xs))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(i, j int) bool { return xs[idx[i]] < xs[idx[j]] })
		sx := make([]float64, len(xs))
		si := make([]float64, len(is))
		for i, j := range idx {
			sx[i] = xs[j]
			si[i] = is[j]
		}
		xs, is = sx, si
	}

	// Step 1-3: unit inference and conversion to the target axis's unit
	// (µm). original_unit="pixels" bypasses scaling entirely.
	scale := 1.0
	if c.OriginalUnit == "pixels" {
		scale = 1.0
	} else {
		span := xs[len(xs)-1] - xs[0]
		inferredMM := span < 10
		declaredMM := c.OriginalUnit == "mm"
		if c.OriginalUnit != "" && c.OriginalUnit != "mm" && c.OriginalUnit != "um" {
			// Unrecognized unit string: infer only.
		} else if c.OriginalUnit != "" && declaredMM != inferredMM {
			ctx.warn = append(ctx.warn, Warning{Kind: ErrInterpolation, Message: "custom intensity unit mismatch between declared and inferred unit"})
		}
		useMM := inferredMM
		if c.OriginalUnit == "mm" || c.OriginalUnit == "um" {
			useMM = declaredMM
		}
		if useMM {
			scale = 1000.0 // mm -> µm
		} else {
			scale = 1.0
		}
	}
	if c.UnitScale != 0 {
		scale *= c.UnitScale
	}
	if scale != 1.0 {
		for i := range xs {
			xs[i] *= scale
		}
	}

	out := make([]float64, len(targetX))
	for i, tx := range targetX {
		v, ok := interpolateLinear(xs, is, tx, c.OutsideRangeMode, c.CustomValue)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// interpolateLinear evaluates one target point by binary search over the
// sorted samples, without allocating an extended x/I array per call.
func interpolateLinear(xs, is []float64, tx float64, mode OutsideRangeMode, customValue float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	if tx <= xs[0] {
		if tx == xs[0] {
			return is[0], true
		}
		switch mode {
		case OutsideZero:
			return 0, true
		case OutsideBoundary:
			return is[0], true
		case OutsideCustom:
			return customValue, true
		}
		return 0, true
	}
	if tx >= xs[len(xs)-1] {
		if tx == xs[len(xs)-1] {
			return is[len(is)-1], true
		}
		switch mode {
		case OutsideZero:
			return 0, true
		case OutsideBoundary:
			return is[len(is)-1], true
		case OutsideCustom:
			return customValue, true
		}
		return 0, true
	}
	// Binary search for the bracketing segment; the series is sorted.
	lo, hi := 0, len(xs)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= tx {
			lo = mid
		} else {
			hi = mid
		}
	}
	x0, x1 := xs[lo], xs[hi]
	i0, i1 := is[lo], is[hi]
	if x1 == x0 {
		return i0, true
	}
	frac := (tx - x0) / (x1 - x0)
	return i0 + frac*(i1-i0), true
}

func isSortedFloats(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			return false
		}
	}
	return true
}
