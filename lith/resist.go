package lith

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// applyResponse maps a dose array to (thickness/M, etchDepth) per the
// selected law (§4.E). All three laws are element-wise over dose with
// no allocation beyond the two output buffers.
func (p *Params) applyResponse(dose []float64) (m, etch []float64) {
	switch p.Response {
	case ResponseIdealThreshold:
		return idealThresholdResponse(dose, p.C, p.CD)
	case ResponseSigmoid:
		return sigmoidResponse(dose, p.V)
	default:
		return dillResponse(dose, p.C)
	}
}

// dillResponse: M(D) = exp(-C*D), thickness == M, strictly decreasing in D.
func dillResponse(dose []float64, c float64) (m, etch []float64) {
	m = make([]float64, len(dose))
	etch = make([]float64, len(dose))
	for i, d := range dose {
		v := math.Exp(-c * d)
		if !numFinite(v) {
			v = 1
		}
		m[i] = v
		etch[i] = 1 - v
	}
	return m, etch
}

// idealThresholdResponse: M = 1 if D < cd else exp(-C(D-cd)); continuous
// at D == cd (both branches equal 1 there).
func idealThresholdResponse(dose []float64, c, cd float64) (m, etch []float64) {
	m = make([]float64, len(dose))
	etch = make([]float64, len(dose))
	for i, d := range dose {
		var v float64
		if d < cd {
			v = 1
		} else {
			v = math.Exp(-c * (d - cd))
		}
		if !numFinite(v) {
			v = 1
		}
		m[i] = v
		etch[i] = 1 - v
	}
	return m, etch
}

// sigmoidResponse is the smooth contrast-threshold alternative used at
// high V: thickness = 1 / (1 + exp(s*(D - mean(D)))), s = max(0.1,
// (V-0.5)*10). Known artifact (§9): s collapses to its floor at V=0.5,
// a discontinuity in "sharpness" (not in the output itself) that the
// source exhibits and this implementation preserves rather than smooths.
func sigmoidResponse(dose []float64, v float64) (m, etch []float64) {
	m = make([]float64, len(dose))
	etch = make([]float64, len(dose))
	if len(dose) == 0 {
		return m, etch
	}
	dbar := stat.Mean(dose, nil)
	s := (v - 0.5) * 10
	if s < 0.1 {
		s = 0.1
	}
	for i, d := range dose {
		val := 1 / (1 + math.Exp(s*(d-dbar)))
		if !numFinite(val) {
			val = 1
		}
		m[i] = val
		etch[i] = 1 - val
	}
	return m, etch
}
