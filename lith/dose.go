package lith

import "gonum.org/v1/gonum/floats"

// accumulateDose implements §4.D. baseIntensity is I(x,...,t=0) with the
// ARC factor and I_avg already folded in (as built by buildIntensity1D
// et al.). Returns (dose, displayIntensity); for the single-shot mode
// displayIntensity == baseIntensity.
func (p *Params) accumulateDose(baseIntensity []float64) (dose, displayIntensity []float64) {
	if !p.Cumulative.Enabled {
		dose = make([]float64, len(baseIntensity))
		copy(dose, baseIntensity)
		floats.Scale(p.TExp, dose)
		return dose, baseIntensity
	}

	n := len(baseIntensity)
	dose = make([]float64, n)
	displayIntensity = make([]float64, n)

	scales := p.Cumulative.Scales
	dt := p.Cumulative.SegmentDt
	seg := make([]float64, n)
	for _, s := range scales {
		copy(seg, baseIntensity)
		floats.Scale(s*dt, seg)
		floats.Add(dose, seg)
	}
	meanScale := meanOf(scales)
	copy(displayIntensity, baseIntensity)
	floats.Scale(meanScale, displayIntensity)
	return dose, displayIntensity
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Sum(xs) / float64(len(xs))
}
