package morphology

import (
	"math"
	"testing"
)

// trapezoid builds a symmetric trapezoidal thickness profile: flat top
// of half-width topHalf, linear sidewalls, flat bottom beyond
// bottomHalf, sampled on [-span, span].
func trapezoid(n int, span, topHalf, bottomHalf float64) ([]float64, []float64) {
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xi := -span + 2*span*float64(i)/float64(n-1)
		x[i] = xi
		ax := math.Abs(xi)
		var v float64
		switch {
		case ax <= topHalf:
			v = 1
		case ax >= bottomHalf:
			v = 0
		default:
			v = 1 - (ax-topHalf)/(bottomHalf-topHalf)
		}
		y[i] = v
	}
	return x, y
}

// The 90% level crosses the sidewalls at |x| = 1.1 and the 10% level at
// |x| = 1.9, so the measured widths are 2200 nm and 3800 nm.
func TestMeasureTrapezoidWidths(t *testing.T) {
	x, y := trapezoid(2001, 5, 1.0, 2.0)
	m, err := Measure(x, y, 1000)
	if err != nil {
		t.Fatalf("Measure returned error: %v", err)
	}
	if math.Abs(m.TopWidthNM-2200) > 50 {
		t.Fatalf("top width = %f nm, want ~2200", m.TopWidthNM)
	}
	if math.Abs(m.BottomWidthNM-3800) > 50 {
		t.Fatalf("bottom width = %f nm, want ~3800", m.BottomWidthNM)
	}
}

func TestMeasureSidewallAngleNearVerticalForSteepProfile(t *testing.T) {
	x, y := trapezoid(4001, 5, 1.0, 1.05)
	m, err := Measure(x, y, 1000)
	if err != nil {
		t.Fatalf("Measure returned error: %v", err)
	}
	if m.MeanAngleDeg < 80 {
		t.Fatalf("mean sidewall angle = %f, want close to 90 for a steep profile", m.MeanAngleDeg)
	}
}

func TestMeasureFlatProfileFails(t *testing.T) {
	n := 100
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
		y[i] = 0.5
	}
	_, err := Measure(x, y, 1000)
	if err != ErrFlatProfile {
		t.Fatalf("Measure() err = %v, want ErrFlatProfile", err)
	}
}

func TestMeasureTooFewSamplesOnSidewallFails(t *testing.T) {
	// A near step-function profile leaves almost no samples in the
	// [0.1, 0.9] band on either side of the peak.
	n := 20
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		if i < n/2 {
			y[i] = 0
		} else {
			y[i] = 1
		}
	}
	_, err := Measure(x, y, 1000)
	if err == nil {
		t.Fatalf("expected an error for a near-step profile with too few sidewall samples")
	}
}

func TestMeasureRejectsMismatchedLengths(t *testing.T) {
	_, err := Measure([]float64{0, 1, 2}, []float64{0, 1}, 1000)
	if err == nil {
		t.Fatalf("expected an error for mismatched array lengths")
	}
}

// TestMeasureCosineProfileWidths reproduces the cosine thickness profile
// of scenario 6, oriented as a single centered peak (thickness is
// highest where the resist is unexposed, at x=0): thickness(x) =
// 0.5*(1+cos(2*pi*x/P)) on x in [-P/2, P/2], P=1um, 2001 points. The
// 90%/10% crossing levels land at +-0.1024*P and +-0.3976*P, giving a
// top width of acos(0.8)/pi*P (~0.2048*P) and a bottom width of ~0.8*P,
// each checked within 1%.
func TestMeasureCosineProfileWidths(t *testing.T) {
	const p = 1.0
	const n = 2001
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		xi := -p/2 + p*float64(i)/float64(n-1)
		x[i] = xi
		y[i] = 0.5 * (1 + math.Cos(2*math.Pi*xi/p))
	}

	m, err := Measure(x, y, 1000)
	if err != nil {
		t.Fatalf("Measure returned error: %v", err)
	}

	wantTop := math.Acos(0.8) / math.Pi * p * 1000
	wantBottom := 0.8 * p * 1000
	if math.Abs(m.TopWidthNM-wantTop) > 0.01*wantTop {
		t.Fatalf("TopWidthNM = %f nm, want ~%f nm (1%%)", m.TopWidthNM, wantTop)
	}
	if math.Abs(m.BottomWidthNM-wantBottom) > 0.01*wantBottom {
		t.Fatalf("BottomWidthNM = %f nm, want ~%f nm (1%%)", m.BottomWidthNM, wantBottom)
	}
}
