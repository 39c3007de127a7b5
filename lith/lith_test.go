package lith

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Scenario 1: 1D Dill, default.
func TestSimulate1DDillDefault(t *testing.T) {
	db := DefaultMaterialDB()
	p := DefaultParams()
	p.V = 0.8
	p.K = 2 * math.Pi
	p.TExp = 1
	p.C = 0.022
	p.NX = 1000

	res, err := Simulate(db, p)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	idx0 := nearestIndex(res.XCoords, 0)
	idxHalf := nearestIndex(res.XCoords, math.Pi/p.K)

	if !almostEqual(res.Intensity.Data[idx0], 1.8, 1e-2) {
		t.Fatalf("I(0) = %v, want ~1.8", res.Intensity.Data[idx0])
	}
	if !almostEqual(res.Intensity.Data[idxHalf], 0.2, 1e-2) {
		t.Fatalf("I(pi/K) = %v, want ~0.2", res.Intensity.Data[idxHalf])
	}
	wantM0 := math.Exp(-0.0396)
	wantMHalf := math.Exp(-0.0044)
	if !almostEqual(res.M.Data[idx0], wantM0, 1e-2) {
		t.Fatalf("M(0) = %v, want ~%v", res.M.Data[idx0], wantM0)
	}
	if !almostEqual(res.M.Data[idxHalf], wantMHalf, 1e-2) {
		t.Fatalf("M(pi/K) = %v, want ~%v", res.M.Data[idxHalf], wantMHalf)
	}
}

// Scenario 2: ideal threshold 1D.
func TestSimulateIdealThreshold1D(t *testing.T) {
	db := DefaultMaterialDB()
	p := DefaultParams()
	p.SineType = SineIdeal1D
	p.IAvg = 0.5
	p.V = 1
	p.Period = 1
	p.HasPeriod = true
	p.TExp = 30
	p.C = 0.022
	p.CD = 20
	p.HasCD = true
	p.Response = ResponseIdealThreshold
	p.NX = 2000

	res, err := Simulate(db, p)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	k := 2 * math.Pi / p.Period
	idx0 := nearestIndex(res.XCoords, 0)
	idxHalf := nearestIndex(res.XCoords, math.Pi/k)

	wantM0 := math.Exp(-0.022 * 10)
	if !almostEqual(res.M.Data[idx0], wantM0, 1e-2) {
		t.Fatalf("M(0) = %v, want ~%v", res.M.Data[idx0], wantM0)
	}
	if !almostEqual(res.M.Data[idxHalf], 1.0, 1e-6) {
		t.Fatalf("M(pi/K) = %v, want 1", res.M.Data[idxHalf])
	}
}

// Scenario 3: 2D latent image symmetry.
func TestSimulate2DLatentSymmetric(t *testing.T) {
	db := DefaultMaterialDB()
	p := DefaultParams()
	p.SineType = Sine2D
	p.Period = 100
	p.HasPeriod = true
	p.WindowPeriods = 2001.0 / 100.0 / 2
	p.IAvg = 0.5
	p.V = 0.9
	p.TExp = 100
	p.C = 0.022
	p.CD = 25
	p.HasCD = true
	p.NX = 401

	res, err := Simulate(db, p)
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	n := res.ExposureDose.Shape[0]
	for i := 0; i < n; i += 37 {
		for j := 0; j < n; j += 41 {
			a := res.ExposureDose.Data[i*n+j]
			b := res.ExposureDose.Data[j*n+i]
			if !almostEqual(a, b, 1e-9) {
				t.Fatalf("D[%d,%d]=%v != D[%d,%d]=%v", i, j, a, j, i, b)
			}
		}
	}
}

// Scenario 4: cumulative vs single-shot equivalence.
func TestCumulativeMatchesSingleShot(t *testing.T) {
	db := DefaultMaterialDB()

	single := DefaultParams()
	single.TExp = 1
	single.NX = 200

	cum := DefaultParams()
	cum.NX = 200
	cum.TExp = 1
	cum.Cumulative = CumulativeExposure{
		Enabled:   true,
		Segments:  5,
		SegmentDt: 0.2,
		Scales:    []float64{1, 1, 1, 1, 1},
	}

	resSingle, err := Simulate(db, single)
	if err != nil {
		t.Fatalf("single Simulate error: %v", err)
	}
	resCum, err := Simulate(db, cum)
	if err != nil {
		t.Fatalf("cumulative Simulate error: %v", err)
	}

	var maxDiff float64
	for i := range resSingle.ExposureDose.Data {
		d := math.Abs(resSingle.ExposureDose.Data[i] - resCum.ExposureDose.Data[i])
		if d > maxDiff {
			maxDiff = d
		}
	}
	if maxDiff > 1e-9 {
		t.Fatalf("max |D_cum - D_single| = %v, want <= 1e-9", maxDiff)
	}
}

// Scenario 5: ARC transmission factor.
func TestARCTransmissionFactor(t *testing.T) {
	db := DefaultMaterialDB()
	arcp := db.ARCParamsFor("silicon", "SiON", 405)
	if !almostEqual(arcp.TransmissionFactor, 1.1913, 1e-3) {
		t.Fatalf("TransmissionFactor = %v, want ~1.1913", arcp.TransmissionFactor)
	}
}

// ARC identity property: substrate=none, arc=none => tau=1.
func TestARCIdentityNoSubstrateNoARC(t *testing.T) {
	db := DefaultMaterialDB()
	arcp := db.ARCParamsFor("none", "none", 405)
	if arcp.TransmissionFactor != 1.0 {
		t.Fatalf("TransmissionFactor = %v, want exactly 1.0", arcp.TransmissionFactor)
	}
}

func TestIntensityPositivity(t *testing.T) {
	db := DefaultMaterialDB()
	p := DefaultParams()
	p.V = 1
	p.IAvg = 1
	p.NX = 500
	res, err := Simulate(db, p)
	if err != nil {
		t.Fatalf("Simulate error: %v", err)
	}
	for i, v := range res.Intensity.Data {
		if v < 0 {
			t.Fatalf("Intensity[%d] = %v, want >= 0", i, v)
		}
	}
}

func TestDillMonotonicity(t *testing.T) {
	dose := make([]float64, 50)
	for i := range dose {
		dose[i] = float64(i)
	}
	m, _ := dillResponse(dose, 0.022)
	for i := 1; i < len(m); i++ {
		if m[i] >= m[i-1] {
			t.Fatalf("thickness not strictly decreasing at index %d: %v >= %v", i, m[i], m[i-1])
		}
	}
}

func TestThresholdContinuityAtCD(t *testing.T) {
	cd := 20.0
	dose := []float64{cd - 0.001, cd, cd + 0.001}
	m, _ := idealThresholdResponse(dose, 0.022, cd)
	if m[0] != 1 {
		t.Fatalf("M below cd = %v, want 1", m[0])
	}
	if m[1] != 1 {
		t.Fatalf("M at cd = %v, want 1", m[1])
	}
	if !almostEqual(m[1], m[2], 1e-3) {
		t.Fatalf("discontinuity at cd: %v vs %v", m[1], m[2])
	}
}

func TestPhaseExprEvaluatesSinCos(t *testing.T) {
	e := ParsePhaseExpr("sin(t) + cos(0)")
	got := e.Eval(0)
	want := math.Sin(0) + math.Cos(0)
	if !almostEqual(got, want, 1e-9) {
		t.Fatalf("Eval(0) = %v, want %v", got, want)
	}
}

func TestPhaseExprEmptyIsZero(t *testing.T) {
	e := ParsePhaseExpr("")
	if e.Eval(5) != 0 {
		t.Fatalf("empty expr should evaluate to 0")
	}
}

func TestValidateRejectsOutOfRangeV(t *testing.T) {
	p := DefaultParams()
	p.V = 1.5
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for V > 1")
	}
}

func TestValidateRejectsCumulativeScalesMismatch(t *testing.T) {
	p := DefaultParams()
	p.Cumulative = CumulativeExposure{Enabled: true, Segments: 3, SegmentDt: 0.1, Scales: []float64{1, 1}}
	if err := p.Validate(); err == nil {
		t.Fatalf("expected error for mismatched cumulative scales length")
	}
}

func nearestIndex(xs []float64, target float64) int {
	best := 0
	bestDiff := math.Abs(xs[0] - target)
	for i, x := range xs {
		d := math.Abs(x - target)
		if d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}
