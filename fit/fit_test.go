package fit

import (
	"math"
	"testing"

	"github.com/cwbudde/dill-sim/lith"
)

func TestRelError(t *testing.T) {
	if got := relError(110, 100); math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("relError(110,100) = %v, want 0.1", got)
	}
	if got := relError(5, 0); got != 0 {
		t.Fatalf("relError with zero target should be 0, got %v", got)
	}
}

func TestIdealSidewallAngleVerticalWhenWidthsEqual(t *testing.T) {
	got := idealSidewallAngle(100, 100, 50)
	if math.Abs(got-90) > 1e-9 {
		t.Fatalf("idealSidewallAngle(100,100,50) = %v, want 90", got)
	}
}

func TestIdealSidewallAngleVerticalFallbackWhenNoDepth(t *testing.T) {
	got := idealSidewallAngle(100, 150, 0)
	if got != 90 {
		t.Fatalf("idealSidewallAngle with zero depth = %v, want 90 fallback", got)
	}
}

func TestEvaluateReturnsSentinelOnInvalidParams(t *testing.T) {
	db := lith.DefaultMaterialDB()
	base := lith.DefaultParams()
	base.Response = lith.ResponseIdealThreshold
	bounds := []Bound{
		{
			Name: "C", Min: 0.001, Max: 0.1,
			Get: func(p *lith.Params) float64 { return p.C },
			Set: func(p *lith.Params, v float64) { p.C = v },
		},
	}
	// base has HasCD=false and Response=ideal threshold, which Validate
	// rejects, so any candidate must score the sentinel.
	score := evaluate(db, base, bounds, []float64{0.02}, Targets{TopWidthNM: 100, BottomWidthNM: 200, ToleranceFrac: 0.05})
	if score != sentinelError {
		t.Fatalf("evaluate() = %v, want sentinel %v", score, sentinelError)
	}
}

func TestFitWithTinyBudgetReturnsAReport(t *testing.T) {
	db := lith.DefaultMaterialDB()
	base := lith.DefaultParams()
	base.SineType = lith.SineIdeal1D
	base.IAvg = 0.5
	base.V = 1
	base.Period = 1
	base.HasPeriod = true
	base.TExp = 30
	base.Response = lith.ResponseIdealThreshold
	base.HasCD = true
	base.CD = 20
	base.NX = 400

	bounds := []Bound{
		{
			Name: "C", Min: 0.005, Max: 0.05,
			Get: func(p *lith.Params) float64 { return p.C },
			Set: func(p *lith.Params, v float64) { p.C = v },
		},
	}

	report := Fit(db, base, bounds, Targets{
		TopWidthNM:    300,
		BottomWidthNM: 700,
		ToleranceFrac: 0.2,
	}, Budget{
		Seeds:       []int64{1, 2, 3},
		Iterations:  2,
		Population:  4,
		LocalRefine: false,
	})

	if report.RunID == "" {
		t.Fatalf("expected a non-empty RunID")
	}
	if report.Evaluations == 0 {
		t.Fatalf("expected at least one evaluation to have run")
	}
	if len(report.RestartStats.Scores) != 3 {
		t.Fatalf("RestartStats.Scores length = %d, want 3", len(report.RestartStats.Scores))
	}
}
