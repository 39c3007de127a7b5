// Package fit implements the parameter fitter of §4.H: given target
// top/bottom CD widths, it searches the kernel's free parameters with a
// differential-evolution outer loop (mayfly) followed by a bounded
// quasi-Newton local refinement (gonum/optimize), multi-started from
// several seeds, then validates the best point found.
package fit

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/cwbudde/dill-sim/internal/numutil"
	"github.com/cwbudde/dill-sim/lith"
	"github.com/cwbudde/dill-sim/morphology"
	"github.com/cwbudde/mayfly"
)

// Targets are the widths a fit run tries to match (§4.H), in nm.
type Targets struct {
	TopWidthNM    float64
	BottomWidthNM float64
	ToleranceFrac float64

	// TripleObjective enables the angle-error term (0.9 distance /
	// 0.1 angle weights) alongside the adaptive-weight width error.
	TripleObjective bool
}

// Bound is a single free parameter's box constraint and its accessor
// pair into a lith.Params value.
type Bound struct {
	Name string
	Min  float64
	Max  float64
	Get  func(p *lith.Params) float64
	Set  func(p *lith.Params, v float64)
}

// Budget controls the outer-loop effort (§4.H step 1-3).
type Budget struct {
	Seeds       []int64 // multi-start seeds; len(Seeds) >= 3 recommended
	Iterations  int     // DE iterations per seed, >= 50
	Population  int     // DE population, conventionally >= 15*dim
	LocalRefine bool    // run BFGS refinement after each DE run
	Cancel      <-chan struct{}
}

// RestartStats summarizes the multi-start seeds' best scores (§4.H
// step 3: "keep the globally best point", reported alongside its spread).
type RestartStats struct {
	Scores []float64 // best score found per seed
	Median float64
	StdDev float64
}

// FitReport is the outcome of Fit (§6).
type FitReport struct {
	RunID           string
	BestParams      lith.Params
	Measured        morphology.Metrics
	TopErrorFrac    float64
	BottomErrorFrac float64
	PassTop         bool
	PassBottom      bool
	Converged       bool
	Evaluations     int
	RestartStats    RestartStats
	Warnings        []lith.Warning
}

const sentinelError = 1000.0

// Fit runs the full outer loop of §4.H against db and base, searching
// over bounds, and returns the globally best candidate found within
// budget.
func Fit(db *lith.MaterialDB, base lith.Params, bounds []Bound, targets Targets, budget Budget) FitReport {
	seeds := budget.Seeds
	if len(seeds) < 3 {
		for len(seeds) < 3 {
			seeds = append(seeds, int64(len(seeds)+1)*7919)
		}
	}
	pop := budget.Population
	if pop < 15*len(bounds) {
		pop = 15 * len(bounds)
	}
	if pop < 2 {
		pop = 2
	}
	iters := budget.Iterations
	if iters < 50 {
		iters = 50
	}

	evalCount := 0
	var bestVals []float64
	bestScore := math.Inf(1)
	starts := make([]float64, 0, len(seeds))

	objective := func(vals []float64) float64 {
		evalCount++
		return evaluate(db, base, bounds, vals, targets)
	}

	for _, seed := range seeds {
		select {
		case <-budget.Cancel:
			goto done
		default:
		}

		deVals, deScore := runDifferentialEvolution(bounds, objective, pop, iters, seed, budget.Cancel)
		candVals, candScore := deVals, deScore
		if budget.LocalRefine {
			refinedVals, refinedScore, ok := localRefine(bounds, objective, deVals)
			if ok && refinedScore < candScore {
				candVals, candScore = refinedVals, refinedScore
			}
		}
		starts = append(starts, candScore)
		if candScore < bestScore {
			bestScore = candScore
			bestVals = append([]float64(nil), candVals...)
		}
	}
done:

	median, stddev := StartScoreSummary(starts)
	report := FitReport{
		RunID:       uuid.NewString(),
		Evaluations: evalCount,
		RestartStats: RestartStats{
			Scores: starts,
			Median: median,
			StdDev: stddev,
		},
	}

	if bestVals == nil {
		report.Converged = false
		report.Warnings = append(report.Warnings, lith.Warning{Kind: lith.ErrFitFailed, Message: "no candidate evaluated before cancellation"})
		return report
	}

	best := base
	for i, b := range bounds {
		b.Set(&best, bestVals[i])
	}

	res, err := lith.Simulate(db, best)
	if err != nil {
		report.BestParams = best
		report.Converged = false
		report.Warnings = append(report.Warnings, lith.Warning{Kind: lith.ErrFitFailed, Message: err.Error()})
		return report
	}

	scaleToNM := 1000.0
	m, merr := morphology.Measure(res.XCoords, firstRow(res), scaleToNM)
	report.BestParams = best
	if merr != nil {
		report.Converged = false
		report.Warnings = append(report.Warnings, lith.Warning{Kind: lith.ErrFitFailed, Message: merr.Error()})
		return report
	}
	report.Measured = m
	report.TopErrorFrac = relError(m.TopWidthNM, targets.TopWidthNM)
	report.BottomErrorFrac = relError(m.BottomWidthNM, targets.BottomWidthNM)
	report.PassTop = report.TopErrorFrac <= targets.ToleranceFrac
	report.PassBottom = report.BottomErrorFrac <= targets.ToleranceFrac
	report.Converged = report.PassTop && report.PassBottom
	if !report.Converged {
		report.Warnings = append(report.Warnings, lith.Warning{Kind: lith.ErrFitFailed, Message: "optimizer exhausted budget without meeting tolerance"})
	}
	return report
}

// firstRow extracts thickness along XCoords from a 1D result (§4.F/G
// bridge: the fitter only ever drives the 1D kernel path).
func firstRow(res lith.Result) []float64 {
	return res.Thickness.Data
}

func relError(measured, target float64) float64 {
	if target == 0 {
		return 0
	}
	return math.Abs(measured-target) / target
}

// evaluate maps a normalized-to-bound candidate to an objective score
// per §4.H: e = w_top*e_top + w_bot*e_bot with adaptive weights, falling
// back to the sentinel on any kernel or measurement failure.
func evaluate(db *lith.MaterialDB, base lith.Params, bounds []Bound, vals []float64, targets Targets) float64 {
	p := base
	for i, b := range bounds {
		b.Set(&p, numutil.Clamp(vals[i], b.Min, b.Max))
	}

	res, err := lith.Simulate(db, p)
	if err != nil {
		return sentinelError
	}
	m, err := morphology.Measure(res.XCoords, res.Thickness.Data, 1000.0)
	if err != nil {
		return sentinelError
	}

	eTop := relError(m.TopWidthNM, targets.TopWidthNM)
	eBot := relError(m.BottomWidthNM, targets.BottomWidthNM)

	var wTop, wBot float64
	switch {
	case eTop > 2*eBot:
		wTop, wBot = 0.75, 0.25
	case eBot > 2*eTop:
		wTop, wBot = 0.25, 0.75
	default:
		wTop, wBot = 0.50, 0.50
	}
	e := wTop*eTop + wBot*eBot

	if targets.TripleObjective {
		idealAngle := idealSidewallAngle(targets.TopWidthNM, targets.BottomWidthNM, estimateEtchDepthNM(res))
		angleErr := math.Abs(m.MeanAngleDeg-idealAngle) / 90.0
		e = 0.9*e + 0.1*angleErr
	}
	return e
}

// idealSidewallAngle derives the target angle from the target widths
// and measured etch depth via atan((b-t)/2 / depth), offset to the
// spec's 90-degree convention.
func idealSidewallAngle(topNM, bottomNM, depthNM float64) float64 {
	if depthNM <= 0 {
		return 90
	}
	raw := math.Atan(((bottomNM - topNM) / 2) / depthNM)
	deg := raw * 180 / math.Pi
	return 90 - deg
}

func estimateEtchDepthNM(res lith.Result) float64 {
	lo, hi := numutil.MinMax(res.EtchDepth.Data)
	return (hi - lo) * 1000.0
}

// runDifferentialEvolution wraps one mayfly DESMA run over the box
// constraints implied by bounds, tracking the best candidate seen via
// closure state exactly as the objective callback is driven (mayfly
// never exposes the winning position on its Result).
func runDifferentialEvolution(bounds []Bound, objective func([]float64) float64, pop, iters int, seed int64, cancel <-chan struct{}) ([]float64, float64) {
	dim := len(bounds)
	cfg := mayfly.NewDESMAConfig()
	cfg.ProblemSize = dim
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = numutil.MaxInt(1, int(math.Round(0.05*float64(pop))))
	cfg.Rand = rand.New(rand.NewSource(seed))

	bestNorm := make([]float64, dim)
	bestScore := math.Inf(1)

	cfg.ObjectiveFunc = func(pos []float64) float64 {
		select {
		case <-cancel:
			return bestScore + 1.0
		default:
		}
		vals := denormalize(bounds, pos)
		score := objective(vals)
		if score < bestScore {
			bestScore = score
			copy(bestNorm, pos)
		}
		return score
	}

	if _, err := runMayfly(cfg); err != nil {
		return midpoints(bounds), sentinelError
	}

	if math.IsInf(bestScore, 1) {
		return midpoints(bounds), sentinelError
	}
	return denormalize(bounds, bestNorm), bestScore
}

// runMayfly recovers from a panic inside the third-party optimizer so no
// exception crosses the library boundary into Fit's caller.
func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func denormalize(bounds []Bound, norm []float64) []float64 {
	out := make([]float64, len(bounds))
	for i, b := range bounds {
		v := numutil.Clamp(norm[i], 0, 1)
		out[i] = b.Min + v*(b.Max-b.Min)
	}
	return out
}

func midpoints(bounds []Bound) []float64 {
	out := make([]float64, len(bounds))
	for i, b := range bounds {
		out[i] = (b.Min + b.Max) / 2
	}
	return out
}

// localRefine runs BFGS in a logistic-transformed unconstrained space
// so the box constraints stay implicit (§4.H step 2).
func localRefine(bounds []Bound, objective func([]float64) float64, start []float64) ([]float64, float64, bool) {
	dim := len(bounds)
	z0 := make([]float64, dim)
	for i, b := range bounds {
		frac := (start[i] - b.Min) / (b.Max - b.Min)
		z0[i] = logit(numutil.Clamp(frac, 1e-6, 1-1e-6))
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			vals := make([]float64, dim)
			for i, b := range bounds {
				frac := sigmoid(z[i])
				vals[i] = b.Min + frac*(b.Max-b.Min)
			}
			return objective(vals)
		},
	}
	// The kernel has no closed-form derivative; BFGS gets a
	// finite-difference gradient of the same objective.
	problem.Grad = func(grad, z []float64) {
		fd.Gradient(grad, problem.Func, z, nil)
	}

	result, err := optimize.Minimize(problem, z0, &optimize.Settings{MajorIterations: 100}, &optimize.BFGS{})
	if err != nil || result == nil {
		return nil, 0, false
	}

	out := make([]float64, dim)
	for i, b := range bounds {
		frac := sigmoid(result.X[i])
		out[i] = b.Min + frac*(b.Max-b.Min)
	}
	return out, result.F, true
}

func logit(p float64) float64   { return math.Log(p / (1 - p)) }
func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

// StartScoreSummary reports the median and spread of the multi-start
// seeds' best scores, for reporting alongside the winning candidate.
func StartScoreSummary(scores []float64) (median, stddev float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	med, err := stats.Median(scores)
	if err != nil {
		med = numutil.Mean(scores)
	}
	sd, err := stats.StandardDeviation(scores)
	if err != nil {
		sd = 0
	}
	return med, sd
}
