// Command dill-fit searches resist parameters (C, cd) against target
// top/bottom CD widths and emits a FitReport as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/cwbudde/dill-sim/config"
	"github.com/cwbudde/dill-sim/fit"
	"github.com/cwbudde/dill-sim/lith"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using process environment")
	}

	presetPath := flag.String("preset", "", "Base parameter preset JSON path")
	outputPath := flag.String("output", "", "Path to write the FitReport JSON (default: stdout)")
	targetTop := flag.Float64("target-top-nm", 0, "Target top CD width in nm")
	targetBottom := flag.Float64("target-bottom-nm", 0, "Target bottom CD width in nm")
	tolerance := flag.Float64("tolerance-frac", 0.05, "Pass/fail tolerance as a fraction")
	triple := flag.Bool("triple-objective", false, "Enable the angle-error term alongside width error")
	seed := flag.Int64("seed", 1, "Base random seed; multi-start derives further seeds from it")
	starts := flag.Int("starts", 3, "Number of multi-start seeds (minimum 3)")
	population := flag.Int("population", 0, "DE population size (0: 15*dim)")
	iterations := flag.Int("iterations", 50, "DE iterations per seed")
	localRefine := flag.Bool("local-refine", true, "Run BFGS local refinement after each DE run")
	cMin := flag.Float64("c-min", 0.001, "Lower bound for C")
	cMax := flag.Float64("c-max", 0.1, "Upper bound for C")
	cdMin := flag.Float64("cd-min", 1, "Lower bound for cd")
	cdMax := flag.Float64("cd-max", 200, "Upper bound for cd")
	flag.Parse()

	if *targetTop <= 0 || *targetBottom <= 0 {
		die("--target-top-nm and --target-bottom-nm are required and must be > 0")
	}
	if *starts < 3 {
		*starts = 3
	}

	base := lith.DefaultParams()
	base.Response = lith.ResponseIdealThreshold
	base.HasCD = true
	if *presetPath != "" {
		loaded, err := config.Load(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
		base = *loaded
	}

	db := lith.DefaultMaterialDB()

	bounds := []fit.Bound{
		{
			Name: "C", Min: *cMin, Max: *cMax,
			Get: func(p *lith.Params) float64 { return p.C },
			Set: func(p *lith.Params, v float64) { p.C = v },
		},
		{
			Name: "cd", Min: *cdMin, Max: *cdMax,
			Get: func(p *lith.Params) float64 { return p.CD },
			Set: func(p *lith.Params, v float64) { p.CD = v; p.HasCD = true },
		},
	}

	seeds := make([]int64, *starts)
	for i := range seeds {
		seeds[i] = *seed + int64(i)*7919
	}

	targets := fit.Targets{
		TopWidthNM:      *targetTop,
		BottomWidthNM:   *targetBottom,
		ToleranceFrac:   *tolerance,
		TripleObjective: *triple,
	}
	budget := fit.Budget{
		Seeds:       seeds,
		Iterations:  *iterations,
		Population:  *population,
		LocalRefine: *localRefine,
	}

	report := fit.Fit(db, base, bounds, targets, budget)

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			die("failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		die("failed to write output: %v", err)
	}

	if !report.Converged {
		os.Exit(2)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
