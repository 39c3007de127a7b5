// Command dill-simulate runs one Simulate or SimulateFrames call from a
// JSON preset and emits the Result as struct-of-arrays JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/cwbudde/dill-sim/config"
	"github.com/cwbudde/dill-sim/lith"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using process environment")
	}

	presetPath := flag.String("preset", "", "Path to a parameter preset JSON file (optional; defaults used otherwise)")
	outputPath := flag.String("output", "", "Path to write the Result JSON (default: stdout)")
	frames := flag.String("frames", "", "Comma-separated list of t values for an animation; single Simulate call when empty")
	flag.Parse()

	p := lith.DefaultParams()
	if *presetPath != "" {
		loaded, err := config.Load(*presetPath)
		if err != nil {
			die("failed to load preset: %v", err)
		}
		p = *loaded
	}

	db := lith.DefaultMaterialDB()

	var payload any
	if *frames != "" {
		ts, err := parseFloatList(*frames)
		if err != nil {
			die("invalid --frames: %v", err)
		}
		var collected []lith.Frame
		for fr := range lith.SimulateFrames(db, p, ts) {
			collected = append(collected, fr)
		}
		payload = collected
	} else {
		res, err := lith.Simulate(db, p)
		if err != nil {
			die("simulate failed: %v", err)
		}
		payload = res
	}

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
	if err := enc.Encode(payload); err != nil {
		die("failed to write output: %v", err)
	}
}

func parseFloatList(s string) ([]float64, error) {
	var out []float64
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			var v float64
			if _, err := fmt.Sscanf(s[start:i], "%g", &v); err != nil {
				return nil, fmt.Errorf("bad value %q: %w", s[start:i], err)
			}
			out = append(out, v)
			start = i + 1
		}
	}
	return out, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
