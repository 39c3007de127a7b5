package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/dill-sim/lith"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write temp preset: %v", err)
	}
	return path
}

func TestLoadAppliesOverridesOnDefaults(t *testing.T) {
	path := writeTemp(t, `{
		"i_avg": 2.0,
		"v": 0.5,
		"c": 0.05,
		"response": "ideal_threshold",
		"cd": 15
	}`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.IAvg != 2.0 {
		t.Fatalf("IAvg = %v, want 2.0", p.IAvg)
	}
	if p.V != 0.5 {
		t.Fatalf("V = %v, want 0.5", p.V)
	}
	if p.Response != lith.ResponseIdealThreshold {
		t.Fatalf("Response = %v, want ResponseIdealThreshold", p.Response)
	}
	if !p.HasCD || p.CD != 15 {
		t.Fatalf("CD = %v (has=%v), want 15 (has=true)", p.CD, p.HasCD)
	}
	// Untouched fields keep their default.
	if p.TExp != 1 {
		t.Fatalf("TExp = %v, want default 1", p.TExp)
	}
}

func TestApplyRejectsOutOfRangeV(t *testing.T) {
	v := 1.5
	f := &File{V: &v}
	dst := lith.DefaultParams()
	if err := Apply(&dst, f); err == nil {
		t.Fatalf("expected an error for v > 1")
	}
}

func TestApplyRejectsUnknownSineType(t *testing.T) {
	s := "not-a-real-type"
	f := &File{SineType: &s}
	dst := lith.DefaultParams()
	if err := Apply(&dst, f); err == nil {
		t.Fatalf("expected an error for an unknown sine_type")
	}
}

func TestApplyCustomIntensityRequiresMatchedLengths(t *testing.T) {
	f := &File{Custom: &CustomFile{X: []float64{0, 1, 2}, I: []float64{0, 1}}}
	dst := lith.DefaultParams()
	if err := Apply(&dst, f); err == nil {
		t.Fatalf("expected an error for mismatched custom x/i lengths")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatalf("expected an error for a missing preset file")
	}
}
