package lith

import (
	"math"
	"testing"
)

func TestSimulateExposureWindowMatchesSingleShotForOneTime(t *testing.T) {
	p := DefaultParams()
	p.V = 0.8
	p.K = 2 * 3.14159265358979
	p.TExp = 1
	p.C = 0.022

	single, err := Simulate(nil, p)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	windowed, err := SimulateExposureWindow(nil, p, []float64{0})
	if err != nil {
		t.Fatalf("SimulateExposureWindow: %v", err)
	}
	if len(single.M.Data) != len(windowed.M.Data) {
		t.Fatalf("length mismatch: %d vs %d", len(single.M.Data), len(windowed.M.Data))
	}
	for i := range single.M.Data {
		if diff := single.M.Data[i] - windowed.M.Data[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("M[%d] = %v, want %v", i, windowed.M.Data[i], single.M.Data[i])
		}
	}
}

func TestSimulateExposureWindowRejectsEmptyTimes(t *testing.T) {
	p := DefaultParams()
	if _, err := SimulateExposureWindow(nil, p, nil); err == nil {
		t.Fatalf("expected an error for an empty times list")
	}
}

func TestSimulateGrid2DSymmetricRangesGiveSymmetricDose(t *testing.T) {
	p := DefaultParams()
	p.SineType = Sine1D
	p.HasPeriod = true
	p.Period = 100
	p.IAvg = 0.5
	p.V = 0.9
	p.TExp = 100
	p.C = 0.022
	p.HasCD = true
	p.CD = 25

	grid := Grid2D{XMin: -500, XMax: 500, YMin: -500, YMax: 500, StepSize: 2.5}
	res, err := p.SimulateGrid2D(nil, grid)
	if err != nil {
		t.Fatalf("SimulateGrid2D: %v", err)
	}
	nx, ny := res.ExposureDose.Shape[0], res.ExposureDose.Shape[1]
	if nx != ny {
		t.Fatalf("expected a square grid, got %dx%d", nx, ny)
	}
	for i := 0; i < nx; i += 17 {
		for j := 0; j < ny; j += 19 {
			d1 := res.ExposureDose.Data[i*ny+j]
			d2 := res.ExposureDose.Data[j*ny+i]
			if diff := d1 - d2; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("dose[%d,%d]=%v != dose[%d,%d]=%v (symmetry broken)", i, j, d1, j, i, d2)
			}
		}
	}
}

func TestSimulateGrid2DNonSeparableKxKyField(t *testing.T) {
	p := DefaultParams()
	p.SineType = Sine2D
	p.Kx = 0.05
	p.Ky = 0.08
	p.V = 0.6
	p.TExp = 10
	p.HasCD = true
	p.CD = 5

	grid := Grid2D{XMin: -50, XMax: 50, YMin: -50, YMax: 50, StepSize: 2}
	res, err := p.SimulateGrid2D(nil, grid)
	if err != nil {
		t.Fatalf("SimulateGrid2D: %v", err)
	}
	nx, ny := res.Intensity.Shape[0], res.Intensity.Shape[1]
	x, y := res.XCoords, res.YCoords
	for i := 0; i < nx; i += 5 {
		for j := 0; j < ny; j += 7 {
			want := clampNonNegative(p.IAvg * (1 + p.V*math.Cos(p.Kx*x[i]+p.Ky*y[j])))
			got := res.Intensity.Data[i*ny+j]
			if diff := got - want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("Intensity[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestSimulateGrid2DAsymmetricRangesProduceDistinctShape(t *testing.T) {
	p := DefaultParams()
	p.HasPeriod = true
	p.Period = 50
	p.TExp = 10
	p.HasCD = true
	p.CD = 5

	grid := Grid2D{XMin: -100, XMax: 100, YMin: -50, YMax: 50, StepSize: 5}
	res, err := p.SimulateGrid2D(nil, grid)
	if err != nil {
		t.Fatalf("SimulateGrid2D: %v", err)
	}
	if len(res.XCoords) == len(res.YCoords) {
		t.Fatalf("expected distinct x/y extents to produce distinct axis lengths, got %d and %d", len(res.XCoords), len(res.YCoords))
	}
}
