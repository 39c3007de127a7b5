// Package morphology measures critical-dimension width and sidewall
// angle from a 1D thickness profile (§4.G).
package morphology

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Metrics is the result of Measure.
type Metrics struct {
	TopWidthNM    float64
	BottomWidthNM float64
	LeftAngleDeg  float64
	RightAngleDeg float64
	MeanAngleDeg  float64
	YMax          float64
	YMin          float64
}

var (
	// ErrFlatProfile is returned when y_max - y_min < 1e-10 (§4.G step 2).
	ErrFlatProfile = errors.New("morphology: profile has no resolvable variation")
	// ErrInsufficientSamples is returned when fewer than 3 rising-edge
	// samples are available on a side for the sidewall angle fit.
	ErrInsufficientSamples = errors.New("morphology: fewer than 3 samples on one sidewall")
	// ErrNoCrossing is returned when a requested level has no
	// zero-crossing in the profile.
	ErrNoCrossing = errors.New("morphology: level crosses profile nowhere")
)

const dedupEps = 1e-10

// Measure implements §4.G end to end: x and thickness must be the same
// length and span at least one period. scaleToNM converts one unit of x
// into nanometers (µm input -> scaleToNM = 1000).
func Measure(x, thickness []float64, scaleToNM float64) (Metrics, error) {
	if len(x) != len(thickness) || len(x) < 3 {
		return Metrics{}, errors.New("morphology: x and thickness must be equal length and at least 3 samples")
	}

	xi, yi := isolatePeriod(x, thickness)

	yMax, yMin := floats.Max(yi), floats.Min(yi)
	if yMax-yMin < dedupEps {
		return Metrics{}, ErrFlatProfile
	}
	delta := yMax - yMin
	top := yMax - 0.1*delta
	bottom := yMin + 0.1*delta

	topWidth, err := crossingWidth(xi, yi, top)
	if err != nil {
		return Metrics{}, err
	}
	bottomWidth, err := crossingWidth(xi, yi, bottom)
	if err != nil {
		return Metrics{}, err
	}

	left, right, mean, err := sidewallAngles(xi, yi, yMin, delta)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		TopWidthNM:    topWidth * scaleToNM,
		BottomWidthNM: bottomWidth * scaleToNM,
		LeftAngleDeg:  left,
		RightAngleDeg: right,
		MeanAngleDeg:  mean,
		YMax:          yMax,
		YMin:          yMin,
	}, nil
}

// isolatePeriod returns x and y unchanged: Measure works on the whole
// profile it is given and does not cut out a single period. Callers that
// want one period measured trim the arrays before calling Measure.
func isolatePeriod(x, y []float64) ([]float64, []float64) {
	return x, y
}

// crossingWidth finds every zero-crossing of (y - level), dedups within
// 1e-10, and returns the outermost-right minus outermost-left distance.
func crossingWidth(x, y []float64, level float64) (float64, error) {
	crossings := findCrossings(x, y, level)
	if len(crossings) == 0 {
		return 0, ErrNoCrossing
	}
	sort.Float64s(crossings)
	left := crossings[0]
	right := crossings[len(crossings)-1]
	return right - left, nil
}

func findCrossings(x, y []float64, level float64) []float64 {
	var out []float64
	for i := 1; i < len(x); i++ {
		y0, y1 := y[i-1]-level, y[i]-level
		if y0 == 0 {
			out = appendDedup(out, x[i-1])
			continue
		}
		if (y0 < 0) != (y1 < 0) {
			frac := y0 / (y0 - y1)
			xc := x[i-1] + frac*(x[i]-x[i-1])
			out = appendDedup(out, xc)
		}
	}
	if y[len(y)-1]-level == 0 {
		out = appendDedup(out, x[len(x)-1])
	}
	return out
}

func appendDedup(xs []float64, v float64) []float64 {
	for _, existing := range xs {
		if math.Abs(existing-v) < dedupEps {
			return xs
		}
	}
	return append(xs, v)
}

// sidewallAngles fits a line to the rising-edge samples on each side of
// the maximum and reports θ = atan(1/|m|) in degrees (§4.G step 5).
func sidewallAngles(x, y []float64, yMin, delta float64) (left, right, mean float64, err error) {
	peakIdx := argmax(y)
	lo := yMin + 0.1*delta
	hi := yMin + 0.9*delta

	var leftX, leftY, rightX, rightY []float64
	for i := 0; i <= peakIdx; i++ {
		if y[i] >= lo && y[i] <= hi {
			leftX = append(leftX, x[i])
			leftY = append(leftY, y[i])
		}
	}
	for i := peakIdx; i < len(y); i++ {
		if y[i] >= lo && y[i] <= hi {
			rightX = append(rightX, x[i])
			rightY = append(rightY, y[i])
		}
	}

	if len(leftX) < 3 || len(rightX) < 3 {
		return 0, 0, 0, ErrInsufficientSamples
	}

	mLeft, _ := fitLine(leftX, leftY)
	mRight, _ := fitLine(rightX, rightY)

	left = math.Atan(1/math.Abs(mLeft)) * 180 / math.Pi
	right = math.Atan(1/math.Abs(mRight)) * 180 / math.Pi
	mean = (left + right) / 2
	return left, right, mean, nil
}

func argmax(y []float64) int {
	best := 0
	for i, v := range y {
		if v > y[best] {
			best = i
		}
	}
	return best
}

// fitLine returns the least-squares slope and intercept of y = m*x + b.
func fitLine(x, y []float64) (m, b float64) {
	n := float64(len(x))
	if n == 0 {
		return 0, 0
	}
	var sx, sy, sxx, sxy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		sxy += x[i] * y[i]
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return 0, sy / n
	}
	m = (n*sxy - sx*sy) / denom
	b = (sy - m*sx) / n
	return m, b
}
