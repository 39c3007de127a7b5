package lith

// ResultKind tags which fixed schema a Result holds: 1D, 2D or 3D (§9).
// Frame sequences are the separate Frame type returned by
// SimulateFrames. Go has no tagged
// union; the idiomatic equivalent used here is one struct with an
// explicit Kind discriminant plus a Shape describing how Data is laid
// out, so callers switch on Kind the same way they would match on a
// sum-type constructor.
type ResultKind int

const (
	KindResult1D ResultKind = iota
	KindResult2D
	KindResult3D
)

// NDArray is a dense, row-major array with explicit shape. len(Data) ==
// product(Shape).
type NDArray struct {
	Shape []int
	Data  []float64
}

// Result is the fixed-schema output of one Simulate call (§3, §6).
// Every field matching the declared Kind's shape is always populated,
// even on a recovered (non-fatal) failure — degenerate cases yield flat
// fields with Warnings = [Degenerate], never a partially-built Result.
type Result struct {
	Kind ResultKind

	XCoords []float64
	YCoords []float64 // 2D/3D only
	ZCoords []float64 // 3D only

	Intensity    NDArray
	ExposureDose NDArray
	Thickness    NDArray
	M            NDArray
	EtchDepth    NDArray

	Warnings []Warning
}

// Frame is one time-indexed member of a SimulateFrames sequence; it
// specializes Result to a single t.
type Frame struct {
	T      float64
	Result Result
}
