// Package echogram holds the dataset model shared by every source in the
// cross-validation harness, plus the alignment and difference engine that
// compares them.
//
// A Dataset is one physical quantity for one channel as a 2-D sample grid
// indexed by [ping, range sample], with a range axis in metres. All three
// sources (the native conversion pipeline and both reference exports)
// produce this shape, which is what makes elementwise comparison possible.
package echogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Quantity identifies the physical quantity a dataset carries.
type Quantity string

const (
	// Power is received power in dB re 1 W.
	Power Quantity = "power"
	// Sv is volume backscattering strength in dB re 1 m^-1.
	Sv Quantity = "Sv"
	// Ts is target strength in dB re 1 m^2.
	Ts Quantity = "Ts"
	// AngleAlongship is the alongship physical beam angle in degrees.
	AngleAlongship Quantity = "angle_alongship"
	// AngleAthwartship is the athwartship physical beam angle in degrees.
	AngleAthwartship Quantity = "angle_athwartship"
)

// Unit returns the display unit for the quantity.
func (q Quantity) Unit() string {
	if q.IsAngle() {
		return "deg"
	}
	return "dB"
}

// IsAngle reports whether the quantity is a physical beam angle.
func (q Quantity) IsAngle() bool {
	return q == AngleAlongship || q == AngleAthwartship
}

// Shape is the [pings x range samples] extent of a dataset grid.
type Shape struct {
	Pings   int
	Samples int
}

func (s Shape) String() string {
	return fmt.Sprintf("[%d pings x %d samples]", s.Pings, s.Samples)
}

// Dataset is one quantity for one channel: a sample grid plus its range
// axis. Samples are row-major with one row per ping, so Samples.At(p, s)
// is ping p at range Ranges[s]. Range increases with depth; ping index
// increases with acquisition time.
type Dataset struct {
	Quantity    Quantity
	FrequencyHz float64
	// Source labels where the grid came from (e.g. "native", "export",
	// "toolkit", or "native - export" for a difference).
	Source  string
	Samples *mat.Dense
	Ranges  []float64
}

// New builds a Dataset and checks its axis invariants: the range axis
// length must equal the grid's sample dimension and the grid must have at
// least one ping.
func New(q Quantity, freqHz float64, source string, samples *mat.Dense, ranges []float64) (*Dataset, error) {
	if samples == nil {
		return nil, fmt.Errorf("%s %s %.0f Hz: nil sample grid", source, q, freqHz)
	}
	pings, n := samples.Dims()
	if pings < 1 {
		return nil, fmt.Errorf("%s %s %.0f Hz: empty sample grid", source, q, freqHz)
	}
	if len(ranges) != n {
		return nil, fmt.Errorf("%s %s %.0f Hz: range axis has %d samples, grid has %d",
			source, q, freqHz, len(ranges), n)
	}
	return &Dataset{
		Quantity:    q,
		FrequencyHz: freqHz,
		Source:      source,
		Samples:     samples,
		Ranges:      ranges,
	}, nil
}

// Shape returns the grid extent.
func (d *Dataset) Shape() Shape {
	p, s := d.Samples.Dims()
	return Shape{Pings: p, Samples: s}
}

// Pings returns the number of pings in the grid.
func (d *Dataset) Pings() int {
	p, _ := d.Samples.Dims()
	return p
}

// At returns the sample at [ping, sample].
func (d *Dataset) At(ping, sample int) float64 {
	return d.Samples.At(ping, sample)
}

// LastPing returns a copy of the most recent ping's samples.
func (d *Dataset) LastPing() []float64 {
	p, n := d.Samples.Dims()
	out := make([]float64, n)
	mat.Row(out, p-1, d.Samples)
	return out
}

// Label is the human-readable title used on diagnostic plots.
func (d *Dataset) Label() string {
	return fmt.Sprintf("%s %s %g kHz", d.Source, d.Quantity, d.FrequencyHz/1000)
}

// AnglePair is the alongship/athwartship angle grids for one channel from
// one source. A source with no angle data has no AnglePair at all (nil);
// callers must check before comparing angles.
type AnglePair struct {
	Alongship   *Dataset
	Athwartship *Dataset
}

// MinMax returns the finite value range of the grid, ignoring NaNs. When
// every sample is NaN both results are NaN.
func (d *Dataset) MinMax() (min, max float64) {
	min, max = math.NaN(), math.NaN()
	raw := d.Samples.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(min) || v < min {
				min = v
			}
			if math.IsNaN(max) || v > max {
				max = v
			}
		}
	}
	return min, max
}
