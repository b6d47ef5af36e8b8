package echogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ShapeMismatchError reports a difference request over two grids whose
// ping or range-sample dimensions disagree. The harness never resamples
// or interpolates across mismatched axes: a mismatch usually means a
// genuine export or acquisition inconsistency, so it is surfaced loudly.
type ShapeMismatchError struct {
	Quantity Quantity
	ASource  string
	BSource  string
	A        Shape
	B        Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch between %s %v and %s %v",
		e.Quantity, e.ASource, e.A, e.BSource, e.B)
}

// Diff computes the elementwise difference a - b. Both operands must
// carry the same quantity and have identical [ping x sample] shape; the
// shape check happens before any arithmetic so a mismatch never leaks a
// partial result. The returned dataset carries a's range axis and channel
// frequency. NaN in either operand propagates to NaN in the result.
func Diff(a, b *Dataset) (*Dataset, error) {
	if a.Quantity != b.Quantity {
		return nil, fmt.Errorf("cannot difference %s against %s", a.Quantity, b.Quantity)
	}
	if a.Shape() != b.Shape() {
		return nil, &ShapeMismatchError{
			Quantity: a.Quantity,
			ASource:  a.Source,
			BSource:  b.Source,
			A:        a.Shape(),
			B:        b.Shape(),
		}
	}

	var out mat.Dense
	out.Sub(a.Samples, b.Samples)

	ranges := make([]float64, len(a.Ranges))
	copy(ranges, a.Ranges)

	return &Dataset{
		Quantity:    a.Quantity,
		FrequencyHz: a.FrequencyHz,
		Source:      a.Source + " - " + b.Source,
		Samples:     &out,
		Ranges:      ranges,
	}, nil
}

// Summary condenses a difference grid for operator logging.
type Summary struct {
	MaxAbs   float64
	Mean     float64
	NaNCount int
}

func (s Summary) String() string {
	return fmt.Sprintf("max|d|=%.6g mean=%.6g nan=%d", s.MaxAbs, s.Mean, s.NaNCount)
}

// Summarize computes the finite-value statistics of a grid. NaNs are
// counted but excluded from the max/mean; a grid of nothing but NaNs
// yields NaN statistics.
func Summarize(d *Dataset) Summary {
	raw := d.Samples.RawMatrix()
	finite := make([]float64, 0, raw.Rows*raw.Cols)
	nan := 0
	maxAbs := 0.0
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for _, v := range row {
			if math.IsNaN(v) {
				nan++
				continue
			}
			if math.Abs(v) > maxAbs {
				maxAbs = math.Abs(v)
			}
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return Summary{MaxAbs: math.NaN(), Mean: math.NaN(), NaNCount: nan}
	}
	return Summary{
		MaxAbs:   maxAbs,
		Mean:     stat.Mean(finite, nil),
		NaNCount: nan,
	}
}
