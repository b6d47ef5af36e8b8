// Package refload reads reference-source exports into the common dataset
// shape. Two exchange shapes are supported: a row/column tabular (CSV)
// grid with one file per quantity, and a packed little-endian binary grid
// used by the reference toolkit for backscatter strength.
//
// Loaders do no unit conversion. Axes are expected in the same units and
// orientation as the native pipeline (range in metres increasing with
// depth, ping index increasing with time); any mismatch is a defect to
// surface during comparison, not to correct here.
package refload

import (
	"fmt"

	"github.com/acoustic-data/crosscheck/internal/echogram"
)

// Loader produces datasets for one channel from one reference source.
type Loader interface {
	// Load reads the export for the given quantity. The returned dataset
	// carries the requested channel frequency.
	Load(q echogram.Quantity, freqHz float64) (*echogram.Dataset, error)

	// LoadAngles reads the angle export. A source with no angle export
	// returns (nil, nil): absence is an expected condition, not an error.
	LoadAngles(freqHz float64) (*echogram.AnglePair, error)
}

// SourceReadError reports a reference loader or native reader that failed
// to produce a dataset. The harness does not recover from these: the
// operator fixes the input and re-runs.
type SourceReadError struct {
	Source string
	Path   string
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("%s: read %s: %v", e.Source, e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }
