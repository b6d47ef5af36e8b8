// Package pipeline adapts the native conversion engine's per-channel
// output into the common dataset shape. The conversion mathematics live
// behind the Converter interface; this package owns the calibration
// record, the per-channel memoisation of conversion intermediates, and
// the explicit handling of acquisitions with no angle data.
package pipeline

import (
	"fmt"
	"sync"
)

// Params is the calibration parameter set required to convert raw samples
// into physical quantities. Values are fixed when the calibration is
// built; per-channel adjustments mean building a new calibration.
type Params struct {
	SoundSpeedMps         float64
	TransducerGainDB      float64
	SaCorrectionDB        float64
	EquivalentBeamAngleDB float64
	AbsorptionDBPerM      float64
	SampleIntervalS       float64
}

// Calibration is an immutable parameter record plus a side table of
// memoised conversion intermediates. The side table exists so the four
// conversions for one channel (power, Sv, Ts, angles) can share work such
// as range-dependent gain curves; it is scoped to one channel's
// processing and must be Reset before the calibration is reused.
type Calibration struct {
	params Params

	mu   sync.Mutex
	memo map[string]any
}

// NewCalibration builds a calibration record from fixed parameters.
func NewCalibration(p Params) *Calibration {
	return &Calibration{
		params: p,
		memo:   make(map[string]any),
	}
}

// Params returns the calibration parameters.
func (c *Calibration) Params() Params { return c.params }

// Memo returns the cached value for key, computing and caching it on
// first use. Converters use this for intermediates that several
// conversions share within one channel.
func (c *Calibration) Memo(key string, compute func() (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.memo[key]; ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, fmt.Errorf("calibration intermediate %q: %w", key, err)
	}
	c.memo[key] = v
	return v, nil
}

// MemoLen returns the number of cached intermediates.
func (c *Calibration) MemoLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.memo)
}

// Reset discards every memoised intermediate. The adapter calls this when
// a channel's processing finishes so nothing computed for one channel can
// leak into the next.
func (c *Calibration) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo = make(map[string]any)
}
