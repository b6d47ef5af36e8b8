package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/acoustic-data/crosscheck/internal/echogram"
)

// fakeConverter is a scripted Converter for adapter tests.
type fakeConverter struct {
	freq    float64
	records int

	noAngles bool
	svErr    error
	angleErr error

	calls []string
}

func newFakeConverter() *fakeConverter {
	return &fakeConverter{freq: 38000, records: 1}
}

func (f *fakeConverter) TransducerFrequency() float64 { return f.freq }
func (f *fakeConverter) RecordCount() int             { return f.records }

func (f *fakeConverter) dataset(t echogram.Quantity, cal *Calibration) (*echogram.Dataset, error) {
	// Shared intermediate, like a range-dependent gain curve.
	_, err := cal.Memo("gain", func() (any, error) {
		f.calls = append(f.calls, "compute-gain")
		return []float64{1, 2, 3}, nil
	})
	if err != nil {
		return nil, err
	}
	f.calls = append(f.calls, string(t))
	return echogram.New(t, f.freq, SourceNative, mat.NewDense(2, 3, nil), []float64{0, 1, 2})
}

func (f *fakeConverter) Power(cal *Calibration) (*echogram.Dataset, error) {
	return f.dataset(echogram.Power, cal)
}

func (f *fakeConverter) Sv(cal *Calibration) (*echogram.Dataset, error) {
	if f.svErr != nil {
		return nil, f.svErr
	}
	return f.dataset(echogram.Sv, cal)
}

func (f *fakeConverter) Ts(cal *Calibration) (*echogram.Dataset, error) {
	return f.dataset(echogram.Ts, cal)
}

func (f *fakeConverter) PhysicalAngles(cal *Calibration) (*echogram.AnglePair, error) {
	if f.angleErr != nil {
		return nil, f.angleErr
	}
	if f.noAngles {
		return nil, ErrNoAngles
	}
	along, err := f.dataset(echogram.AngleAlongship, cal)
	if err != nil {
		return nil, err
	}
	athwart, err := f.dataset(echogram.AngleAthwartship, cal)
	if err != nil {
		return nil, err
	}
	return &echogram.AnglePair{Alongship: along, Athwartship: athwart}, nil
}

func TestConvert(t *testing.T) {
	t.Parallel()

	conv := newFakeConverter()
	cal := NewCalibration(Params{SoundSpeedMps: 1480})

	data, err := Convert(conv, cal)
	require.NoError(t, err)

	assert.Equal(t, 38000.0, data.FrequencyHz)
	require.NotNil(t, data.Power)
	require.NotNil(t, data.Sv)
	require.NotNil(t, data.Ts)
	require.NotNil(t, data.Angles)
	assert.Equal(t, echogram.AngleAlongship, data.Angles.Alongship.Quantity)

	// The shared intermediate is computed once across all conversions.
	computes := 0
	for _, c := range conv.calls {
		if c == "compute-gain" {
			computes++
		}
	}
	assert.Equal(t, 1, computes)

	// And the memo is invalidated once the channel is done.
	assert.Zero(t, cal.MemoLen())
}

func TestConvert_NoAnglesIsNotAnError(t *testing.T) {
	t.Parallel()

	conv := newFakeConverter()
	conv.noAngles = true

	data, err := Convert(conv, NewCalibration(Params{}))
	require.NoError(t, err)
	assert.Nil(t, data.Angles)
	assert.NotNil(t, data.Sv)
}

func TestConvert_AngleFailureOtherThanAbsencePropagates(t *testing.T) {
	t.Parallel()

	conv := newFakeConverter()
	conv.angleErr = errors.New("corrupt angle block")

	_, err := Convert(conv, NewCalibration(Params{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt angle block")
}

func TestConvert_RecordCountAsserted(t *testing.T) {
	t.Parallel()

	for _, records := range []int{0, 2} {
		conv := newFakeConverter()
		conv.records = records

		_, err := Convert(conv, NewCalibration(Params{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one raw-data record")
		// Nothing should have been converted.
		assert.Empty(t, conv.calls)
	}
}

func TestConvert_ConversionErrorPropagatesAndResets(t *testing.T) {
	t.Parallel()

	conv := newFakeConverter()
	conv.svErr = errors.New("bad sample block")
	cal := NewCalibration(Params{})

	_, err := Convert(conv, cal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "convert Sv")
	assert.Zero(t, cal.MemoLen())
}

func TestCalibration_Memo(t *testing.T) {
	t.Parallel()

	cal := NewCalibration(Params{SoundSpeedMps: 1500})
	assert.Equal(t, 1500.0, cal.Params().SoundSpeedMps)

	computed := 0
	get := func() (any, error) {
		computed++
		return 42, nil
	}

	v, err := cal.Memo("k", get)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = cal.Memo("k", get)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, computed)

	// After a reset the intermediate must be recomputed: no silent
	// cross-channel reuse.
	cal.Reset()
	_, err = cal.Memo("k", get)
	require.NoError(t, err)
	assert.Equal(t, 2, computed)
}

func TestCalibration_MemoError(t *testing.T) {
	t.Parallel()

	cal := NewCalibration(Params{})
	_, err := cal.Memo("bad", func() (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	// Failed computations are not cached.
	assert.Zero(t, cal.MemoLen())
}
