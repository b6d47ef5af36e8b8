package pipeline

import (
	"errors"
	"fmt"

	"github.com/acoustic-data/crosscheck/internal/echogram"
)

// ErrNoAngles is returned by a Converter whose acquisition carries no
// per-sample angle data. The adapter translates it into an explicit
// absent result rather than a failure.
var ErrNoAngles = errors.New("acquisition has no angle data")

// Converter is the native conversion engine's view of one channel. Each
// conversion takes the calibration so intermediates can be memoised
// across the four calls for a channel.
type Converter interface {
	// TransducerFrequency is the nominal channel frequency in Hz. It may
	// differ from the instantaneous transmit frequency reported per
	// sample block.
	TransducerFrequency() float64

	// RecordCount is the number of raw-data records the channel carries.
	RecordCount() int

	Power(cal *Calibration) (*echogram.Dataset, error)
	Sv(cal *Calibration) (*echogram.Dataset, error)
	Ts(cal *Calibration) (*echogram.Dataset, error)

	// PhysicalAngles returns the beam angle pair, or ErrNoAngles when the
	// acquisition has none.
	PhysicalAngles(cal *Calibration) (*echogram.AnglePair, error)
}

// ChannelData is the native pipeline's uniform derived-dataset view of
// one channel. Angles is nil when the acquisition carries no angle data;
// consumers must skip angle comparisons for the channel, never fail.
type ChannelData struct {
	FrequencyHz float64
	Power       *echogram.Dataset
	Sv          *echogram.Dataset
	Ts          *echogram.Dataset
	Angles      *echogram.AnglePair
}

// Convert runs the four conversions for one channel through a shared
// calibration. The harness assumes single-datatype-per-channel
// acquisitions, so a channel with anything other than exactly one raw
// record fails loudly rather than silently using the first. The
// calibration's memo table is reset before returning, whether or not
// conversion succeeds, so no intermediate survives into the next channel.
func Convert(conv Converter, cal *Calibration) (*ChannelData, error) {
	defer cal.Reset()

	freq := conv.TransducerFrequency()
	if n := conv.RecordCount(); n != 1 {
		return nil, fmt.Errorf("channel %g Hz: expected exactly one raw-data record, found %d", freq, n)
	}

	power, err := conv.Power(cal)
	if err != nil {
		return nil, fmt.Errorf("channel %g Hz: convert power: %w", freq, err)
	}
	sv, err := conv.Sv(cal)
	if err != nil {
		return nil, fmt.Errorf("channel %g Hz: convert Sv: %w", freq, err)
	}
	ts, err := conv.Ts(cal)
	if err != nil {
		return nil, fmt.Errorf("channel %g Hz: convert Ts: %w", freq, err)
	}

	angles, err := conv.PhysicalAngles(cal)
	if err != nil {
		if errors.Is(err, ErrNoAngles) {
			angles = nil
		} else {
			return nil, fmt.Errorf("channel %g Hz: convert angles: %w", freq, err)
		}
	}

	return &ChannelData{
		FrequencyHz: freq,
		Power:       power,
		Sv:          sv,
		Ts:          ts,
		Angles:      angles,
	}, nil
}
