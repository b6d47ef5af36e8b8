// Package render drives the diagnostic plotting for the harness: one
// echogram image per raw or difference dataset, an optional interactive
// HTML variant, and a single-ping overlay comparing all three sources.
package render

import (
	"fmt"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// Kind selects which half of the render configuration applies to a
// dataset: raw quantities and differences get distinct thresholds and
// color scales.
type Kind int

const (
	// KindRaw renders a source dataset with the raw threshold pair.
	KindRaw Kind = iota
	// KindDiff renders a difference dataset with the diverging scale.
	KindDiff
)

// Config is the process-wide render configuration for one comparison
// run. The same raw pair applies to every raw dataset and the same diff
// pair to every difference dataset; there is no per-channel variation.
type Config struct {
	// RawThreshold clips the display range of raw echograms (dB).
	RawThreshold [2]float64
	RawScale     string

	// DiffThreshold clips difference echograms (dB or degrees).
	DiffThreshold [2]float64
	DiffScale     string

	// HTML additionally writes an interactive HTML echogram per dataset.
	HTML bool
}

// DefaultConfig matches the thresholds used for routine survey review:
// raw echograms at [-70,-34] dB and differences at [-0.1,0.1] on a
// diverging purple-orange scale.
func DefaultConfig() Config {
	return Config{
		RawThreshold:  [2]float64{-70, -34},
		RawScale:      "extended-kindlmann",
		DiffThreshold: [2]float64{-0.1, 0.1},
		DiffScale:     "purple-orange",
	}
}

// Validate checks the threshold ordering and scale names.
func (c Config) Validate() error {
	if c.RawThreshold[0] >= c.RawThreshold[1] {
		return fmt.Errorf("raw threshold %v: lower bound must be below upper", c.RawThreshold)
	}
	if c.DiffThreshold[0] >= c.DiffThreshold[1] {
		return fmt.Errorf("diff threshold %v: lower bound must be below upper", c.DiffThreshold)
	}
	if _, err := colorMap(c.RawScale); err != nil {
		return err
	}
	if _, err := colorMap(c.DiffScale); err != nil {
		return err
	}
	return nil
}

// threshold returns the clip pair for the given kind.
func (c Config) threshold(kind Kind) [2]float64 {
	if kind == KindDiff {
		return c.DiffThreshold
	}
	return c.RawThreshold
}

// scale returns the color scale name for the given kind.
func (c Config) scale(kind Kind) string {
	if kind == KindDiff {
		return c.DiffScale
	}
	return c.RawScale
}

// colorMap resolves a named color scale. The diverging maps are the ones
// worth using for difference echograms; the sequential maps suit raw
// quantities.
func colorMap(name string) (palette.ColorMap, error) {
	switch name {
	case "purple-orange":
		return moreland.SmoothPurpleOrange(), nil
	case "blue-red":
		return moreland.SmoothBlueRed(), nil
	case "green-purple":
		return moreland.SmoothGreenPurple(), nil
	case "blue-tan":
		return moreland.SmoothBlueTan(), nil
	case "green-red":
		return moreland.SmoothGreenRed(), nil
	case "kindlmann":
		return moreland.Kindlmann(), nil
	case "extended-kindlmann":
		return moreland.ExtendedKindlmann(), nil
	case "black-body":
		return moreland.BlackBody(), nil
	case "extended-black-body":
		return moreland.ExtendedBlackBody(), nil
	default:
		return nil, fmt.Errorf("unknown color scale %q", name)
	}
}

// paletteFor materialises a named scale as a discrete palette.
func paletteFor(name string, colors int) (palette.Palette, error) {
	cm, err := colorMap(name)
	if err != nil {
		return nil, err
	}
	cm.SetMin(0)
	cm.SetMax(1)
	return cm.Palette(colors), nil
}

// DivergingScales lists the scale names suitable for difference
// echograms.
func DivergingScales() []string {
	return []string{"purple-orange", "blue-red", "green-purple", "blue-tan", "green-red"}
}
