// Package compare drives a validation run: for each channel it gathers
// the three sources' derived datasets, computes pairwise differences per
// quantity, and hands every raw and difference dataset to the render
// driver. Channels are processed to completion one at a time.
package compare

import (
	"errors"
	"fmt"
	"log"

	"github.com/acoustic-data/crosscheck/internal/echogram"
	"github.com/acoustic-data/crosscheck/internal/pipeline"
	"github.com/acoustic-data/crosscheck/internal/refload"
	"github.com/acoustic-data/crosscheck/internal/registry"
	"github.com/acoustic-data/crosscheck/internal/render"
)

// Source labels for the two reference loaders.
const (
	SourceExport  = "export"
	SourceToolkit = "toolkit"
)

// NativeOpener produces the native converter for one channel's file set.
type NativeOpener func(files registry.ChannelFiles) (pipeline.Converter, error)

// OpenStaged is the default opener: it reads the channel's staged
// conversion directory.
func OpenStaged(files registry.ChannelFiles) (pipeline.Converter, error) {
	return pipeline.OpenFileSource(files.NativeDir)
}

// Harness holds the fixed collaborators for one validation run.
type Harness struct {
	reg        *registry.Registry
	driver     *render.Driver
	calParams  pipeline.Params
	openNative NativeOpener
}

// New builds a harness. A nil opener selects OpenStaged.
func New(reg *registry.Registry, driver *render.Driver, calParams pipeline.Params, opener NativeOpener) *Harness {
	if opener == nil {
		opener = OpenStaged
	}
	return &Harness{reg: reg, driver: driver, calParams: calParams, openNative: opener}
}

// Run validates the requested channels, or every registered channel when
// none are named. Configuration and shape errors abort the whole run; a
// source read failure aborts only its channel, and the remaining
// channels still get processed. There are no retries anywhere: the
// operator fixes the input and re-runs.
func (h *Harness) Run(channels []float64) error {
	if len(channels) == 0 {
		channels = h.reg.Frequencies()
	}

	var aborted []error
	for _, freq := range channels {
		log.Printf("processing channel %g Hz", freq)
		if err := h.runChannel(freq); err != nil {
			var ce *registry.ConfigError
			var sm *echogram.ShapeMismatchError
			if errors.As(err, &ce) || errors.As(err, &sm) {
				return err
			}
			log.Printf("channel %g Hz aborted: %v", freq, err)
			aborted = append(aborted, fmt.Errorf("channel %g Hz: %w", freq, err))
		}
	}
	return errors.Join(aborted...)
}

func (h *Harness) runChannel(freqHz float64) error {
	// Resolve configuration before touching any file.
	files, err := h.reg.Lookup(freqHz)
	if err != nil {
		return err
	}

	conv, err := h.openNative(files)
	if err != nil {
		return err
	}
	native, err := pipeline.Convert(conv, pipeline.NewCalibration(h.calParams))
	if err != nil {
		return err
	}

	export := &refload.TabularSource{
		Label: SourceExport,
		Paths: map[echogram.Quantity]string{
			echogram.Power: files.Export.Power,
			echogram.Sv:    files.Export.Sv,
			echogram.Ts:    files.Export.Ts,
		},
		AnglesPath: files.Export.Angles,
	}
	toolkit := &refload.PackedSource{Label: SourceToolkit, SvPath: files.Toolkit.Sv}

	log.Printf("reading the export files for %g Hz", freqHz)
	exPower, err := export.Load(echogram.Power, freqHz)
	if err != nil {
		return err
	}
	exSv, err := export.Load(echogram.Sv, freqHz)
	if err != nil {
		return err
	}
	exTs, err := export.Load(echogram.Ts, freqHz)
	if err != nil {
		return err
	}
	exAngles, err := export.LoadAngles(freqHz)
	if err != nil {
		return err
	}

	log.Printf("reading the toolkit file %s", files.Toolkit.Sv)
	tkSv, err := toolkit.Load(echogram.Sv, freqHz)
	if err != nil {
		return err
	}

	// Raw echograms of the native quantities first, for visual context.
	for _, ds := range []*echogram.Dataset{native.Power, native.Sv, native.Ts} {
		if _, err := h.driver.Echogram(ds, render.KindRaw); err != nil {
			return err
		}
	}

	// Pairwise differences per quantity across the three sources.
	pairs := []struct{ a, b *echogram.Dataset }{
		{native.Power, exPower},
		{native.Sv, exSv},
		{native.Sv, tkSv},
		{exSv, tkSv},
		{native.Ts, exTs},
	}
	if native.Angles != nil && exAngles != nil {
		pairs = append(pairs,
			struct{ a, b *echogram.Dataset }{native.Angles.Alongship, exAngles.Alongship},
			struct{ a, b *echogram.Dataset }{native.Angles.Athwartship, exAngles.Athwartship},
		)
	} else {
		log.Printf("channel %g Hz: no angle data on one or both sides, skipping angle comparisons", freqHz)
	}

	for _, pair := range pairs {
		if err := h.renderDiff(pair.a, pair.b); err != nil {
			return err
		}
	}

	// Single-ping overlay of Sv across all three sources.
	if _, err := h.driver.Overlay(native.Sv, exSv, tkSv); err != nil {
		return err
	}
	return nil
}

func (h *Harness) renderDiff(a, b *echogram.Dataset) error {
	diff, err := echogram.Diff(a, b)
	if err != nil {
		return err
	}
	log.Printf("%s: %s", diff.Label(), echogram.Summarize(diff))
	_, err = h.driver.Echogram(diff, render.KindDiff)
	return err
}
