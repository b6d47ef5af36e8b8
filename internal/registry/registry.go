// Package registry maps channel frequencies to the reference export files
// used to validate them. The survey configuration is plain JSON and is
// validated eagerly when loaded, so a bad setup surfaces before any
// channel processing or file I/O begins.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ExportFiles holds the row/column tabular exports from the reference
// export tool, one file per quantity. Angles is optional: not every
// acquisition carries per-sample angle data.
type ExportFiles struct {
	Sv     string `json:"sv"`
	Ts     string `json:"ts"`
	Power  string `json:"power"`
	Angles string `json:"angles,omitempty"`
}

// ToolkitFiles holds the packed numerical exports from the reference
// toolkit. The toolkit exports backscatter strength only.
type ToolkitFiles struct {
	Sv string `json:"sv"`
}

// ChannelFiles is the complete reference file set for one channel.
type ChannelFiles struct {
	FrequencyHz float64      `json:"frequency_hz"`
	NativeDir   string       `json:"native_dir"`
	Export      ExportFiles  `json:"export"`
	Toolkit     ToolkitFiles `json:"toolkit"`
}

// HasAngles reports whether the export tool produced an angle file for
// this channel.
func (c ChannelFiles) HasAngles() bool {
	return c.Export.Angles != ""
}

// SurveyConfig is the on-disk shape of a survey configuration file.
type SurveyConfig struct {
	// Survey is a free-form label carried into log output.
	Survey   string         `json:"survey,omitempty"`
	Channels []ChannelFiles `json:"channels"`
}

// ConfigError reports a setup defect in the survey configuration. It is
// fatal: processing never starts (or, for a bad lookup, never touches a
// file) when configuration is wrong.
type ConfigError struct {
	FrequencyHz float64
	Reason      string
}

func (e *ConfigError) Error() string {
	if e.FrequencyHz != 0 {
		return fmt.Sprintf("survey config: channel %g Hz: %s", e.FrequencyHz, e.Reason)
	}
	return fmt.Sprintf("survey config: %s", e.Reason)
}

// Registry resolves a channel frequency to its reference file set.
// Lookup is by exact frequency match only; there is deliberately no
// nearest-frequency fallback.
type Registry struct {
	survey string
	byFreq map[float64]ChannelFiles
	freqs  []float64
}

// New validates a survey configuration and builds a registry from it.
// Every channel entry must carry a native directory and the required
// export paths; duplicate frequencies are rejected.
func New(cfg SurveyConfig) (*Registry, error) {
	if len(cfg.Channels) == 0 {
		return nil, &ConfigError{Reason: "no channels configured"}
	}

	r := &Registry{
		survey: cfg.Survey,
		byFreq: make(map[float64]ChannelFiles, len(cfg.Channels)),
	}
	for _, ch := range cfg.Channels {
		if ch.FrequencyHz <= 0 {
			return nil, &ConfigError{FrequencyHz: ch.FrequencyHz, Reason: "frequency must be positive"}
		}
		if _, dup := r.byFreq[ch.FrequencyHz]; dup {
			return nil, &ConfigError{FrequencyHz: ch.FrequencyHz, Reason: "duplicate channel entry"}
		}
		if ch.NativeDir == "" {
			return nil, &ConfigError{FrequencyHz: ch.FrequencyHz, Reason: "missing native_dir"}
		}
		for name, path := range map[string]string{
			"export.sv":    ch.Export.Sv,
			"export.ts":    ch.Export.Ts,
			"export.power": ch.Export.Power,
			"toolkit.sv":   ch.Toolkit.Sv,
		} {
			if path == "" {
				return nil, &ConfigError{FrequencyHz: ch.FrequencyHz, Reason: "missing " + name}
			}
		}
		r.byFreq[ch.FrequencyHz] = ch
		r.freqs = append(r.freqs, ch.FrequencyHz)
	}
	sort.Float64s(r.freqs)
	return r, nil
}

// Load reads and validates a survey configuration file.
func Load(path string) (*Registry, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, &ConfigError{Reason: fmt.Sprintf("survey file must have .json extension, got %q", ext)}
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read survey config: %w", err)
	}

	var cfg SurveyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse survey config %s: %w", cleanPath, err)
	}
	return New(cfg)
}

// Survey returns the survey label from the configuration.
func (r *Registry) Survey() string { return r.survey }

// Frequencies returns every registered channel frequency in ascending
// order.
func (r *Registry) Frequencies() []float64 {
	out := make([]float64, len(r.freqs))
	copy(out, r.freqs)
	return out
}

// Lookup resolves a channel frequency to its file set. An unregistered
// frequency is a configuration defect, not a data defect.
func (r *Registry) Lookup(freqHz float64) (ChannelFiles, error) {
	ch, ok := r.byFreq[freqHz]
	if !ok {
		return ChannelFiles{}, &ConfigError{FrequencyHz: freqHz, Reason: "no reference file set registered"}
	}
	return ch, nil
}
