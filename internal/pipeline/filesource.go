package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/acoustic-data/crosscheck/internal/echogram"
	"github.com/acoustic-data/crosscheck/internal/refload"
)

// SourceNative labels datasets produced by the native pipeline.
const SourceNative = "native"

// manifest describes one channel's staged conversion output.
type manifest struct {
	FrequencyHz float64 `json:"frequency_hz"`
	RawRecords  int     `json:"raw_records"`
}

// FileSource is a Converter backed by the conversion engine's staged
// per-channel output: one packed grid file per quantity in a directory,
// described by a manifest.json. It lets the harness run end to end
// without linking the raw-instrument parser into this repository.
//
// Expected directory contents:
//
//	manifest.json
//	power.grid, sv.grid, ts.grid
//	angle_alongship.grid, angle_athwartship.grid   (optional)
type FileSource struct {
	dir string
	man manifest
}

// OpenFileSource reads a staged channel directory's manifest.
func OpenFileSource(dir string) (*FileSource, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, &refload.SourceReadError{Source: SourceNative, Path: dir, Err: err}
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, &refload.SourceReadError{Source: SourceNative, Path: dir,
			Err: fmt.Errorf("parse manifest.json: %w", err)}
	}
	if man.FrequencyHz <= 0 {
		return nil, &refload.SourceReadError{Source: SourceNative, Path: dir,
			Err: fmt.Errorf("manifest frequency_hz %g is not positive", man.FrequencyHz)}
	}
	return &FileSource{dir: dir, man: man}, nil
}

// TransducerFrequency returns the channel frequency from the manifest.
func (s *FileSource) TransducerFrequency() float64 { return s.man.FrequencyHz }

// RecordCount returns the raw-record count from the manifest.
func (s *FileSource) RecordCount() int { return s.man.RawRecords }

// Power reads the staged power grid.
func (s *FileSource) Power(cal *Calibration) (*echogram.Dataset, error) {
	return s.grid(cal, echogram.Power, "power.grid")
}

// Sv reads the staged volume backscattering grid.
func (s *FileSource) Sv(cal *Calibration) (*echogram.Dataset, error) {
	return s.grid(cal, echogram.Sv, "sv.grid")
}

// Ts reads the staged target strength grid.
func (s *FileSource) Ts(cal *Calibration) (*echogram.Dataset, error) {
	return s.grid(cal, echogram.Ts, "ts.grid")
}

// PhysicalAngles reads the staged angle grids, or reports ErrNoAngles
// when the acquisition carried none.
func (s *FileSource) PhysicalAngles(cal *Calibration) (*echogram.AnglePair, error) {
	alongPath := filepath.Join(s.dir, "angle_alongship.grid")
	if _, err := os.Stat(alongPath); os.IsNotExist(err) {
		return nil, ErrNoAngles
	}

	along, err := s.grid(cal, echogram.AngleAlongship, "angle_alongship.grid")
	if err != nil {
		return nil, err
	}
	athwart, err := s.grid(cal, echogram.AngleAthwartship, "angle_athwartship.grid")
	if err != nil {
		return nil, err
	}
	return &echogram.AnglePair{Alongship: along, Athwartship: athwart}, nil
}

// grid reads one staged grid, memoised on the calibration so repeated
// conversion calls within a channel do not re-read the file.
func (s *FileSource) grid(cal *Calibration, q echogram.Quantity, name string) (*echogram.Dataset, error) {
	path := filepath.Join(s.dir, name)
	v, err := cal.Memo("grid:"+path, func() (any, error) {
		ds, err := refload.ReadPacked(path, q, SourceNative)
		if err != nil {
			return nil, err
		}
		if ds.FrequencyHz != s.man.FrequencyHz {
			return nil, &refload.SourceReadError{Source: SourceNative, Path: path,
				Err: fmt.Errorf("grid is for %g Hz, manifest says %g Hz", ds.FrequencyHz, s.man.FrequencyHz)}
		}
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*echogram.Dataset), nil
}
