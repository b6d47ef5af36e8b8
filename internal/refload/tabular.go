package refload

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/acoustic-data/crosscheck/internal/echogram"
)

// Tabular grid layout:
//
//	ping,<range m>,<range m>,...     header row carries the range axis
//	0,<v>,<v>,...                    one row per ping
//	1,<v>,<v>,...
//
// The angle variant carries both grids in one file, each introduced by a
// single-cell section marker row ("alongship" / "athwartship") under a
// shared range header. Empty cells and "NaN" both read as NaN.

// TabularSource loads the export tool's per-quantity CSV grids.
type TabularSource struct {
	// Label names the source on plots and in errors (e.g. "export").
	Label string
	// Paths maps each exported quantity to its file.
	Paths map[echogram.Quantity]string
	// AnglesPath is the combined angle export, or "" when the source has
	// no angle data for this channel.
	AnglesPath string
}

// Load reads one quantity's CSV grid.
func (s *TabularSource) Load(q echogram.Quantity, freqHz float64) (*echogram.Dataset, error) {
	path, ok := s.Paths[q]
	if !ok || path == "" {
		return nil, &SourceReadError{Source: s.Label, Path: string(q),
			Err: fmt.Errorf("no %s export configured", q)}
	}

	rows, err := readCSV(path)
	if err != nil {
		return nil, &SourceReadError{Source: s.Label, Path: path, Err: err}
	}

	ranges, err := parseRangeHeader(rows)
	if err != nil {
		return nil, &SourceReadError{Source: s.Label, Path: path, Err: err}
	}

	grid, err := parseGrid(rows[1:], len(ranges))
	if err != nil {
		return nil, &SourceReadError{Source: s.Label, Path: path, Err: err}
	}

	ds, err := echogram.New(q, freqHz, s.Label, grid, ranges)
	if err != nil {
		return nil, &SourceReadError{Source: s.Label, Path: path, Err: err}
	}
	return ds, nil
}

// LoadAngles reads the combined alongship/athwartship export, or reports
// absence when no angle file is configured.
func (s *TabularSource) LoadAngles(freqHz float64) (*echogram.AnglePair, error) {
	if s.AnglesPath == "" {
		return nil, nil
	}

	rows, err := readCSV(s.AnglesPath)
	if err != nil {
		return nil, &SourceReadError{Source: s.Label, Path: s.AnglesPath, Err: err}
	}

	ranges, err := parseRangeHeader(rows)
	if err != nil {
		return nil, &SourceReadError{Source: s.Label, Path: s.AnglesPath, Err: err}
	}

	sections, err := splitAngleSections(rows[1:])
	if err != nil {
		return nil, &SourceReadError{Source: s.Label, Path: s.AnglesPath, Err: err}
	}

	pair := &echogram.AnglePair{}
	for _, sec := range []struct {
		name string
		q    echogram.Quantity
		dst  **echogram.Dataset
	}{
		{"alongship", echogram.AngleAlongship, &pair.Alongship},
		{"athwartship", echogram.AngleAthwartship, &pair.Athwartship},
	} {
		grid, err := parseGrid(sections[sec.name], len(ranges))
		if err != nil {
			return nil, &SourceReadError{Source: s.Label, Path: s.AnglesPath,
				Err: fmt.Errorf("%s section: %w", sec.name, err)}
		}
		ds, err := echogram.New(sec.q, freqHz, s.Label, grid, append([]float64(nil), ranges...))
		if err != nil {
			return nil, &SourceReadError{Source: s.Label, Path: s.AnglesPath, Err: err}
		}
		*sec.dst = ds
	}
	return pair, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // angle files mix grid rows and marker rows
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("want a range header plus at least one ping, got %d rows", len(rows))
	}
	return rows, nil
}

func parseRangeHeader(rows [][]string) ([]float64, error) {
	header := rows[0]
	if len(header) < 2 || header[0] != "ping" {
		return nil, fmt.Errorf("malformed range header row")
	}
	ranges := make([]float64, len(header)-1)
	for i, cell := range header[1:] {
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("range header column %d: %w", i+1, err)
		}
		ranges[i] = v
	}
	return ranges, nil
}

func parseGrid(rows [][]string, samples int) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no ping rows")
	}
	data := make([]float64, 0, len(rows)*samples)
	for i, row := range rows {
		if len(row) != samples+1 {
			return nil, fmt.Errorf("ping row %d has %d cells, want %d", i, len(row), samples+1)
		}
		for j, cell := range row[1:] {
			v, err := parseValue(cell)
			if err != nil {
				return nil, fmt.Errorf("ping row %d column %d: %w", i, j+1, err)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(len(rows), samples, data), nil
}

func splitAngleSections(rows [][]string) (map[string][][]string, error) {
	sections := make(map[string][][]string, 2)
	current := ""
	for _, row := range rows {
		if len(row) == 1 {
			current = row[0]
			continue
		}
		if current == "" {
			return nil, fmt.Errorf("grid rows before any section marker")
		}
		sections[current] = append(sections[current], row)
	}
	for _, name := range []string{"alongship", "athwartship"} {
		if len(sections[name]) == 0 {
			return nil, fmt.Errorf("missing %q section", name)
		}
	}
	return sections, nil
}

func parseValue(cell string) (float64, error) {
	if cell == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// WriteTabular writes a dataset in the tabular grid layout. It is the
// inverse of Load and exists for staging comparison fixtures.
func WriteTabular(path string, d *echogram.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rangeHeader(d.Ranges)); err != nil {
		return err
	}
	if err := writeGridRows(w, d); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// WriteTabularAngles writes an angle pair in the sectioned angle layout.
func WriteTabularAngles(path string, pair *echogram.AnglePair) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rangeHeader(pair.Alongship.Ranges)); err != nil {
		return err
	}
	for _, sec := range []struct {
		name string
		ds   *echogram.Dataset
	}{
		{"alongship", pair.Alongship},
		{"athwartship", pair.Athwartship},
	} {
		if err := w.Write([]string{sec.name}); err != nil {
			return err
		}
		if err := writeGridRows(w, sec.ds); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func rangeHeader(ranges []float64) []string {
	header := make([]string, 0, len(ranges)+1)
	header = append(header, "ping")
	for _, r := range ranges {
		header = append(header, strconv.FormatFloat(r, 'g', -1, 64))
	}
	return header
}

func writeGridRows(w *csv.Writer, d *echogram.Dataset) error {
	pings, samples := d.Samples.Dims()
	for p := 0; p < pings; p++ {
		row := make([]string, 0, samples+1)
		row = append(row, strconv.Itoa(p))
		for s := 0; s < samples; s++ {
			row = append(row, strconv.FormatFloat(d.At(p, s), 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
