package refload

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/acoustic-data/crosscheck/internal/echogram"
)

// Packed grid layout (little endian):
//
//	magic    [4]byte  "EGRD"
//	version  uint16   currently 1
//	freq     float64  channel frequency in Hz
//	pings    uint32
//	samples  uint32
//	ranges   [samples]float64   range axis, metres
//	data     [pings*samples]float64, row-major, one row per ping

var packedMagic = [4]byte{'E', 'G', 'R', 'D'}

const packedVersion = 1

// maxPackedDim guards against decoding a corrupt header into a huge
// allocation.
const maxPackedDim = 1 << 22

// PackedSource loads the reference toolkit's packed backscatter export.
// The toolkit exports Sv only; requests for any other quantity fail.
type PackedSource struct {
	Label  string
	SvPath string
}

// Load reads the packed Sv grid. The file records its channel frequency;
// a request for a different channel is rejected rather than remapped.
func (s *PackedSource) Load(q echogram.Quantity, freqHz float64) (*echogram.Dataset, error) {
	if q != echogram.Sv {
		return nil, &SourceReadError{Source: s.Label, Path: s.SvPath,
			Err: fmt.Errorf("toolkit exports Sv only, %s requested", q)}
	}

	ds, err := ReadPacked(s.SvPath, q, s.Label)
	if err != nil {
		return nil, err
	}
	if ds.FrequencyHz != freqHz {
		return nil, &SourceReadError{Source: s.Label, Path: s.SvPath,
			Err: fmt.Errorf("packed export is for %g Hz, requested %g Hz", ds.FrequencyHz, freqHz)}
	}
	return ds, nil
}

// LoadAngles always reports absence: the toolkit has no angle export.
func (s *PackedSource) LoadAngles(freqHz float64) (*echogram.AnglePair, error) {
	return nil, nil
}

// ReadPacked decodes one packed grid file into a dataset.
func ReadPacked(path string, q echogram.Quantity, source string) (*echogram.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceReadError{Source: source, Path: path, Err: err}
	}
	defer f.Close()

	ds, err := decodePacked(bufio.NewReader(f), q, source)
	if err != nil {
		return nil, &SourceReadError{Source: source, Path: path, Err: err}
	}
	return ds, nil
}

func decodePacked(r io.Reader, q echogram.Quantity, source string) (*echogram.Dataset, error) {
	var hdr struct {
		Magic   [4]byte
		Version uint16
		FreqHz  float64
		Pings   uint32
		Samples uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if hdr.Magic != packedMagic {
		return nil, fmt.Errorf("bad magic %q", hdr.Magic)
	}
	if hdr.Version != packedVersion {
		return nil, fmt.Errorf("unsupported version %d", hdr.Version)
	}
	if hdr.Pings == 0 || hdr.Samples == 0 || hdr.Pings > maxPackedDim || hdr.Samples > maxPackedDim {
		return nil, fmt.Errorf("implausible grid dimensions %dx%d", hdr.Pings, hdr.Samples)
	}

	ranges := make([]float64, hdr.Samples)
	if err := binary.Read(r, binary.LittleEndian, ranges); err != nil {
		return nil, fmt.Errorf("read range axis: %w", err)
	}

	data := make([]float64, int(hdr.Pings)*int(hdr.Samples))
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	grid := mat.NewDense(int(hdr.Pings), int(hdr.Samples), data)
	return echogram.New(q, hdr.FreqHz, source, grid, ranges)
}

// WritePacked encodes a dataset in the packed grid layout.
func WritePacked(path string, d *echogram.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	pings, samples := d.Samples.Dims()
	hdr := struct {
		Magic   [4]byte
		Version uint16
		FreqHz  float64
		Pings   uint32
		Samples uint32
	}{packedMagic, packedVersion, d.FrequencyHz, uint32(pings), uint32(samples)}

	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, d.Ranges); err != nil {
		return err
	}
	for p := 0; p < pings; p++ {
		if err := binary.Write(w, binary.LittleEndian, mat.Row(nil, p, d.Samples)); err != nil {
			return err
		}
	}
	return w.Flush()
}
