package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"gopherscope/host/scope"
	"gopherscope/protocol"
)

// FileVersion is written into every capture file
const FileVersion = 1

// ErrUnsupportedVersion is returned for files written by a newer format
var ErrUnsupportedVersion = errors.New("export: unsupported capture file version")

// CaptureFile is the archived form of one burst. Samples are kept raw so
// the calibration can be changed after the fact.
type CaptureFile struct {
	Version     int               `cbor:"1,keyasint"`
	Taken       time.Time         `cbor:"2,keyasint"`
	DurationUS  uint64            `cbor:"3,keyasint"`
	Pins        []uint8           `cbor:"4,keyasint"`
	Samples     []uint16          `cbor:"5,keyasint"`
	Calibration scope.Calibration `cbor:"6,keyasint"`
	RateHz      uint32            `cbor:"7,keyasint,omitempty"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// NewCaptureFile archives c as taken at the given time
func NewCaptureFile(c *scope.Capture, cal scope.Calibration, rateHz uint32, taken time.Time) *CaptureFile {
	return &CaptureFile{
		Version:     FileVersion,
		Taken:       taken,
		DurationUS:  uint64(c.Duration / time.Microsecond),
		Pins:        c.Pins,
		Samples:     c.Samples(),
		Calibration: cal,
		RateHz:      rateHz,
	}
}

// Capture rebuilds the capture as received from the device
func (f *CaptureFile) Capture() *scope.Capture {
	return &scope.Capture{
		Raw:      protocol.AppendSamples(nil, f.Samples...),
		Duration: time.Duration(f.DurationUS) * time.Microsecond,
		Pins:     f.Pins,
	}
}

// Series applies the stored calibration
func (f *CaptureFile) Series() *scope.Series {
	return f.Capture().Series(f.Calibration)
}

// WriteCBOR encodes f as a single CBOR map
func WriteCBOR(w io.Writer, f *CaptureFile) error {
	if err := encMode.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("encode capture: %w", err)
	}
	return nil
}

// ReadCBOR decodes a capture file
func ReadCBOR(r io.Reader) (*CaptureFile, error) {
	var f CaptureFile
	if err := cbor.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	if f.Version > FileVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	if err := f.Calibration.Validate(); err != nil {
		return nil, fmt.Errorf("decode capture: calibration: %w", err)
	}
	return &f, nil
}

// SaveCBOR writes f to path
func SaveCBOR(path string, f *CaptureFile) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCBOR(out, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// LoadCBOR reads a capture file from path
func LoadCBOR(path string) (*CaptureFile, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return ReadCBOR(in)
}
