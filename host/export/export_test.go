package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"gopherscope/host/scope"
	"gopherscope/protocol"
)

func testCapture() *scope.Capture {
	return &scope.Capture{
		Raw:      protocol.AppendSamples(nil, 0, 4095, 2048, 1024, 512, 256),
		Duration: 3 * time.Millisecond,
		Pins:     []uint8{3, 28},
	}
}

func TestWriteCSV(t *testing.T) {
	s := testCapture().Series(scope.DefaultCalibration())

	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(rows) != 7 {
		t.Fatalf("expected header and 6 rows, got %d", len(rows))
	}
	if rows[0][0] != "t_s" || rows[0][4] != "volts" {
		t.Errorf("unexpected header %v", rows[0])
	}

	tests := []struct {
		row  int
		want []string
	}{
		{1, []string{"0", "0", "3", "0", "0.000000"}},
		{2, []string{"0.0005", "1", "28", "4095", "3.299194"}},
		{3, []string{"0.001", "0", "3", "2048", "1.650000"}},
	}
	for _, tt := range tests {
		got := rows[tt.row]
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("row %d col %d: expected %q, got %q", tt.row, i, tt.want[i], got[i])
			}
		}
	}
}

func TestWriteCSVWithoutPins(t *testing.T) {
	c := testCapture()
	c.Pins = nil

	var buf bytes.Buffer
	if err := WriteCSV(&buf, c.Series(scope.DefaultCalibration())); err != nil {
		t.Fatal(err)
	}
	rows, _ := csv.NewReader(&buf).ReadAll()
	for _, r := range rows[1:] {
		if r[1] != "0" || r[2] != "" {
			t.Fatalf("unpinned capture should be one channel with no pin, got %v", r)
		}
	}
}

func TestCBORRoundTrip(t *testing.T) {
	taken := time.Date(2026, 3, 14, 15, 9, 26, 535897000, time.UTC)
	cal := scope.Calibration{FullScale: 4096, ReferenceVoltage: 0.6, Gain: 1.0 / 6}
	orig := NewCaptureFile(testCapture(), cal, 20000, taken)

	var buf bytes.Buffer
	if err := WriteCBOR(&buf, orig); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCBOR(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if !got.Taken.Equal(taken) {
		t.Errorf("taken: expected %v, got %v", taken, got.Taken)
	}
	if got.Calibration != cal || got.RateHz != 20000 || got.DurationUS != 3000 {
		t.Errorf("metadata mismatch: %+v", got)
	}
	capt := got.Capture()
	if !bytes.Equal(capt.Raw, testCapture().Raw) {
		t.Errorf("samples changed: %v", capt.Raw)
	}
	if capt.Duration != 3*time.Millisecond || len(capt.Pins) != 2 || capt.Pins[1] != 28 {
		t.Errorf("capture mismatch: %+v", capt)
	}
	if s := got.Series(); s.Volts[1] != cal.Volts(4095) {
		t.Errorf("series did not use the stored calibration")
	}
}

func TestCBORUsesIntegerKeys(t *testing.T) {
	f := NewCaptureFile(testCapture(), scope.DefaultCalibration(), 0, time.Unix(0, 0).UTC())
	var buf bytes.Buffer
	if err := WriteCBOR(&buf, f); err != nil {
		t.Fatal(err)
	}

	var m map[int]interface{}
	if err := cbor.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if v, ok := m[1].(uint64); !ok || v != FileVersion {
		t.Errorf("key 1 should hold the version, got %v", m[1])
	}
	if _, ok := m[7]; ok {
		t.Error("zero rate should be omitted")
	}
}

func TestReadCBORRejects(t *testing.T) {
	tests := []struct {
		name string
		f    CaptureFile
		want error
	}{
		{
			name: "newer version",
			f:    CaptureFile{Version: FileVersion + 1, Calibration: scope.DefaultCalibration()},
			want: ErrUnsupportedVersion,
		},
		{
			name: "bad calibration",
			f:    CaptureFile{Version: FileVersion},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteCBOR(&buf, &tt.f); err != nil {
				t.Fatal(err)
			}
			_, err := ReadCBOR(&buf)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if _, err := ReadCBOR(bytes.NewReader([]byte{0xFF})); err == nil {
		t.Error("garbage decoded")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	s := testCapture().Series(scope.DefaultCalibration())
	if err := SaveCSV(filepath.Join(dir, "c.csv"), s); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "c.cbor")
	f := NewCaptureFile(testCapture(), scope.DefaultCalibration(), 10000, time.Now())
	if err := SaveCBOR(path, f); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCBOR(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Samples) != 6 {
		t.Errorf("expected 6 samples, got %d", len(got.Samples))
	}
	if _, err := LoadCBOR(filepath.Join(dir, "missing.cbor")); err == nil {
		t.Error("missing file loaded")
	}
}
