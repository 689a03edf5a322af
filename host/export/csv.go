// Package export writes captures to files: CSV for spreadsheets and plots,
// CBOR for lossless archives that can be read back.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopherscope/host/scope"
)

var csvHeader = []string{"t_s", "channel", "pin", "raw", "volts"}

// WriteCSV writes one row per sample in acquisition order
func WriteCSV(w io.Writer, s *scope.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	n := s.Channels()
	row := make([]string, len(csvHeader))
	for i, raw := range s.Raw {
		ch := i % n
		pin := ""
		if ch < len(s.Pins) {
			pin = strconv.Itoa(int(s.Pins[ch]))
		}
		row[0] = strconv.FormatFloat(s.Time[i], 'g', 9, 64)
		row[1] = strconv.Itoa(ch)
		row[2] = pin
		row[3] = strconv.Itoa(int(raw))
		row[4] = strconv.FormatFloat(s.Volts[i], 'f', 6, 64)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the series to path, replacing any existing file
func SaveCSV(path string, s *scope.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
