package scope

import (
	"fmt"
	"time"

	"gopherscope/protocol"
)

// Calibration converts raw readings to volts:
// volts = raw / FullScale * ReferenceVoltage / Gain
type Calibration struct {
	FullScale        float64 `yaml:"full_scale" json:"full_scale" cbor:"1,keyasint"`
	ReferenceVoltage float64 `yaml:"reference_voltage" json:"reference_voltage" cbor:"2,keyasint"`
	Gain             float64 `yaml:"gain" json:"gain" cbor:"3,keyasint"`
}

// DefaultCalibration matches a 12-bit converter against a 3.3 V reference
func DefaultCalibration() Calibration {
	return Calibration{FullScale: 4096, ReferenceVoltage: 3.3, Gain: 1}
}

// Validate rejects calibrations that would divide by zero
func (c Calibration) Validate() error {
	if c.FullScale <= 0 {
		return fmt.Errorf("full_scale must be positive, got %v", c.FullScale)
	}
	if c.Gain == 0 {
		return fmt.Errorf("gain must be non-zero")
	}
	return nil
}

// Volts converts one raw reading
func (c Calibration) Volts(raw uint16) float64 {
	return float64(raw) / c.FullScale * c.ReferenceVoltage / c.Gain
}

// Capture is one burst as received
type Capture struct {
	Raw      []byte        // Payload bytes in arrival order
	Duration time.Duration // Capture time reported by Done
	Pins     []uint8       // Enabled pins in order, if known
}

// Samples reinterprets the payload as raw readings
func (c *Capture) Samples() []uint16 {
	return protocol.DecodeSamples(c.Raw)
}

// Series reconstructs the sample timeline. Samples are assumed evenly
// spaced over Duration, which is only approximate with several channels.
func (c *Capture) Series(cal Calibration) *Series {
	raw := c.Samples()
	s := &Series{
		Pins:  c.Pins,
		Raw:   raw,
		Time:  make([]float64, len(raw)),
		Volts: make([]float64, len(raw)),
	}
	if len(raw) == 0 {
		return s
	}
	total := c.Duration.Seconds()
	for i, v := range raw {
		s.Time[i] = float64(i) * total / float64(len(raw))
		s.Volts[i] = cal.Volts(v)
	}
	return s
}

// Series is a capture converted to physical units. Entry i came from
// channel i mod len(Pins).
type Series struct {
	Pins  []uint8
	Raw   []uint16
	Time  []float64 // Seconds since the first sample
	Volts []float64
}

// Channels returns the number of interleaved channels, at least one
func (s *Series) Channels() int {
	if len(s.Pins) == 0 {
		return 1
	}
	return len(s.Pins)
}

// ChannelSeries is the part of a Series belonging to one channel
type ChannelSeries struct {
	Index int
	Pin   uint8
	Time  []float64
	Volts []float64
	Raw   []uint16
}

// Channel extracts channel n
func (s *Series) Channel(n int) ChannelSeries {
	cs := ChannelSeries{Index: n}
	step := s.Channels()
	if n < 0 || n >= step {
		return cs
	}
	if n < len(s.Pins) {
		cs.Pin = s.Pins[n]
	}
	for i := n; i < len(s.Raw); i += step {
		cs.Time = append(cs.Time, s.Time[i])
		cs.Volts = append(cs.Volts, s.Volts[i])
		cs.Raw = append(cs.Raw, s.Raw[i])
	}
	return cs
}

// Split returns every channel in order
func (s *Series) Split() []ChannelSeries {
	out := make([]ChannelSeries, s.Channels())
	for i := range out {
		out[i] = s.Channel(i)
	}
	return out
}
