// Package sim runs the real device firmware on the host against a
// synthetic signal source, served over websocket so the CLI can be used
// without hardware.
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gopherscope/core"
)

// NRFPins is the analog catalog of the nRF52832
var NRFPins = []core.PinID{2, 3, 4, 5, 28, 29, 30, 31}

// NRFAbilities describes the simulated board
func NRFAbilities() core.Abilities {
	return core.Abilities{
		ADCPins:     NRFPins,
		Resolutions: []uint8{8, 10, 12, 14},
		References:  []string{"internal (0.6 V)", "VDD/4"},
		MaxRateHz:   core.MaxRateHz,
	}
}

// FullScale is the largest simulated reading (12 bit)
const FullScale = 4095

var ErrNotConfigured = errors.New("sim: channel not configured")

// SignalOptions shape the generated waveforms
type SignalOptions struct {
	Tones []float64 // Hz; channel n plays Tones[n mod len]
	Noise float64   // Gaussian noise as a fraction of full scale
	Seed  int64
}

// SignalADC synthesizes one sine per channel, phase-shifted by catalog
// position, sampled at the clock's current time
type SignalADC struct {
	pins  []core.PinID
	clock core.Clock
	opts  SignalOptions

	mu         sync.Mutex
	configured map[core.PinID]bool
	rng        *rand.Rand
}

// NewSignalADC serves pins (NRFPins when empty) using clock for the time base
func NewSignalADC(clock core.Clock, opts SignalOptions, pins ...core.PinID) *SignalADC {
	if len(pins) == 0 {
		pins = NRFPins
	}
	if len(opts.Tones) == 0 {
		opts.Tones = []float64{50}
	}
	return &SignalADC{
		pins:       pins,
		clock:      clock,
		opts:       opts,
		configured: make(map[core.PinID]bool),
		rng:        rand.New(rand.NewSource(opts.Seed)),
	}
}

func (a *SignalADC) Capable() []core.PinID {
	return a.pins
}

func (a *SignalADC) ConfigureChannel(pin core.PinID) error {
	if a.index(pin) < 0 {
		return fmt.Errorf("sim: pin %d has no analog input", pin)
	}
	a.mu.Lock()
	a.configured[pin] = true
	a.mu.Unlock()
	return nil
}

func (a *SignalADC) ReleaseChannel(pin core.PinID) error {
	a.mu.Lock()
	delete(a.configured, pin)
	a.mu.Unlock()
	return nil
}

func (a *SignalADC) ReadRaw(pin core.PinID) (core.ADCValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.configured[pin] {
		return 0, fmt.Errorf("%w: pin %d", ErrNotConfigured, pin)
	}
	i := a.index(pin)
	t := a.clock.Now().Seconds()
	f := a.opts.Tones[i%len(a.opts.Tones)]
	phase := float64(i) * math.Pi / 4

	v := 0.5 + 0.4*math.Sin(2*math.Pi*f*t+phase)
	if a.opts.Noise > 0 {
		v += a.rng.NormFloat64() * a.opts.Noise
	}
	v = math.Max(0, math.Min(1, v))
	return core.ADCValue(math.Round(v * FullScale)), nil
}

func (a *SignalADC) index(pin core.PinID) int {
	for i, p := range a.pins {
		if p == pin {
			return i
		}
	}
	return -1
}
