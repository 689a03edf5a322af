package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"gopherscope/protocol"
)

func TestPinStoreEnable(t *testing.T) {
	adc := newFakeADC(nil)
	s := NewPinStore(adc, 0, zerolog.Nop())

	if err := s.Apply(protocol.AnalogPin(2)); err != nil {
		t.Fatalf("AnalogPin(2) failed: %v", err)
	}
	if !adc.isConfigured(2) {
		t.Error("pin 2 was not connected to the ADC")
	}

	tests := []struct {
		name   string
		action protocol.ConfigAction
		want   error
	}{
		{"already taken", protocol.AnalogPin(2), protocol.PinTaken(2)},
		{"not in catalog", protocol.AnalogPin(99), protocol.InvalidPin(99)},
		{"digital", protocol.DigitalPin(3), protocol.ErrUnimplemented},
		{"zero rate", protocol.AnalogRate(0), protocol.InvalidRate(0)},
		{"rate too high", protocol.AnalogRate(MaxRateHz + 1), protocol.InvalidRate(MaxRateHz + 1)},
		{"max rate", protocol.AnalogRate(MaxRateHz), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Apply(tt.action)
			if err != tt.want {
				t.Errorf("Apply(%v) = %v, want %v", tt.action, err, tt.want)
			}
		})
	}

	if got := s.Rate(); got != MaxRateHz {
		t.Errorf("expected rate %d, got %d", MaxRateHz, got)
	}
}

func TestPinStoreDefaultRate(t *testing.T) {
	s := NewPinStore(newFakeADC(nil), 0, zerolog.Nop())
	if s.Rate() != DefaultRateHz {
		t.Errorf("expected default rate %d, got %d", DefaultRateHz, s.Rate())
	}
}

func TestPinStoreOverflow(t *testing.T) {
	pins := []PinID{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	s := NewPinStore(newFakeADC(nil, pins...), 0, zerolog.Nop())

	for _, p := range pins[:MaxChannels] {
		if err := s.Apply(protocol.AnalogPin(p)); err != nil {
			t.Fatalf("AnalogPin(%d) failed: %v", p, err)
		}
	}
	err := s.Apply(protocol.AnalogPin(8))
	if err != protocol.UnavailableSampler(MaxChannels) {
		t.Fatalf("expected UnavailableSampler(%d), got %v", MaxChannels, err)
	}
	// The rejected pin stays in the pool
	avail := s.Available()
	if len(avail) != 2 || avail[0] != 8 || avail[1] != 9 {
		t.Errorf("expected pins 8 and 9 available, got %v", avail)
	}
}

func TestPinStoreConnectFailure(t *testing.T) {
	adc := newFakeADC(nil)
	adc.failConfigure = true
	s := NewPinStore(adc, 0, zerolog.Nop())

	if err := s.Apply(protocol.AnalogPin(4)); err != protocol.ErrCommunicationProblem {
		t.Fatalf("expected ErrCommunicationProblem, got %v", err)
	}
	if len(s.Enabled()) != 0 {
		t.Errorf("pin enabled despite driver failure: %v", s.Enabled())
	}
	if len(s.Available()) != len(nrfPins) {
		t.Errorf("pin left the pool despite driver failure")
	}
}

func TestPinStoreResetIdempotent(t *testing.T) {
	adc := newFakeADC(nil)
	s := NewPinStore(adc, 0, zerolog.Nop())
	for _, p := range []PinID{28, 2, 30} {
		if err := s.Apply(protocol.AnalogPin(p)); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.Enabled(); len(got) != 3 || got[0] != 28 || got[1] != 2 || got[2] != 30 {
		t.Fatalf("enable order not kept: %v", got)
	}

	for i := 0; i < 2; i++ {
		if err := s.Apply(protocol.ResetPins()); err != nil {
			t.Fatalf("reset %d failed: %v", i, err)
		}
		if len(s.Enabled()) != 0 {
			t.Errorf("reset %d left pins enabled: %v", i, s.Enabled())
		}
		avail := s.Available()
		if len(avail) != len(nrfPins) {
			t.Fatalf("reset %d: expected %d pins available, got %v", i, len(nrfPins), avail)
		}
		for j, p := range nrfPins {
			if avail[j] != p {
				t.Errorf("reset %d: available[%d] = %d, want %d", i, j, avail[j], p)
			}
		}
	}
	if adc.isConfigured(28) {
		t.Error("pin 28 still connected after reset")
	}
}

func TestPinStoreResetLogsReleaseFailure(t *testing.T) {
	adc := newFakeADC(nil)
	adc.failRelease = true
	var logs bytes.Buffer
	s := NewPinStore(adc, 0, zerolog.New(&logs))

	if err := s.Apply(protocol.AnalogPin(5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(protocol.ResetPins()); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if !contains(s.Available(), 5) || len(s.Enabled()) != 0 {
		t.Errorf("pin 5 not returned to the pool: enabled %v", s.Enabled())
	}
	out := logs.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"pin":5`) {
		t.Errorf("release failure not logged: %s", out)
	}
}

func TestFuzzPinExclusivity(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	s := NewPinStore(newFakeADC(nil), 0, zerolog.Nop())

	// Mostly catalog pins, with some outside it
	candidates := append([]PinID{0, 1, 99, 255}, nrfPins...)

	for i := 0; i < rounds; i++ {
		if rng.Intn(6) == 0 {
			if err := s.Apply(protocol.ResetPins()); err != nil {
				t.Fatalf("Round %d: reset failed: %v", i, err)
			}
		} else {
			p := candidates[rng.Intn(len(candidates))]
			wasEnabled := contains(s.Enabled(), p)
			err := s.Apply(protocol.AnalogPin(p))
			if wasEnabled && err != protocol.PinTaken(p) {
				t.Fatalf("Round %d: re-enabling pin %d returned %v", i, p, err)
			}
		}

		enabled := s.Enabled()
		available := s.Available()
		seen := make(map[PinID]int)
		for _, p := range enabled {
			seen[p]++
		}
		for _, p := range available {
			seen[p]++
		}
		for p, n := range seen {
			if n != 1 {
				t.Fatalf("Round %d: pin %d appears %d times (enabled %v, available %v)", i, p, n, enabled, available)
			}
		}
		if len(seen) != len(nrfPins) {
			t.Fatalf("Round %d: %d pins tracked, want %d", i, len(seen), len(nrfPins))
		}
	}
}

func contains(pins []PinID, p PinID) bool {
	for _, q := range pins {
		if q == p {
			return true
		}
	}
	return false
}
