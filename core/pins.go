package core

import (
	"github.com/rs/zerolog"

	"gopherscope/protocol"
)

// Pin store limits
const (
	MaxChannels   = 8      // Enabled channel slots
	DefaultRateHz = 10000  // Burst rate until AnalogRate is received
	MaxRateHz     = 200000 // Upper bound accepted by AnalogRate
)

// PinHandle is the exclusive right to sample one pin. A handle lives either
// in the store's pool or in exactly one enabled channel slot.
type PinHandle struct {
	id PinID
}

// ID returns the pin number
func (h *PinHandle) ID() PinID { return h.id }

// Channels is a copy of the sampling configuration taken by the sampler at
// the start of a session
type Channels struct {
	Pins   []PinID
	RateHz uint32
}

// PinStore owns the pin pool and the ordered list of enabled channels
type PinStore struct {
	driver  ADCDriver
	maxRate uint32
	log     zerolog.Logger
	state   *Mutex[pinTable]
}

type pinTable struct {
	catalog []PinID
	pool    map[PinID]*PinHandle
	enabled []*PinHandle
	rate    uint32
}

// NewPinStore creates one handle per capable pin, all available.
// maxRate of zero selects MaxRateHz.
func NewPinStore(driver ADCDriver, maxRate uint32, log zerolog.Logger) *PinStore {
	if maxRate == 0 {
		maxRate = MaxRateHz
	}
	t := pinTable{
		pool:    make(map[PinID]*PinHandle),
		enabled: make([]*PinHandle, 0, MaxChannels),
		rate:    DefaultRateHz,
	}
	for _, id := range driver.Capable() {
		if _, dup := t.pool[id]; dup {
			continue
		}
		t.catalog = append(t.catalog, id)
		t.pool[id] = &PinHandle{id: id}
	}
	return &PinStore{
		driver:  driver,
		maxRate: maxRate,
		log:     log.With().Str("component", "pins").Logger(),
		state:   NewMutex(t),
	}
}

// Apply executes one configuration action. Failures are protocol.ConfigErr
// values. Apply never blocks beyond the store's lock.
func (s *PinStore) Apply(a protocol.ConfigAction) error {
	var err error
	s.state.With(func(t *pinTable) {
		switch a.Op {
		case protocol.ActionResetPins:
			t.reset(s.driver, s.log)
		case protocol.ActionAnalogPin:
			err = t.enable(s.driver, a.Pin)
		case protocol.ActionDigitalPin:
			err = protocol.ErrUnimplemented
		case protocol.ActionAnalogRate:
			if a.Rate == 0 || a.Rate > s.maxRate {
				err = protocol.InvalidRate(a.Rate)
				return
			}
			t.rate = a.Rate
		default:
			err = protocol.ErrCommunicationProblem
		}
	})
	return err
}

func (t *pinTable) enable(driver ADCDriver, id PinID) error {
	if !t.inCatalog(id) {
		return protocol.InvalidPin(id)
	}
	h, ok := t.pool[id]
	if !ok {
		return protocol.PinTaken(id)
	}
	if len(t.enabled) == MaxChannels {
		return protocol.UnavailableSampler(MaxChannels)
	}
	if err := driver.ConfigureChannel(id); err != nil {
		return protocol.ErrCommunicationProblem
	}
	delete(t.pool, id)
	t.enabled = append(t.enabled, h)
	return nil
}

// reset disconnects every enabled pin and returns its handle to the pool.
// A driver failure on release is logged and the handle still returned.
func (t *pinTable) reset(driver ADCDriver, log zerolog.Logger) {
	for i, h := range t.enabled {
		if err := driver.ReleaseChannel(h.id); err != nil {
			log.Warn().Err(err).Uint8("pin", h.id).Msg("release failed")
		}
		t.pool[h.id] = h
		t.enabled[i] = nil
	}
	t.enabled = t.enabled[:0]
}

func (t *pinTable) inCatalog(id PinID) bool {
	for _, c := range t.catalog {
		if c == id {
			return true
		}
	}
	return false
}

// Snapshot copies the enabled pins in order and the burst rate
func (s *PinStore) Snapshot() Channels {
	var c Channels
	s.state.With(func(t *pinTable) {
		c.Pins = make([]PinID, len(t.enabled))
		for i, h := range t.enabled {
			c.Pins[i] = h.id
		}
		c.RateHz = t.rate
	})
	return c
}

// Enabled returns the enabled pins in enable order
func (s *PinStore) Enabled() []PinID {
	return s.Snapshot().Pins
}

// Available returns the pins still in the pool, in catalog order
func (s *PinStore) Available() []PinID {
	var out []PinID
	s.state.With(func(t *pinTable) {
		for _, id := range t.catalog {
			if _, ok := t.pool[id]; ok {
				out = append(out, id)
			}
		}
	})
	return out
}

// Rate returns the configured burst rate in Hz
func (s *PinStore) Rate() uint32 {
	return s.Snapshot().RateHz
}

// Catalog returns every pin the store can hand out
func (s *PinStore) Catalog() []PinID {
	var out []PinID
	s.state.With(func(t *pinTable) {
		out = append(out, t.catalog...)
	})
	return out
}
