package core

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// nrfPins is the nRF52832 analog catalog
var nrfPins = []PinID{2, 3, 4, 5, 28, 29, 30, 31}

var errFakeADC = errors.New("fake adc failure")

type adcRead struct {
	pin PinID
	at  time.Duration
}

// fakeADC returns pin<<8 | sequence so tests can tell which channel and
// which conversion produced a sample
type fakeADC struct {
	mu         sync.Mutex
	pins       []PinID
	clock      Clock
	configured map[PinID]bool
	reads      []adcRead
	seq        uint8

	failConfigure bool
	failRead      bool
	failRelease   bool
	failPin       map[PinID]bool
}

func newFakeADC(clock Clock, pins ...PinID) *fakeADC {
	if len(pins) == 0 {
		pins = nrfPins
	}
	return &fakeADC{pins: pins, clock: clock, configured: make(map[PinID]bool)}
}

func (a *fakeADC) Capable() []PinID { return a.pins }

func (a *fakeADC) ConfigureChannel(pin PinID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failConfigure {
		return errFakeADC
	}
	a.configured[pin] = true
	return nil
}

func (a *fakeADC) ReleaseChannel(pin PinID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.configured, pin)
	if a.failRelease {
		return errFakeADC
	}
	return nil
}

func (a *fakeADC) ReadRaw(pin PinID) (ADCValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failRead || a.failPin[pin] {
		return 0, errFakeADC
	}
	var at time.Duration
	if a.clock != nil {
		at = a.clock.Now()
	}
	a.reads = append(a.reads, adcRead{pin: pin, at: at})
	v := ADCValue(pin)<<8 | ADCValue(a.seq)
	a.seq++
	return v, nil
}

func (a *fakeADC) setFailRead(fail bool) {
	a.mu.Lock()
	a.failRead = fail
	a.mu.Unlock()
}

// setFailPin makes reads of one pin fail while the others keep working
func (a *fakeADC) setFailPin(pin PinID) {
	a.mu.Lock()
	if a.failPin == nil {
		a.failPin = make(map[PinID]bool)
	}
	a.failPin[pin] = true
	a.mu.Unlock()
}

func (a *fakeADC) readLog() []adcRead {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]adcRead(nil), a.reads...)
}

func (a *fakeADC) isConfigured(pin PinID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.configured[pin]
}

// fakeClock advances by step on every Now call, so a busy-wait always makes
// progress. Sleep advances virtual time by d but only waits a millisecond of
// real time.
type fakeClock struct {
	now  atomic.Int64
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{step: step}
}

func (c *fakeClock) Now() time.Duration {
	return time.Duration(c.now.Add(int64(c.step)))
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now.Add(int64(d))
	t := time.NewTimer(time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// getFuzzRounds returns the number of random rounds from FUZZ_ROUNDS, default 500
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 500
}

// newFuzzRng seeds from FUZZ_SEED or the clock and logs the seed
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}
