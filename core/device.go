// Package core implements the gopherscope device control loop: the mode
// state machine, the pin store and the three cooperating tasks that share
// one host link.
//
// The package is portable. Boards provide an ADCDriver, a Clock and a byte
// stream, and call Run.
package core

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gopherscope/protocol"
)

// Device configuration defaults
const (
	DefaultQueueCapacity = 32
	DefaultSenderBatch   = 8
	DefaultBurstSamples  = 512
)

// Config wires a device to its board
type Config struct {
	ADC       ADCDriver
	Transport io.ReadWriter
	Clock     Clock // Defaults to NewSystemClock()

	// Abilities describes the board. ADCPins defaults to ADC.Capable().
	Abilities Abilities

	IdleInterval       time.Duration // Sampler sleep while Idle
	ContinuousInterval time.Duration // Sleep between continuous rounds, defaults to IdleInterval
	QueueCapacity      int           // Continuous queue depth in rounds
	SenderBatch        int           // Max samples per continuous Data frame
	BurstSamples       int           // Burst capture buffer size
	ChunkSize          int           // Max payload bytes per burst Data frame

	Logger *zerolog.Logger // Defaults to zerolog.Nop()
}

var (
	ErrNoADC       = errors.New("core: no ADC driver configured")
	ErrNoTransport = errors.New("core: no transport configured")
)

func (c *Config) withDefaults() {
	if c.Clock == nil {
		c.Clock = NewSystemClock()
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = IdleInterval
	}
	if c.ContinuousInterval <= 0 {
		c.ContinuousInterval = c.IdleInterval
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.SenderBatch <= 0 {
		c.SenderBatch = DefaultSenderBatch
	}
	if c.BurstSamples <= 0 {
		c.BurstSamples = DefaultBurstSamples
	}
	if c.ChunkSize < protocol.SampleSize || c.ChunkSize > protocol.MaxDataChunk {
		c.ChunkSize = protocol.MaxDataChunk
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if len(c.Abilities.ADCPins) == 0 {
		c.Abilities.ADCPins = c.ADC.Capable()
	}
	if c.Abilities.MaxRateHz == 0 {
		c.Abilities.MaxRateHz = MaxRateHz
	}
}

// Device is the shared state reachable by the handler, sampler and sender
type Device struct {
	cfg   Config
	log   zerolog.Logger
	clock Clock
	adc   ADCDriver

	link  *Link
	pins  *PinStore
	mode  *ModeCell
	queue chan []uint16 // One continuous round per entry
	burst *protocol.SampleBuffer

	// sendMu is held by the sender while it owns rounds taken off the queue
	sendMu sync.Mutex
}

// New builds a device in Idle with every capable pin available
func New(cfg Config) (*Device, error) {
	if cfg.ADC == nil {
		return nil, ErrNoADC
	}
	if cfg.Transport == nil {
		return nil, ErrNoTransport
	}
	cfg.withDefaults()

	log := cfg.Logger.With().Str("component", "device").Logger()
	return &Device{
		cfg:   cfg,
		log:   log,
		clock: cfg.Clock,
		adc:   cfg.ADC,
		link:  NewLink(cfg.Transport, cfg.Transport, *cfg.Logger),
		pins:  NewPinStore(cfg.ADC, cfg.Abilities.MaxRateHz, log),
		mode:  NewModeCell(),
		queue: make(chan []uint16, cfg.QueueCapacity),
		burst: protocol.NewSampleBuffer(cfg.BurstSamples),
	}, nil
}

// Run starts the three tasks and blocks until one of them fails or ctx
// ends. A handler blocked reading the transport only returns once the
// transport is closed.
func (d *Device) Run(ctx context.Context) error {
	d.log.Info().
		Interface("abilities", d.cfg.Abilities).
		Int("burst_samples", d.cfg.BurstSamples).
		Msg("device running")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.handleCommands(ctx) })
	g.Go(func() error { return d.runSampler(ctx) })
	g.Go(func() error { return d.runSender(ctx) })
	return g.Wait()
}

// Mode returns the current mode
func (d *Device) Mode() Mode { return d.mode.Get() }

// Pins exposes the pin store
func (d *Device) Pins() *PinStore { return d.pins }

// Abilities describes the board
func (d *Device) Abilities() Abilities { return d.cfg.Abilities }
