package core

import (
	"context"
	"time"

	"gopherscope/protocol"
)

// runSampler executes the strategy for whatever mode is current, one turn at
// a time
func (d *Device) runSampler(ctx context.Context) error {
	log := d.log.With().Str("task", "sampler").Logger()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		mode, changed := d.mode.Watch()
		var err error
		switch mode.State {
		case ModeIdle:
			err = d.idle(ctx, d.cfg.IdleInterval, changed)
		case ModeFaulted:
			log.Warn().Str("fault", mode.Err.Error()).Msg("clearing fault")
			d.mode.CompareAndSwap(mode, Idle())
		case ModeContinuous:
			err = d.continuousRound(ctx, mode, changed)
		case ModeBurst:
			err = d.runBurst(mode)
		}
		if err != nil {
			return err
		}
	}
}

// idle sleeps for dur or until the mode changes
func (d *Device) idle(ctx context.Context, dur time.Duration, changed <-chan struct{}) error {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-changed:
			cancel()
		case <-sctx.Done():
		}
	}()
	_ = d.clock.Sleep(sctx, dur)
	return ctx.Err()
}

// usable checks the session preconditions shared by continuous and burst
// sampling
func (d *Device) usable(mode Mode, ch Channels) (protocol.ConfigErr, bool) {
	if mode.Kind != protocol.Analog {
		return protocol.ErrUnimplemented, false
	}
	if len(ch.Pins) == 0 {
		return protocol.UnavailableSampler(0), false
	}
	return protocol.ConfigErr{}, true
}

// continuousRound reads every enabled channel once, queues the round for
// the sender and then waits out the round interval. A round is queued whole
// or not at all, so the stream always starts a round at channel 0.
func (d *Device) continuousRound(ctx context.Context, mode Mode, changed <-chan struct{}) error {
	ch := d.pins.Snapshot()
	if e, ok := d.usable(mode, ch); !ok {
		return d.fault(mode, e)
	}

	round := make([]uint16, len(ch.Pins))
	for i, pin := range ch.Pins {
		v, err := d.adc.ReadRaw(pin)
		if err != nil {
			d.log.Error().Err(err).Uint8("pin", pin).Msg("adc read failed")
			return d.fault(mode, protocol.ErrCommunicationProblem)
		}
		round[i] = uint16(v)
	}

	select {
	case d.queue <- round:
	case <-changed:
		// Mode moved on while the sender was backed up
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.idle(ctx, d.cfg.ContinuousInterval, changed)
}

// runBurst captures a full buffer, transmits it and returns the device to
// Idle. It does not observe cancellation.
func (d *Device) runBurst(mode Mode) error {
	ch := d.pins.Snapshot()
	if e, ok := d.usable(mode, ch); !ok {
		return d.fault(mode, e)
	}
	if n := d.quiesceSender(); n > 0 {
		d.log.Debug().Int("rounds", n).Msg("discarded queued continuous samples")
	}

	elapsed, err := d.capture(ch)
	if err != nil {
		d.log.Error().Err(err).Msg("adc read failed during burst")
		return d.fault(mode, protocol.ErrCommunicationProblem)
	}

	for _, chunk := range d.burst.Chunks(d.cfg.ChunkSize) {
		if err := d.link.SendData(chunk); err != nil {
			return err
		}
	}
	if err := d.link.SendDone(elapsed); err != nil {
		return err
	}

	d.log.Info().
		Int("samples", d.burst.Len()).
		Int("channels", len(ch.Pins)).
		Uint32("rate_hz", ch.RateHz).
		Dur("elapsed", elapsed).
		Msg("burst sent")
	d.mode.CompareAndSwap(mode, Idle())
	return nil
}

// capture fills the burst buffer, one sample per tick, cycling through the
// channels. It spins on the clock between ticks and never yields.
func (d *Device) capture(ch Channels) (time.Duration, error) {
	buf := d.burst
	buf.Reset()
	period := RatePeriod(ch.RateHz)

	state := disableInterrupts()
	defer restoreInterrupts(state)

	start := d.clock.Now()
	next := start
	for i := 0; !buf.Full(); i++ {
		for d.clock.Now() < next {
		}
		v, err := d.adc.ReadRaw(ch.Pins[i%len(ch.Pins)])
		if err != nil {
			return 0, err
		}
		buf.Put(uint16(v))
		next += period
	}
	return d.clock.Now() - start, nil
}

// fault reports e to the host and marks the mode Faulted unless a newer
// command already replaced it
func (d *Device) fault(mode Mode, e protocol.ConfigErr) error {
	d.log.Warn().Stringer("mode", mode).Err(e).Msg("sampling fault")
	if err := d.link.SendReply(protocol.Err(e)); err != nil {
		return err
	}
	d.mode.CompareAndSwap(mode, Faulted(e))
	return nil
}
