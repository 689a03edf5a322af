package core

import (
	"context"

	"gopherscope/protocol"
)

// handleCommands reads commands in arrival order and drives the mode state
// machine. It returns when the transport fails.
func (d *Device) handleCommands(ctx context.Context) error {
	log := d.log.With().Str("task", "handler").Logger()

	for {
		cmd, err := d.link.ReadCommand()
		if err != nil {
			if IsProtocolError(err) {
				log.Warn().Msg("malformed command frame")
				// The error reply must not land between a burst's frames
				if _, err := d.mode.WaitUntil(ctx, notBurst); err != nil {
					return err
				}
				if err := d.link.SendReply(protocol.Err(protocol.ErrCommunicationProblem)); err != nil {
					return err
				}
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("transport read failed")
			return err
		}

		// A running burst owns the device until its Done frame is out
		if _, err := d.mode.WaitUntil(ctx, notBurst); err != nil {
			return err
		}

		if err := d.apply(cmd); err != nil {
			log.Error().Err(err).Msg("transport write failed")
			return err
		}
	}
}

// apply runs one command through the transition table. The returned error
// is a transport failure; configuration failures are replied to the host.
func (d *Device) apply(cmd protocol.Command) error {
	current := d.mode.Get()
	next, cfgErr := Next(current, cmd, d.pins.Apply)
	if cfgErr != nil {
		d.log.Warn().Stringer("cmd", cmd).Err(cfgErr).Msg("command failed")
		d.mode.Set(next)
		return d.link.SendReply(protocol.Err(next.Err))
	}
	if next != current {
		d.log.Debug().Stringer("from", current).Stringer("to", next).Msg("mode change")
		d.mode.Set(next)
	}
	return nil
}

func notBurst(m Mode) bool {
	return m.State != ModeBurst
}
