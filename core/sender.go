package core

import (
	"context"

	"gopherscope/protocol"
)

// runSender forwards queued continuous rounds in order. Each Data frame
// carries whatever was waiting, up to SenderBatch samples. Rounds taken
// while the mode is not Continuous are dropped.
func (d *Device) runSender(ctx context.Context) error {
	log := d.log.With().Str("task", "sender").Logger()
	batch := make([]byte, 0, d.cfg.SenderBatch*protocol.SampleSize)

	var round []uint16
	for {
		if round == nil {
			select {
			case round = <-d.queue:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		d.sendMu.Lock()
		var err error
		round, err = d.sendRounds(batch, round)
		d.sendMu.Unlock()
		if err != nil {
			log.Error().Err(err).Msg("transport write failed")
			return err
		}
	}
}

// sendRounds writes round and the rounds already queued behind it. A round
// that does not fit the partly filled frame is returned for the next pass;
// a round longer than a frame is split over consecutive frames.
func (d *Device) sendRounds(batch []byte, round []uint16) ([]uint16, error) {
	if d.mode.Get().State != ModeContinuous {
		return nil, nil
	}

	limit := cap(batch)
	batch = batch[:0]
	for round != nil {
		if len(batch) > 0 && len(batch)+len(round)*protocol.SampleSize > limit {
			return round, d.link.SendData(batch)
		}
		for len(round) > 0 {
			n := min(len(round), (limit-len(batch))/protocol.SampleSize)
			batch = protocol.AppendSamples(batch, round[:n]...)
			round = round[n:]
			if len(batch) == limit && len(round) > 0 {
				if err := d.link.SendData(batch); err != nil {
					return nil, err
				}
				batch = batch[:0]
			}
		}

		round = nil
		if d.mode.Get().State != ModeContinuous {
			break
		}
		select {
		case round = <-d.queue:
		default:
		}
	}
	return nil, d.link.SendData(batch)
}

// quiesceSender discards queued rounds and waits for a frame the sender is
// writing to go out. It returns the number of rounds discarded.
func (d *Device) quiesceSender() int {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	n := 0
	for {
		select {
		case <-d.queue:
			n++
		default:
			return n
		}
	}
}
