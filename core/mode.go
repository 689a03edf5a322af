package core

import (
	"context"

	"gopherscope/protocol"
)

// ModeState tags a Mode
type ModeState uint8

const (
	ModeIdle ModeState = iota
	ModeContinuous
	ModeBurst
	ModeFaulted
)

// Mode is the device's current sampling mode. Kind is set for Continuous
// and Burst, Err for Faulted.
type Mode struct {
	State ModeState
	Kind  protocol.SampleKind
	Err   protocol.ConfigErr
}

// Idle is the boot mode
func Idle() Mode { return Mode{State: ModeIdle} }

// ContinuousMode samples round-robin while streaming
func ContinuousMode(kind protocol.SampleKind) Mode {
	return Mode{State: ModeContinuous, Kind: kind}
}

// BurstMode captures one uninterruptible buffer
func BurstMode(kind protocol.SampleKind) Mode {
	return Mode{State: ModeBurst, Kind: kind}
}

// Faulted marks a reported error that the sampler clears back to Idle
func Faulted(err protocol.ConfigErr) Mode {
	return Mode{State: ModeFaulted, Err: err}
}

func (m Mode) String() string {
	switch m.State {
	case ModeIdle:
		return "Idle"
	case ModeContinuous:
		return "Continuous(" + m.Kind.String() + ")"
	case ModeBurst:
		return "Burst(" + m.Kind.String() + ")"
	case ModeFaulted:
		return "Faulted(" + m.Err.Error() + ")"
	}
	return "Mode(?)"
}

// Next applies the transition table for cmd. applyConfig is only called for
// Config commands; its error, if any, is returned alongside the Faulted
// mode so the caller can report it.
func Next(current Mode, cmd protocol.Command, applyConfig func(protocol.ConfigAction) error) (Mode, error) {
	switch cmd.Op {
	case protocol.OpStop:
		return Idle(), nil
	case protocol.OpContinuous:
		return ContinuousMode(cmd.Kind), nil
	case protocol.OpBurst:
		return BurstMode(cmd.Kind), nil
	case protocol.OpConfig:
		if err := applyConfig(cmd.Action); err != nil {
			return Faulted(asConfigErr(err)), err
		}
		return current, nil
	}
	return Faulted(protocol.ErrCommunicationProblem), protocol.ErrCommunicationProblem
}

func asConfigErr(err error) protocol.ConfigErr {
	if ce, ok := err.(protocol.ConfigErr); ok {
		return ce
	}
	return protocol.ErrCommunicationProblem
}

// ModeCell holds the shared Mode. Every change is broadcast so a sleeping
// sampler or a handler waiting for a burst to finish wakes immediately.
type ModeCell struct {
	state *Mutex[modeState]
}

type modeState struct {
	mode    Mode
	changed chan struct{}
}

// NewModeCell starts in Idle
func NewModeCell() *ModeCell {
	return &ModeCell{state: NewMutex(modeState{mode: Idle(), changed: make(chan struct{})})}
}

// Get returns the current mode
func (c *ModeCell) Get() Mode {
	return c.state.Load().mode
}

// Watch returns the current mode and a channel closed on the next change
func (c *ModeCell) Watch() (Mode, <-chan struct{}) {
	s := c.state.Load()
	return s.mode, s.changed
}

// Set replaces the mode unconditionally
func (c *ModeCell) Set(m Mode) {
	c.state.With(func(s *modeState) {
		s.set(m)
	})
}

// CompareAndSwap replaces the mode only if it still equals old
func (c *ModeCell) CompareAndSwap(old, m Mode) (swapped bool) {
	c.state.With(func(s *modeState) {
		if s.mode == old {
			s.set(m)
			swapped = true
		}
	})
	return swapped
}

// WaitUntil blocks until ok accepts the current mode or ctx ends
func (c *ModeCell) WaitUntil(ctx context.Context, ok func(Mode) bool) (Mode, error) {
	for {
		m, changed := c.Watch()
		if ok(m) {
			return m, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return m, ctx.Err()
		}
	}
}

func (s *modeState) set(m Mode) {
	if s.mode == m {
		return
	}
	s.mode = m
	close(s.changed)
	s.changed = make(chan struct{})
}
