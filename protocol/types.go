package protocol

import (
	"fmt"
	"strconv"
)

// SampleKind selects which sampler a mode uses
type SampleKind uint8

const (
	Digital SampleKind = iota
	Analog
)

func (k SampleKind) String() string {
	switch k {
	case Digital:
		return "digital"
	case Analog:
		return "analog"
	}
	return "SampleKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseSampleKind parses "analog" or "digital"
func ParseSampleKind(s string) (SampleKind, error) {
	switch s {
	case "analog", "a":
		return Analog, nil
	case "digital", "d":
		return Digital, nil
	}
	return 0, fmt.Errorf("unknown sample kind %q", s)
}

// ActionOp tags a ConfigAction
type ActionOp uint8

const (
	ActionResetPins ActionOp = iota
	ActionDigitalPin
	ActionAnalogPin
	ActionAnalogRate
)

// ConfigAction is a pin or rate change carried by a Config command.
// Pin is meaningful for the pin actions, Rate for ActionAnalogRate.
type ConfigAction struct {
	Op   ActionOp
	Pin  uint8
	Rate uint32
}

// ResetPins releases every enabled pin
func ResetPins() ConfigAction { return ConfigAction{Op: ActionResetPins} }

// DigitalPin enables a pin on the digital sampler
func DigitalPin(pin uint8) ConfigAction { return ConfigAction{Op: ActionDigitalPin, Pin: pin} }

// AnalogPin enables a pin on the analog sampler
func AnalogPin(pin uint8) ConfigAction { return ConfigAction{Op: ActionAnalogPin, Pin: pin} }

// AnalogRate sets the burst sample rate in Hz
func AnalogRate(rateHz uint32) ConfigAction {
	return ConfigAction{Op: ActionAnalogRate, Rate: rateHz}
}

func (a ConfigAction) String() string {
	switch a.Op {
	case ActionResetPins:
		return "ResetPins"
	case ActionDigitalPin:
		return fmt.Sprintf("DigitalPin(%d)", a.Pin)
	case ActionAnalogPin:
		return fmt.Sprintf("AnalogPin(%d)", a.Pin)
	case ActionAnalogRate:
		return fmt.Sprintf("AnalogRate(%d)", a.Rate)
	}
	return fmt.Sprintf("ConfigAction(%d)", a.Op)
}

// ErrKind tags a ConfigErr
type ErrKind uint8

const (
	KindUnavailableSampler ErrKind = iota
	KindPinTaken
	KindInvalidPin
	KindInvalidRate
	KindUnimplemented
	KindCommunicationProblem
)

// ConfigErr is a device-side failure reported to the host in an Err reply.
// ID holds the sampler or pin id, Rate the offending rate for KindInvalidRate.
type ConfigErr struct {
	Kind ErrKind
	ID   uint8
	Rate uint32
}

var (
	ErrUnimplemented        = ConfigErr{Kind: KindUnimplemented}
	ErrCommunicationProblem = ConfigErr{Kind: KindCommunicationProblem}
)

// UnavailableSampler reports a sampler slot that does not exist or is not configured
func UnavailableSampler(id uint8) ConfigErr {
	return ConfigErr{Kind: KindUnavailableSampler, ID: id}
}

// PinTaken reports a pin already owned by an enabled channel
func PinTaken(pin uint8) ConfigErr { return ConfigErr{Kind: KindPinTaken, ID: pin} }

// InvalidPin reports a pin outside the board's capability catalog
func InvalidPin(pin uint8) ConfigErr { return ConfigErr{Kind: KindInvalidPin, ID: pin} }

// InvalidRate reports a rejected sample rate
func InvalidRate(rateHz uint32) ConfigErr { return ConfigErr{Kind: KindInvalidRate, Rate: rateHz} }

func (e ConfigErr) Error() string {
	switch e.Kind {
	case KindUnavailableSampler:
		return fmt.Sprintf("sampler %d unavailable", e.ID)
	case KindPinTaken:
		return fmt.Sprintf("pin %d already taken", e.ID)
	case KindInvalidPin:
		return fmt.Sprintf("pin %d cannot be sampled", e.ID)
	case KindInvalidRate:
		return fmt.Sprintf("invalid sample rate %d Hz", e.Rate)
	case KindUnimplemented:
		return "unimplemented"
	case KindCommunicationProblem:
		return "communication problem"
	}
	return fmt.Sprintf("config error kind %d", e.Kind)
}

// CommandOp tags a Command
type CommandOp uint8

const (
	OpStop CommandOp = iota
	OpContinuous
	OpBurst
	OpConfig
)

// Command is a host to device request
type Command struct {
	Op     CommandOp
	Kind   SampleKind   // OpContinuous, OpBurst
	Action ConfigAction // OpConfig
}

// Stop ends continuous sampling
func Stop() Command { return Command{Op: OpStop} }

// Continuous starts sampling while streaming data back
func Continuous(kind SampleKind) Command { return Command{Op: OpContinuous, Kind: kind} }

// Burst starts one uninterruptible capture. The device stops reading
// commands until the capture has been transmitted.
func Burst(kind SampleKind) Command { return Command{Op: OpBurst, Kind: kind} }

// Config changes the pin or rate configuration
func Config(action ConfigAction) Command { return Command{Op: OpConfig, Action: action} }

func (c Command) String() string {
	switch c.Op {
	case OpStop:
		return "Stop"
	case OpContinuous:
		return "Continuous(" + c.Kind.String() + ")"
	case OpBurst:
		return "Burst(" + c.Kind.String() + ")"
	case OpConfig:
		return "Config(" + c.Action.String() + ")"
	}
	return fmt.Sprintf("Command(%d)", c.Op)
}

// ReplyOp tags a Reply
type ReplyOp uint8

const (
	OpOk ReplyOp = iota
	OpErr
	OpData
	OpDone
)

// Reply is a device to host message.
// Value is the payload length for OpData and the capture duration in
// microseconds for OpDone.
type Reply struct {
	Op    ReplyOp
	Err   ConfigErr
	Value uint32
}

// Ok acknowledges without payload
func Ok() Reply { return Reply{Op: OpOk} }

// Err reports a device failure
func Err(e ConfigErr) Reply { return Reply{Op: OpErr, Err: e} }

// Data announces n raw payload bytes following the frame
func Data(n uint32) Reply { return Reply{Op: OpData, Value: n} }

// Done ends a burst and reports its duration in microseconds
func Done(durationMicros uint32) Reply { return Reply{Op: OpDone, Value: durationMicros} }

func (r Reply) String() string {
	switch r.Op {
	case OpOk:
		return "Ok"
	case OpErr:
		return "Err(" + r.Err.Error() + ")"
	case OpData:
		return fmt.Sprintf("Data(%d)", r.Value)
	case OpDone:
		return fmt.Sprintf("Done(%dus)", r.Value)
	}
	return fmt.Sprintf("Reply(%d)", r.Op)
}
