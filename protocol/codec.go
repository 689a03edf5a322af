package protocol

import "encoding/binary"

// Encode packs the command into one frame. Fields that do not belong to the
// command's variant are not transmitted.
func (c Command) Encode() Frame {
	var f Frame
	f[FramePositionTag] = byte(c.Op)
	switch c.Op {
	case OpContinuous, OpBurst:
		f[FramePositionSub] = byte(c.Kind)
	case OpConfig:
		f[FramePositionSub] = byte(c.Action.Op)
		switch c.Action.Op {
		case ActionDigitalPin, ActionAnalogPin:
			f[FramePositionArg] = c.Action.Pin
		case ActionAnalogRate:
			binary.LittleEndian.PutUint32(f[FramePositionArg:], c.Action.Rate)
		}
	}
	return f
}

// Encode packs the reply into one frame
func (r Reply) Encode() Frame {
	var f Frame
	f[FramePositionTag] = byte(r.Op)
	switch r.Op {
	case OpErr:
		f[FramePositionSub] = byte(r.Err.Kind)
		switch r.Err.Kind {
		case KindUnavailableSampler, KindPinTaken, KindInvalidPin:
			f[FramePositionArg] = r.Err.ID
		case KindInvalidRate:
			binary.LittleEndian.PutUint32(f[FramePositionArg:], r.Err.Rate)
		}
	case OpData, OpDone:
		binary.LittleEndian.PutUint32(f[FramePositionWord:], r.Value)
	}
	return f
}

// DecodeCommand parses a frame received from the host. Unknown tags,
// out-of-range enum bytes and non-zero padding are rejected with
// ErrCommunicationProblem.
func DecodeCommand(f Frame) (Command, error) {
	switch CommandOp(f[FramePositionTag]) {
	case OpStop:
		if !zero(f[FramePositionSub:]) {
			return Command{}, ErrCommunicationProblem
		}
		return Stop(), nil

	case OpContinuous, OpBurst:
		kind, ok := decodeKind(f[FramePositionSub])
		if !ok || !zero(f[FramePositionArg:]) {
			return Command{}, ErrCommunicationProblem
		}
		return Command{Op: CommandOp(f[FramePositionTag]), Kind: kind}, nil

	case OpConfig:
		action, err := decodeAction(f)
		if err != nil {
			return Command{}, err
		}
		return Config(action), nil
	}
	return Command{}, ErrCommunicationProblem
}

func decodeAction(f Frame) (ConfigAction, error) {
	switch ActionOp(f[FramePositionSub]) {
	case ActionResetPins:
		if !zero(f[FramePositionArg:]) {
			return ConfigAction{}, ErrCommunicationProblem
		}
		return ResetPins(), nil
	case ActionDigitalPin:
		if !zero(f[FramePositionArg+1:]) {
			return ConfigAction{}, ErrCommunicationProblem
		}
		return DigitalPin(f[FramePositionArg]), nil
	case ActionAnalogPin:
		if !zero(f[FramePositionArg+1:]) {
			return ConfigAction{}, ErrCommunicationProblem
		}
		return AnalogPin(f[FramePositionArg]), nil
	case ActionAnalogRate:
		return AnalogRate(binary.LittleEndian.Uint32(f[FramePositionArg:])), nil
	}
	return ConfigAction{}, ErrCommunicationProblem
}

// DecodeReply parses a frame received from the device
func DecodeReply(f Frame) (Reply, error) {
	switch ReplyOp(f[FramePositionTag]) {
	case OpOk:
		if !zero(f[FramePositionSub:]) {
			return Reply{}, ErrCommunicationProblem
		}
		return Ok(), nil

	case OpErr:
		e, err := decodeConfigErr(f)
		if err != nil {
			return Reply{}, err
		}
		return Err(e), nil

	case OpData, OpDone:
		if f[FrameSize-1] != 0 {
			return Reply{}, ErrCommunicationProblem
		}
		return Reply{
			Op:    ReplyOp(f[FramePositionTag]),
			Value: binary.LittleEndian.Uint32(f[FramePositionWord:]),
		}, nil
	}
	return Reply{}, ErrCommunicationProblem
}

func decodeConfigErr(f Frame) (ConfigErr, error) {
	kind := ErrKind(f[FramePositionSub])
	switch kind {
	case KindUnavailableSampler, KindPinTaken, KindInvalidPin:
		if !zero(f[FramePositionArg+1:]) {
			return ConfigErr{}, ErrCommunicationProblem
		}
		return ConfigErr{Kind: kind, ID: f[FramePositionArg]}, nil
	case KindInvalidRate:
		return InvalidRate(binary.LittleEndian.Uint32(f[FramePositionArg:])), nil
	case KindUnimplemented, KindCommunicationProblem:
		if !zero(f[FramePositionArg:]) {
			return ConfigErr{}, ErrCommunicationProblem
		}
		return ConfigErr{Kind: kind}, nil
	}
	return ConfigErr{}, ErrCommunicationProblem
}

func decodeKind(b byte) (SampleKind, bool) {
	switch SampleKind(b) {
	case Digital, Analog:
		return SampleKind(b), true
	}
	return 0, false
}

func zero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
