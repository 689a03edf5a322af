// Package scope is the host side of the gopherscope protocol: it configures
// the device, runs captures and turns raw payload into time/voltage series.
package scope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gopherscope/host/serial"
	"gopherscope/protocol"
)

var (
	// ErrTimeout means no reply arrived within the reply timeout. The
	// session is still usable.
	ErrTimeout = errors.New("scope: timed out waiting for reply")

	// ErrClosed is returned once the connection has failed or been closed
	ErrClosed = errors.New("scope: connection closed")
)

// DeviceError is an Err reply from the device
type DeviceError struct {
	Err protocol.ConfigErr
}

func (e *DeviceError) Error() string {
	return "device error: " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// DefaultReplyTimeout bounds each wait in Next
const DefaultReplyTimeout = 2 * time.Second

// message is one reply together with its payload
type message struct {
	reply   protocol.Reply
	payload []byte
	err     error
}

// Client drives one device connection. Replies are read by a background
// goroutine and handed to whichever call is waiting for them.
type Client struct {
	conn       io.ReadWriteCloser
	log        zerolog.Logger
	timeout    time.Duration
	maxPayload uint32

	writeMu  sync.Mutex
	messages chan message
	stopChan chan struct{}
	doneChan chan struct{}

	closeOnce sync.Once
}

// Option customizes a Client
type Option func(*Client)

// WithLogger sets the client's logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithReplyTimeout sets how long Next waits before returning ErrTimeout
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxPayload sets the largest Data payload accepted in one frame.
// Longer announcements end the session with a protocol error.
func WithMaxPayload(n uint32) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// NewClient takes ownership of conn and starts reading replies
func NewClient(conn io.ReadWriteCloser, opts ...Option) *Client {
	c := &Client{
		conn:       conn,
		log:        zerolog.Nop(),
		timeout:    DefaultReplyTimeout,
		maxPayload: protocol.MaxDataChunk,
		messages:   make(chan message, 64),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Close stops the reader and closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopChan)
		err = c.conn.Close()
		<-c.doneChan
	})
	return err
}

// Send writes one command frame
func (c *Client) Send(cmd protocol.Command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	f := cmd.Encode()
	if _, err := c.conn.Write(f[:]); err != nil {
		return fmt.Errorf("send %v: %w", cmd, err)
	}
	c.log.Debug().Stringer("cmd", cmd).Msg("tx")
	return nil
}

// Configure releases every pin, enables pins in order and sets the burst
// rate when rateHz is non-zero. The device does not acknowledge
// configuration; a rejected action shows up as a DeviceError on the next
// capture.
func (c *Client) Configure(pins []uint8, rateHz uint32) error {
	cmds := []protocol.Command{protocol.Config(protocol.ResetPins())}
	for _, p := range pins {
		cmds = append(cmds, protocol.Config(protocol.AnalogPin(p)))
	}
	if rateHz != 0 {
		cmds = append(cmds, protocol.Config(protocol.AnalogRate(rateHz)))
	}
	for _, cmd := range cmds {
		if err := c.Send(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Next waits for the next reply. Data replies come with their payload.
// It returns ErrTimeout when nothing arrives within the reply timeout.
func (c *Client) Next(ctx context.Context) (protocol.Reply, []byte, error) {
	t := time.NewTimer(c.timeout)
	defer t.Stop()

	select {
	case m, ok := <-c.messages:
		if !ok {
			return protocol.Reply{}, nil, ErrClosed
		}
		return m.reply, m.payload, m.err
	case <-t.C:
		return protocol.Reply{}, nil, ErrTimeout
	case <-ctx.Done():
		return protocol.Reply{}, nil, ctx.Err()
	}
}

// Burst triggers one capture and collects it. Timeouts are logged and
// waited out until ctx ends.
func (c *Client) Burst(ctx context.Context, kind protocol.SampleKind) (*Capture, error) {
	if err := c.Send(protocol.Burst(kind)); err != nil {
		return nil, err
	}

	var raw []byte
	for {
		r, payload, err := c.Next(ctx)
		if errors.Is(err, ErrTimeout) {
			c.log.Debug().Int("bytes", len(raw)).Msg("waiting for burst data")
			continue
		}
		if err != nil {
			return nil, err
		}

		switch r.Op {
		case protocol.OpOk:
		case protocol.OpErr:
			return nil, &DeviceError{Err: r.Err}
		case protocol.OpData:
			raw = append(raw, payload...)
		case protocol.OpDone:
			c.log.Debug().Int("bytes", len(raw)).Uint32("duration_us", r.Value).Msg("burst complete")
			return &Capture{
				Raw:      raw,
				Duration: time.Duration(r.Value) * time.Microsecond,
			}, nil
		}
	}
}

// Stream starts continuous sampling and calls fn with every batch of raw
// samples until ctx ends or fn fails. Stop is always sent on the way out
// and late batches are drained.
func (c *Client) Stream(ctx context.Context, kind protocol.SampleKind, fn func([]uint16) error) error {
	if err := c.Send(protocol.Continuous(kind)); err != nil {
		return err
	}
	err := c.stream(ctx, fn)

	if stopErr := c.Send(protocol.Stop()); stopErr != nil && err == nil {
		err = stopErr
	}
	c.Drain(context.Background(), 200*time.Millisecond)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (c *Client) stream(ctx context.Context, fn func([]uint16) error) error {
	for {
		r, payload, err := c.Next(ctx)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		switch r.Op {
		case protocol.OpErr:
			return &DeviceError{Err: r.Err}
		case protocol.OpData:
			if err := fn(protocol.DecodeSamples(payload)); err != nil {
				return err
			}
		}
	}
}

// Drain discards replies until none arrive for quiet
func (c *Client) Drain(ctx context.Context, quiet time.Duration) int {
	n := 0
	t := time.NewTimer(quiet)
	defer t.Stop()
	for {
		select {
		case _, ok := <-c.messages:
			if !ok {
				return n
			}
			n++
			t.Reset(quiet)
		case <-t.C:
			return n
		case <-ctx.Done():
			return n
		}
	}
}

// readLoop parses the reply stream. A read timeout from the port only
// delays the current frame; partial frames are kept.
func (c *Client) readLoop() {
	defer close(c.doneChan)
	defer close(c.messages)

	var f protocol.Frame
	for {
		if err := c.readFull(f[:]); err != nil {
			c.deliver(message{err: c.closedErr(err)})
			return
		}
		r, err := protocol.DecodeReply(f)
		if err != nil {
			c.log.Warn().Hex("frame", f[:]).Msg("undecodable reply")
			c.deliver(message{err: fmt.Errorf("reply %x: %w", f[:], err)})
			return
		}

		m := message{reply: r}
		if r.Op == protocol.OpData {
			if r.Value > c.maxPayload {
				c.log.Warn().Uint32("length", r.Value).Msg("oversized Data frame")
				c.deliver(message{err: fmt.Errorf("reply %v exceeds %d bytes: %w", r, c.maxPayload, protocol.ErrCommunicationProblem)})
				return
			}
			m.payload = make([]byte, r.Value)
			if err := c.readFull(m.payload); err != nil {
				c.deliver(message{err: c.closedErr(err)})
				return
			}
		} else {
			c.log.Debug().Stringer("reply", r).Msg("rx")
		}
		if !c.deliver(m) {
			return
		}
	}
}

func (c *Client) readFull(buf []byte) error {
	n := 0
	for n < len(buf) {
		m, err := c.conn.Read(buf[n:])
		n += m
		if err == nil {
			continue
		}
		if errors.Is(err, serial.ErrTimeout) {
			select {
			case <-c.stopChan:
				return ErrClosed
			default:
				continue
			}
		}
		if n == len(buf) && err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) deliver(m message) bool {
	select {
	case c.messages <- m:
		return true
	case <-c.stopChan:
		return false
	}
}

func (c *Client) closedErr(err error) error {
	select {
	case <-c.stopChan:
		return ErrClosed
	default:
	}
	if errors.Is(err, io.EOF) || errors.Is(err, serial.ErrConnectionClosed) {
		return ErrClosed
	}
	return fmt.Errorf("read reply: %w", err)
}
