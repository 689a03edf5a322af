package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"gopherscope/protocol"
)

// Link wraps the duplex byte stream to the host. The read and write halves
// are locked independently so a reader blocked waiting for the next command
// never holds up outgoing replies.
type Link struct {
	rx  *Mutex[linkReader]
	tx  *Mutex[linkWriter]
	log zerolog.Logger
}

type linkReader struct {
	r     io.Reader
	frame protocol.Frame
}

type linkWriter struct {
	w   io.Writer
	buf bytes.Buffer
}

// NewLink splits a stream into its two halves. r and w may be the same
// object.
func NewLink(r io.Reader, w io.Writer, log zerolog.Logger) *Link {
	return &Link{
		rx:  NewMutex(linkReader{r: r}),
		tx:  NewMutex(linkWriter{w: w}),
		log: log.With().Str("component", "link").Logger(),
	}
}

// ReadCommand blocks for the next frame. A frame that does not decode is
// reported as protocol.ErrCommunicationProblem; any other error comes from
// the underlying reader and means the link is gone.
func (l *Link) ReadCommand() (protocol.Command, error) {
	rd := l.rx.Lock()
	defer l.rx.Unlock()

	if _, err := io.ReadFull(rd.r, rd.frame[:]); err != nil {
		return protocol.Command{}, fmt.Errorf("read command: %w", err)
	}
	cmd, err := protocol.DecodeCommand(rd.frame)
	if err != nil {
		l.log.Debug().Hex("frame", rd.frame[:]).Msg("undecodable frame")
		return protocol.Command{}, err
	}
	l.log.Debug().Stringer("cmd", cmd).Msg("rx")
	return cmd, nil
}

// SendReply writes one frame
func (l *Link) SendReply(r protocol.Reply) error {
	f := r.Encode()
	return l.write(r, f[:], nil)
}

// SendData writes a Data header followed by payload. Both go out under a
// single hold of the write lock so no other frame can land between them.
func (l *Link) SendData(payload []byte) error {
	r := protocol.Data(uint32(len(payload)))
	f := r.Encode()
	return l.write(r, f[:], payload)
}

// SendDone reports the end of a burst
func (l *Link) SendDone(elapsed time.Duration) error {
	return l.SendReply(protocol.Done(TimerToUS(elapsed)))
}

func (l *Link) write(r protocol.Reply, header, payload []byte) error {
	wr := l.tx.Lock()
	defer l.tx.Unlock()

	wr.buf.Reset()
	wr.buf.Write(header)
	wr.buf.Write(payload)
	if _, err := wr.w.Write(wr.buf.Bytes()); err != nil {
		return fmt.Errorf("send %v: %w", r, err)
	}
	if r.Op != protocol.OpData {
		l.log.Debug().Stringer("reply", r).Msg("tx")
	}
	return nil
}

// IsProtocolError reports whether err came from a malformed frame rather than
// the transport
func IsProtocolError(err error) bool {
	var ce protocol.ConfigErr
	return errors.As(err, &ce)
}
