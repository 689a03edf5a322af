//go:build rp2040

package main

import (
	"machine"
	"time"
)

// pollInterval is how often a blocked Read checks for input
const pollInterval = 100 * time.Microsecond

// serialStream adapts a TinyGo serial port to io.ReadWriter. Read blocks
// until at least one byte is available.
type serialStream struct {
	port machine.Serialer
}

func (s serialStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for s.port.Buffered() == 0 {
		time.Sleep(pollInterval)
	}
	n := 0
	for n < len(p) && s.port.Buffered() > 0 {
		c, err := s.port.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = c
		n++
	}
	return n, nil
}

func (s serialStream) Write(p []byte) (int, error) {
	return s.port.Write(p)
}
