package protocol

import "encoding/binary"

// SampleBuffer is a fixed-capacity buffer of raw samples kept in wire
// order (little-endian uint16). It is allocated once and reused for every
// capture.
type SampleBuffer struct {
	buf []byte
	pos int
}

// NewSampleBuffer creates a buffer holding up to capacity samples
func NewSampleBuffer(capacity int) *SampleBuffer {
	return &SampleBuffer{buf: make([]byte, capacity*SampleSize)}
}

// Put appends one sample. It returns false when the buffer is full.
func (s *SampleBuffer) Put(v uint16) bool {
	if s.pos+SampleSize > len(s.buf) {
		return false
	}
	binary.LittleEndian.PutUint16(s.buf[s.pos:], v)
	s.pos += SampleSize
	return true
}

// Len returns the number of samples stored
func (s *SampleBuffer) Len() int {
	return s.pos / SampleSize
}

// Cap returns the capacity in samples
func (s *SampleBuffer) Cap() int {
	return len(s.buf) / SampleSize
}

// Full reports whether another Put would fail
func (s *SampleBuffer) Full() bool {
	return s.pos+SampleSize > len(s.buf)
}

// Bytes returns the accumulated payload
func (s *SampleBuffer) Bytes() []byte {
	return s.buf[:s.pos]
}

// Reset clears the buffer
func (s *SampleBuffer) Reset() {
	s.pos = 0
}

// Chunks splits the payload into consecutive slices of at most max bytes.
// max is rounded down to a whole number of samples so no sample is split
// across Data frames.
func (s *SampleBuffer) Chunks(max int) [][]byte {
	return ChunkPayload(s.Bytes(), max)
}

// ChunkPayload splits b into slices of at most max bytes, rounded down to a
// whole number of samples
func ChunkPayload(b []byte, max int) [][]byte {
	max -= max % SampleSize
	if max <= 0 {
		max = SampleSize
	}
	var out [][]byte
	for len(b) > 0 {
		n := max
		if n > len(b) {
			n = len(b)
		}
		out = append(out, b[:n])
		b = b[n:]
	}
	return out
}

// AppendSamples encodes samples in wire order onto dst
func AppendSamples(dst []byte, samples ...uint16) []byte {
	for _, v := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, v)
	}
	return dst
}

// DecodeSamples reinterprets payload bytes as raw samples. A trailing odd
// byte is ignored.
func DecodeSamples(b []byte) []uint16 {
	out := make([]uint16, len(b)/SampleSize)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*SampleSize:])
	}
	return out
}
