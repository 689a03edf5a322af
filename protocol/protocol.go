// Package protocol implements the gopherscope wire format shared by the
// firmware and the host capture client.
//
// Control traffic in both directions is a stream of fixed-size frames. Bulk
// sample payload follows a Data frame as untagged raw bytes whose length is
// announced by that frame.
package protocol

// Version represents the gopherscope protocol version
const Version = "0.1.0"

// Frame constants
const (
	FrameSize = 6 // Every Command and Reply encodes to exactly this many bytes

	// Byte positions inside a frame
	FramePositionTag  = 0
	FramePositionSub  = 1 // Sample kind, config action or error kind
	FramePositionArg  = 2 // Pin / sampler id or start of a 4-byte rate
	FramePositionWord = 1 // Start of the 4-byte Data length / Done duration

	SampleSize   = 2   // Raw samples are little-endian uint16
	MaxDataChunk = 254 // Largest payload announced by one Data frame (127 samples)
)

// Frame is one encoded Command or Reply
type Frame [FrameSize]byte
