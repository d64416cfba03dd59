// Package wire implements the binary chat-stream framing: a fixed 16-byte
// big-endian header followed by a variable body, with brotli-compressed
// bundles that expand into further frames.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame layout constants.
const (
	// HeaderSize is the fixed size of the frame header in bytes.
	HeaderSize = 16
	// MaxFrameSize bounds total_size on reads. The server never comes close;
	// anything larger indicates a desynchronized stream.
	MaxFrameSize = 16 * 1024 * 1024
)

// Protocol values carried in the header.
const (
	// ProtocolPlain marks an uncompressed JSON command body.
	ProtocolPlain uint16 = 0
	// ProtocolAuth marks handshake and heartbeat frames.
	ProtocolAuth uint16 = 1
	// ProtocolBundle marks a brotli-compressed body of concatenated frames.
	ProtocolBundle uint16 = 3
)

// Operation values carried in the header.
const (
	OpHeartbeat      uint32 = 2
	OpHeartbeatReply uint32 = 3
	OpCommand        uint32 = 5
	OpAuth           uint32 = 7
	OpAuthReply      uint32 = 8
)

// Frame is one unit of the wire protocol.
type Frame struct {
	TotalSize uint32
	HeadSize  uint16
	Protocol  uint16
	Op        uint32
	Seq       uint32
	Body      []byte
}

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// ErrKindTruncated indicates the stream ended mid-frame. Fatal: the
	// reader cannot resynchronize.
	ErrKindTruncated FrameErrorKind = iota
	// ErrKindTooLarge indicates a declared total_size beyond MaxFrameSize.
	// Fatal for the same reason.
	ErrKindTooLarge
	// ErrKindDecompress indicates a brotli expansion failure. Transient:
	// the enclosing frame is dropped and the stream continues.
	ErrKindDecompress
)

// FrameError is a classified frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the error leaves the stream unreadable.
func (e *FrameError) IsFatal() bool {
	return e.Kind == ErrKindTruncated || e.Kind == ErrKindTooLarge
}

// IsFatalFrameError reports whether err is a frame error that should
// terminate the session's receive loop.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// DecodeHeader decodes the fixed header fields from the first HeaderSize
// bytes of data. Pure; callers guarantee len(data) >= HeaderSize.
func DecodeHeader(data []byte) Frame {
	return Frame{
		TotalSize: binary.BigEndian.Uint32(data[0:4]),
		HeadSize:  binary.BigEndian.Uint16(data[4:6]),
		Protocol:  binary.BigEndian.Uint16(data[6:8]),
		Op:        binary.BigEndian.Uint32(data[8:12]),
		Seq:       binary.BigEndian.Uint32(data[12:16]),
	}
}

// Encode builds a complete frame for the given protocol, operation, and body.
// total_size is always 16+len(body) and head_size is always 16.
func Encode(protocol uint16, op uint32, body []byte) []byte {
	packet := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(packet[0:4], uint32(HeaderSize+len(body)))
	binary.BigEndian.PutUint16(packet[4:6], HeaderSize)
	binary.BigEndian.PutUint16(packet[6:8], protocol)
	binary.BigEndian.PutUint32(packet[8:12], op)
	binary.BigEndian.PutUint32(packet[12:16], 1)
	copy(packet[HeaderSize:], body)
	return packet
}

// EncodeHeartbeat builds the empty-body keep-alive frame.
func EncodeHeartbeat() []byte {
	return Encode(ProtocolAuth, OpHeartbeat, nil)
}

// EncodeAuth builds the authentication frame around a JSON certificate body.
func EncodeAuth(body []byte) []byte {
	return Encode(ProtocolAuth, OpAuth, body)
}

// ReadFrame reads exactly one frame from r.
//
// Errors:
//   - io.EOF: the stream ended cleanly between frames
//   - *FrameError{Kind: ErrKindTruncated}: the stream ended mid-frame
//   - *FrameError{Kind: ErrKindTooLarge}: declared size exceeds MaxFrameSize
func ReadFrame(r io.Reader) (*Frame, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: ErrKindTruncated,
			Msg:  "failed to read frame header",
			Err:  err,
		}
	}

	frame := DecodeHeader(header[:])
	if frame.TotalSize < HeaderSize || frame.TotalSize > MaxFrameSize {
		return nil, &FrameError{
			Kind: ErrKindTooLarge,
			Msg:  fmt.Sprintf("declared frame size %d out of range", frame.TotalSize),
		}
	}

	body := make([]byte, frame.TotalSize-HeaderSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, &FrameError{
			Kind: ErrKindTruncated,
			Msg:  "failed to read frame body",
			Err:  err,
		}
	}
	frame.Body = body

	return &frame, nil
}
