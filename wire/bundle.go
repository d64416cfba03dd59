package wire

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// ExpandBundle brotli-decompresses a ProtocolBundle body and splits the
// result into its concatenated sub-frames.
//
// Expansion is defensive: it stops as soon as the remaining bytes cannot
// hold a full header, or the declared total_size of the next sub-frame
// overruns the buffer. A truncated tail yields the frames that fully fit,
// not an error.
func ExpandBundle(body []byte) ([]*Frame, error) {
	expanded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	if err != nil {
		return nil, &FrameError{
			Kind: ErrKindDecompress,
			Msg:  "failed to decompress bundle",
			Err:  err,
		}
	}

	var frames []*Frame
	offset := 0
	for offset+HeaderSize <= len(expanded) {
		frame := DecodeHeader(expanded[offset:])
		if frame.TotalSize < HeaderSize {
			break
		}
		end := offset + int(frame.TotalSize)
		if end > len(expanded) {
			break
		}
		frame.Body = expanded[offset+HeaderSize : end]
		frames = append(frames, &frame)
		offset = end
	}

	return frames, nil
}
