package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the length prefix in bytes.
	FrameHeaderSize = 4

	// MaxMessageSize is the largest message body accepted on either side.
	MaxMessageSize = 16 << 20
)

// AppendFrame appends the length-prefixed form of body to dst.
//
// Wire format:
//
//	┌───────────────────────────────┬──────────────────────────┐
//	│ Body length                   │ Body (protobuf fields)   │
//	│ (4 bytes, little-endian)      │ (variable)               │
//	└───────────────────────────────┴──────────────────────────┘
func AppendFrame(dst, body []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(body)))
	return append(dst, body...)
}

// WriteMessage frames b and writes it with a single Write call.
func WriteMessage(w io.Writer, b Body) error {
	body := Marshal(b)
	if len(body) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	buf := AppendFrame(make([]byte, 0, FrameHeaderSize+len(body)), body)
	if _, err := w.Write(buf); err != nil {
		return lost("write message", err)
	}
	return nil
}

// ReadFrame reads exactly one framed message body. It never reads past the
// end of the body, so raw blocks that follow stay in the stream.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, lost("read message header", err)
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, lost("read message body", err)
	}
	return body, nil
}

// ReadMessage reads one framed message and decodes it into b.
func ReadMessage(r io.Reader, b Body) error {
	body, err := ReadFrame(r)
	if err != nil {
		return err
	}
	return Unmarshal(body, b)
}
