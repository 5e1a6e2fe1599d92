// Package frame implements the length-prefixed framing shared by the banking
// client and server: a 4-byte big-endian length followed by exactly that many
// payload bytes. It is used both for the plain pre-handshake exchange and for
// the encrypted channel.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// LengthPrefixSize is the size of the length prefix in bytes.
const LengthPrefixSize = 4

var (
	// ErrTruncated means the peer closed the stream in the middle of a frame.
	ErrTruncated = errors.New("frame truncated")

	// ErrTooLarge means a frame exceeds the codec's MaxSize.
	ErrTooLarge = errors.New("frame too large")
)

// Write writes payload as a single frame.
func Write(w io.Writer, payload []byte) error {
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))

	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Read reads one frame with no size limit. A stream closed before the first
// prefix byte yields io.EOF; a stream closed anywhere later yields ErrTruncated.
func Read(r io.Reader) ([]byte, error) {
	return readLimited(r, 0)
}

func readLimited(r io.Reader, max uint32) ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if max > 0 && length > max {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, length, max)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}

// IsClosed reports whether err means the connection is gone: a clean
// end-of-stream, a truncated frame, or a stream closed on this side.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrTruncated) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// Codec frames a bidirectional stream. Writes are serialized; reads are
// expected to come from a single goroutine.
type Codec struct {
	rw io.ReadWriter

	// MaxSize caps inbound frames. Zero means unlimited, which is the
	// protocol default.
	MaxSize uint32

	writeMu sync.Mutex
}

// NewCodec creates a codec over rw.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{rw: rw}
}

// WriteFrame writes payload as one frame.
func (c *Codec) WriteFrame(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return Write(c.rw, payload)
}

// ReadFrame blocks until a whole frame is available.
func (c *Codec) ReadFrame() ([]byte, error) {
	return readLimited(c.rw, c.MaxSize)
}

// WriteString frames the UTF-8 bytes of s.
func (c *Codec) WriteString(s string) error {
	return c.WriteFrame([]byte(s))
}

// ReadString reads one frame and returns it as a string.
func (c *Codec) ReadString() (string, error) {
	b, err := c.ReadFrame()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
