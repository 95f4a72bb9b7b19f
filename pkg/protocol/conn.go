package protocol

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// Conn is one client connection to a render server. It is not safe for
// concurrent use; a session owns it exclusively.
type Conn struct {
	nc net.Conn
	r  *bufio.Reader

	sent     int64
	received int64
}

// NewConn wraps an established connection.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, r: bufio.NewReaderSize(nc, 64<<10)}
}

// WriteMessage writes one framed message.
func (c *Conn) WriteMessage(b Body) error {
	body := Marshal(b)
	if len(body) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	n, err := c.nc.Write(AppendFrame(make([]byte, 0, FrameHeaderSize+len(body)), body))
	c.sent += int64(n)
	if err != nil {
		return lost("write message", err)
	}
	return nil
}

// WriteRaw writes one shaped raw block.
func (c *Conn) WriteRaw(b Block) error {
	if err := WriteRaw(c.nc, b); err != nil {
		return err
	}
	c.sent += int64(b.ByteLen())
	return nil
}

// ReadMessage blocks until one framed message is read into b.
func (c *Conn) ReadMessage(b Body) error {
	body, err := ReadFrame(c.r)
	if err != nil {
		return err
	}
	c.received += int64(FrameHeaderSize + len(body))
	return Unmarshal(body, b)
}

// ReadRaw blocks until exactly n raw bytes are read.
func (c *Conn) ReadRaw(n int) ([]byte, error) {
	buf, err := ReadRaw(c.r, n)
	c.received += int64(len(buf))
	return buf, err
}

// CopyRaw streams exactly n raw bytes into w.
func (c *Conn) CopyRaw(w io.Writer, n int64) error {
	if err := CopyRaw(w, c.r, n); err != nil {
		return err
	}
	c.received += n
	return nil
}

// Ready reports whether at least one byte can be read without blocking for
// longer than wait. A closed or failed stream returns ErrConnectionLost.
func (c *Conn) Ready(wait time.Duration) (bool, error) {
	if c.r.Buffered() > 0 {
		return true, nil
	}
	if wait <= 0 {
		wait = time.Millisecond
	}
	if err := c.nc.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return false, lost("poll", err)
	}
	_, err := c.r.Peek(1)
	if derr := c.nc.SetReadDeadline(time.Time{}); derr != nil && err == nil {
		err = derr
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return false, nil
	default:
		return false, lost("poll", err)
	}
}

// SetDeadline sets the read and write deadline of the underlying
// connection. The zero time clears it.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.nc.SetDeadline(t)
}

// Sent returns the number of bytes written so far.
func (c *Conn) Sent() int64 { return c.sent }

// Received returns the number of bytes read so far.
func (c *Conn) Received() int64 { return c.received }

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.nc.Close()
}
