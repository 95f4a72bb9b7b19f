package protocol

import (
	"errors"
	"fmt"
)

// ErrConnectionLost is returned when the byte stream fails or closes in the
// middle of a session. It is fatal for the session; this package never
// retries.
var ErrConnectionLost = errors.New("protocol: connection lost")

// ErrMisshapenBlock is returned when a raw block's element count is not a
// whole number of components.
var ErrMisshapenBlock = errors.New("protocol: raw block is not a whole number of elements")

// lost wraps an I/O error so that errors.Is matches both ErrConnectionLost
// and the underlying cause.
func lost(op string, err error) error {
	if err == nil || errors.Is(err, ErrConnectionLost) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrConnectionLost, op, err)
}
