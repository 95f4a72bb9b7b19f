package errors

import (
	stderrors "errors"
	"io/fs"

	"github.com/RaphaelK12/blospray/pkg/export"
	"github.com/RaphaelK12/blospray/pkg/protocol"
	"github.com/RaphaelK12/blospray/pkg/scene"
	"github.com/RaphaelK12/blospray/pkg/session"
)

// Classify converts an error from the blospray packages into a coded
// *BlosprayError. Errors it does not recognise become an uncoded CLI
// error carrying the original message.
func Classify(err error) *BlosprayError {
	if err == nil {
		return nil
	}
	var be *BlosprayError
	if stderrors.As(err, &be) {
		return be
	}

	var he *session.HandshakeError
	var se *export.SubstitutionError
	switch {
	case stderrors.Is(err, session.ErrConnectFailure):
		return New("B001").Wrap(err)
	case stderrors.As(err, &he):
		e := New("B002").Wrap(err)
		if he.Message != "" {
			e.WithDetail("The server said: " + he.Message)
		}
		return e
	case stderrors.Is(err, protocol.ErrMessageTooLarge):
		return New("B005").Wrap(err)
	case stderrors.Is(err, protocol.ErrConnectionLost):
		return New("B003").Wrap(err)
	case stderrors.Is(err, session.ErrInvalidState):
		return New("B004").Wrap(err)
	case stderrors.Is(err, scene.ErrInvalidScene):
		return New("B021").Wrap(err)
	case stderrors.As(err, &se):
		return New("B022").Wrap(err)
	case stderrors.Is(err, fs.ErrNotExist):
		return New("B020").Wrap(err)
	}
	return &BlosprayError{Category: CategoryCLI, Message: err.Error()}
}
