package roomclient

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/splitroom/internal/room"
	"github.com/mmynk/splitroom/internal/tags"
)

// operation selects how ambiguous codes are read.
type operation int

const (
	opCall operation = iota
	opUpload
	opToggle
)

// mapError converts a Connect error into the room package's sentinels.
func mapError(op operation, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %v", room.ErrTransport, err)
	}

	msg := connectErr.Message()
	switch connectErr.Code() {
	case connect.CodeNotFound:
		return fmt.Errorf("%w: %s", room.ErrNotFound, msg)
	case connect.CodeFailedPrecondition:
		return fmt.Errorf("%w: %s", room.ErrRoomInactive, msg)
	case connect.CodeInvalidArgument:
		switch op {
		case opUpload:
			return fmt.Errorf("%w: %s", room.ErrUnsupportedMediaType, msg)
		case opToggle:
			return fmt.Errorf("%w: %s", tags.ErrInvalidIndex, msg)
		}
		return fmt.Errorf("invalid request: %s", msg)
	case connect.CodeAborted:
		return fmt.Errorf("%w: %s", room.ErrParseFailed, msg)
	case connect.CodePermissionDenied:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	case connect.CodeCanceled:
		return fmt.Errorf("%w: %s", context.Canceled, msg)
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeUnknown:
		return fmt.Errorf("%w: %s", room.ErrTransport, msg)
	default:
		return fmt.Errorf("room service: %s: %s", connectErr.Code(), msg)
	}
}
