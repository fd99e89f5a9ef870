// Package room defines the contract of the remote room resource: the service
// that owns rooms, participants and receipt tags.
package room

import (
	"context"
	"errors"

	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/tags"
)

// Errors surfaced at the room resource boundary. They are expected in normal
// operation and are never retried automatically.
var (
	ErrTransport            = errors.New("room resource unreachable")
	ErrNotFound             = errors.New("room not found")
	ErrRoomInactive         = errors.New("room is no longer active")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrParseFailed          = errors.New("receipt could not be parsed")
)

// State is a room together with its receipt, if one has been uploaded.
type State struct {
	Room    models.Room
	Receipt *models.Receipt
}

// JoinRequest carries the details a new participant supplies.
type JoinRequest struct {
	DisplayName     string
	PayeeIdentifier string
}

// JoinResult is the room after a join, plus the ID assigned to the new participant.
type JoinResult struct {
	Room          models.Room
	ParticipantID string
}

// ToggleResult is the room resource's answer to a tag toggle. Items is the
// authoritative item array and replaces any local copy.
type ToggleResult struct {
	Success bool
	Items   []models.ReceiptItem
}

// Resource is the remote room store.
type Resource interface {
	// GetRoom fetches a room and its receipt. Fails with ErrNotFound for unknown rooms.
	GetRoom(ctx context.Context, roomID string) (*State, error)

	// JoinRoom adds a participant. Fails with ErrRoomInactive if the room is closed.
	JoinRoom(ctx context.Context, roomID string, req JoinRequest) (*JoinResult, error)

	// UploadReceipt sends an image for parsing and stores the resulting receipt.
	// Fails with ErrUnsupportedMediaType or ErrParseFailed.
	UploadReceipt(ctx context.Context, roomID string, image []byte) (*models.Receipt, error)

	// ToggleItemTag adds or removes participantID on the item at itemIndex.
	ToggleItemTag(ctx context.Context, roomID string, itemIndex int, participantID string, action tags.Action) (*ToggleResult, error)
}
