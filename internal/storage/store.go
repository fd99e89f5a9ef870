// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitroom/internal/models"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrRoomInactive         = errors.New("room inactive")
	ErrInvalidItem          = errors.New("invalid item index")
	ErrParticipantNotInRoom = errors.New("participant not in room")
)

// Store defines the interface for room storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateRoom persists a new room together with its participants.
	// room.ID, room.CreatedAt and missing participant IDs are populated by the store.
	CreateRoom(ctx context.Context, room *models.Room) error

	// GetRoom retrieves a room with its participants in join order.
	// Returns ErrNotFound if the room does not exist.
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)

	// AddParticipant appends a participant to an active room.
	// p.ID and p.JoinedAt are populated by the store.
	// Returns ErrRoomInactive if the room is closed.
	AddParticipant(ctx context.Context, roomID string, p *models.Participant) error

	// SetRoomActive opens or closes a room.
	SetRoomActive(ctx context.Context, roomID string, active bool) error

	// SaveReceipt stores the receipt for a room, replacing any previous one
	// and its tags.
	SaveReceipt(ctx context.Context, roomID string, receipt *models.Receipt) error

	// GetReceipt retrieves the room's receipt with current tags.
	// Returns nil, nil if no receipt has been uploaded.
	GetReceipt(ctx context.Context, roomID string) (*models.Receipt, error)

	// SetItemTag adds (tagged=true) or removes a participant's tag on one item
	// in a single transaction and returns the room's items afterwards.
	// Adding a present tag or removing an absent one is a no-op.
	SetItemTag(ctx context.Context, roomID string, itemIndex int, participantID string, tagged bool) ([]models.ReceiptItem, error)

	// Close releases any resources held by the store.
	Close() error
}
