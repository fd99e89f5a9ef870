// Package roomapi is the wire contract of the room service: request and
// response messages plus Connect handler and client constructors.
//
// Messages are plain Go structs carried with a JSON codec, so the package
// needs no generated code.
package roomapi

import (
	"github.com/mmynk/splitroom/internal/models"
)

type CreateRoomRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	CreatorName  string `json:"creatorName" validate:"required,max=100"`
	CreatorPayee string `json:"creatorPayee" validate:"required,max=255"`
	Currency     string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

type CreateRoomResponse struct {
	Room          models.Room `json:"room"`
	ParticipantID string      `json:"participantId"`
}

type GetRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

type GetRoomResponse struct {
	Room    models.Room     `json:"room"`
	Receipt *models.Receipt `json:"receipt,omitempty"`
}

type JoinRoomRequest struct {
	RoomID          string `json:"roomId" validate:"required"`
	DisplayName     string `json:"displayName" validate:"required,max=100"`
	PayeeIdentifier string `json:"payeeIdentifier" validate:"required,max=255"`
}

type JoinRoomResponse struct {
	Room          models.Room `json:"room"`
	ParticipantID string      `json:"participantId"`
}

// UploadReceiptRequest carries the raw image; JSON encodes it as base64.
type UploadReceiptRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	Image  []byte `json:"image" validate:"required"`
}

type UploadReceiptResponse struct {
	Receipt models.Receipt `json:"receipt"`
}

type ToggleItemTagRequest struct {
	RoomID        string `json:"roomId" validate:"required"`
	ItemIndex     int    `json:"itemIndex" validate:"gte=0"`
	ParticipantID string `json:"participantId" validate:"required"`
	Action        string `json:"action" validate:"required,oneof=add remove"`
}

// ToggleItemTagResponse returns the full, authoritative item array.
type ToggleItemTagResponse struct {
	Success bool                 `json:"success"`
	Items   []models.ReceiptItem `json:"items"`
}

type CloseRoomRequest struct {
	RoomID      string `json:"roomId" validate:"required"`
	RequesterID string `json:"requesterId" validate:"required"`
}

type CloseRoomResponse struct {
	Room models.Room `json:"room"`
}

type GetSharesRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

// ParticipantShare is one row of a share table, formatted for display.
type ParticipantShare struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Amount        string `json:"amount"`
}

// Debt is an amount one participant owes the room's creator.
type Debt struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type GetSharesResponse struct {
	Currency    string             `json:"currency"`
	Shares      []ParticipantShare `json:"shares"`
	Unassigned  string             `json:"unassigned"`
	NetAmount   string             `json:"netAmount"`
	Outstanding []Debt             `json:"outstanding"`
}
