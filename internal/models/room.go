package models

import "time"

// Participant is a person in a room.
// Participants are created by the room resource when a join is accepted and
// are never modified afterwards.
type Participant struct {
	// ID is the unique identifier for the participant within the room (UUID format).
	ID string `json:"id"`

	// DisplayName is the name shown to other participants.
	DisplayName string `json:"displayName"`

	// PayeeIdentifier is the payment address used in settlement requests (e.g. a UPI ID).
	PayeeIdentifier string `json:"payeeIdentifier"`

	// JoinedAt is when the room resource accepted the participant.
	JoinedAt time.Time `json:"joinedAt"`
}

// Room groups a creator and the participants who joined around one receipt.
type Room struct {
	// ID is the unique identifier for the room (UUID format).
	ID string `json:"id"`

	// Name is the display name of the room (e.g. "Friday dinner").
	Name string `json:"name"`

	// CreatorID is the participant ID of the room's creator.
	// The creator is always present in Participants.
	CreatorID string `json:"creatorId"`

	// Currency is the ISO code amounts in this room are denominated in.
	Currency string `json:"currency"`

	// Participants are ordered by join time, creator first.
	Participants []Participant `json:"participants"`

	// IsActive is false once the room is closed. An inactive room is read-only.
	IsActive bool `json:"isActive"`

	// CreatedAt is the Unix timestamp when the room was created.
	CreatedAt int64 `json:"createdAt"`
}

// Participant looks up a participant by ID.
func (r Room) Participant(id string) (Participant, bool) {
	for _, p := range r.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// HasParticipant reports whether id belongs to a participant of the room.
func (r Room) HasParticipant(id string) bool {
	_, ok := r.Participant(id)
	return ok
}

// Creator returns the room's creator.
func (r Room) Creator() (Participant, bool) {
	return r.Participant(r.CreatorID)
}

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	out := r
	out.Participants = append([]Participant(nil), r.Participants...)
	return out
}
