package models

import "github.com/shopspring/decimal"

// SettlementRequest describes a payment solicitation for one participant's share.
// Building one has no side effects; turning it into an actual transfer is left to
// an external payment app.
type SettlementRequest struct {
	// RequesterID is the participant asking for payment.
	RequesterID string `json:"requesterId"`

	// ParticipantID is the participant the request is addressed to.
	ParticipantID string `json:"participantId"`

	// PayeeIdentifier and PayeeName are taken from the addressed participant.
	PayeeIdentifier string `json:"payeeIdentifier"`
	PayeeName       string `json:"payeeName"`

	// Amount is the share rounded to two decimal places.
	Amount decimal.Decimal `json:"amount"`

	// Currency is the room's currency code.
	Currency string `json:"currency"`

	// Memo lists the names of the items the participant is tagged on, in receipt order.
	Memo []string `json:"memo"`
}
