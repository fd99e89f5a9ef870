// Package settlement turns a participant's share into a payment request.
//
// Nothing in this package moves money. BuildRequest describes what should be
// paid and PaymentLink renders that description as a pay-to URI for an
// external payment app to open.
package settlement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitroom/internal/calculator"
	"github.com/mmynk/splitroom/internal/models"
)

// DefaultCurrency is used when a room does not carry a currency of its own.
const DefaultCurrency = "INR"

var (
	ErrSelfSettlementNotAllowed = errors.New("cannot request payment from yourself")
	ErrMissingCurrency          = errors.New("currency required")
)

// BuildRequest builds the payment request requester sends to participant for share.
// It returns nil when share is zero or negative, since nothing is owed.
// items is the receipt's item list; the memo lists the ones participant is tagged on.
func BuildRequest(requester, participant models.Participant, share decimal.Decimal, items []models.ReceiptItem, currency string) (*models.SettlementRequest, error) {
	if participant.ID == requester.ID {
		return nil, fmt.Errorf("%w: %s", ErrSelfSettlementNotAllowed, participant.ID)
	}
	if !share.IsPositive() {
		return nil, nil
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return nil, ErrMissingCurrency
	}

	var memo []string
	for _, item := range calculator.ItemsFor(items, participant.ID) {
		memo = append(memo, item.Name)
	}

	return &models.SettlementRequest{
		RequesterID:     requester.ID,
		ParticipantID:   participant.ID,
		PayeeIdentifier: participant.PayeeIdentifier,
		PayeeName:       participant.DisplayName,
		Amount:          share.Round(2),
		Currency:        strings.ToUpper(currency),
		Memo:            memo,
	}, nil
}
