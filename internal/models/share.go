package models

import "github.com/shopspring/decimal"

// ShareTable maps participant IDs to the amount they owe.
// It covers every participant of the room, including those who owe nothing.
// A ShareTable is a derived view: it is rebuilt from scratch whenever tags or
// shared charges change and is never persisted.
type ShareTable map[string]decimal.Decimal

// Get returns the share for participantID, or zero if absent.
func (t ShareTable) Get(participantID string) decimal.Decimal {
	if v, ok := t[participantID]; ok {
		return v
	}
	return decimal.Zero
}

// Total sums every share in the table.
func (t ShareTable) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range t {
		total = total.Add(v)
	}
	return total
}

// FormatAmount renders an amount for display with exactly two fraction digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
