package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitroom/internal/models"
)

// Summary is a display-oriented breakdown of a receipt against its share table.
type Summary struct {
	ItemsTotal  decimal.Decimal // Sum of every line total
	Assigned    decimal.Decimal // Line totals of items with at least one tag
	Unassigned  decimal.Decimal // Line totals of untagged items (nobody's share yet)
	Shared      decimal.Decimal // Service charge plus taxes
	SharesTotal decimal.Decimal // Sum of the share table
	NetAmount   decimal.Decimal // Parser-reported grand total, shown as-is
}

// DebtEdge is an amount one participant owes another.
type DebtEdge struct {
	From   string // Participant who owes
	To     string // Participant who is owed
	Amount decimal.Decimal
}

// Summarize builds a Summary for receipt and shares.
// It never checks that the pieces add up to NetAmount; receipts routinely don't.
func Summarize(receipt *models.Receipt, shares models.ShareTable) Summary {
	s := Summary{
		ItemsTotal:  decimal.Zero,
		Assigned:    decimal.Zero,
		Unassigned:  decimal.Zero,
		Shared:      decimal.Zero,
		SharesTotal: shares.Total(),
		NetAmount:   decimal.Zero,
	}
	if receipt == nil {
		return s
	}

	for _, item := range receipt.Items {
		s.ItemsTotal = s.ItemsTotal.Add(item.LineTotal)
		if len(item.Tags) == 0 {
			s.Unassigned = s.Unassigned.Add(item.LineTotal)
		} else {
			s.Assigned = s.Assigned.Add(item.LineTotal)
		}
	}
	s.Shared = receipt.SharedCharges.Total()
	s.NetAmount = receipt.NetAmount
	return s
}

// Outstanding lists what each participant owes the room's creator, who is
// assumed to have paid the bill. The creator and participants with nothing
// to pay are omitted. Edges follow the room's participant order.
func Outstanding(room models.Room, shares models.ShareTable) []DebtEdge {
	var edges []DebtEdge
	for _, p := range room.Participants {
		if p.ID == room.CreatorID {
			continue
		}
		amount := shares.Get(p.ID)
		if !amount.IsPositive() {
			continue
		}
		edges = append(edges, DebtEdge{
			From:   p.ID,
			To:     room.CreatorID,
			Amount: amount,
		})
	}
	return edges
}
