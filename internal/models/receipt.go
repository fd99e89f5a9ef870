package models

import "github.com/shopspring/decimal"

// ReceiptItem is a single line item on a receipt.
type ReceiptItem struct {
	// Index is the item's position on the receipt. It is stable for the
	// lifetime of the receipt and equals the item's position in Receipt.Items.
	Index int `json:"index"`

	// Name is the item as printed on the receipt (e.g. "Pizza").
	Name string `json:"name"`

	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`

	// LineTotal is the amount that gets split for this item. It is taken as
	// printed and is not recomputed from Quantity × UnitPrice, since receipts
	// carry line discounts.
	LineTotal decimal.Decimal `json:"lineTotal"`

	// Tags are the IDs of participants who claim to have consumed this item.
	// Treated as a set; order is the order the room resource reports.
	Tags []string `json:"tags"`
}

// HasTag reports whether participantID is tagged on the item.
func (i ReceiptItem) HasTag(participantID string) bool {
	for _, t := range i.Tags {
		if t == participantID {
			return true
		}
	}
	return false
}

// Clone returns a copy of the item that shares no memory with i.
func (i ReceiptItem) Clone() ReceiptItem {
	out := i
	out.Tags = append([]string(nil), i.Tags...)
	return out
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []ReceiptItem) []ReceiptItem {
	if items == nil {
		return nil
	}
	out := make([]ReceiptItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// TaxComponent is one tax line on a receipt (e.g. CGST, SGST, VAT).
type TaxComponent struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// SharedCharges are receipt-level costs that are split evenly across the room.
type SharedCharges struct {
	Taxes         []TaxComponent  `json:"taxes"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
}

// TaxTotal is the sum of all tax components.
func (c SharedCharges) TaxTotal() decimal.Decimal {
	total := decimal.Zero
	for _, t := range c.Taxes {
		total = total.Add(t.Amount)
	}
	return total
}

// Total is the service charge plus all tax components.
func (c SharedCharges) Total() decimal.Decimal {
	return c.ServiceCharge.Add(c.TaxTotal())
}

// Receipt is the structured output of the receipt parser plus the current tags.
type Receipt struct {
	Items         []ReceiptItem `json:"items"`
	SharedCharges SharedCharges `json:"sharedCharges"`

	// NetAmount is the grand total reported by the parser. It is used for display
	// only and may differ from the sum of items and shared charges.
	NetAmount decimal.Decimal `json:"netAmount"`
}

// Clone returns a deep copy of the receipt. A nil receipt clones to nil.
func (r *Receipt) Clone() *Receipt {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = CloneItems(r.Items)
	out.SharedCharges.Taxes = append([]TaxComponent(nil), r.SharedCharges.Taxes...)
	return &out
}
