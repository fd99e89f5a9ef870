package calculator

import (
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitroom/internal/models"
)

// ErrDegenerateRoom is returned when shares are requested for a room with no participants.
var ErrDegenerateRoom = errors.New("room has no participants")

// ComputeShares computes how much each participant owes.
//
// Algorithm:
//   - every participant starts at zero, so the table covers the whole room
//   - an item tagged by k participants adds lineTotal/k to each of them
//   - an untagged item adds nothing to anyone
//   - (serviceCharge + sum of taxes) / participantCount is added to everyone
//
// Amounts are kept at full decimal precision; rounding is left to presentation.
// The table is built from scratch on every call.
func ComputeShares(items []models.ReceiptItem, participants []models.Participant, charges models.SharedCharges) (models.ShareTable, error) {
	if len(participants) == 0 {
		return nil, ErrDegenerateRoom
	}

	shares := make(models.ShareTable, len(participants))
	for _, p := range participants {
		shares[p.ID] = decimal.Zero
	}

	for _, item := range items {
		taggers := uniqueTags(item.Tags)
		if len(taggers) == 0 {
			continue
		}

		// Split among everyone tagged, then drop slices that belong to IDs
		// no longer in the room.
		perPerson := item.LineTotal.Div(decimal.NewFromInt(int64(len(taggers))))
		for _, id := range taggers {
			current, ok := shares[id]
			if !ok {
				slog.Warn("Item tagged by unknown participant",
					"item_index", item.Index,
					"item", item.Name,
					"participant_id", id,
				)
				continue
			}
			shares[id] = current.Add(perPerson)
		}
	}

	perPersonShared := charges.Total().Div(decimal.NewFromInt(int64(len(participants))))
	for id, current := range shares {
		shares[id] = current.Add(perPersonShared)
	}

	return shares, nil
}

// ItemsFor returns the items participantID is tagged on, in receipt order.
func ItemsFor(items []models.ReceiptItem, participantID string) []models.ReceiptItem {
	var out []models.ReceiptItem
	for _, item := range items {
		if item.HasTag(participantID) {
			out = append(out, item)
		}
	}
	return out
}

func uniqueTags(tags []string) []string {
	if len(tags) < 2 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
