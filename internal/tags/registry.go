// Package tags tracks which participants claim each receipt line item.
package tags

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitroom/internal/models"
)

var (
	ErrInvalidIndex       = errors.New("invalid item index")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrInvalidAction      = errors.New("invalid tag action")
)

// Action is the change a toggle asks the room resource to make.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// ParseAction converts a wire value into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAdd, ActionRemove:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Registry holds the tag sets of a receipt's items for a known set of participants.
// A Registry is never mutated after construction; Apply and Replace return new values.
type Registry struct {
	items        []models.ReceiptItem
	participants map[string]struct{}
}

// New builds a registry from items and the room's participants.
// Items are copied and duplicate tags within an item are collapsed.
func New(items []models.ReceiptItem, participants []models.Participant) *Registry {
	known := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		known[p.ID] = struct{}{}
	}
	return &Registry{items: normalize(items), participants: known}
}

// Toggle returns the action that would flip participantID's tag on the item at
// itemIndex: ActionRemove if the participant is tagged, ActionAdd otherwise.
// It does not change the registry.
func (r *Registry) Toggle(itemIndex int, participantID string) (Action, error) {
	item, err := r.item(itemIndex)
	if err != nil {
		return "", err
	}
	if _, ok := r.participants[participantID]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownParticipant, participantID)
	}
	if item.HasTag(participantID) {
		return ActionRemove, nil
	}
	return ActionAdd, nil
}

// Apply returns a registry with action applied to the item at itemIndex.
// Adding a present tag or removing an absent one leaves the set unchanged.
func (r *Registry) Apply(itemIndex int, participantID string, action Action) (*Registry, error) {
	if _, err := r.item(itemIndex); err != nil {
		return nil, err
	}
	if _, ok := r.participants[participantID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParticipant, participantID)
	}

	items := models.CloneItems(r.items)
	item := &items[itemIndex]
	switch action {
	case ActionAdd:
		if !item.HasTag(participantID) {
			item.Tags = append(item.Tags, participantID)
		}
	case ActionRemove:
		kept := item.Tags[:0]
		for _, t := range item.Tags {
			if t != participantID {
				kept = append(kept, t)
			}
		}
		item.Tags = kept
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	return &Registry{items: items, participants: r.participants}, nil
}

// Replace returns a registry whose tag sets come entirely from items, typically
// the authoritative item array returned by the room resource. Nothing from the
// current registry is merged in.
func (r *Registry) Replace(items []models.ReceiptItem) *Registry {
	return &Registry{items: normalize(items), participants: r.participants}
}

// Items returns a copy of the registry's items.
func (r *Registry) Items() []models.ReceiptItem {
	return models.CloneItems(r.items)
}

// Tags returns a copy of the tag set of the item at itemIndex.
func (r *Registry) Tags(itemIndex int) ([]string, error) {
	item, err := r.item(itemIndex)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), item.Tags...), nil
}

// Len is the number of items.
func (r *Registry) Len() int {
	return len(r.items)
}

func (r *Registry) item(itemIndex int) (models.ReceiptItem, error) {
	if itemIndex < 0 || itemIndex >= len(r.items) {
		return models.ReceiptItem{}, fmt.Errorf("%w: %d (have %d items)", ErrInvalidIndex, itemIndex, len(r.items))
	}
	return r.items[itemIndex], nil
}

// normalize copies items and drops duplicate tags.
func normalize(items []models.ReceiptItem) []models.ReceiptItem {
	out := models.CloneItems(items)
	for i := range out {
		seen := make(map[string]struct{}, len(out[i].Tags))
		tags := out[i].Tags[:0]
		for _, t := range out[i].Tags {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
		out[i].Tags = tags
	}
	return out
}
