// Package session drives one client's view of a room.
//
// A Session keeps a read-through copy of the room and its receipt as an
// immutable Snapshot. Every change goes through the room resource first; only
// the resource's response is ever installed locally, and shares are recomputed
// from scratch each time a new snapshot is installed. Failed calls leave the
// previous snapshot in place.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/splitroom/internal/calculator"
	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/room"
	"github.com/mmynk/splitroom/internal/settlement"
	"github.com/mmynk/splitroom/internal/tags"
)

var (
	ErrNotLoaded      = errors.New("room not loaded")
	ErrNoReceipt      = errors.New("room has no receipt")
	ErrNoViewer       = errors.New("viewer participant not set")
	ErrToggleRejected = errors.New("tag toggle rejected by room resource")
)

// Snapshot is an immutable view of a room at one point in time.
type Snapshot struct {
	Room     models.Room
	Receipt  *models.Receipt
	Registry *tags.Registry
	Shares   models.ShareTable
}

// Items returns the current items with their tags, or nil when there is no receipt.
func (s *Snapshot) Items() []models.ReceiptItem {
	if s.Registry == nil {
		return nil
	}
	return s.Registry.Items()
}

// Session is a single client's session against one room.
type Session struct {
	resource room.Resource
	roomID   string
	currency string
	scheme   string
	logger   *slog.Logger

	mu       sync.RWMutex
	viewerID string
	snap     *Snapshot

	locksMu   sync.Mutex
	itemLocks map[int]chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithCurrency sets the currency used when the room does not specify one.
func WithCurrency(code string) Option {
	return func(s *Session) { s.currency = code }
}

// WithPaymentScheme sets the URI scheme of generated payment links.
func WithPaymentScheme(scheme string) Option {
	return func(s *Session) { s.scheme = scheme }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a session for roomID viewed as viewerID. viewerID may be empty
// until the client joins the room.
func New(resource room.Resource, roomID, viewerID string, opts ...Option) *Session {
	s := &Session{
		resource:  resource,
		roomID:    roomID,
		viewerID:  viewerID,
		currency:  settlement.DefaultCurrency,
		scheme:    settlement.DefaultScheme,
		logger:    slog.Default(),
		itemLocks: make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RoomID is the ID of the room this session is bound to.
func (s *Session) RoomID() string {
	return s.roomID
}

// Viewer is the participant this session acts as.
func (s *Session) Viewer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewerID
}

// Snapshot returns the current snapshot, or nil before the first successful Refresh.
func (s *Session) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Refresh fetches the room and receipt and installs them as the current snapshot.
func (s *Session) Refresh(ctx context.Context) error {
	state, err := s.resource.GetRoom(ctx, s.roomID)
	if err != nil {
		s.logger.Warn("Refresh failed", "room_id", s.roomID, "error", err)
		return fmt.Errorf("refresh room %s: %w", s.roomID, err)
	}

	snap, err := buildSnapshot(state.Room, state.Receipt)
	if err != nil {
		s.logger.Error("Refresh returned unusable room", "room_id", s.roomID, "error", err)
		return fmt.Errorf("refresh room %s: %w", s.roomID, err)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.Debug("Room refreshed",
		"room_id", s.roomID,
		"participants", len(snap.Room.Participants),
		"has_receipt", snap.Receipt != nil,
		"active", snap.Room.IsActive,
	)
	return nil
}

// Join adds the client to the room and makes the new participant the session's viewer.
func (s *Session) Join(ctx context.Context, displayName, payeeIdentifier string) (string, error) {
	res, err := s.resource.JoinRoom(ctx, s.roomID, room.JoinRequest{
		DisplayName:     displayName,
		PayeeIdentifier: payeeIdentifier,
	})
	if err != nil {
		s.logger.Warn("Join failed", "room_id", s.roomID, "error", err)
		return "", fmt.Errorf("join room %s: %w", s.roomID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var receipt *models.Receipt
	if s.snap != nil {
		receipt = s.snap.Receipt
	}
	snap, err := buildSnapshot(res.Room, receipt)
	if err != nil {
		return "", fmt.Errorf("join room %s: %w", s.roomID, err)
	}
	s.snap = snap
	s.viewerID = res.ParticipantID

	s.logger.Info("Joined room", "room_id", s.roomID, "participant_id", res.ParticipantID)
	return res.ParticipantID, nil
}

// UploadReceipt sends a receipt image to the room resource and installs the parsed receipt.
func (s *Session) UploadReceipt(ctx context.Context, image []byte) error {
	current, err := s.writable()
	if err != nil {
		return err
	}

	receipt, err := s.resource.UploadReceipt(ctx, s.roomID, image)
	if err != nil {
		s.logger.Warn("Receipt upload failed", "room_id", s.roomID, "bytes", len(image), "error", err)
		return fmt.Errorf("upload receipt to room %s: %w", s.roomID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another call may have installed a newer room since current was read.
	base := current.Room
	if s.snap != nil {
		base = s.snap.Room
	}
	snap, err := buildSnapshot(base, receipt)
	if err != nil {
		return fmt.Errorf("upload receipt to room %s: %w", s.roomID, err)
	}
	s.snap = snap

	s.logger.Info("Receipt installed", "room_id", s.roomID, "items", len(receipt.Items))
	return nil
}

// Toggle flips participantID's tag on the item at itemIndex.
//
// The intended action is derived from the current snapshot and submitted to the
// room resource. The snapshot changes only after the resource confirms, and then
// the item array is replaced wholesale by the resource's response. Toggles of
// the same item from this session run one at a time, so each one's action is
// derived from the previous one's confirmed result.
func (s *Session) Toggle(ctx context.Context, itemIndex int, participantID string) (tags.Action, error) {
	release, err := s.lockItem(ctx, itemIndex)
	if err != nil {
		return "", err
	}
	defer release()

	current, err := s.writable()
	if err != nil {
		return "", err
	}
	if current.Registry == nil {
		return "", ErrNoReceipt
	}

	action, err := current.Registry.Toggle(itemIndex, participantID)
	if err != nil {
		return "", err
	}

	res, err := s.resource.ToggleItemTag(ctx, s.roomID, itemIndex, participantID, action)
	if err != nil {
		s.logger.Warn("Toggle failed",
			"room_id", s.roomID,
			"item_index", itemIndex,
			"participant_id", participantID,
			"action", action,
			"error", err,
		)
		return "", fmt.Errorf("toggle item %d: %w", itemIndex, err)
	}
	if !res.Success {
		return "", fmt.Errorf("toggle item %d: %w", itemIndex, ErrToggleRejected)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.snap
	base := latest.Receipt
	if base == nil {
		base = current.Receipt
	}
	receipt := base.Clone()
	receipt.Items = models.CloneItems(res.Items)
	snap, err := buildSnapshot(latest.Room, receipt)
	if err != nil {
		return "", fmt.Errorf("toggle item %d: %w", itemIndex, err)
	}
	s.snap = snap

	s.logger.Debug("Toggle applied",
		"room_id", s.roomID,
		"item_index", itemIndex,
		"participant_id", participantID,
		"action", action,
	)
	return action, nil
}

// Shares returns the share table of the current snapshot.
func (s *Session) Shares() (models.ShareTable, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	out := make(models.ShareTable, len(snap.Shares))
	for k, v := range snap.Shares {
		out[k] = v
	}
	return out, nil
}

// Summary returns the display breakdown of the current snapshot.
func (s *Session) Summary() (calculator.Summary, error) {
	snap := s.Snapshot()
	if snap == nil {
		return calculator.Summary{}, ErrNotLoaded
	}
	return calculator.Summarize(snap.Receipt, snap.Shares), nil
}

// Settlement builds the payment request the viewer would send to participantID.
// It returns nil when participantID owes nothing.
func (s *Session) Settlement(participantID string) (*models.SettlementRequest, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	viewerID := s.Viewer()
	if viewerID == "" {
		return nil, ErrNoViewer
	}

	requester, ok := snap.Room.Participant(viewerID)
	if !ok {
		return nil, fmt.Errorf("%w: viewer %s", tags.ErrUnknownParticipant, viewerID)
	}
	target, ok := snap.Room.Participant(participantID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", tags.ErrUnknownParticipant, participantID)
	}

	currency := snap.Room.Currency
	if currency == "" {
		currency = s.currency
	}
	return settlement.BuildRequest(requester, target, snap.Shares.Get(participantID), snap.Items(), currency)
}

// SettlementLink renders the viewer's payment request to participantID as a
// pay-to URI. It returns "" when nothing is owed.
func (s *Session) SettlementLink(participantID string) (string, error) {
	req, err := s.Settlement(participantID)
	if err != nil || req == nil {
		return "", err
	}
	return settlement.PaymentLink(req, s.scheme)
}

// writable returns the current snapshot if it may be changed.
func (s *Session) writable() (*Snapshot, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	if !snap.Room.IsActive {
		return nil, fmt.Errorf("room %s: %w", s.roomID, room.ErrRoomInactive)
	}
	return snap, nil
}

// lockItem serializes toggles on one item. The returned func releases the lock.
func (s *Session) lockItem(ctx context.Context, itemIndex int) (func(), error) {
	s.locksMu.Lock()
	ch, ok := s.itemLocks[itemIndex]
	if !ok {
		ch = make(chan struct{}, 1)
		s.itemLocks[itemIndex] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// buildSnapshot derives registry and shares for a room and receipt.
func buildSnapshot(r models.Room, receipt *models.Receipt) (*Snapshot, error) {
	r = r.Clone()
	receipt = receipt.Clone()

	var (
		items   []models.ReceiptItem
		charges models.SharedCharges
	)
	snap := &Snapshot{Room: r, Receipt: receipt}
	if receipt != nil {
		items = receipt.Items
		charges = receipt.SharedCharges
		snap.Registry = tags.New(items, r.Participants)
	}

	shares, err := calculator.ComputeShares(items, r.Participants, charges)
	if err != nil {
		return nil, err
	}
	snap.Shares = shares
	return snap, nil
}
