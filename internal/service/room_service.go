package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/splitroom/internal/calculator"
	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/receipt"
	"github.com/mmynk/splitroom/internal/storage"
	"github.com/mmynk/splitroom/internal/tags"
	"github.com/mmynk/splitroom/pkg/roomapi"
)

var ErrNotCreator = errors.New("only the room creator can close the room")

// Ensure RoomService implements the handler interface
var _ roomapi.RoomServiceHandler = (*RoomService)(nil)

// ToggleRecorder observes applied tag toggles.
type ToggleRecorder interface {
	RecordToggle(action string)
}

// RoomService implements the Connect RoomService
type RoomService struct {
	store    storage.Store
	parser   receipt.Parser
	validate *validator.Validate

	currency    string
	maxImageDim int
	toggles     ToggleRecorder
}

// Option configures a RoomService.
type Option func(*RoomService)

// WithDefaultCurrency sets the currency for rooms created without one.
func WithDefaultCurrency(code string) Option {
	return func(s *RoomService) { s.currency = strings.ToUpper(code) }
}

// WithMaxImageDimension bounds uploaded images before they reach the parser.
func WithMaxImageDimension(px int) Option {
	return func(s *RoomService) { s.maxImageDim = px }
}

// WithToggleRecorder reports every applied toggle to r.
func WithToggleRecorder(r ToggleRecorder) Option {
	return func(s *RoomService) { s.toggles = r }
}

// NewRoomService creates a new RoomService with the given storage backend and receipt parser.
func NewRoomService(store storage.Store, parser receipt.Parser, opts ...Option) *RoomService {
	s := &RoomService{
		store:       store,
		parser:      parser,
		validate:    validator.New(),
		currency:    "INR",
		maxImageDim: receipt.DefaultMaxDimension,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom creates a room with its creator as the first participant.
func (s *RoomService) CreateRoom(ctx context.Context, req *connect.Request[roomapi.CreateRoomRequest]) (*connect.Response[roomapi.CreateRoomResponse], error) {
	slog.Info("CreateRoom request received", "name", req.Msg.Name)

	if err := s.validateMsg(req.Msg); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.Msg.Currency)
	if currency == "" {
		currency = s.currency
	}

	room := &models.Room{
		Name:     req.Msg.Name,
		Currency: currency,
		IsActive: true,
		Participants: []models.Participant{{
			DisplayName:     req.Msg.CreatorName,
			PayeeIdentifier: req.Msg.CreatorPayee,
		}},
	}

	// Save to storage (generates IDs and CreatedAt)
	if err := s.store.CreateRoom(ctx, room); err != nil {
		slog.Error("CreateRoom failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Room created", "room_id", room.ID, "creator_id", room.CreatorID)

	return connect.NewResponse(&roomapi.CreateRoomResponse{
		Room:          *room,
		ParticipantID: room.CreatorID,
	}), nil
}

// GetRoom retrieves a room and its receipt.
func (s *RoomService) GetRoom(ctx context.Context, req *connect.Request[roomapi.GetRoomRequest]) (*connect.Response[roomapi.GetRoomResponse], error) {
	if err := s.validateMsg(req.Msg); err != nil {
		return nil, err
	}

	room, rcpt, err := s.load(ctx, req.Msg.RoomID)
	if err != nil {
		slog.Error("GetRoom failed", "room_id", req.Msg.RoomID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Debug("GetRoom successful", "room_id", room.ID, "participants", len(room.Participants))

	return connect.NewResponse(&roomapi.GetRoomResponse{
		Room:    *room,
		Receipt: rcpt,
	}), nil
}

// JoinRoom adds a participant to an active room.
func (s *RoomService) JoinRoom(ctx context.Context, req *connect.Request[roomapi.JoinRoomRequest]) (*connect.Response[roomapi.JoinRoomResponse], error) {
	slog.Info("JoinRoom request received", "room_id", req.Msg.RoomID, "display_name", req.Msg.DisplayName)

	if err := s.validateMsg(req.Msg); err != nil {
		return nil, err
	}

	p := &models.Participant{
		DisplayName:     req.Msg.DisplayName,
		PayeeIdentifier: req.Msg.PayeeIdentifier,
	}
	if err := s.store.AddParticipant(ctx, req.Msg.RoomID, p); err != nil {
		slog.Error("JoinRoom failed", "room_id", req.Msg.RoomID, "error", err)
		return nil, toConnectError(err)
	}

	room, err := s.store.GetRoom(ctx, req.Msg.RoomID)
	if err != nil {
		slog.Error("Failed to fetch joined room", "room_id", req.Msg.RoomID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Participant joined", "room_id", room.ID, "participant_id", p.ID)

	return connect.NewResponse(&roomapi.JoinRoomResponse{
		Room:          *room,
		ParticipantID: p.ID,
	}), nil
}

// UploadReceipt parses an image into the room's receipt, replacing any previous one.
func (s *RoomService) UploadReceipt(ctx context.Context, req *connect.Request[roomapi.UploadReceiptRequest]) (*connect.Response[roomapi.UploadReceiptResponse], error) {
	slog.Info("UploadReceipt request received", "room_id", req.Msg.RoomID, "bytes", len(req.Msg.Image))

	if err := s.validateMsg(req.Msg); err != nil {
		return nil, err
	}

	room, err := s.store.GetRoom(ctx, req.Msg.RoomID)
	if err != nil {
		slog.Error("UploadReceipt failed", "room_id", req.Msg.RoomID, "error", err)
		return nil, toConnectError(err)
	}
	if !room.IsActive {
		return nil, toConnectError(fmt.Errorf("room %s: %w", room.ID, storage.ErrRoomInactive))
	}

	image, err := receipt.Normalize(req.Msg.Image, s.maxImageDim)
	if err != nil {
		slog.Warn("UploadReceipt rejected image", "room_id", room.ID, "error", err)
		return nil, toConnectError(err)
	}

	if s.parser == nil {
		return nil, toConnectError(fmt.Errorf("no parser configured: %w", receipt.ErrParseFailed))
	}
	rcpt, err := s.parser.Parse(ctx, image, "image/jpeg")
	if err != nil {
		slog.Error("UploadReceipt parse failed", "room_id", room.ID, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.SaveReceipt(ctx, room.ID, rcpt); err != nil {
		slog.Error("Failed to save receipt", "room_id", room.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Receipt uploaded", "room_id", room.ID, "items", len(rcpt.Items))

	return connect.NewResponse(&roomapi.UploadReceiptResponse{Receipt: *rcpt}), nil
}

// ToggleItemTag adds or removes a participant's tag on one item and returns
// the room's items afterwards.
func (s *RoomService) ToggleItemTag(ctx context.Context, req *connect.Request[roomapi.ToggleItemTagRequest]) (*connect.Response[roomapi.ToggleItemTagResponse], error) {
	slog.Info("ToggleItemTag request received",
		"room_id", req.Msg.RoomID,
		"item_index", req.Msg.ItemIndex,
		"participant_id", req.Msg.ParticipantID,
		"action", req.Msg.Action,
	)

	if err := s.validateMsg(req.Msg); err != nil {
		return nil, err
	}
	action, err := tags.ParseAction(req.Msg.Action)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	room, rcpt, err := s.load(ctx, req.Msg.RoomID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !room.IsActive {
		return nil, toConnectError(fmt.Errorf("room %s: %w", room.ID, storage.ErrRoomInactive))
	}
	if rcpt == nil {
		// No items means no valid index
		return nil, toConnectError(fmt.Errorf("room %s has no receipt: %w", room.ID, tags.ErrInvalidIndex))
	}

	// Reject bad indices and strangers before touching storage
	if _, err := tags.New(rcpt.Items, room.Participants).Apply(req.Msg.ItemIndex, req.Msg.ParticipantID, action); err != nil {
		slog.Warn("ToggleItemTag rejected", "room_id", room.ID, "error", err)
		return nil, toConnectError(err)
	}

	items, err := s.store.SetItemTag(ctx, room.ID, req.Msg.ItemIndex, req.Msg.ParticipantID, action == tags.ActionAdd)
	if err != nil {
		slog.Error("ToggleItemTag failed", "room_id", room.ID, "error", err)
		return nil, toConnectError(err)
	}

	if s.toggles != nil {
		s.toggles.RecordToggle(string(action))
	}

	return connect.NewResponse(&roomapi.ToggleItemTagResponse{
		Success: true,
		Items:   items,
	}), nil
}

// CloseRoom makes a room read-only. Only its creator may close it.
func (s *RoomService) CloseRoom(ctx context.Context, req *connect.Request[roomapi.CloseRoomRequest]) (*connect.Response[roomapi.CloseRoomResponse], error) {
	slog.Info("CloseRoom request received", "room_id", req.Msg.RoomID, "requester_id", req.Msg.RequesterID)

	if err := s.validateMsg(req.Msg); err != nil {
		return nil, err
	}

	room, err := s.store.GetRoom(ctx, req.Msg.RoomID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if room.CreatorID != req.Msg.RequesterID {
		return nil, toConnectError(ErrNotCreator)
	}

	if err := s.store.SetRoomActive(ctx, room.ID, false); err != nil {
		slog.Error("CloseRoom failed", "room_id", room.ID, "error", err)
		return nil, toConnectError(err)
	}
	room.IsActive = false

	slog.Info("Room closed", "room_id", room.ID)

	return connect.NewResponse(&roomapi.CloseRoomResponse{Room: *room}), nil
}

// GetShares computes the room's share table from its current tags.
func (s *RoomService) GetShares(ctx context.Context, req *connect.Request[roomapi.GetSharesRequest]) (*connect.Response[roomapi.GetSharesResponse], error) {
	if err := s.validateMsg(req.Msg); err != nil {
		return nil, err
	}

	room, rcpt, err := s.load(ctx, req.Msg.RoomID)
	if err != nil {
		return nil, toConnectError(err)
	}

	var (
		items   []models.ReceiptItem
		charges models.SharedCharges
	)
	if rcpt != nil {
		items = rcpt.Items
		charges = rcpt.SharedCharges
	}

	shares, err := calculator.ComputeShares(items, room.Participants, charges)
	if err != nil {
		slog.Error("GetShares failed", "room_id", room.ID, "error", err)
		return nil, toConnectError(err)
	}
	summary := calculator.Summarize(rcpt, shares)

	resp := &roomapi.GetSharesResponse{
		Currency:    room.Currency,
		Shares:      make([]roomapi.ParticipantShare, 0, len(room.Participants)),
		Unassigned:  models.FormatAmount(summary.Unassigned),
		NetAmount:   models.FormatAmount(summary.NetAmount),
		Outstanding: []roomapi.Debt{},
	}
	for _, p := range room.Participants {
		resp.Shares = append(resp.Shares, roomapi.ParticipantShare{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Amount:        models.FormatAmount(shares.Get(p.ID)),
		})
	}
	for _, edge := range calculator.Outstanding(*room, shares) {
		resp.Outstanding = append(resp.Outstanding, roomapi.Debt{
			From:   edge.From,
			To:     edge.To,
			Amount: models.FormatAmount(edge.Amount),
		})
	}

	return connect.NewResponse(resp), nil
}

func (s *RoomService) load(ctx context.Context, roomID string) (*models.Room, *models.Receipt, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	rcpt, err := s.store.GetReceipt(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, rcpt, nil
}

func (s *RoomService) validateMsg(msg any) error {
	err := s.validate.Struct(msg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		fields = append(fields, ve.Field()+": "+ve.Tag())
	}
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid request: %s", strings.Join(fields, ", ")))
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrParticipantNotInRoom),
		errors.Is(err, tags.ErrUnknownParticipant):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrRoomInactive):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, storage.ErrInvalidItem),
		errors.Is(err, tags.ErrInvalidIndex),
		errors.Is(err, receipt.ErrUnsupportedMediaType):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, receipt.ErrParseFailed):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, ErrNotCreator):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
