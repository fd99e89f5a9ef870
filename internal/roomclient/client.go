// Package roomclient implements room.Resource against a remote room service.
package roomclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/sony/gobreaker/v2"

	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/room"
	"github.com/mmynk/splitroom/internal/tags"
	"github.com/mmynk/splitroom/pkg/roomapi"
)

// Ensure Client implements room.Resource
var _ room.Resource = (*Client)(nil)

// ErrPermissionDenied is returned when the service refuses an action to the caller.
var ErrPermissionDenied = errors.New("permission denied")

// Config controls the client's timeouts and circuit breaker.
type Config struct {
	// Timeout bounds each call. Zero means no client-side timeout.
	Timeout time.Duration

	// FailureThreshold consecutive transport failures open the breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Client talks to the room service. Calls are never retried: transport
// failures surface as room.ErrTransport and an open breaker fails fast.
type Client struct {
	rpc     roomapi.RoomServiceClient
	cb      *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
}

// New creates a client for the room service at baseURL.
func New(httpClient connect.HTTPClient, baseURL string, cfg Config, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}

	threshold := cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "room-service",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Domain errors mean the service answered; only transport failures trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, room.ErrTransport)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		rpc:     roomapi.NewRoomServiceClient(httpClient, baseURL, opts...),
		cb:      cb,
		timeout: cfg.Timeout,
	}
}

// GetRoom fetches a room and its receipt.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*room.State, error) {
	var out *room.State
	err := c.do(ctx, opCall, func(ctx context.Context) error {
		resp, err := c.rpc.GetRoom(ctx, connect.NewRequest(&roomapi.GetRoomRequest{RoomID: roomID}))
		if err != nil {
			return err
		}
		out = &room.State{Room: resp.Msg.Room, Receipt: resp.Msg.Receipt}
		return nil
	})
	return out, err
}

// JoinRoom adds a participant to the room.
func (c *Client) JoinRoom(ctx context.Context, roomID string, req room.JoinRequest) (*room.JoinResult, error) {
	var out *room.JoinResult
	err := c.do(ctx, opCall, func(ctx context.Context) error {
		resp, err := c.rpc.JoinRoom(ctx, connect.NewRequest(&roomapi.JoinRoomRequest{
			RoomID:          roomID,
			DisplayName:     req.DisplayName,
			PayeeIdentifier: req.PayeeIdentifier,
		}))
		if err != nil {
			return err
		}
		out = &room.JoinResult{Room: resp.Msg.Room, ParticipantID: resp.Msg.ParticipantID}
		return nil
	})
	return out, err
}

// UploadReceipt sends an image to be parsed into the room's receipt.
func (c *Client) UploadReceipt(ctx context.Context, roomID string, image []byte) (*models.Receipt, error) {
	var out *models.Receipt
	err := c.do(ctx, opUpload, func(ctx context.Context) error {
		resp, err := c.rpc.UploadReceipt(ctx, connect.NewRequest(&roomapi.UploadReceiptRequest{
			RoomID: roomID,
			Image:  image,
		}))
		if err != nil {
			return err
		}
		out = &resp.Msg.Receipt
		return nil
	})
	return out, err
}

// ToggleItemTag adds or removes a participant's tag on one item.
func (c *Client) ToggleItemTag(ctx context.Context, roomID string, itemIndex int, participantID string, action tags.Action) (*room.ToggleResult, error) {
	var out *room.ToggleResult
	err := c.do(ctx, opToggle, func(ctx context.Context) error {
		resp, err := c.rpc.ToggleItemTag(ctx, connect.NewRequest(&roomapi.ToggleItemTagRequest{
			RoomID:        roomID,
			ItemIndex:     itemIndex,
			ParticipantID: participantID,
			Action:        string(action),
		}))
		if err != nil {
			return err
		}
		out = &room.ToggleResult{Success: resp.Msg.Success, Items: resp.Msg.Items}
		return nil
	})
	return out, err
}

// CreateRoom opens a new room with the caller as creator.
func (c *Client) CreateRoom(ctx context.Context, name, creatorName, creatorPayee, currency string) (*room.JoinResult, error) {
	var out *room.JoinResult
	err := c.do(ctx, opCall, func(ctx context.Context) error {
		resp, err := c.rpc.CreateRoom(ctx, connect.NewRequest(&roomapi.CreateRoomRequest{
			Name:         name,
			CreatorName:  creatorName,
			CreatorPayee: creatorPayee,
			Currency:     currency,
		}))
		if err != nil {
			return err
		}
		out = &room.JoinResult{Room: resp.Msg.Room, ParticipantID: resp.Msg.ParticipantID}
		return nil
	})
	return out, err
}

// CloseRoom makes the room read-only. requesterID must be the room's creator.
func (c *Client) CloseRoom(ctx context.Context, roomID, requesterID string) (*models.Room, error) {
	var out *models.Room
	err := c.do(ctx, opCall, func(ctx context.Context) error {
		resp, err := c.rpc.CloseRoom(ctx, connect.NewRequest(&roomapi.CloseRoomRequest{
			RoomID:      roomID,
			RequesterID: requesterID,
		}))
		if err != nil {
			return err
		}
		out = &resp.Msg.Room
		return nil
	})
	return out, err
}

// Shares fetches the service's view of the room's share table.
func (c *Client) Shares(ctx context.Context, roomID string) (*roomapi.GetSharesResponse, error) {
	var out *roomapi.GetSharesResponse
	err := c.do(ctx, opCall, func(ctx context.Context) error {
		resp, err := c.rpc.GetShares(ctx, connect.NewRequest(&roomapi.GetSharesRequest{RoomID: roomID}))
		if err != nil {
			return err
		}
		out = resp.Msg
		return nil
	})
	return out, err
}

// do runs call through the breaker with the client timeout and maps its error.
func (c *Client) do(ctx context.Context, op operation, call func(context.Context) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	_, err := c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, mapError(op, call(ctx))
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", room.ErrTransport, err)
	}
	return err
}
