package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/receipt"
	"github.com/mmynk/splitroom/internal/storage/sqlite"
	"github.com/mmynk/splitroom/pkg/roomapi"
)

type toggleCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *toggleCounter) RecordToggle(action string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[action]++
}

func (c *toggleCounter) get(action string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[action]
}

// dinnerReceipt is the receipt the fake parser returns.
func dinnerReceipt() *models.Receipt {
	return &models.Receipt{
		Items: []models.ReceiptItem{
			{Name: "Pizza", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(300), LineTotal: decimal.NewFromInt(300)},
			{Name: "Soda", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(20)},
		},
		SharedCharges: models.SharedCharges{
			Taxes:         []models.TaxComponent{{Name: "VAT", Amount: decimal.NewFromInt(30)}},
			ServiceCharge: decimal.Zero,
		},
		NetAmount: decimal.NewFromInt(350),
	}
}

func testImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// setupTestServer creates a test server backed by a temp database and a fake parser
func setupTestServer(t *testing.T, parser receipt.Parser) (roomapi.RoomServiceClient, *toggleCounter) {
	t.Helper()

	// Create temp database
	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	counter := &toggleCounter{counts: map[string]int{}}
	svc := NewRoomService(store, parser, WithToggleRecorder(counter))
	path, handler := roomapi.NewRoomServiceHandler(svc)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})

	return roomapi.NewRoomServiceClient(http.DefaultClient, server.URL), counter
}

func staticParser(r *models.Receipt) receipt.Parser {
	return receipt.ParserFunc(func(ctx context.Context, image []byte, contentType string) (*models.Receipt, error) {
		return r.Clone(), nil
	})
}

// setupRoom creates a room for Alice, adds Bob and uploads the dinner receipt.
func setupRoom(t *testing.T, client roomapi.RoomServiceClient) (roomID, alice, bob string) {
	t.Helper()
	ctx := context.Background()

	created, err := client.CreateRoom(ctx, connect.NewRequest(&roomapi.CreateRoomRequest{
		Name:         "Dinner",
		CreatorName:  "Alice",
		CreatorPayee: "alice@upi",
	}))
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	roomID = created.Msg.Room.ID
	alice = created.Msg.ParticipantID

	joined, err := client.JoinRoom(ctx, connect.NewRequest(&roomapi.JoinRoomRequest{
		RoomID:          roomID,
		DisplayName:     "Bob",
		PayeeIdentifier: "bob@upi",
	}))
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	bob = joined.Msg.ParticipantID

	if _, err := client.UploadReceipt(ctx, connect.NewRequest(&roomapi.UploadReceiptRequest{
		RoomID: roomID,
		Image:  testImage(t),
	})); err != nil {
		t.Fatalf("UploadReceipt failed: %v", err)
	}
	return roomID, alice, bob
}

func toggle(t *testing.T, client roomapi.RoomServiceClient, roomID string, index int, pid, action string) *roomapi.ToggleItemTagResponse {
	t.Helper()
	resp, err := client.ToggleItemTag(context.Background(), connect.NewRequest(&roomapi.ToggleItemTagRequest{
		RoomID:        roomID,
		ItemIndex:     index,
		ParticipantID: pid,
		Action:        action,
	}))
	if err != nil {
		t.Fatalf("ToggleItemTag failed: %v", err)
	}
	return resp.Msg
}

func TestCreateRoom(t *testing.T) {
	client, _ := setupTestServer(t, staticParser(dinnerReceipt()))

	resp, err := client.CreateRoom(context.Background(), connect.NewRequest(&roomapi.CreateRoomRequest{
		Name:         "Lunch",
		CreatorName:  "Alice",
		CreatorPayee: "alice@upi",
		Currency:     "usd",
	}))
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	room := resp.Msg.Room
	if room.ID == "" {
		t.Error("expected non-empty room ID")
	}
	if !room.IsActive {
		t.Error("expected new room to be active")
	}
	if room.Currency != "USD" {
		t.Errorf("currency: expected 'USD', got '%s'", room.Currency)
	}
	if len(room.Participants) != 1 || room.Participants[0].ID != resp.Msg.ParticipantID {
		t.Errorf("expected creator as sole participant, got %+v", room.Participants)
	}
	if room.CreatorID != resp.Msg.ParticipantID {
		t.Errorf("creator: expected %s, got %s", resp.Msg.ParticipantID, room.CreatorID)
	}
}

func TestCreateRoom_DefaultCurrency(t *testing.T) {
	client, _ := setupTestServer(t, nil)

	resp, err := client.CreateRoom(context.Background(), connect.NewRequest(&roomapi.CreateRoomRequest{
		Name:         "Lunch",
		CreatorName:  "Alice",
		CreatorPayee: "alice@upi",
	}))
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if resp.Msg.Room.Currency != "INR" {
		t.Errorf("currency: expected 'INR', got '%s'", resp.Msg.Room.Currency)
	}
}

func TestCreateRoom_Validation(t *testing.T) {
	client, _ := setupTestServer(t, nil)

	tests := []struct {
		name string
		req  *roomapi.CreateRoomRequest
	}{
		{"missing name", &roomapi.CreateRoomRequest{CreatorName: "Alice", CreatorPayee: "alice@upi"}},
		{"missing payee", &roomapi.CreateRoomRequest{Name: "Lunch", CreatorName: "Alice"}},
		{"bad currency", &roomapi.CreateRoomRequest{Name: "Lunch", CreatorName: "Alice", CreatorPayee: "a@upi", Currency: "RUPEES"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateRoom(context.Background(), connect.NewRequest(tt.req))
			if connect.CodeOf(err) != connect.CodeInvalidArgument {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestGetRoom(t *testing.T) {
	client, _ := setupTestServer(t, staticParser(dinnerReceipt()))
	roomID, alice, bob := setupRoom(t, client)

	resp, err := client.GetRoom(context.Background(), connect.NewRequest(&roomapi.GetRoomRequest{RoomID: roomID}))
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}

	if len(resp.Msg.Room.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(resp.Msg.Room.Participants))
	}
	if resp.Msg.Room.Participants[0].ID != alice || resp.Msg.Room.Participants[1].ID != bob {
		t.Errorf("participants out of join order: %+v", resp.Msg.Room.Participants)
	}
	if resp.Msg.Receipt == nil || len(resp.Msg.Receipt.Items) != 2 {
		t.Fatalf("expected receipt with 2 items, got %+v", resp.Msg.Receipt)
	}
	if !resp.Msg.Receipt.Items[0].LineTotal.Equal(decimal.NewFromInt(300)) {
		t.Errorf("line total: expected 300, got %s", resp.Msg.Receipt.Items[0].LineTotal)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	client, _ := setupTestServer(t, nil)

	_, err := client.GetRoom(context.Background(), connect.NewRequest(&roomapi.GetRoomRequest{RoomID: "missing"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestUploadReceipt_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-image", func(t *testing.T) {
		client, _ := setupTestServer(t, staticParser(dinnerReceipt()))
		roomID, _, _ := setupRoom(t, client)

		_, err := client.UploadReceipt(ctx, connect.NewRequest(&roomapi.UploadReceiptRequest{
			RoomID: roomID,
			Image:  []byte("definitely not an image"),
		}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("expected InvalidArgument, got %v", err)
		}
	})

	t.Run("parser failure is aborted", func(t *testing.T) {
		failing := receipt.ParserFunc(func(ctx context.Context, image []byte, contentType string) (*models.Receipt, error) {
			return nil, receipt.ErrParseFailed
		})
		client, _ := setupTestServer(t, failing)

		created, err := client.CreateRoom(ctx, connect.NewRequest(&roomapi.CreateRoomRequest{
			Name: "Dinner", CreatorName: "Alice", CreatorPayee: "alice@upi",
		}))
		if err != nil {
			t.Fatalf("CreateRoom failed: %v", err)
		}

		_, err = client.UploadReceipt(ctx, connect.NewRequest(&roomapi.UploadReceiptRequest{
			RoomID: created.Msg.Room.ID,
			Image:  testImage(t),
		}))
		if connect.CodeOf(err) != connect.CodeAborted {
			t.Errorf("expected Aborted, got %v", err)
		}
	})
}

func TestUploadReceipt_ClearsTags(t *testing.T) {
	client, _ := setupTestServer(t, staticParser(dinnerReceipt()))
	roomID, alice, _ := setupRoom(t, client)
	ctx := context.Background()

	toggle(t, client, roomID, 0, alice, "add")

	resp, err := client.UploadReceipt(ctx, connect.NewRequest(&roomapi.UploadReceiptRequest{
		RoomID: roomID,
		Image:  testImage(t),
	}))
	if err != nil {
		t.Fatalf("UploadReceipt failed: %v", err)
	}
	for _, item := range resp.Msg.Receipt.Items {
		if len(item.Tags) != 0 {
			t.Errorf("item %d: expected no tags, got %v", item.Index, item.Tags)
		}
	}
}

func TestToggleItemTag(t *testing.T) {
	client, counter := setupTestServer(t, staticParser(dinnerReceipt()))
	roomID, alice, bob := setupRoom(t, client)

	resp := toggle(t, client, roomID, 0, alice, "add")
	if !resp.Success {
		t.Fatal("expected success")
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected full item array, got %d items", len(resp.Items))
	}
	if len(resp.Items[0].Tags) != 1 || resp.Items[0].Tags[0] != alice {
		t.Errorf("item 0 tags: expected [%s], got %v", alice, resp.Items[0].Tags)
	}

	resp = toggle(t, client, roomID, 0, bob, "add")
	if len(resp.Items[0].Tags) != 2 {
		t.Errorf("item 0: expected 2 tags, got %v", resp.Items[0].Tags)
	}

	// Adding a present tag is a no-op
	resp = toggle(t, client, roomID, 0, bob, "add")
	if !resp.Success || len(resp.Items[0].Tags) != 2 {
		t.Errorf("duplicate add: expected 2 tags, got %v", resp.Items[0].Tags)
	}

	resp = toggle(t, client, roomID, 0, alice, "remove")
	if len(resp.Items[0].Tags) != 1 || resp.Items[0].Tags[0] != bob {
		t.Errorf("item 0 tags after remove: expected [%s], got %v", bob, resp.Items[0].Tags)
	}

	if counter.get("add") != 3 || counter.get("remove") != 1 {
		t.Errorf("toggle counts: got add=%d remove=%d", counter.get("add"), counter.get("remove"))
	}
}

func TestToggleItemTag_Errors(t *testing.T) {
	client, _ := setupTestServer(t, staticParser(dinnerReceipt()))
	roomID, alice, _ := setupRoom(t, client)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *roomapi.ToggleItemTagRequest
		code connect.Code
	}{
		{"bad index", &roomapi.ToggleItemTagRequest{RoomID: roomID, ItemIndex: 9, ParticipantID: alice, Action: "add"}, connect.CodeInvalidArgument},
		{"negative index", &roomapi.ToggleItemTagRequest{RoomID: roomID, ItemIndex: -1, ParticipantID: alice, Action: "add"}, connect.CodeInvalidArgument},
		{"bad action", &roomapi.ToggleItemTagRequest{RoomID: roomID, ItemIndex: 0, ParticipantID: alice, Action: "flip"}, connect.CodeInvalidArgument},
		{"unknown participant", &roomapi.ToggleItemTagRequest{RoomID: roomID, ItemIndex: 0, ParticipantID: "stranger", Action: "add"}, connect.CodeNotFound},
		{"unknown room", &roomapi.ToggleItemTagRequest{RoomID: "missing", ItemIndex: 0, ParticipantID: alice, Action: "add"}, connect.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ToggleItemTag(ctx, connect.NewRequest(tt.req))
			if connect.CodeOf(err) != tt.code {
				t.Errorf("expected %v, got %v", tt.code, err)
			}
		})
	}
}

func TestToggleItemTag_NoReceipt(t *testing.T) {
	client, _ := setupTestServer(t, staticParser(dinnerReceipt()))
	ctx := context.Background()

	created, err := client.CreateRoom(ctx, connect.NewRequest(&roomapi.CreateRoomRequest{
		Name:         "Lunch",
		CreatorName:  "Alice",
		CreatorPayee: "alice@upi",
	}))
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	_, err = client.ToggleItemTag(ctx, connect.NewRequest(&roomapi.ToggleItemTagRequest{
		RoomID:        created.Msg.Room.ID,
		ItemIndex:     0,
		ParticipantID: created.Msg.ParticipantID,
		Action:        "add",
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument for a room without a receipt, got %v", err)
	}
}

func TestCloseRoom(t *testing.T) {
	client, _ := setupTestServer(t, staticParser(dinnerReceipt()))
	roomID, alice, bob := setupRoom(t, client)
	ctx := context.Background()

	_, err := client.CloseRoom(ctx, connect.NewRequest(&roomapi.CloseRoomRequest{RoomID: roomID, RequesterID: bob}))
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Fatalf("expected PermissionDenied for non-creator, got %v", err)
	}

	resp, err := client.CloseRoom(ctx, connect.NewRequest(&roomapi.CloseRoomRequest{RoomID: roomID, RequesterID: alice}))
	if err != nil {
		t.Fatalf("CloseRoom failed: %v", err)
	}
	if resp.Msg.Room.IsActive {
		t.Error("expected room to be inactive")
	}

	// A closed room is read-only
	_, err = client.ToggleItemTag(ctx, connect.NewRequest(&roomapi.ToggleItemTagRequest{
		RoomID: roomID, ItemIndex: 0, ParticipantID: alice, Action: "add",
	}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("toggle: expected FailedPrecondition, got %v", err)
	}

	_, err = client.JoinRoom(ctx, connect.NewRequest(&roomapi.JoinRoomRequest{
		RoomID: roomID, DisplayName: "Carol", PayeeIdentifier: "carol@upi",
	}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("join: expected FailedPrecondition, got %v", err)
	}

	_, err = client.UploadReceipt(ctx, connect.NewRequest(&roomapi.UploadReceiptRequest{RoomID: roomID, Image: testImage(t)}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("upload: expected FailedPrecondition, got %v", err)
	}
}

func TestGetShares(t *testing.T) {
	client, _ := setupTestServer(t, staticParser(dinnerReceipt()))
	roomID, alice, bob := setupRoom(t, client)

	// Pizza shared by both, soda for Bob only
	toggle(t, client, roomID, 0, alice, "add")
	toggle(t, client, roomID, 0, bob, "add")
	toggle(t, client, roomID, 1, bob, "add")

	resp, err := client.GetShares(context.Background(), connect.NewRequest(&roomapi.GetSharesRequest{RoomID: roomID}))
	if err != nil {
		t.Fatalf("GetShares failed: %v", err)
	}

	if resp.Msg.Currency != "INR" {
		t.Errorf("currency: expected INR, got %s", resp.Msg.Currency)
	}
	want := map[string]string{alice: "165.00", bob: "185.00"}
	if len(resp.Msg.Shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(resp.Msg.Shares))
	}
	for _, s := range resp.Msg.Shares {
		if s.Amount != want[s.ParticipantID] {
			t.Errorf("%s: expected %s, got %s", s.DisplayName, want[s.ParticipantID], s.Amount)
		}
	}
	if resp.Msg.Unassigned != "0.00" {
		t.Errorf("unassigned: expected 0.00, got %s", resp.Msg.Unassigned)
	}
	if resp.Msg.NetAmount != "350.00" {
		t.Errorf("net amount: expected 350.00, got %s", resp.Msg.NetAmount)
	}
	if len(resp.Msg.Outstanding) != 1 || resp.Msg.Outstanding[0].From != bob || resp.Msg.Outstanding[0].To != alice {
		t.Fatalf("expected Bob to owe Alice, got %+v", resp.Msg.Outstanding)
	}
	if resp.Msg.Outstanding[0].Amount != "185.00" {
		t.Errorf("outstanding: expected 185.00, got %s", resp.Msg.Outstanding[0].Amount)
	}
}

func TestGetShares_NoReceipt(t *testing.T) {
	client, _ := setupTestServer(t, nil)
	ctx := context.Background()

	created, err := client.CreateRoom(ctx, connect.NewRequest(&roomapi.CreateRoomRequest{
		Name: "Empty", CreatorName: "Alice", CreatorPayee: "alice@upi",
	}))
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	resp, err := client.GetShares(ctx, connect.NewRequest(&roomapi.GetSharesRequest{RoomID: created.Msg.Room.ID}))
	if err != nil {
		t.Fatalf("GetShares failed: %v", err)
	}
	if len(resp.Msg.Shares) != 1 || resp.Msg.Shares[0].Amount != "0.00" {
		t.Errorf("expected a single zero share, got %+v", resp.Msg.Shares)
	}
}
