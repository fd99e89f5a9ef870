package roomapi

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// RoomServiceName is the fully-qualified name of the room service.
const RoomServiceName = "splitroom.v1.RoomService"

// Procedure paths of the room service RPCs.
const (
	RoomServiceCreateRoomProcedure    = "/splitroom.v1.RoomService/CreateRoom"
	RoomServiceGetRoomProcedure       = "/splitroom.v1.RoomService/GetRoom"
	RoomServiceJoinRoomProcedure      = "/splitroom.v1.RoomService/JoinRoom"
	RoomServiceUploadReceiptProcedure = "/splitroom.v1.RoomService/UploadReceipt"
	RoomServiceToggleItemTagProcedure = "/splitroom.v1.RoomService/ToggleItemTag"
	RoomServiceCloseRoomProcedure     = "/splitroom.v1.RoomService/CloseRoom"
	RoomServiceGetSharesProcedure     = "/splitroom.v1.RoomService/GetShares"
)

// RoomServiceHandler is implemented by the server side of the room service.
type RoomServiceHandler interface {
	CreateRoom(context.Context, *connect.Request[CreateRoomRequest]) (*connect.Response[CreateRoomResponse], error)
	GetRoom(context.Context, *connect.Request[GetRoomRequest]) (*connect.Response[GetRoomResponse], error)
	JoinRoom(context.Context, *connect.Request[JoinRoomRequest]) (*connect.Response[JoinRoomResponse], error)
	UploadReceipt(context.Context, *connect.Request[UploadReceiptRequest]) (*connect.Response[UploadReceiptResponse], error)
	ToggleItemTag(context.Context, *connect.Request[ToggleItemTagRequest]) (*connect.Response[ToggleItemTagResponse], error)
	CloseRoom(context.Context, *connect.Request[CloseRoomRequest]) (*connect.Response[CloseRoomResponse], error)
	GetShares(context.Context, *connect.Request[GetSharesRequest]) (*connect.Response[GetSharesResponse], error)
}

// NewRoomServiceHandler builds an HTTP handler for svc. It returns the path
// prefix to mount the handler on.
func NewRoomServiceHandler(svc RoomServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(RoomServiceCreateRoomProcedure, connect.NewUnaryHandler(RoomServiceCreateRoomProcedure, svc.CreateRoom, opts...))
	mux.Handle(RoomServiceGetRoomProcedure, connect.NewUnaryHandler(RoomServiceGetRoomProcedure, svc.GetRoom, opts...))
	mux.Handle(RoomServiceJoinRoomProcedure, connect.NewUnaryHandler(RoomServiceJoinRoomProcedure, svc.JoinRoom, opts...))
	mux.Handle(RoomServiceUploadReceiptProcedure, connect.NewUnaryHandler(RoomServiceUploadReceiptProcedure, svc.UploadReceipt, opts...))
	mux.Handle(RoomServiceToggleItemTagProcedure, connect.NewUnaryHandler(RoomServiceToggleItemTagProcedure, svc.ToggleItemTag, opts...))
	mux.Handle(RoomServiceCloseRoomProcedure, connect.NewUnaryHandler(RoomServiceCloseRoomProcedure, svc.CloseRoom, opts...))
	mux.Handle(RoomServiceGetSharesProcedure, connect.NewUnaryHandler(RoomServiceGetSharesProcedure, svc.GetShares, opts...))

	return "/" + RoomServiceName + "/", mux
}

// RoomServiceClient is a client for the room service.
type RoomServiceClient interface {
	CreateRoom(context.Context, *connect.Request[CreateRoomRequest]) (*connect.Response[CreateRoomResponse], error)
	GetRoom(context.Context, *connect.Request[GetRoomRequest]) (*connect.Response[GetRoomResponse], error)
	JoinRoom(context.Context, *connect.Request[JoinRoomRequest]) (*connect.Response[JoinRoomResponse], error)
	UploadReceipt(context.Context, *connect.Request[UploadReceiptRequest]) (*connect.Response[UploadReceiptResponse], error)
	ToggleItemTag(context.Context, *connect.Request[ToggleItemTagRequest]) (*connect.Response[ToggleItemTagResponse], error)
	CloseRoom(context.Context, *connect.Request[CloseRoomRequest]) (*connect.Response[CloseRoomResponse], error)
	GetShares(context.Context, *connect.Request[GetSharesRequest]) (*connect.Response[GetSharesResponse], error)
}

type roomServiceClient struct {
	createRoom    *connect.Client[CreateRoomRequest, CreateRoomResponse]
	getRoom       *connect.Client[GetRoomRequest, GetRoomResponse]
	joinRoom      *connect.Client[JoinRoomRequest, JoinRoomResponse]
	uploadReceipt *connect.Client[UploadReceiptRequest, UploadReceiptResponse]
	toggleItemTag *connect.Client[ToggleItemTagRequest, ToggleItemTagResponse]
	closeRoom     *connect.Client[CloseRoomRequest, CloseRoomResponse]
	getShares     *connect.Client[GetSharesRequest, GetSharesResponse]
}

// NewRoomServiceClient constructs a client for the room service at baseURL.
func NewRoomServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) RoomServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &roomServiceClient{
		createRoom:    connect.NewClient[CreateRoomRequest, CreateRoomResponse](httpClient, baseURL+RoomServiceCreateRoomProcedure, opts...),
		getRoom:       connect.NewClient[GetRoomRequest, GetRoomResponse](httpClient, baseURL+RoomServiceGetRoomProcedure, opts...),
		joinRoom:      connect.NewClient[JoinRoomRequest, JoinRoomResponse](httpClient, baseURL+RoomServiceJoinRoomProcedure, opts...),
		uploadReceipt: connect.NewClient[UploadReceiptRequest, UploadReceiptResponse](httpClient, baseURL+RoomServiceUploadReceiptProcedure, opts...),
		toggleItemTag: connect.NewClient[ToggleItemTagRequest, ToggleItemTagResponse](httpClient, baseURL+RoomServiceToggleItemTagProcedure, opts...),
		closeRoom:     connect.NewClient[CloseRoomRequest, CloseRoomResponse](httpClient, baseURL+RoomServiceCloseRoomProcedure, opts...),
		getShares:     connect.NewClient[GetSharesRequest, GetSharesResponse](httpClient, baseURL+RoomServiceGetSharesProcedure, opts...),
	}
}

func (c *roomServiceClient) CreateRoom(ctx context.Context, req *connect.Request[CreateRoomRequest]) (*connect.Response[CreateRoomResponse], error) {
	return c.createRoom.CallUnary(ctx, req)
}

func (c *roomServiceClient) GetRoom(ctx context.Context, req *connect.Request[GetRoomRequest]) (*connect.Response[GetRoomResponse], error) {
	return c.getRoom.CallUnary(ctx, req)
}

func (c *roomServiceClient) JoinRoom(ctx context.Context, req *connect.Request[JoinRoomRequest]) (*connect.Response[JoinRoomResponse], error) {
	return c.joinRoom.CallUnary(ctx, req)
}

func (c *roomServiceClient) UploadReceipt(ctx context.Context, req *connect.Request[UploadReceiptRequest]) (*connect.Response[UploadReceiptResponse], error) {
	return c.uploadReceipt.CallUnary(ctx, req)
}

func (c *roomServiceClient) ToggleItemTag(ctx context.Context, req *connect.Request[ToggleItemTagRequest]) (*connect.Response[ToggleItemTagResponse], error) {
	return c.toggleItemTag.CallUnary(ctx, req)
}

func (c *roomServiceClient) CloseRoom(ctx context.Context, req *connect.Request[CloseRoomRequest]) (*connect.Response[CloseRoomResponse], error) {
	return c.closeRoom.CallUnary(ctx, req)
}

func (c *roomServiceClient) GetShares(ctx context.Context, req *connect.Request[GetSharesRequest]) (*connect.Response[GetSharesResponse], error) {
	return c.getShares.CallUnary(ctx, req)
}
