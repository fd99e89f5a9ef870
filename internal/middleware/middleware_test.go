package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitroom/pkg/roomapi"
)

const pingProcedure = "/test.v1.PingService/Ping"

type ping struct {
	Fail bool `json:"fail"`
}

type pong struct {
	ParticipantID string `json:"participantId"`
}

// newPingServer serves a single procedure wrapped in the interceptors under test.
func newPingServer(t *testing.T, interceptors ...connect.Interceptor) *connect.Client[ping, pong] {
	t.Helper()

	handler := connect.NewUnaryHandler(pingProcedure,
		func(ctx context.Context, req *connect.Request[ping]) (*connect.Response[pong], error) {
			if req.Msg.Fail {
				return nil, connect.NewError(connect.CodeNotFound, errors.New("no such room"))
			}
			return connect.NewResponse(&pong{ParticipantID: GetParticipantID(ctx)}), nil
		},
		connect.WithCodec(roomapi.JSONCodec{}),
		connect.WithInterceptors(interceptors...),
	)

	mux := http.NewServeMux()
	mux.Handle(pingProcedure, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return connect.NewClient[ping, pong](http.DefaultClient, srv.URL+pingProcedure,
		connect.WithCodec(roomapi.JSONCodec{}),
		connect.WithInterceptors(ParticipantToHeader(func() string { return "p-42" })),
	)
}

func TestParticipantHeader(t *testing.T) {
	client := newPingServer(t, ParticipantFromHeader(), LoggingInterceptor())

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&ping{}))
	require.NoError(t, err)
	assert.Equal(t, "p-42", resp.Msg.ParticipantID)
}

func TestParticipantHeader_EmptyViewer(t *testing.T) {
	handler := connect.NewUnaryHandler(pingProcedure,
		func(ctx context.Context, req *connect.Request[ping]) (*connect.Response[pong], error) {
			assert.Empty(t, req.Header().Get(ParticipantHeader))
			return connect.NewResponse(&pong{ParticipantID: GetParticipantID(ctx)}), nil
		},
		connect.WithCodec(roomapi.JSONCodec{}),
		connect.WithInterceptors(ParticipantFromHeader()),
	)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := connect.NewClient[ping, pong](http.DefaultClient, srv.URL+pingProcedure,
		connect.WithCodec(roomapi.JSONCodec{}),
		connect.WithInterceptors(ParticipantToHeader(func() string { return "" })),
	)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&ping{}))
	require.NoError(t, err)
	assert.Empty(t, resp.Msg.ParticipantID)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := newPingServer(t, metrics.Interceptor())
	ctx := context.Background()

	_, err := client.CallUnary(ctx, connect.NewRequest(&ping{}))
	require.NoError(t, err)
	_, err = client.CallUnary(ctx, connect.NewRequest(&ping{}))
	require.NoError(t, err)
	_, err = client.CallUnary(ctx, connect.NewRequest(&ping{Fail: true}))
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues(pingProcedure, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues(pingProcedure, "not_found")))

	metrics.RecordToggle("add")
	metrics.RecordToggle("add")
	metrics.RecordToggle("remove")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.toggles.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.toggles.WithLabelValues("remove")))
}

func TestClientFault(t *testing.T) {
	assert.True(t, clientFault(connect.CodeNotFound))
	assert.True(t, clientFault(connect.CodeFailedPrecondition))
	assert.False(t, clientFault(connect.CodeInternal))
	assert.False(t, clientFault(connect.CodeUnavailable))
}
