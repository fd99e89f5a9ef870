package middleware

import (
	"context"

	"connectrpc.com/connect"
)

// ParticipantHeader carries the caller's participant ID. It identifies the
// caller in logs and metrics only; rooms are not access controlled.
const ParticipantHeader = "X-Participant-Id"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ParticipantIDKey is the context key for the caller's participant ID.
const ParticipantIDKey contextKey = "participant_id"

// GetParticipantID extracts the participant ID from the context.
// Returns empty string if not found.
func GetParticipantID(ctx context.Context) string {
	id, _ := ctx.Value(ParticipantIDKey).(string)
	return id
}

// ParticipantFromHeader returns a server interceptor that copies the
// participant header into the request context.
func ParticipantFromHeader() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if id := req.Header().Get(ParticipantHeader); id != "" {
				ctx = context.WithValue(ctx, ParticipantIDKey, id)
			}
			return next(ctx, req)
		}
	}
}

// ParticipantToHeader returns a client interceptor that stamps outgoing
// requests with the ID reported by viewer. Nothing is sent while viewer
// returns an empty string.
func ParticipantToHeader(viewer func() string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				if id := viewer(); id != "" {
					req.Header().Set(ParticipantHeader, id)
				}
			}
			return next(ctx, req)
		}
	}
}
