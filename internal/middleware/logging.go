package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, participant ID, duration, and any error codes/messages.
// Client-caused failures are logged at WARN and everything else at ERROR.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			participantID := GetParticipantID(ctx) // empty before joining

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) && clientFault(connectErr.Code()) {
					slog.Warn("RPC error",
						"procedure", procedure,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"participant_id", participantID,
						"duration_ms", duration,
					)
				} else {
					slog.Error("RPC error",
						"procedure", procedure,
						"code", connect.CodeOf(err),
						"error", err,
						"participant_id", participantID,
						"duration_ms", duration,
					)
				}
			} else {
				slog.Debug("RPC ok",
					"procedure", procedure,
					"participant_id", participantID,
					"duration_ms", duration,
				)
			}

			return resp, err
		}
	}
}

func clientFault(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeFailedPrecondition,
		connect.CodePermissionDenied, connect.CodeAborted, connect.CodeCanceled:
		return true
	}
	return false
}
