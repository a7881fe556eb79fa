package obs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type ctxKey struct{}

var requestIDKey ctxKey

// WithRequestID tags the context so every op timed under it carries the
// request id. The HTTP middleware calls this with the router's id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the tagged request id, or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Time logs the duration and outcome of an operation when the returned
// function runs (typically deferred with a pointer to the named error).
func Time(ctx context.Context, log *zap.SugaredLogger, name string) func(errp *error) {
	start := time.Now()

	reqID := RequestIDFrom(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Warnw("op failed", "req_id", reqID, "op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
			return
		}
		log.Debugw("op done", "req_id", reqID, "op", name, "dur_ms", dur.Milliseconds())
	}
}
