package obs

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTimeCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core).Sugar()

	ctx := WithRequestID(context.Background(), "req-42")
	Time(ctx, log, "unit.op")(nil)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["req_id"] != "req-42" {
		t.Fatalf("req_id = %v, want %q", fields["req_id"], "req-42")
	}
	if fields["op"] != "unit.op" {
		t.Fatalf("op = %v, want %q", fields["op"], "unit.op")
	}
}

func TestTimeLogsFailureWithError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core).Sugar()

	err := errors.New("boom")
	Time(context.Background(), log, "unit.op")(&err)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Message != "op failed" {
		t.Fatalf("message = %q, want %q", entries[0].Message, "op failed")
	}
	if entries[0].ContextMap()["req_id"] != "" {
		t.Fatalf("req_id = %v, want empty outside a request", entries[0].ContextMap()["req_id"])
	}
}

func TestRequestIDFromUntaggedContext(t *testing.T) {
	if id := RequestIDFrom(context.Background()); id != "" {
		t.Fatalf("id = %q, want empty", id)
	}
}
