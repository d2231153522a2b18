package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func newBufferLogger(t *testing.T) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	return logEntry
}

func TestWithLogger_FromContext(t *testing.T) {
	l, buf := newBufferLogger(t)

	ctx := WithLogger(context.Background(), l)

	retrieved := FromContext(ctx)
	if retrieved == nil {
		t.Fatal("FromContext returned nil")
	}

	retrieved.Info("opened")

	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l == nil {
		t.Error("FromContext should return default logger, got nil")
	}
}

func TestContextID(t *testing.T) {
	ctx := context.Background()
	if id := ContextIDFromContext(ctx); id != "" {
		t.Errorf("ContextIDFromContext() = %q, want empty", id)
	}

	ctx = WithContextID(ctx, "01HZX3")
	if id := ContextIDFromContext(ctx); id != "01HZX3" {
		t.Errorf("ContextIDFromContext() = %q, want %q", id, "01HZX3")
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if id := RequestIDFromContext(ctx); id != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", id)
	}

	ctx = WithRequestID(ctx, "req-12345")
	if id := RequestIDFromContext(ctx); id != "req-12345" {
		t.Errorf("RequestIDFromContext() = %q, want %q", id, "req-12345")
	}
}

func TestL(t *testing.T) {
	tests := []struct {
		name      string
		contextID string
		requestID string
	}{
		{"no ids", "", ""},
		{"context id", "tab-1", ""},
		{"request id", "", "req-1"},
		{"both", "tab-1", "req-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(t)

			ctx := WithLogger(context.Background(), l)
			if tt.contextID != "" {
				ctx = WithContextID(ctx, tt.contextID)
			}
			if tt.requestID != "" {
				ctx = WithRequestID(ctx, tt.requestID)
			}

			L(ctx).Info("read")
			entry := decodeEntry(t, buf)

			checkField(t, entry, "context_id", tt.contextID)
			checkField(t, entry, "request_id", tt.requestID)
		})
	}
}

func checkField(t *testing.T, entry map[string]any, field, want string) {
	t.Helper()
	got, present := entry[field]
	if want == "" {
		if present {
			t.Errorf("%s = %v, want absent", field, got)
		}
		return
	}
	if got != want {
		t.Errorf("%s = %v, want %q", field, got, want)
	}
}

func TestContextKeyCollision(t *testing.T) {
	ctx := context.WithValue(context.Background(), "webstore.context_id", "plain-string-key")

	if id := ContextIDFromContext(ctx); id != "" {
		t.Errorf("plain string key should not collide, got %q", id)
	}
}
