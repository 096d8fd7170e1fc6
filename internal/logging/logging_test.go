package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNew_DefaultLevel(t *testing.T) {
	logger := New("", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
}

func TestNew_DebugLevel(t *testing.T) {
	logger := New("debug", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestNew_ErrorLevel(t *testing.T) {
	logger := New("error", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be disabled at error level")
	}
}

func TestNew_JSONFormat(t *testing.T) {
	logger := New("info", "json")
	if logger == nil {
		t.Fatal("Expected non-nil logger for JSON format")
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := RequestID(ctx); got != "" {
		t.Errorf("Expected empty request ID, got %q", got)
	}

	ctx = WithRequestID(ctx, "req_123")
	if got := RequestID(ctx); got != "req_123" {
		t.Errorf("Expected req_123, got %q", got)
	}
}

func TestL_AttachesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_456")
	ctx = WithLogger(ctx, New("info", "text"))

	if logger := L(ctx); logger == nil {
		t.Fatal("Expected non-nil logger")
	}
}

func TestFromContext_Fallback(t *testing.T) {
	if logger := FromContext(context.Background()); logger == nil {
		t.Fatal("Expected default logger when none in context")
	}
}
