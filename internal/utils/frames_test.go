package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestForEachFrame_StopsAtDone(t *testing.T) {
	var frames []string
	err := ForEachFrame(context.Background(), "test", strings.NewReader("data: a\n\ndata: [DONE]\n\ndata: b\n\n"), func(frame string) bool {
		frames = append(frames, frame)
		return true
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || frames[0] != "a" {
		t.Errorf("expected [a], got %q", frames)
	}
}

func TestForEachFrame_HandlerStops(t *testing.T) {
	calls := 0
	err := ForEachFrame(context.Background(), "test", strings.NewReader("data: a\n\ndata: b\n\n"), func(string) bool {
		calls++
		return false
	})
	if err != nil {
		t.Errorf("expected nil error when handler stops with live context, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestForEachFrame_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ForEachFrame(ctx, "test", strings.NewReader("data: a\n\n"), func(string) bool {
		t.Error("handler must not run after cancellation")
		return true
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReportDroppedFrame_NoObserver(t *testing.T) {
	// Must not panic without an observer or span on the context
	ReportDroppedFrame(context.Background(), "gemini", "{bad", errors.New("boom"))
}
