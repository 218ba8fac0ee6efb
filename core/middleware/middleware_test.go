package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
)

// ========== Mock helpers ==========

// sequenceProvider returns the next error of errs on each call, emitting
// events first when the call's error is nil or emitFirst is set.
type sequenceProvider struct {
	errs      []error
	events    []ai.Event
	emitFirst bool
	callCount int
}

func (p *sequenceProvider) Name() string { return "sequence" }

func (p *sequenceProvider) StreamEvents(_ context.Context, _ ai.ChatRequest, emit ai.Emit) error {
	index := p.callCount
	p.callCount++

	var err error
	if index < len(p.errs) {
		err = p.errs[index]
	}
	if err == nil || p.emitFirst {
		for _, event := range p.events {
			if !emit(event) {
				return nil
			}
		}
	}
	return err
}

func collectEmit(events *[]ai.Event) ai.Emit {
	return func(event ai.Event) bool {
		*events = append(*events, event)
		return true
	}
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

// ========== Chain tests ==========

func TestChain_Order(t *testing.T) {
	var order []string
	record := func(name string) Middleware {
		return func(next StreamFunc) StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
				order = append(order, name)
				return next(ctx, request, emit)
			}
		}
	}

	provider := Chain(&sequenceProvider{}, record("outer"), nil, record("inner"))
	if err := provider.StreamEvents(context.Background(), ai.ChatRequest{}, func(ai.Event) bool { return true }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("expected outer,inner, got %v", order)
	}
	if provider.Name() != "sequence" {
		t.Errorf("expected wrapped name, got %q", provider.Name())
	}
}

func TestChain_NoMiddlewareReturnsProvider(t *testing.T) {
	base := &sequenceProvider{}
	if Chain(base) != ai.StreamProvider(base) {
		t.Error("expected the provider itself")
	}
}

// ========== Retry tests ==========

func TestRetryMiddleware_RetryThenSuccess(t *testing.T) {
	provider := &sequenceProvider{
		errs:   []error{&utils.HTTPStatusError{StatusCode: 429}, nil},
		events: []ai.Event{ai.Content{Text: "ok"}},
	}

	var events []ai.Event
	err := Chain(provider, NewRetryMiddleware(fastRetry(3))).StreamEvents(context.Background(), ai.ChatRequest{}, collectEmit(&events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.callCount != 2 {
		t.Errorf("expected 2 calls, got %d", provider.callCount)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

func TestRetryMiddleware_Retryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{name: "rate limited", err: &utils.HTTPStatusError{StatusCode: 429}, wantCalls: 3},
		{name: "overloaded wrapped", err: fmt.Errorf("openai: %w", &utils.HTTPStatusError{StatusCode: 529}), wantCalls: 3},
		{name: "unauthorized", err: &utils.HTTPStatusError{StatusCode: 401}, wantCalls: 1},
		{name: "plain error", err: errors.New("bad payload"), wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &sequenceProvider{errs: []error{tt.err, tt.err, tt.err}}
			err := Chain(provider, NewRetryMiddleware(fastRetry(2))).StreamEvents(context.Background(), ai.ChatRequest{}, func(ai.Event) bool { return true })

			if provider.callCount != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, provider.callCount)
			}
			if tt.wantCalls > 1 && !errors.Is(err, ErrRetryExhausted) {
				t.Errorf("expected ErrRetryExhausted, got %v", err)
			}
			var statusErr *utils.HTTPStatusError
			if errors.As(tt.err, &statusErr) && !errors.As(err, &statusErr) {
				t.Errorf("expected status error to stay reachable, got %v", err)
			}
		})
	}
}

func TestRetryMiddleware_NoRetryAfterFirstEvent(t *testing.T) {
	provider := &sequenceProvider{
		errs:      []error{&utils.HTTPStatusError{StatusCode: 503}, nil},
		events:    []ai.Event{ai.Content{Text: "partial"}},
		emitFirst: true,
	}

	var events []ai.Event
	err := Chain(provider, NewRetryMiddleware(fastRetry(3))).StreamEvents(context.Background(), ai.ChatRequest{}, collectEmit(&events))

	var statusErr *utils.HTTPStatusError
	if !errors.As(err, &statusErr) || errors.Is(err, ErrRetryExhausted) {
		t.Errorf("expected the original status error, got %v", err)
	}
	if provider.callCount != 1 {
		t.Errorf("expected 1 call, got %d", provider.callCount)
	}
}

func TestRetryMiddleware_ContextCancelledDuringBackoff(t *testing.T) {
	provider := &sequenceProvider{errs: []error{&utils.HTTPStatusError{StatusCode: 500}, nil}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	middleware := NewRetryMiddleware(RetryConfig{MaxRetries: 1, InitialBackoff: time.Second})
	err := Chain(provider, middleware).StreamEvents(ctx, ai.ChatRequest{}, func(ai.Event) bool { return true })

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if provider.callCount != 1 {
		t.Errorf("expected 1 call, got %d", provider.callCount)
	}
}

func TestRetryConfig_BackoffCapped(t *testing.T) {
	config := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffFactor: 2, JitterFraction: 0.1}

	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second} {
		got := config.backoff(attempt)
		if got < base || got > base+base/10 {
			t.Errorf("attempt %d: expected backoff in [%s, %s], got %s", attempt, base, base+base/10, got)
		}
	}
}

// ========== Timeout tests ==========

// slowProvider emits one event per tick until ctx is done or count is reached.
type slowProvider struct {
	tick  time.Duration
	count int
	delay time.Duration
}

func (p *slowProvider) Name() string { return "slow" }

func (p *slowProvider) StreamEvents(ctx context.Context, _ ai.ChatRequest, emit ai.Emit) error {
	wait := func(d time.Duration) error {
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := wait(p.delay); err != nil {
		return err
	}
	for i := 0; i < p.count; i++ {
		if err := wait(p.tick); err != nil {
			return err
		}
		if !emit(ai.Content{Text: "x"}) {
			return nil
		}
	}
	return nil
}

func TestTimeoutMiddleware(t *testing.T) {
	fast := &slowProvider{tick: time.Millisecond, count: 2}
	if err := Chain(fast, NewTimeoutMiddleware(time.Second)).StreamEvents(context.Background(), ai.ChatRequest{}, func(ai.Event) bool { return true }); err != nil {
		t.Errorf("expected fast stream to complete, got %v", err)
	}

	slow := &slowProvider{tick: 20 * time.Millisecond, count: 10}
	err := Chain(slow, NewTimeoutMiddleware(50*time.Millisecond)).StreamEvents(context.Background(), ai.ChatRequest{}, func(ai.Event) bool { return true })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestIdleTimeoutMiddleware(t *testing.T) {
	// Steady events reset the clock even though the total exceeds idle.
	steady := &slowProvider{tick: 10 * time.Millisecond, count: 10}
	if err := Chain(steady, NewIdleTimeoutMiddleware(80*time.Millisecond)).StreamEvents(context.Background(), ai.ChatRequest{}, func(ai.Event) bool { return true }); err != nil {
		t.Errorf("expected steady stream to complete, got %v", err)
	}

	stalled := &slowProvider{delay: time.Second, count: 1}
	err := Chain(stalled, NewIdleTimeoutMiddleware(20*time.Millisecond)).StreamEvents(context.Background(), ai.ChatRequest{}, func(ai.Event) bool { return true })
	if !errors.Is(err, ErrIdleTimeout) {
		t.Errorf("expected ErrIdleTimeout, got %v", err)
	}
}

// ========== Logging tests ==========

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		records = append(records, record)
	}
	return records
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		err      error
		wantMsg  string
		wantKeys []string
		noKeys   []string
	}{
		{name: "minimal", level: LogLevelMinimal, wantMsg: "llm stream completed", wantKeys: []string{"events", "duration"}, noKeys: []string{"content_bytes"}},
		{name: "standard", level: LogLevelStandard, wantMsg: "llm stream completed", wantKeys: []string{"content_bytes", "reasoning_bytes"}, noKeys: []string{"response_content"}},
		{name: "verbose", level: LogLevelVerbose, wantMsg: "llm stream completed", wantKeys: []string{"response_content"}},
		{name: "failed", level: LogLevelStandard, err: errors.New("boom"), wantMsg: "llm stream failed", wantKeys: []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			provider := &sequenceProvider{
				errs:      []error{tt.err},
				events:    []ai.Event{ai.Reasoning{Text: "r"}, ai.Content{Text: "answer"}},
				emitFirst: true,
			}

			request := ai.ChatRequest{Model: "m", Messages: []ai.Message{{Role: ai.RoleUser, Content: "q"}}}
			_ = Chain(provider, NewLoggingMiddleware(logger, tt.level)).StreamEvents(context.Background(), request, func(ai.Event) bool { return true })

			records := decodeLogLines(t, &buf)
			if len(records) != 2 {
				t.Fatalf("expected 2 log records, got %d", len(records))
			}
			last := records[1]
			if last["msg"] != tt.wantMsg {
				t.Errorf("expected %q, got %v", tt.wantMsg, last["msg"])
			}
			for _, key := range tt.wantKeys {
				if _, ok := last[key]; !ok {
					t.Errorf("expected key %q in %v", key, last)
				}
			}
			for _, key := range tt.noKeys {
				if _, ok := last[key]; ok {
					t.Errorf("expected no key %q in %v", key, last)
				}
			}
		})
	}
}

func TestLoggingMiddleware_Abandoned(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	provider := &sequenceProvider{events: []ai.Event{ai.Content{Text: "a"}, ai.Content{Text: "b"}}}

	_ = Chain(provider, NewLoggingMiddleware(logger, LogLevelMinimal)).StreamEvents(context.Background(), ai.ChatRequest{}, func(ai.Event) bool { return false })

	records := decodeLogLines(t, &buf)
	if records[len(records)-1]["msg"] != "llm stream abandoned" {
		t.Errorf("expected abandoned record, got %v", records[len(records)-1])
	}
}
