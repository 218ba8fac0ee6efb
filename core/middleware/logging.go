package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per stream.
type LogLevel int

const (
	// LogLevelMinimal logs only the model name, total duration and event count.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard logs everything in Minimal plus the provider, the
	// message count and the content and reasoning sizes. This is the
	// recommended default.
	LogLevelStandard

	// LogLevelVerbose logs everything in Standard plus the latest user text
	// and the streamed answer, each truncated to 500 characters.
	//
	// WARNING: DO NOT use LogLevelVerbose in production. It logs raw prompt
	// and response text, which may contain sensitive user data.
	LogLevelVerbose
)

// truncateLen is the maximum content length included in verbose log output.
const truncateLen = 500

// NewLoggingMiddleware returns a Middleware that logs when a stream starts and
// when it ends. The logger must not be nil; use slog.Default() if you have not
// configured one.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) Middleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
			logger.InfoContext(ctx, "llm stream", buildRequestAttrs(request, level)...)

			var summary streamSummary
			start := time.Now()
			err := next(ctx, request, func(event ai.Event) bool {
				summary.observe(event)
				if !emit(event) {
					summary.abandoned = true
					return false
				}
				return true
			})
			elapsed := time.Since(start)

			switch {
			case summary.abandoned:
				logger.InfoContext(ctx, "llm stream abandoned",
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
				)
			case err != nil:
				logger.ErrorContext(ctx, "llm stream failed",
					slog.String("model", request.Model),
					slog.Duration("duration", elapsed),
					slog.Int("events", summary.events),
					slog.String("error", err.Error()),
				)
			default:
				logger.InfoContext(ctx, "llm stream completed",
					summary.attrs(request.Model, elapsed, level)...,
				)
			}
			return err
		}
	}
}

// streamSummary tallies what a stream produced.
type streamSummary struct {
	events       int
	contentLen   int
	reasoningLen int
	toolCalls    int
	content      []byte
	abandoned    bool
}

func (s *streamSummary) observe(event ai.Event) {
	s.events++
	switch e := event.(type) {
	case ai.Content:
		s.contentLen += len(e.Text)
		if len(s.content) < truncateLen {
			s.content = append(s.content, e.Text...)
		}
	case ai.Text:
		s.contentLen += len(e.Text)
	case ai.Reasoning:
		s.reasoningLen += len(e.Text)
	case ai.ToolCall:
		s.toolCalls++
	}
}

func (s *streamSummary) attrs(model string, elapsed time.Duration, level LogLevel) []any {
	attrs := []any{
		slog.String("model", model),
		slog.Duration("duration", elapsed),
		slog.Int("events", s.events),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.Int("content_bytes", s.contentLen),
			slog.Int("reasoning_bytes", s.reasoningLen),
		)
		if s.toolCalls > 0 {
			attrs = append(attrs, slog.Int("tool_calls", s.toolCalls))
		}
	}

	if level >= LogLevelVerbose && len(s.content) > 0 {
		attrs = append(attrs, slog.String("response_content", utils.TruncateString(string(s.content), truncateLen)))
	}

	return attrs
}

// buildRequestAttrs returns slog attributes for an outgoing request,
// expanding detail according to the requested verbosity level.
func buildRequestAttrs(request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{
		slog.String("model", request.Model),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs,
			slog.String("provider", request.Provider),
			slog.Int("message_count", len(request.Messages)),
		)
	}

	if level >= LogLevelVerbose {
		attrs = append(attrs,
			slog.String("last_user_text", utils.TruncateString(ai.LastUserText(request.Messages), truncateLen)),
		)
	}

	return attrs
}
