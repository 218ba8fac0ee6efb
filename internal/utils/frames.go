package utils

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/leofalp/directchat/providers/observability"
)

// ForEachFrame reads SSE frames from body and passes each to handle, in order,
// until the stream ends, handle returns false, or ctx is done. A frame above
// the size cap is reported as dropped for adapter and reading continues.
//
// It returns nil when the stream ended or handle stopped the loop with ctx
// still live, ctx.Err() when the context was cancelled, and a wrapped error
// when reading failed.
func ForEachFrame(ctx context.Context, adapter string, body io.Reader, handle func(frame string) bool) error {
	scanner := NewSSEScanner(body)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := scanner.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, ErrFrameTooLarge) {
			ReportDroppedFrame(ctx, adapter, "", err)
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("stream read error: %w", err)
		}

		if !handle(frame) {
			return ctx.Err()
		}
	}
}

// ReportDroppedFrame logs a frame that could not be decoded and counts it.
// The stream continues.
func ReportDroppedFrame(ctx context.Context, adapter string, frame string, err error) {
	observer := observability.ObserverFromContext(ctx)
	observer.Warn(ctx, "dropping undecodable stream frame",
		observability.String(observability.AttrLLMProvider, adapter),
		observability.String(observability.AttrStreamFrame, TruncateString(frame, 200)),
		observability.Error(err),
	)
	observer.Counter(observability.MetricFramesDropped).Add(ctx, 1,
		observability.String(observability.AttrLLMProvider, adapter),
	)
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent(observability.EventFrameDropped, observability.Error(err))
	}
}
