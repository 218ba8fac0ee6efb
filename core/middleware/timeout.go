package middleware

import (
	"context"
	"time"

	"github.com/leofalp/directchat/providers/ai"
)

// NewTimeoutMiddleware returns a Middleware that bounds the whole lifetime of a
// stream, from the request until the last event. A shorter deadline already
// on the caller's context still wins.
func NewTimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request, emit)
		}
	}
}

// NewIdleTimeoutMiddleware returns a Middleware that aborts a stream when no
// event arrives for idle. The clock starts with the request, so it also bounds
// the time to the first event. An aborted stream returns [ErrIdleTimeout].
func NewIdleTimeoutMiddleware(idle time.Duration) Middleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)

			timer := time.AfterFunc(idle, func() { cancel(ErrIdleTimeout) })
			defer timer.Stop()

			err := next(ctx, request, func(event ai.Event) bool {
				timer.Reset(idle)
				return emit(event)
			})
			if err != nil && context.Cause(ctx) == ErrIdleTimeout {
				return ErrIdleTimeout
			}
			return err
		}
	}
}
