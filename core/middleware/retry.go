package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
)

// RetryConfig tunes the retry middleware. Zero fields take the defaults noted
// on each field.
type RetryConfig struct {
	// MaxRetries bounds the attempts after the first one. Default 3, so the
	// provider is called at most four times.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps every wait. Default 30s.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait after each retry. Default 2.
	BackoffFactor float64

	// JitterFraction adds up to this share of the wait as random noise.
	// Default 0.1.
	JitterFraction float64

	// RetryableFunc decides whether an error is transient. The default
	// accepts HTTP 429, 500, 502, 503 and 529 and network errors.
	RetryableFunc func(error) bool
}

// retryableStatuses are the upstream statuses treated as transient.
var retryableStatuses = map[int]bool{429: true, 500: true, 502: true, 503: true, 529: true}

func defaultRetryable(err error) bool {
	var statusErr *utils.HTTPStatusError
	if errors.As(err, &statusErr) {
		return retryableStatuses[statusErr.StatusCode]
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2
	}
	if c.JitterFraction == 0 {
		c.JitterFraction = 0.1
	}
	if c.RetryableFunc == nil {
		c.RetryableFunc = defaultRetryable
	}
	return c
}

// backoff returns the wait before retry number attempt+1:
// min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) plus jitter.
func (c RetryConfig) backoff(attempt int) time.Duration {
	wait := math.Min(float64(c.InitialBackoff)*math.Pow(c.BackoffFactor, float64(attempt)), float64(c.MaxBackoff))
	return time.Duration(wait + wait*c.JitterFraction*rand.Float64()) //nolint:gosec // jitter needs no crypto
}

// NewRetryMiddleware returns a Middleware that retries a failed stream with
// exponential backoff.
//
// Only failures that happen before the first event are retried. Once an event
// has reached the consumer the error is returned as-is.
//
// On exhaustion the returned error wraps both [ErrRetryExhausted] and the last
// provider error.
func NewRetryMiddleware(config RetryConfig) Middleware {
	config = config.withDefaults()

	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
			var lastErr error
			for attempt := 0; attempt <= config.MaxRetries; attempt++ {
				if attempt > 0 {
					timer := time.NewTimer(config.backoff(attempt - 1))
					select {
					case <-ctx.Done():
						timer.Stop()
						return ctx.Err()
					case <-timer.C:
					}
				}

				emitted := false
				err := next(ctx, request, func(event ai.Event) bool {
					emitted = true
					return emit(event)
				})
				if err == nil || emitted || ctx.Err() != nil {
					return err
				}

				lastErr = err
				if !config.RetryableFunc(err) {
					return err
				}
			}

			return fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
		}
	}
}
