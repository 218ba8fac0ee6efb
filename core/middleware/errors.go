package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when every attempt
// failed before producing an event. The last provider error is wrapped too, so
// callers can use [errors.Is] / [errors.As] on either.
var ErrRetryExhausted = errors.New("directchat: all retry attempts exhausted")

// ErrIdleTimeout is the cause attached to a stream aborted by the idle timeout
// middleware.
var ErrIdleTimeout = errors.New("directchat: stream idle timeout")
