package ai

import "context"

// StreamProvider is implemented by every wire adapter. A provider translates
// one ChatRequest into an upstream streaming call and reports what it reads
// through emit, in arrival order.
//
// Providers never emit Finish for a direct-connect stream: the dispatcher owns
// the terminal event. A provider returns nil when the upstream finished
// normally, the context error when emit reported cancellation, and any other
// error for transport or protocol failures.
type StreamProvider interface {
	// StreamEvents performs the call and blocks until the upstream stream is
	// exhausted, the context is cancelled, or a fatal error occurs.
	StreamEvents(ctx context.Context, request ChatRequest, emit Emit) error

	// Name identifies the provider in logs and spans.
	Name() string
}
