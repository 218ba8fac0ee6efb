package middleware

import (
	"context"

	"github.com/leofalp/directchat/providers/ai"
)

// StreamFunc streams one request through emit. It has the shape of
// ai.StreamProvider.StreamEvents and is the unit threaded through the chain.
type StreamFunc func(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error

// Middleware intercepts a stream. It receives the next StreamFunc in the chain
// and returns a StreamFunc that wraps it.
type Middleware func(next StreamFunc) StreamFunc

// Chain wraps provider with middlewares. The first middleware is the outermost
// wrapper. The returned provider keeps the name of provider.
func Chain(provider ai.StreamProvider, middlewares ...Middleware) ai.StreamProvider {
	if len(middlewares) == 0 {
		return provider
	}

	chain := StreamFunc(provider.StreamEvents)
	// Apply in reverse so that middlewares[0] is outermost.
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			chain = middlewares[i](chain)
		}
	}
	return &chained{name: provider.Name(), stream: chain}
}

type chained struct {
	name   string
	stream StreamFunc
}

func (c *chained) Name() string { return c.name }

func (c *chained) StreamEvents(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
	return c.stream(ctx, request, emit)
}
