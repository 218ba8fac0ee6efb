// Package middleware provides wrappers around [ai.StreamProvider]. Each
// middleware is a [Middleware] value; [Chain] applies a list of them to a
// provider.
//
// # Available Middleware
//
//   - [NewRetryMiddleware]: Retries a stream that failed before producing any
//     event, with exponential backoff and jitter. Useful for transient HTTP
//     429 / 5xx responses and refused connections.
//
//   - [NewTimeoutMiddleware]: Bounds the whole lifetime of a stream.
//
//   - [NewIdleTimeoutMiddleware]: Aborts a stream that goes silent for too
//     long between two events.
//
//   - [NewLoggingMiddleware]: Emits structured slog entries when a stream
//     starts and ends, with three verbosity levels (Minimal, Standard, Verbose).
//
// # Usage
//
//	provider := middleware.Chain(openai.New(),
//	    middleware.NewTimeoutMiddleware(5*time.Minute),
//	    middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 2}),
//	    middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	)
//
// Middlewares execute outermost-first: the first entry is the outermost
// wrapper. In the example above a stream travels:
//
//	Timeout → Retry → Logging → Provider
package middleware
