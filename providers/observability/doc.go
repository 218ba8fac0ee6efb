// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics collection and structured logging throughout
// directchat.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into a single injectable dependency. Callers propagate an active
// [Provider] and [Span] through a [context.Context] using [ContextWithObserver]
// and [ContextWithSpan]; they can be retrieved with [ObserverFromContext] and
// [SpanFromContext]. When nothing is attached, [Noop] is used.
//
// The slogobs subpackage provides a [log/slog] backed implementation.
package observability
