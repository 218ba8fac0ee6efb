// Package dispatch is the entry point of the streaming engine.
//
// A [Dispatcher] applies default-provider overrides, folds attachments into
// the conversation, injects the system prompt and, for hosts without native
// search, web results. It then classifies the request with [Classify] and
// drives the selected wire adapter on a single producer goroutine that feeds
// a bounded channel.
//
// The dispatcher owns the terminal events. A successful stream ends with
// StreamEnd and Finish("stop"); an HTTP error status ends with Error carrying
// the status and Finish("api_error"); any other adapter failure ends with
// Error and Finish("direct_connection_failed"). Cancellation closes the
// stream silently.
package dispatch
