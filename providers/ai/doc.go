// Package ai defines the provider-agnostic vocabulary of the streaming engine:
// the sealed [Event] union every wire adapter emits, the [ChatRequest] and
// [Message] input model, and [EventStream], the bounded, ordered channel a
// caller drains.
//
// Wire adapters implement [StreamProvider]. They receive an [Emit] callback
// that applies backpressure and reports cancellation, so a producer never
// sends concurrently and arrival order is preserved exactly.
package ai
