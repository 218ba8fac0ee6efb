// Package envelope speaks the backend event envelope: one JSON object per SSE
// frame with a "type" discriminator naming the event variant, e.g.
//
//	data: {"type":"content","text":"Hel"}
//	data: {"type":"finish","reason":"stop"}
//
// [ParseFrame] maps a frame to an [ai.Event], [FormatFrame] produces one, and
// [Provider] streams a chat through the backend's /chat/stream endpoint.
package envelope
