package observability

// Attribute, span and metric names shared by the adapters and the dispatcher.

// --- Stream Attributes ---

const (
	// AttrLLMProvider is the adapter name (e.g., "gemini", "openai", "backend")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL, with credentials redacted
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMFinishReason is the reason carried by the terminal Finish event
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrStreamMode is "direct" or "proxy"
	AttrStreamMode = "stream.mode"

	// AttrStreamMessageID is the id carried by StreamEnd
	AttrStreamMessageID = "stream.message_id"

	// AttrStreamEvents is the number of events emitted for one stream
	AttrStreamEvents = "stream.events"

	// AttrStreamFrame is a truncated preview of a dropped frame
	AttrStreamFrame = "stream.frame"

	// AttrRequestMessagesCount is the number of messages in the request
	AttrRequestMessagesCount = "request.messages_count"

	// AttrWebSearchQuery is the query sent to the search backend
	AttrWebSearchQuery = "websearch.query"

	// AttrWebSearchResults is the number of search results kept
	AttrWebSearchResults = "websearch.results"
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanLLMRequest covers one normalized chat stream from dispatch to Finish
	SpanLLMRequest = "llm.request"

	// SpanWebSearch covers the pre-request web search
	SpanWebSearch = "websearch.query"

	// SpanFileUpload covers one Qwen file upload
	SpanFileUpload = "qwen.file_upload"
)

// --- Event Names ---

const (
	EventFrameDropped   = "stream.frame.dropped"
	EventFrameRepaired  = "stream.frame.repaired"
	EventStreamFinished = "stream.finished"
)

// --- Metric Names ---

const (
	// MetricStreamCount counts dispatched streams
	MetricStreamCount = "directchat.stream.count"

	// MetricStreamDuration is the histogram for stream duration in milliseconds
	MetricStreamDuration = "directchat.stream.duration"

	// MetricFramesDropped counts frames that could not be decoded
	MetricFramesDropped = "directchat.stream.frames.dropped"

	// MetricStreamErrors counts streams that ended with an Error event
	MetricStreamErrors = "directchat.stream.errors"
)
