package openai

import "encoding/json"

/*
	##### REQUEST #####
*/

// chatCompletionRequest is the streaming chat-completions payload. Vendor
// extensions (extra_body, enable_search, custom keys) are not struct fields;
// they are merged into the encoded object by MarshalJSON.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`

	extensions map[string]any
}

// MarshalJSON encodes the typed fields and then overlays the extensions, so
// an extension key replaces a typed field of the same name.
func (request chatCompletionRequest) MarshalJSON() ([]byte, error) {
	type plain chatCompletionRequest
	encoded, err := json.Marshal(plain(request))
	if err != nil {
		return nil, err
	}
	if len(request.extensions) == 0 {
		return encoded, nil
	}

	merged := map[string]any{}
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, err
	}
	for key, value := range request.extensions {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// chatMessage is one conversation turn. Content is either a string or a
// []contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Content part types of the chat-completions API.
const (
	partTypeText       = "text"
	partTypeImageURL   = "image_url"
	partTypeInputAudio = "input_audio"
)

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	ImageURL   *imageURL   `json:"image_url,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

/*
	##### STREAM CHUNK #####
*/

// streamChunk is one SSE frame of a chat-completions stream.
type streamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []streamChoice `json:"choices"`
	Error   *chunkError    `json:"error,omitempty"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// streamDelta carries the incremental fields of a choice. Hosts disagree on
// the name of the reasoning field, so all known spellings are decoded.
type streamDelta struct {
	Role             string               `json:"role,omitempty"`
	Content          *string              `json:"content,omitempty"`
	ReasoningContent *string              `json:"reasoning_content,omitempty"`
	Reasoning        *string              `json:"reasoning,omitempty"`
	Thinking         *string              `json:"thinking,omitempty"`
	Thoughts         *string              `json:"thoughts,omitempty"`
	ToolCalls        []streamToolCallPart `json:"tool_calls,omitempty"`
}

// streamToolCallPart is a fragment of a tool call. Fragments of one call share
// Index; ID and Name usually arrive only in the first fragment.
type streamToolCallPart struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// chunkError is the in-band error object some hosts send instead of a
// non-2xx status once the stream is open.
type chunkError struct {
	Message string          `json:"message"`
	Type    string          `json:"type,omitempty"`
	Code    json.RawMessage `json:"code,omitempty"`
}

/*
	##### FILE UPLOAD #####
*/

// uploadResponse is the DashScope file upload result.
type uploadResponse struct {
	ID       string `json:"id"`
	Object   string `json:"object,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
	Filename string `json:"filename,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
}
