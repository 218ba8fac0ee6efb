package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest is the per-call input of a streaming chat. It is built by the
// caller, rewritten by the dispatcher's preprocessors, and discarded once the
// stream completes.
type ChatRequest struct {
	Messages         []Message         `json:"messages"`
	Provider         string            `json:"provider"`                   // e.g. "gemini", "openai", or the default sentinel
	Channel          string            `json:"channel,omitempty"`          // Routing hint, e.g. "gemini", "openai-compatible"
	Model            string            `json:"model"`                      // Model name or identifier
	APIAddress       string            `json:"apiAddress,omitempty"`       // Base URL of the upstream API
	APIKey           string            `json:"apiKey,omitempty"`           // Upstream credential
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"` // Optional sampling configuration

	UseWebSearch        bool           `json:"useWebSearch,omitempty"`
	EnableCodeExecution bool           `json:"enableCodeExecution,omitempty"`
	QwenEnableSearch    bool           `json:"qwenEnableSearch,omitempty"`
	CustomExtraBody     map[string]any `json:"customExtraBody,omitempty"` // Merged verbatim into OpenAI-compatible payloads

	ForceSystemPrompt bool `json:"forceSystemPrompt,omitempty"` // Inject the render-safety prompt even when a system message exists
}

// GenerationConfig holds sampling parameters forwarded to the upstream model.
type GenerationConfig struct {
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"topP,omitempty"`
	MaxOutputTokens *int            `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// ThinkingConfig controls model reasoning output.
type ThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
	ThinkingBudget  *int `json:"thinkingBudget,omitempty"`
}

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions/configuration
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
)

// Message is a single conversation turn. A message is either simple text
// (Content set, Parts empty) or multimodal (Parts set). HasParts reports which.
type Message struct {
	Role    MessageRole   `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`
}

// ContentPartType tags the payload carried by a ContentPart.
type ContentPartType string

const (
	PartText       ContentPartType = "text"
	PartInlineData ContentPartType = "inline_data"
	PartFileURI    ContentPartType = "file_uri"
)

// QwenFileIDMimeType marks a FileURI part whose URI is a DashScope file id.
// Such parts are a provider-private marker, not renderable content.
const QwenFileIDMimeType = "qwen-file-id"

// DefaultInlineMimeType is used when inline data is created without a type.
const DefaultInlineMimeType = "application/octet-stream"

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	Type       ContentPartType `json:"type"`
	Text       string          `json:"text,omitempty"`       // Type == PartText
	Base64Data string          `json:"base64Data,omitempty"` // Type == PartInlineData
	URI        string          `json:"uri,omitempty"`        // Type == PartFileURI
	MimeType   string          `json:"mimeType,omitempty"`   // PartInlineData and PartFileURI
}

// NewTextPart returns a text content part.
func NewTextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// NewInlineDataPart returns an inline (base64) content part. A blank MIME type
// is replaced with DefaultInlineMimeType.
func NewInlineDataPart(base64Data, mimeType string) ContentPart {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = DefaultInlineMimeType
	}
	return ContentPart{Type: PartInlineData, Base64Data: base64Data, MimeType: mimeType}
}

// NewFileURIPart returns a URI-referenced content part.
func NewFileURIPart(uri, mimeType string) ContentPart {
	return ContentPart{Type: PartFileURI, URI: uri, MimeType: mimeType}
}

// IsQwenFileID reports whether the part is a DashScope file id marker.
func (part ContentPart) IsQwenFileID() bool {
	return part.Type == PartFileURI && part.MimeType == QwenFileIDMimeType
}

// HasParts reports whether the message uses the multimodal representation.
func (message Message) HasParts() bool {
	return len(message.Parts) > 0
}

// TextContent returns the concatenated text of the message, ignoring media.
func (message Message) TextContent() string {
	if !message.HasParts() {
		return message.Content
	}
	var texts []string
	for _, part := range message.Parts {
		if part.Type == PartText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// IsPureText reports whether the message carries only text and can be
// flattened into a bare string.
func (message Message) IsPureText() bool {
	for _, part := range message.Parts {
		if part.Type != PartText {
			return false
		}
	}
	return true
}

// ToParts returns the message content in the multimodal representation.
func (message Message) ToParts() []ContentPart {
	if message.HasParts() {
		return message.Parts
	}
	if message.Content == "" {
		return nil
	}
	return []ContentPart{NewTextPart(message.Content)}
}

// LastUserIndex returns the index of the most recent user message, or -1.
func LastUserIndex(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// LastUserText returns the text of the most recent user message.
func LastUserText(messages []Message) string {
	index := LastUserIndex(messages)
	if index < 0 {
		return ""
	}
	return messages[index].TextContent()
}

// DocumentHeaderPrefix opens the delimited text of an attached document
// folded into a user message.
const DocumentHeaderPrefix = "--- Document: "

// LastUserQuestion returns what the user typed in the most recent user
// message. Text parts holding attached documents are left out.
func LastUserQuestion(messages []Message) string {
	index := LastUserIndex(messages)
	if index < 0 {
		return ""
	}
	message := messages[index]
	if !message.HasParts() {
		return message.Content
	}
	var texts []string
	for _, part := range message.Parts {
		if part.Type != PartText || part.Text == "" || strings.HasPrefix(part.Text, DocumentHeaderPrefix) {
			continue
		}
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, "\n")
}

// ErrNoMessages is returned by Validate for a request without messages.
var ErrNoMessages = errors.New("request has no messages")

// Validate checks the request for configuration that would make a network
// call pointless. All problems are reported together.
func (request ChatRequest) Validate() error {
	var result *multierror.Error

	if len(request.Messages) == 0 {
		result = multierror.Append(result, ErrNoMessages)
	}
	if strings.TrimSpace(request.Model) == "" && !IsDefaultProvider(request.Provider) {
		result = multierror.Append(result, errors.New("model is not set"))
	}
	if strings.TrimSpace(request.APIKey) == "" && !IsDefaultProvider(request.Provider) {
		result = multierror.Append(result, errors.New("API key is not set"))
	}
	for i, message := range request.Messages {
		for j, part := range message.Parts {
			if part.Type == PartInlineData && strings.TrimSpace(part.MimeType) == "" {
				result = multierror.Append(result, fmt.Errorf("message %d part %d: inline data without MIME type", i, j))
			}
		}
	}

	return result.ErrorOrNil()
}

// DefaultProviderSentinels are the provider names that select the built-in
// default endpoint and credentials.
var DefaultProviderSentinels = []string{"默认", "default"}

// IsDefaultProvider reports whether provider is the default sentinel.
func IsDefaultProvider(provider string) bool {
	trimmed := strings.TrimSpace(provider)
	for _, sentinel := range DefaultProviderSentinels {
		if strings.EqualFold(trimmed, sentinel) {
			return true
		}
	}
	return false
}
