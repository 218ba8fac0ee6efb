package openai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leofalp/directchat/providers/ai"
)

// qwenFileIDPrefix is how DashScope references an uploaded document from a
// system message.
const qwenFileIDPrefix = "fileid://"

// audioFormats maps audio MIME types to the short input_audio format names.
var audioFormats = map[string]string{
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
	"audio/ogg":   "ogg",
	"audio/webm":  "webm",
	"audio/aac":   "aac",
	"audio/flac":  "flac",
	"audio/mp4":   "m4a",
	"audio/m4a":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/amr":   "amr",
	"audio/3gpp":  "3gp",
}

// versionSegment matches API version path segments such as v1, v3 or v1beta.
var versionSegment = regexp.MustCompile(`^v\d+([a-z]+\d*)?$`)

// buildRequest converts request into the chat-completions payload.
func buildRequest(request ai.ChatRequest) chatCompletionRequest {
	payload := chatCompletionRequest{
		Model:    request.Model,
		Stream:   true,
		Messages: buildMessages(request.Messages),
	}

	if config := request.GenerationConfig; config != nil {
		payload.Temperature = config.Temperature
		payload.TopP = config.TopP
		payload.MaxTokens = config.MaxOutputTokens
	}

	payload.extensions = buildExtensions(request)
	return payload
}

// buildMessages converts messages in order. DashScope file id markers are
// pulled out of their messages and emitted as one run of fileid:// system
// messages right after the first system message, or at the front when there
// is none.
func buildMessages(messages []ai.Message) []chatMessage {
	converted := make([]chatMessage, 0, len(messages))
	var fileIDs []string
	firstSystem := -1

	for _, message := range messages {
		chatMsg, ids, ok := convertMessage(message)
		fileIDs = append(fileIDs, ids...)
		if !ok {
			continue
		}
		if firstSystem < 0 && message.Role == ai.RoleSystem {
			firstSystem = len(converted)
		}
		converted = append(converted, chatMsg)
	}

	if len(fileIDs) == 0 {
		return converted
	}

	fileMessages := make([]chatMessage, 0, len(fileIDs))
	for _, id := range fileIDs {
		fileMessages = append(fileMessages, chatMessage{
			Role:    string(ai.RoleSystem),
			Content: qwenFileIDPrefix + id,
		})
	}

	insertAt := firstSystem + 1
	result := make([]chatMessage, 0, len(converted)+len(fileMessages))
	result = append(result, converted[:insertAt]...)
	result = append(result, fileMessages...)
	result = append(result, converted[insertAt:]...)
	return result
}

// convertMessage returns the wire message and the DashScope file ids it
// carried. ok is false when nothing but file ids was left.
func convertMessage(message ai.Message) (chatMessage, []string, bool) {
	role := string(message.Role)
	if !message.HasParts() {
		return chatMessage{Role: role, Content: message.Content}, nil, true
	}

	var fileIDs []string
	var parts []ai.ContentPart
	for _, part := range message.Parts {
		if part.IsQwenFileID() {
			fileIDs = append(fileIDs, part.URI)
			continue
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return chatMessage{}, fileIDs, false
	}

	if (ai.Message{Parts: parts}).IsPureText() {
		return chatMessage{Role: role, Content: ai.Message{Parts: parts}.TextContent()}, fileIDs, true
	}

	wireParts := make([]contentPart, 0, len(parts))
	for _, part := range parts {
		if converted, ok := convertPart(part); ok {
			wireParts = append(wireParts, converted)
		}
	}
	return chatMessage{Role: role, Content: wireParts}, fileIDs, true
}

func convertPart(part ai.ContentPart) (contentPart, bool) {
	switch part.Type {
	case ai.PartText:
		return contentPart{Type: partTypeText, Text: part.Text}, true

	case ai.PartInlineData:
		if strings.HasPrefix(part.MimeType, "audio/") {
			return contentPart{
				Type:       partTypeInputAudio,
				InputAudio: &inputAudio{Data: part.Base64Data, Format: mimeTypeToAudioFormat(part.MimeType)},
			}, true
		}
		return contentPart{
			Type:     partTypeImageURL,
			ImageURL: &imageURL{URL: buildDataURL(part.MimeType, part.Base64Data)},
		}, true

	case ai.PartFileURI:
		if strings.HasPrefix(part.MimeType, "image/") && isRemoteURI(part.URI) {
			return contentPart{Type: partTypeImageURL, ImageURL: &imageURL{URL: part.URI}}, true
		}
		return contentPart{Type: partTypeText, Text: fmt.Sprintf("[File: %s (%s)]", part.URI, part.MimeType)}, true
	}
	return contentPart{}, false
}

// mimeTypeToAudioFormat returns the input_audio format for mimeType, falling
// back to the MIME subtype.
func mimeTypeToAudioFormat(mimeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if index := strings.Index(normalized, ";"); index >= 0 {
		normalized = strings.TrimSpace(normalized[:index])
	}
	if format, ok := audioFormats[normalized]; ok {
		return format
	}
	if _, subtype, found := strings.Cut(normalized, "/"); found && subtype != "" {
		return subtype
	}
	return normalized
}

func buildDataURL(mimeType, base64Data string) string {
	if mimeType == "" {
		mimeType = ai.DefaultInlineMimeType
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}

func isRemoteURI(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}

// buildExtensions returns the vendor keys merged into the payload. Hosts are
// recognized by substring matches on channel, model and address, so an
// unusual naming scheme may miss its extension.
func buildExtensions(request ai.ChatRequest) map[string]any {
	extensions := map[string]any{}

	if request.UseWebSearch && isGeminiCompatible(request) {
		extensions["extra_body"] = map[string]any{
			"google": map[string]any{
				"tools": []any{map[string]any{"google_search": map[string]any{}}},
			},
		}
	}

	if request.QwenEnableSearch && isQwen(request) {
		extensions["enable_search"] = true
		extensions["search_options"] = map[string]any{
			"forced_search":   false,
			"search_strategy": "pro",
		}
	}

	for key, value := range request.CustomExtraBody {
		extensions[key] = value
	}

	if len(extensions) == 0 {
		return nil
	}
	return extensions
}

func isGeminiCompatible(request ai.ChatRequest) bool {
	return strings.Contains(strings.ToLower(request.Channel), "gemini") ||
		strings.Contains(strings.ToLower(request.Model), "gemini")
}

func isQwen(request ai.ChatRequest) bool {
	return strings.Contains(strings.ToLower(request.Model), "qwen") ||
		strings.Contains(strings.ToLower(request.Channel), "qwen") ||
		strings.Contains(strings.ToLower(request.APIAddress), "dashscope")
}

// buildChatURL resolves the chat-completions endpoint for baseURL:
//   - a base already ending in /chat/completions is used as is;
//   - a base whose path carries a version segment (/v1, /v3, /v1beta/openai)
//     gets /chat/completions;
//   - anything else gets /v1/chat/completions.
func buildChatURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}

	path := base
	if index := strings.Index(path, "://"); index >= 0 {
		path = path[index+3:]
	}
	segments := strings.Split(path, "/")
	for _, segment := range segments[1:] {
		if versionSegment.MatchString(segment) {
			return base + "/chat/completions"
		}
	}
	return base + "/v1/chat/completions"
}
