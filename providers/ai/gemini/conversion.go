package gemini

import (
	"fmt"
	"strings"

	"github.com/leofalp/directchat/providers/ai"
)

// buildRequest converts an ai.ChatRequest to a Gemini generateContentRequest.
func buildRequest(request ai.ChatRequest) generateContentRequest {
	geminiRequest := generateContentRequest{}

	var systemTexts []string
	for _, message := range request.Messages {
		if message.Role != ai.RoleSystem {
			if converted, ok := messageToContent(message); ok {
				geminiRequest.Contents = append(geminiRequest.Contents, converted)
			}
			continue
		}
		if text := message.TextContent(); strings.TrimSpace(text) != "" {
			systemTexts = append(systemTexts, text)
		}
	}
	if len(systemTexts) > 0 {
		geminiRequest.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: strings.Join(systemTexts, "\n\n")}},
		}
	}

	geminiRequest.GenerationConfig = buildGenerationConfig(request.GenerationConfig)
	geminiRequest.Tools = buildTools(request)

	return geminiRequest
}

// messageToContent maps one user or assistant message. Messages without any
// renderable part are dropped, since Gemini rejects empty parts arrays.
func messageToContent(message ai.Message) (content, bool) {
	role := "user"
	if message.Role == ai.RoleAssistant {
		role = "model"
	}

	var parts []part
	for _, contentPart := range message.ToParts() {
		if converted, ok := contentPartToPart(contentPart); ok {
			parts = append(parts, converted)
		}
	}
	if len(parts) == 0 {
		return content{}, false
	}
	return content{Role: role, Parts: parts}, true
}

// contentPartToPart converts a ContentPart to a Gemini part. FileURI parts
// become a textual placeholder; DashScope file ids are skipped.
func contentPartToPart(contentPart ai.ContentPart) (part, bool) {
	switch contentPart.Type {
	case ai.PartText:
		if contentPart.Text == "" {
			return part{}, false
		}
		return part{Text: contentPart.Text}, true

	case ai.PartInlineData:
		if contentPart.Base64Data == "" {
			return part{}, false
		}
		mimeType := contentPart.MimeType
		if mimeType == "" {
			mimeType = ai.DefaultInlineMimeType
		}
		return part{InlineData: &inlineData{MimeType: mimeType, Data: contentPart.Base64Data}}, true

	case ai.PartFileURI:
		if contentPart.IsQwenFileID() || contentPart.URI == "" {
			return part{}, false
		}
		return part{Text: fmt.Sprintf("[File: %s (%s)]", contentPart.URI, contentPart.MimeType)}, true
	}
	return part{}, false
}

// buildGenerationConfig converts ai.GenerationConfig to Gemini generationConfig.
func buildGenerationConfig(config *ai.GenerationConfig) *generationConfig {
	if config == nil {
		return nil
	}

	geminiConfig := &generationConfig{
		Temperature:     config.Temperature,
		TopP:            config.TopP,
		MaxOutputTokens: config.MaxOutputTokens,
	}
	if config.ThinkingConfig != nil {
		geminiConfig.ThinkingConfig = &thinkingConfig{
			IncludeThoughts: config.ThinkingConfig.IncludeThoughts,
			ThinkingBudget:  config.ThinkingConfig.ThinkingBudget,
		}
	}
	if geminiConfig.Temperature == nil && geminiConfig.TopP == nil && geminiConfig.MaxOutputTokens == nil && geminiConfig.ThinkingConfig == nil {
		return nil
	}
	return geminiConfig
}

// buildTools enables Google Search grounding and the code execution sandbox.
func buildTools(request ai.ChatRequest) []tool {
	var tools []tool
	if request.UseWebSearch {
		tools = append(tools, tool{GoogleSearch: &googleSearchTool{}})
	}
	if request.EnableCodeExecution || shouldAutoEnableCodeExecution(ai.LastUserQuestion(request.Messages)) {
		tools = append(tools, tool{CodeExecution: &codeExecutionTool{}})
	}
	return tools
}
