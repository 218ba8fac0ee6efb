package dispatch

import (
	"strings"

	"github.com/leofalp/directchat/providers/ai"
)

// Route names the wire adapter that serves a request.
type Route string

const (
	// RouteGemini is Google's native streamGenerateContent API.
	RouteGemini Route = "gemini"

	// RouteOpenAI is any OpenAI-compatible chat-completions host, including
	// Gemini's compatibility layer.
	RouteOpenAI Route = "openai"

	// RouteBackend streams through the application's own backend.
	RouteBackend Route = "backend"
)

// Classify picks the direct-connect route of request. It is the single place
// where the provider heuristic lives:
//
//  1. the default provider sentinel is pinned to native Gemini;
//  2. a channel naming "openai" always selects the OpenAI-compatible path,
//     so "gemini-openai-compat" is served by chat completions;
//  3. provider "gemini" or a channel naming "gemini" selects native Gemini;
//  4. a model naming "gemini" selects native Gemini;
//  5. everything else is OpenAI-compatible.
//
// Matching is case-insensitive substring matching, so a custom channel name
// can steer a request into either path.
func Classify(request ai.ChatRequest) Route {
	if ai.IsDefaultProvider(request.Provider) {
		return RouteGemini
	}

	provider := strings.ToLower(strings.TrimSpace(request.Provider))
	channel := strings.ToLower(request.Channel)
	model := strings.ToLower(request.Model)

	if strings.Contains(channel, "openai") {
		return RouteOpenAI
	}
	if provider == "gemini" || strings.Contains(channel, "gemini") {
		return RouteGemini
	}
	if strings.Contains(model, "gemini") {
		return RouteGemini
	}
	return RouteOpenAI
}

// isGeminiCompatible reports whether an OpenAI-compatible request targets
// Gemini, which grounds searches natively through extra_body.
func isGeminiCompatible(request ai.ChatRequest) bool {
	return strings.Contains(strings.ToLower(request.Channel), "gemini") ||
		strings.Contains(strings.ToLower(request.Model), "gemini")
}

// isQwen reports whether request targets DashScope.
func isQwen(request ai.ChatRequest) bool {
	return strings.Contains(strings.ToLower(request.Model), "qwen") ||
		strings.Contains(strings.ToLower(request.Channel), "qwen") ||
		strings.Contains(strings.ToLower(request.APIAddress), "dashscope")
}

// needsInjectedSearch reports whether web results must be spliced into the
// prompt because the selected host has no native search of its own.
func needsInjectedSearch(route Route, request ai.ChatRequest) bool {
	if !request.UseWebSearch {
		return false
	}
	switch route {
	case RouteGemini, RouteBackend:
		return false
	}
	if isGeminiCompatible(request) {
		return false
	}
	if request.QwenEnableSearch && isQwen(request) {
		return false
	}
	return true
}
