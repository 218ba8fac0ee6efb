package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/observability"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
)

// OpenAIProvider implements ai.StreamProvider for OpenAI-compatible
// chat-completions hosts. Address and key come from each request, falling
// back to the provider's base URL.
type OpenAIProvider struct {
	baseURL  string
	client   *http.Client
	uploader *QwenUploader
}

// New creates a provider for api.openai.com with a streaming HTTP client and
// a DashScope uploader sharing that client.
func New() *OpenAIProvider {
	client := utils.NewStreamingClient(0)
	return &OpenAIProvider{
		baseURL:  defaultBaseURL,
		client:   client,
		uploader: NewQwenUploader().WithHttpClient(client),
	}
}

// WithBaseURL sets the address used when a request carries none.
func (p *OpenAIProvider) WithBaseURL(baseURL string) *OpenAIProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client. The client must not set an
// overall timeout, or long streams will be cut.
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) *OpenAIProvider {
	p.client = httpClient
	if p.uploader != nil {
		p.uploader.WithHttpClient(httpClient)
	}
	return p
}

// WithQwenUploader replaces the uploader used for marked document parts.
// A nil uploader leaves marked parts in the request untouched.
func (p *OpenAIProvider) WithQwenUploader(uploader *QwenUploader) *OpenAIProvider {
	p.uploader = uploader
	return p
}

// Name implements ai.StreamProvider.
func (p *OpenAIProvider) Name() string {
	return providerName
}

// StreamEvents implements ai.StreamProvider. Marked documents are uploaded
// first, then the converted request is posted with stream=true and events are
// emitted as frames arrive. Frames that cannot be decoded are logged and
// skipped.
func (p *OpenAIProvider) StreamEvents(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if strings.TrimSpace(request.Model) == "" {
		return errors.New("openai: model is not set")
	}
	if strings.TrimSpace(request.APIKey) == "" {
		return errors.New("openai: API key is not set")
	}

	if p.uploader != nil && HasUploadMarkers(request.Messages) {
		messages, err := p.uploader.ReplaceMarkers(ctx, request.Messages, request.APIKey)
		if err != nil {
			return fmt.Errorf("openai: document upload failed: %w", err)
		}
		request.Messages = messages
	}

	chatURL := buildChatURL(utils.FirstNonEmpty(request.APIAddress, p.baseURL))

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, providerName),
			observability.String(observability.AttrLLMEndpoint, utils.RedactURL(chatURL)),
			observability.String(observability.AttrLLMModel, request.Model),
		)
	}
	observer.Trace(ctx, "OpenAI-compatible provider preparing streaming request",
		observability.String(observability.AttrLLMModel, request.Model),
		observability.String(observability.AttrLLMEndpoint, utils.RedactURL(chatURL)),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
	)

	httpResponse, err := utils.DoPostStream(ctx, p.client, chatURL, request.APIKey, buildRequest(request))
	if err != nil {
		return err
	}
	defer utils.CloseWithLog(httpResponse.Body)

	state := &streamState{}
	err = utils.ForEachFrame(ctx, providerName, httpResponse.Body, func(frame string) bool {
		chunk, repaired, decodeErr := utils.DecodeFrame[streamChunk](frame)
		if decodeErr != nil {
			utils.ReportDroppedFrame(ctx, providerName, frame, decodeErr)
			return true
		}
		if repaired && span != nil {
			span.AddEvent(observability.EventFrameRepaired)
		}
		return state.handleChunk(ctx, chunk, emit)
	})
	if err != nil {
		return err
	}

	if !state.finish(emit) {
		return ctx.Err()
	}
	return nil
}
