package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/observability"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
)

// ErrNoContents is returned for a conversation with nothing but system
// messages. Gemini rejects a request without contents.
var ErrNoContents = errors.New("gemini: conversation has no user or model content")

// CheckContents reports ErrNoContents when request would be sent without any
// user or model turn.
func CheckContents(request ai.ChatRequest) error {
	for _, message := range request.Messages {
		if message.Role == ai.RoleSystem {
			continue
		}
		if _, ok := messageToContent(message); ok {
			return nil
		}
	}
	return ErrNoContents
}

// GeminiProvider implements ai.StreamProvider for Google's native Gemini API.
// Address and key come from each request, falling back to the provider's base URL.
type GeminiProvider struct {
	baseURL string
	client  *http.Client
}

// New creates a Gemini provider that talks to Google's public endpoint with a
// streaming HTTP client.
func New() *GeminiProvider {
	return &GeminiProvider{
		baseURL: defaultBaseURL,
		client:  utils.NewStreamingClient(0),
	}
}

// WithBaseURL sets the address used when a request carries none.
func (p *GeminiProvider) WithBaseURL(baseURL string) *GeminiProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client. The client must not set an
// overall timeout, or long streams will be cut.
func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) *GeminiProvider {
	p.client = httpClient
	return p
}

// Name implements ai.StreamProvider.
func (p *GeminiProvider) Name() string {
	return providerName
}

// StreamEvents implements ai.StreamProvider. It posts the converted request to
// streamGenerateContent with alt=sse and emits events as frames arrive. Frames
// that cannot be decoded are logged and skipped.
func (p *GeminiProvider) StreamEvents(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if strings.TrimSpace(request.Model) == "" {
		return errors.New("gemini: model is not set")
	}
	if strings.TrimSpace(request.APIKey) == "" {
		return errors.New("gemini: API key is not set")
	}
	payload := buildRequest(request)
	if len(payload.Contents) == 0 {
		return ErrNoContents
	}

	streamURL := buildStreamURL(utils.FirstNonEmpty(request.APIAddress, p.baseURL), request.Model, request.APIKey)

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, providerName),
			observability.String(observability.AttrLLMEndpoint, utils.RedactURL(streamURL)),
			observability.String(observability.AttrLLMModel, request.Model),
		)
	}
	observer.Trace(ctx, "Gemini provider preparing streaming request",
		observability.String(observability.AttrLLMModel, request.Model),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
	)

	httpResponse, err := utils.DoPostStream(ctx, p.client, streamURL, "", payload)
	if err != nil {
		return err
	}
	defer utils.CloseWithLog(httpResponse.Body)

	state := &streamState{}
	err = utils.ForEachFrame(ctx, providerName, httpResponse.Body, func(frame string) bool {
		chunk, repaired, decodeErr := utils.DecodeFrame[generateContentResponse](frame)
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

// buildStreamURL returns {base}/v1beta/models/{model}:streamGenerateContent?key=...&alt=sse.
// A base that already ends with /v1beta is not extended again.
func buildStreamURL(baseURL, model, apiKey string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	base = strings.TrimSuffix(base, "/v1beta")
	model = strings.TrimPrefix(model, "models/")

	return fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?key=%s&alt=sse",
		base, url.PathEscape(model), url.QueryEscape(apiKey))
}
