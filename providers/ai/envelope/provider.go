package envelope

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/observability"
)

const (
	providerName   = "backend"
	streamEndpoint = "/chat/stream"
)

// Provider streams through the application's own backend, which already
// emits normalized envelope frames. It is the only provider that forwards an
// upstream Finish; reading stops right after it.
type Provider struct {
	backendURL string
	token      string
	client     *http.Client
}

// New creates a backend provider for backendURL authenticated with token.
func New(backendURL, token string) *Provider {
	return &Provider{
		backendURL: backendURL,
		token:      token,
		client:     utils.NewStreamingClient(0),
	}
}

// WithHttpClient sets a custom HTTP client.
func (p *Provider) WithHttpClient(httpClient *http.Client) *Provider {
	p.client = httpClient
	return p
}

// Name implements ai.StreamProvider.
func (p *Provider) Name() string {
	return providerName
}

// StreamEvents implements ai.StreamProvider.
func (p *Provider) StreamEvents(ctx context.Context, request ai.ChatRequest, emit ai.Emit) error {
	span := observability.SpanFromContext(ctx)

	if strings.TrimSpace(p.backendURL) == "" {
		return errors.New("backend: URL is not set")
	}
	streamURL := strings.TrimRight(p.backendURL, "/") + streamEndpoint

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, providerName),
			observability.String(observability.AttrLLMEndpoint, utils.RedactURL(streamURL)),
		)
	}

	httpResponse, err := utils.DoPostStream(ctx, p.client, streamURL, p.token, request)
	if err != nil {
		return err
	}
	defer utils.CloseWithLog(httpResponse.Body)

	return utils.ForEachFrame(ctx, providerName, httpResponse.Body, func(frame string) bool {
		event, ok, parseErr := ParseFrame(ctx, frame)
		if parseErr != nil {
			utils.ReportDroppedFrame(ctx, providerName, frame, parseErr)
			return true
		}
		if !ok {
			return true
		}
		if !emit(event) {
			return false
		}
		_, finished := event.(ai.Finish)
		return !finished
	})
}
