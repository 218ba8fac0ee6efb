package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/directchat/core/config"
	"github.com/leofalp/directchat/core/middleware"
	"github.com/leofalp/directchat/core/preprocess"
	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/ai/envelope"
	"github.com/leofalp/directchat/providers/ai/gemini"
	"github.com/leofalp/directchat/providers/ai/openai"
	"github.com/leofalp/directchat/providers/observability"
	"github.com/leofalp/directchat/providers/tool/websearch"
)

// Finish reasons set by the dispatcher.
const (
	FinishStop                   = "stop"
	FinishAPIError               = "api_error"
	FinishDirectConnectionFailed = "direct_connection_failed"
)

// defaultChannel is the channel pinned onto default-provider requests.
const defaultChannel = "gemini"

// Dispatcher turns a ChatRequest into one ordered event stream. It owns the
// terminal events: every stream it starts ends with exactly one Finish unless
// the consumer cancels it.
//
// A Dispatcher is safe for concurrent use; each call owns its own state.
type Dispatcher struct {
	cfg       config.Config
	providers map[Route]ai.StreamProvider
	injector  *preprocess.WebSearchInjector
	extractor preprocess.DocumentExtractor
	observer  observability.Provider
	wrappers  []middleware.Middleware
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver enables tracing, metrics and logs for every stream.
func WithObserver(observer observability.Provider) Option {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// WithProvider replaces the provider serving route.
func WithProvider(route Route, provider ai.StreamProvider) Option {
	return func(d *Dispatcher) {
		d.providers[route] = provider
	}
}

// WithSearcher replaces the web search backend resolved from configuration.
// A nil searcher disables injected search.
func WithSearcher(searcher websearch.Searcher) Option {
	return func(d *Dispatcher) {
		d.injector = preprocess.NewWebSearchInjector(searcher)
	}
}

// WithMiddleware wraps every provider, including those set with WithProvider,
// with middlewares. They run inside the middlewares derived from the
// configuration.
func WithMiddleware(middlewares ...middleware.Middleware) Option {
	return func(d *Dispatcher) {
		d.wrappers = append(d.wrappers, middlewares...)
	}
}

// WithDocumentExtractor sets the extractor used for document attachments.
func WithDocumentExtractor(extractor preprocess.DocumentExtractor) Option {
	return func(d *Dispatcher) {
		d.extractor = extractor
	}
}

// New builds a Dispatcher from cfg. All providers share one streaming HTTP
// client whose dial timeout is cfg.ConnectTimeout.
func New(cfg config.Config, options ...Option) *Dispatcher {
	client := utils.NewStreamingClient(cfg.ConnectTimeout)
	return newDispatcher(cfg, client, options...)
}

func newDispatcher(cfg config.Config, client *http.Client, options ...Option) *Dispatcher {
	uploader := openai.NewQwenUploader().
		WithUploadURL(cfg.DashScopeUploadURL).
		WithAPIKey(cfg.DashScopeKey).
		WithHttpClient(client)

	d := &Dispatcher{
		cfg: cfg,
		providers: map[Route]ai.StreamProvider{
			RouteGemini: gemini.New().WithBaseURL(cfg.DefaultGeminiAddress).WithHttpClient(client),
			RouteOpenAI: openai.New().WithHttpClient(client).WithQwenUploader(uploader),
		},
		injector: preprocess.NewWebSearchInjector(websearch.Resolve(websearch.Config{
			CustomEndpoint: cfg.SearchEndpoint,
			CustomKey:      cfg.SearchKey,
			GoogleAPIKey:   cfg.GoogleSearchKey,
			GoogleCX:       cfg.GoogleSearchCX,
			BraveAPIKey:    cfg.BraveSearchKey,
			TavilyAPIKey:   cfg.TavilyKey,
			HTTPClient:     client,
		})),
		observer: observability.Noop{},
	}
	if strings.TrimSpace(cfg.BackendURL) != "" {
		d.providers[RouteBackend] = envelope.New(cfg.BackendURL, cfg.BackendToken).WithHttpClient(client)
	}

	for _, option := range options {
		option(d)
	}

	wrappers := append(configMiddlewares(cfg), d.wrappers...)
	for route, provider := range d.providers {
		if provider == nil {
			continue
		}
		d.providers[route] = middleware.Chain(provider, wrappers...)
	}
	return d
}

// configMiddlewares returns the stream middlewares enabled by cfg, outermost
// first: the total deadline, then retries, then the idle timeout of each
// attempt.
func configMiddlewares(cfg config.Config) []middleware.Middleware {
	var wrappers []middleware.Middleware
	if cfg.StreamTimeout > 0 {
		wrappers = append(wrappers, middleware.NewTimeoutMiddleware(cfg.StreamTimeout))
	}
	if cfg.MaxRetries > 0 {
		wrappers = append(wrappers, middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: cfg.MaxRetries}))
	}
	if cfg.IdleTimeout > 0 {
		wrappers = append(wrappers, middleware.NewIdleTimeoutMiddleware(cfg.IdleTimeout))
	}
	return wrappers
}

// Effective returns request after default-provider overrides, and the route
// that will serve it.
func (d *Dispatcher) Effective(request ai.ChatRequest) (ai.ChatRequest, Route) {
	if !d.cfg.DirectConnect {
		return request, RouteBackend
	}
	if ai.IsDefaultProvider(request.Provider) {
		request.APIAddress = d.cfg.DefaultGeminiAddress
		request.APIKey = d.cfg.DefaultGeminiKey
		request.Channel = defaultChannel
		request.Model = utils.FirstNonEmpty(request.Model, d.cfg.DefaultModel)
	}
	return request, Classify(request)
}

// Stream validates request, folds attachments in and starts streaming.
//
// Configuration problems are returned synchronously and no network call is
// made. Once a stream is returned, failures arrive as an Error event followed
// by Finish. Closing the stream cancels the upstream call without an Error.
func (d *Dispatcher) Stream(ctx context.Context, request ai.ChatRequest, attachments []preprocess.Attachment) (*ai.EventStream, error) {
	effective, route := d.Effective(request)

	provider, ok := d.providers[route]
	if !ok || provider == nil {
		return nil, fmt.Errorf("no provider configured for route %q", route)
	}

	messages, err := preprocess.AugmentMultimodal(ctx, effective.Messages, attachments, preprocess.AugmentOptions{
		Extractor:        d.extractor,
		PreferQwenUpload: route == RouteOpenAI && isQwen(effective),
	})
	if err != nil {
		return nil, fmt.Errorf("invalid attachments: %w", err)
	}
	effective.Messages = messages

	if err := validate(effective, route); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if route != RouteBackend {
		effective.Messages = preprocess.InjectSystemPrompt(effective.Messages, effective.ForceSystemPrompt)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	streamCtx = observability.ContextWithObserver(streamCtx, d.observer)
	streamCtx, span := d.observer.StartSpan(streamCtx, observability.SpanLLMRequest,
		observability.String(observability.AttrLLMProvider, provider.Name()),
		observability.String(observability.AttrLLMModel, effective.Model),
		observability.String("llm.route", string(route)),
	)
	streamCtx = observability.ContextWithSpan(streamCtx, span)

	events := make(chan ai.Event, d.cfg.StreamBuffer)
	go d.produce(streamCtx, cancel, span, route, provider, effective, events)

	return ai.NewEventStream(events, cancel), nil
}

// validate checks what the selected route needs before any network call. The
// backend holds its own credentials, so only the conversation is checked.
func validate(request ai.ChatRequest, route Route) error {
	if route == RouteBackend {
		if len(request.Messages) == 0 {
			return ai.ErrNoMessages
		}
		return nil
	}
	if err := request.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(request.Model) == "" {
		return errors.New("no model configured for the default provider")
	}
	if strings.TrimSpace(request.APIKey) == "" {
		return errors.New("no API key configured for the default provider")
	}
	if route == RouteGemini {
		return gemini.CheckContents(request)
	}
	return nil
}

// produce is the single producer of one stream.
func (d *Dispatcher) produce(
	ctx context.Context,
	cancel context.CancelFunc,
	span observability.Span,
	route Route,
	provider ai.StreamProvider,
	request ai.ChatRequest,
	events chan<- ai.Event,
) {
	defer cancel()
	defer close(events)
	defer span.End()

	start := time.Now()
	terminal := &terminalTracker{emit: ai.ChannelEmitter(ctx, events)}
	emit := terminal.Emit

	d.observer.Debug(ctx, "stream dispatched",
		observability.String(observability.AttrLLMProvider, provider.Name()),
		observability.String(observability.AttrLLMModel, request.Model),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
	)

	if needsInjectedSearch(route, request) && d.injector.Enabled() {
		var proceed bool
		request, proceed = d.injector.Inject(ctx, request, emit)
		if !proceed {
			d.record(ctx, span, provider, start, "cancelled", nil)
			return
		}
	}

	err := provider.StreamEvents(ctx, request, emit)

	switch {
	case ctx.Err() != nil:
		d.record(ctx, span, provider, start, "cancelled", nil)

	case err != nil:
		var statusErr *utils.HTTPStatusError
		if errors.As(err, &statusErr) {
			message := fmt.Sprintf("upstream returned HTTP %d: %s", statusErr.StatusCode, utils.TruncateString(strings.TrimSpace(statusErr.Body), 500))
			terminal.Fail(message, statusErr.StatusCode, FinishAPIError)
		} else {
			terminal.Fail(err.Error(), 0, FinishDirectConnectionFailed)
		}
		d.record(ctx, span, provider, start, "error", err)

	default:
		terminal.Complete()
		status := "ok"
		if terminal.sawError {
			status = "error"
		}
		d.record(ctx, span, provider, start, status, nil)
	}
}

// record closes the observability side of one stream.
func (d *Dispatcher) record(ctx context.Context, span observability.Span, provider ai.StreamProvider, start time.Time, status string, err error) {
	duration := time.Since(start)
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMProvider, provider.Name()),
		observability.String(observability.AttrStatus, status),
	}

	d.observer.Counter(observability.MetricStreamCount).Add(ctx, 1, attrs...)
	d.observer.Histogram(observability.MetricStreamDuration).Record(ctx, float64(duration.Milliseconds()), attrs...)

	switch status {
	case "error":
		d.observer.Counter(observability.MetricStreamErrors).Add(ctx, 1, attrs...)
		if err != nil {
			span.RecordError(err)
		}
		span.SetStatus(observability.StatusError, "stream failed")
		d.observer.Warn(ctx, "stream failed",
			append(attrs, observability.Error(err), observability.Duration(observability.AttrDuration, duration))...,
		)
	case "cancelled":
		span.SetStatus(observability.StatusOK, "stream cancelled")
		d.observer.Debug(ctx, "stream cancelled by consumer",
			append(attrs, observability.Duration(observability.AttrDuration, duration))...,
		)
	default:
		span.SetStatus(observability.StatusOK, "")
		span.AddEvent(observability.EventStreamFinished, observability.Duration(observability.AttrDuration, duration))
	}
}

// terminalTracker wraps the channel emitter so that Finish is sent at most
// once and is always the last event.
type terminalTracker struct {
	emit      ai.Emit
	finished  bool
	sawEnd    bool
	sawError  bool
	cancelled bool
}

// Emit forwards event unless the stream already finished.
func (t *terminalTracker) Emit(event ai.Event) bool {
	if t.finished || t.cancelled {
		return false
	}
	if !t.emit(event) {
		t.cancelled = true
		return false
	}
	switch event.(type) {
	case ai.Finish:
		t.finished = true
	case ai.StreamEnd:
		t.sawEnd = true
	case ai.Error:
		t.sawError = true
	}
	return true
}

// Complete ends a successful stream with StreamEnd and Finish("stop").
func (t *terminalTracker) Complete() {
	if t.finished {
		return
	}
	if !t.sawEnd && !t.Emit(ai.StreamEnd{MessageID: uuid.NewString()}) {
		return
	}
	t.Emit(ai.Finish{Reason: FinishStop})
}

// Fail ends a failed stream with Error and Finish(reason).
func (t *terminalTracker) Fail(message string, upstreamStatus int, reason string) {
	if t.finished {
		return
	}
	if !t.Emit(ai.NewErrorEvent(message, upstreamStatus)) {
		return
	}
	t.Emit(ai.Finish{Reason: reason})
}
