package preprocess

import (
	"context"
	"strings"
	"time"

	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/observability"
	"github.com/leofalp/directchat/providers/tool/websearch"
)

// Web search progress stages reported through WebSearchStatus events.
const (
	SearchStageSearching = "searching"
	SearchStageCompleted = "completed"
	SearchStageFailed    = "failed"
)

// DefaultSearchTimeout bounds one search call. The shared streaming client
// has no overall timeout.
const DefaultSearchTimeout = 15 * time.Second

// WebSearchInjector grounds a request with web results spliced in front of
// the latest user question.
type WebSearchInjector struct {
	searcher   websearch.Searcher
	maxResults int
	timeout    time.Duration
}

// NewWebSearchInjector returns an injector over searcher. A nil searcher makes
// Inject a no-op.
func NewWebSearchInjector(searcher websearch.Searcher) *WebSearchInjector {
	return &WebSearchInjector{searcher: searcher, maxResults: websearch.DefaultMaxResults, timeout: DefaultSearchTimeout}
}

// WithTimeout overrides how long one search may take.
func (w *WebSearchInjector) WithTimeout(timeout time.Duration) *WebSearchInjector {
	if timeout > 0 {
		w.timeout = timeout
	}
	return w
}

// WithMaxResults overrides how many hits are injected.
func (w *WebSearchInjector) WithMaxResults(maxResults int) *WebSearchInjector {
	if maxResults > 0 {
		w.maxResults = maxResults
	}
	return w
}

// Enabled reports whether a backend is configured.
func (w *WebSearchInjector) Enabled() bool {
	return w != nil && w.searcher != nil
}

// Inject searches for the latest user question and returns the request with the
// formatted results prepended to it. Progress is reported through emit; a
// failed search is reported and the request is returned unchanged. The bool
// is false only when emit reported cancellation.
func (w *WebSearchInjector) Inject(ctx context.Context, request ai.ChatRequest, emit ai.Emit) (ai.ChatRequest, bool) {
	if !w.Enabled() {
		return request, true
	}
	query := strings.TrimSpace(ai.LastUserQuestion(request.Messages))
	if query == "" {
		return request, true
	}

	observer := observability.ObserverFromContext(ctx)
	ctx, span := observer.StartSpan(ctx, observability.SpanWebSearch,
		observability.String("search.backend", w.searcher.Name()),
		observability.String(observability.AttrWebSearchQuery, query),
	)
	defer span.End()

	if !emit(ai.WebSearchStatus{Stage: SearchStageSearching}) {
		return request, false
	}

	searchCtx, cancel := context.WithTimeout(ctx, w.timeout)
	results, err := w.searcher.Search(searchCtx, query, w.maxResults)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return request, false
		}
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "web search failed")
		observer.Warn(ctx, "web search failed, continuing without results",
			observability.String("search.backend", w.searcher.Name()),
			observability.Error(err),
		)
		return request, emit(ai.WebSearchStatus{Stage: SearchStageFailed})
	}
	if len(results) > w.maxResults {
		results = results[:w.maxResults]
	}
	span.SetAttributes(observability.Int(observability.AttrWebSearchResults, len(results)))

	if len(results) > 0 {
		hits := make([]ai.WebSearchResult, len(results))
		for i, result := range results {
			hits[i] = ai.WebSearchResult{Index: i + 1, Title: result.Title, Snippet: result.Snippet, Href: result.URL}
		}
		if !emit(ai.WebSearchResults{Results: hits}) {
			return request, false
		}
		request.Messages = prependToLastUser(request.Messages, websearch.FormatResults(query, results))
	}

	span.SetStatus(observability.StatusOK, "")
	return request, emit(ai.WebSearchStatus{Stage: SearchStageCompleted})
}

// prependToLastUser returns a copy of messages with prefix placed before the
// text of the latest user message.
func prependToLastUser(messages []ai.Message, prefix string) []ai.Message {
	index := ai.LastUserIndex(messages)
	if index < 0 || prefix == "" {
		return messages
	}

	result := make([]ai.Message, len(messages))
	copy(result, messages)
	message := result[index]

	if !message.HasParts() {
		message.Content = prefix + "\n" + message.Content
		result[index] = message
		return result
	}

	parts := make([]ai.ContentPart, len(message.Parts))
	copy(parts, message.Parts)
	for i, part := range parts {
		if part.Type == ai.PartText {
			parts[i].Text = prefix + "\n" + part.Text
			message.Parts = parts
			result[index] = message
			return result
		}
	}

	message.Parts = append([]ai.ContentPart{ai.NewTextPart(prefix)}, parts...)
	result[index] = message
	return result
}
