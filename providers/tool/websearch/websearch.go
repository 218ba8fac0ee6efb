package websearch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMaxResults is how many hits are spliced into a prompt.
const DefaultMaxResults = 5

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher is a web search backend.
type Searcher interface {
	// Name identifies the backend in logs and spans.
	Name() string

	// Search returns at most count hits for query.
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// Config selects and configures the search backends.
type Config struct {
	CustomEndpoint string
	CustomKey      string
	GoogleAPIKey   string
	GoogleCX       string
	BraveAPIKey    string
	TavilyAPIKey   string

	// HTTPClient is shared by the resolved backend. Nil keeps the backend's
	// own client.
	HTTPClient *http.Client
}

// Resolve returns the highest-priority backend that is configured: the custom
// endpoint first, then Google Custom Search, Brave and Tavily. It returns nil
// when none is configured, meaning search is skipped.
func Resolve(config Config) Searcher {
	client := config.HTTPClient
	switch {
	case strings.TrimSpace(config.CustomEndpoint) != "":
		searcher := NewCustomSearcher(config.CustomEndpoint, config.CustomKey)
		if client != nil {
			searcher.WithHttpClient(client)
		}
		return searcher
	case strings.TrimSpace(config.GoogleAPIKey) != "" && strings.TrimSpace(config.GoogleCX) != "":
		searcher := NewGoogleSearcher(config.GoogleAPIKey, config.GoogleCX)
		if client != nil {
			searcher.WithHttpClient(client)
		}
		return searcher
	case strings.TrimSpace(config.BraveAPIKey) != "":
		searcher := NewBraveSearcher(config.BraveAPIKey)
		if client != nil {
			searcher.WithHttpClient(client)
		}
		return searcher
	case strings.TrimSpace(config.TavilyAPIKey) != "":
		searcher := NewTavilySearcher(config.TavilyAPIKey)
		if client != nil {
			searcher.WithHttpClient(client)
		}
		return searcher
	}
	return nil
}

// FormatResults renders hits as a numbered Markdown list with title, snippet
// and URL, ready to be placed in front of a user question.
func FormatResults(query string, results []Result) string {
	if len(results) == 0 {
		return ""
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Web search results for %q:\n\n", query)
	for i, result := range results {
		fmt.Fprintf(&builder, "%d. **%s**\n", i+1, strings.TrimSpace(result.Title))
		if snippet := strings.TrimSpace(result.Snippet); snippet != "" {
			fmt.Fprintf(&builder, "   %s\n", strings.ReplaceAll(snippet, "\n", " "))
		}
		fmt.Fprintf(&builder, "   URL: %s\n", result.URL)
	}
	return builder.String()
}

// limit clamps count into [1, maxCount] with DefaultMaxResults for non-positive input.
func limit(count, maxCount int) int {
	if count <= 0 {
		count = DefaultMaxResults
	}
	if count > maxCount {
		count = maxCount
	}
	return count
}
