package websearch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/leofalp/directchat/internal/utils"
)

const (
	tavilySearchURL = "https://api.tavily.com/search"

	// tavilyMaxResults is the largest max_results Tavily accepts.
	tavilyMaxResults = 20

	// tavilySnippetLength bounds the page extract used as snippet.
	tavilySnippetLength = 300
)

// TavilySearcher queries the Tavily search API.
type TavilySearcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewTavilySearcher returns a searcher authenticated with apiKey.
func NewTavilySearcher(apiKey string) *TavilySearcher {
	return &TavilySearcher{
		baseURL: tavilySearchURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API address.
func (s *TavilySearcher) WithBaseURL(baseURL string) *TavilySearcher {
	s.baseURL = baseURL
	return s
}

// WithHttpClient sets a custom HTTP client.
func (s *TavilySearcher) WithHttpClient(httpClient *http.Client) *TavilySearcher {
	s.client = httpClient
	return s
}

// Name implements Searcher.
func (s *TavilySearcher) Name() string {
	return "tavily"
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search implements Searcher with a basic-depth query.
func (s *TavilySearcher) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if s.apiKey == "" {
		return nil, errors.New("tavily search: API key is required")
	}

	body := tavilyRequest{Query: query, SearchDepth: "basic", MaxResults: limit(count, tavilyMaxResults)}
	_, response, err := utils.DoPostSync[tavilyResponse](ctx, s.client, s.baseURL, s.apiKey, body)
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, errors.New("empty response from Tavily")
	}

	results := make([]Result, 0, len(response.Results))
	for _, item := range response.Results {
		if item.URL == "" {
			continue
		}
		results = append(results, Result{
			Title:   item.Title,
			Snippet: shorten(strings.TrimSpace(item.Content), tavilySnippetLength),
			URL:     item.URL,
		})
	}
	return results, nil
}

// shorten cuts s to at most maxLen bytes on a rune boundary, adding an ellipsis.
func shorten(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return strings.TrimSpace(s[:cut]) + "..."
}
