package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/directchat/internal/utils"
)

const (
	braveSearchURL = "https://api.search.brave.com/res/v1/web/search"

	// braveMaxResults is the Brave web search page size limit.
	braveMaxResults = 20
)

// BraveSearcher queries the Brave Search web API.
type BraveSearcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewBraveSearcher returns a searcher authenticated with a subscription token.
func NewBraveSearcher(apiKey string) *BraveSearcher {
	return &BraveSearcher{
		baseURL: braveSearchURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL overrides the API address.
func (s *BraveSearcher) WithBaseURL(baseURL string) *BraveSearcher {
	s.baseURL = baseURL
	return s
}

// WithHttpClient sets a custom HTTP client.
func (s *BraveSearcher) WithHttpClient(httpClient *http.Client) *BraveSearcher {
	s.client = httpClient
	return s
}

// Name implements Searcher.
func (s *BraveSearcher) Name() string {
	return "brave"
}

type braveResponse struct {
	Web *struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Age         string `json:"age,omitempty"`
}

// Search implements Searcher. Brave highlights query terms with inline HTML,
// which is converted to Markdown.
func (s *BraveSearcher) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if s.apiKey == "" {
		return nil, errors.New("brave search: API key is required")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(limit(count, braveMaxResults)))
	params.Set("result_filter", "web")

	_, response, err := utils.DoGetJSON[braveResponse](ctx, s.client, s.baseURL+"?"+params.Encode(),
		utils.HeaderOption{Key: "X-Subscription-Token", Value: s.apiKey},
	)
	if err != nil {
		return nil, err
	}
	if response == nil || response.Web == nil {
		return nil, nil
	}

	results := make([]Result, 0, len(response.Web.Results))
	for _, item := range response.Web.Results {
		if item.URL == "" {
			continue
		}
		snippet := htmlToMarkdown(item.Description)
		if item.Age != "" && snippet != "" {
			snippet += " (" + item.Age + ")"
		}
		results = append(results, Result{Title: item.Title, Snippet: snippet, URL: item.URL})
	}
	return results, nil
}

func htmlToMarkdown(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(markdown)
}
