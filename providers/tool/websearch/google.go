package websearch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/directchat/internal/utils"
)

const (
	googleSearchURL = "https://www.googleapis.com/customsearch/v1"

	// googleMaxResults is the Custom Search JSON API page size limit.
	googleMaxResults = 10
)

// GoogleSearcher queries the Google Custom Search JSON API.
type GoogleSearcher struct {
	baseURL string
	apiKey  string
	cx      string
	client  *http.Client
}

// NewGoogleSearcher returns a searcher for the search engine cx.
func NewGoogleSearcher(apiKey, cx string) *GoogleSearcher {
	return &GoogleSearcher{
		baseURL: googleSearchURL,
		apiKey:  apiKey,
		cx:      cx,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL overrides the API address.
func (s *GoogleSearcher) WithBaseURL(baseURL string) *GoogleSearcher {
	s.baseURL = baseURL
	return s
}

// WithHttpClient sets a custom HTTP client.
func (s *GoogleSearcher) WithHttpClient(httpClient *http.Client) *GoogleSearcher {
	s.client = httpClient
	return s
}

// Name implements Searcher.
func (s *GoogleSearcher) Name() string {
	return "google"
}

type googleResponse struct {
	Items []googleItem `json:"items"`
}

type googleItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	HTMLSnippet string `json:"htmlSnippet"`
}

// Search implements Searcher. The HTML snippet is converted to Markdown so
// highlighted terms survive; the plain snippet is used when conversion fails.
func (s *GoogleSearcher) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if s.apiKey == "" || s.cx == "" {
		return nil, errors.New("google search: API key and engine id are required")
	}

	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.cx)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit(count, googleMaxResults)))

	_, response, err := utils.DoGetJSON[googleResponse](ctx, s.client, s.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, errors.New("empty response from Google Custom Search")
	}

	results := make([]Result, 0, len(response.Items))
	for _, item := range response.Items {
		results = append(results, Result{
			Title:   item.Title,
			Snippet: snippetMarkdown(item),
			URL:     item.Link,
		})
	}
	return results, nil
}

func snippetMarkdown(item googleItem) string {
	if strings.TrimSpace(item.HTMLSnippet) == "" {
		return item.Snippet
	}
	markdown, err := htmltomarkdown.ConvertString(item.HTMLSnippet)
	if err != nil {
		slog.Debug("failed to convert search snippet to Markdown", "error", err.Error())
		return item.Snippet
	}
	return strings.TrimSpace(markdown)
}
