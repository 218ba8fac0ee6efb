package websearch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/leofalp/directchat/internal/utils"
)

const customMaxResults = 20

// CustomSearcher queries a self-hosted search endpoint. The endpoint accepts
// a JSON POST {"query","count"} and answers {"results":[{title,snippet,url}]};
// "href" and "link" are accepted as aliases of "url", and "items" as an alias
// of "results".
type CustomSearcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewCustomSearcher returns a searcher for endpoint. A non-empty apiKey is sent
// as a bearer token.
func NewCustomSearcher(endpoint, apiKey string) *CustomSearcher {
	return &CustomSearcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHttpClient sets a custom HTTP client.
func (s *CustomSearcher) WithHttpClient(httpClient *http.Client) *CustomSearcher {
	s.client = httpClient
	return s
}

// Name implements Searcher.
func (s *CustomSearcher) Name() string {
	return "custom"
}

type customRequest struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

type customResponse struct {
	Results []customResult `json:"results"`
	Items   []customResult `json:"items"`
}

type customResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Href    string `json:"href"`
	Link    string `json:"link"`
}

// Search implements Searcher.
func (s *CustomSearcher) Search(ctx context.Context, query string, count int) ([]Result, error) {
	count = limit(count, customMaxResults)

	_, response, err := utils.DoPostSync[customResponse](ctx, s.client, s.endpoint, s.apiKey, customRequest{Query: query, Count: count})
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, errors.New("empty response from search endpoint")
	}

	raw := response.Results
	if len(raw) == 0 {
		raw = response.Items
	}

	results := make([]Result, 0, len(raw))
	for _, item := range raw {
		link := utils.FirstNonEmpty(item.URL, item.Href, item.Link)
		if link == "" {
			continue
		}
		results = append(results, Result{
			Title:   utils.FirstNonEmpty(item.Title, link),
			Snippet: utils.FirstNonEmpty(item.Snippet, item.Content),
			URL:     link,
		})
		if len(results) == count {
			break
		}
	}
	return results, nil
}
