package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const DefaultBraveURL = "https://api.search.brave.com/res/v1"

// Brave is a client for the Brave web search API.
type Brave struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewBrave(baseURL, apiKey string) *Brave {
	if baseURL == "" {
		baseURL = DefaultBraveURL
	}
	return &Brave{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    newHTTPClient(),
	}
}

type braveResponse struct {
	Web struct {
		Results []Result `json:"results"`
	} `json:"web"`
}

func (b *Brave) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if count <= 0 {
		count = DefaultCount
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/web/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := do(b.HTTP, req, "brave")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Web.Results == nil {
		return []Result{}, nil
	}
	return out.Web.Results, nil
}
