package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const DefaultSerperURL = "https://google.serper.dev"

// Serper is a client for the Serper Google search API.
type Serper struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewSerper(baseURL, apiKey string) *Serper {
	if baseURL == "" {
		baseURL = DefaultSerperURL
	}
	return &Serper{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    newHTTPClient(),
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (s *Serper) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if count <= 0 {
		count = DefaultCount
	}
	body, err := json.Marshal(serperRequest{Q: query, Num: count})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.APIKey)

	resp, err := do(s.HTTP, req, "serper")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(out.Organic))
	for _, r := range out.Organic {
		results = append(results, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return results, nil
}
