// Package search queries web search providers on behalf of a wolf and
// formats the results in the wolf's voice.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultCount = 5

// ErrNotConfigured is returned when no provider has an API key.
var ErrNotConfigured = errors.New("No search API configured")

type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"description"`
}

type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// Type selects how a user query is rewritten before searching.
type Type string

const (
	TypeWeb         Type = "web"
	TypeTwitter     Type = "twitter"
	TypeCommunities Type = "communities"
)

// Query rewrites query for the search type. Unknown types search the web.
func (t Type) Query(query string) string {
	switch t {
	case TypeTwitter:
		return query + " site:twitter.com OR site:x.com"
	case TypeCommunities:
		return query + " community discussion engagement Twitter Reddit"
	default:
		return query
	}
}

// Fallback tries each searcher in order and returns the first success.
type Fallback []Searcher

func (f Fallback) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if len(f) == 0 {
		return nil, ErrNotConfigured
	}
	var errs []error
	for _, s := range f {
		results, err := s.Search(ctx, query, count)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// New returns the configured providers, Brave first. It returns an empty
// Fallback when neither key is set.
func New(serperURL, serperKey, braveURL, braveKey string) Fallback {
	var f Fallback
	if braveKey != "" {
		f = append(f, NewBrave(braveURL, braveKey))
	}
	if serperKey != "" {
		f = append(f, NewSerper(serperURL, serperKey))
	}
	return f
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func do(c *http.Client, req *http.Request, service string) (*http.Response, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg := service + " request failed"
		if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			trimmed := strings.TrimSpace(string(body))
			if trimmed != "" {
				msg = fmt.Sprintf("%s: %s", msg, trimmed)
			}
		}
		return nil, fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}
	return resp, nil
}
