package moltbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://www.moltbook.com/api/v1"
	DefaultProfileURL = "https://moltbook.com"
	DefaultCommunity  = "m/tokenizedai"
)

type Client struct {
	BaseURL    string
	ProfileURL string
	HTTP       *http.Client
}

type Registration struct {
	APIKey           string `json:"api_key"`
	ClaimURL         string `json:"claim_url"`
	VerificationCode string `json:"verification_code"`
	ProfileURL       string `json:"profile_url"`
}

type RegisterRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type registerResponse struct {
	Agent *Registration `json:"agent"`
	Error string        `json:"error"`
}

type Post struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PostRequest struct {
	Content   string `json:"content"`
	Community string `json:"community"`
}

type postResponse struct {
	Post
	Nested *Post `json:"post"`
}

func New(baseURL, profileURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if profileURL == "" {
		profileURL = DefaultProfileURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ProfileURL: strings.TrimRight(profileURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an agent account for name. The returned API key is the
// only credential for posting as that agent.
func (c *Client) Register(ctx context.Context, name, description string) (Registration, error) {
	req, err := c.newRequest(ctx, "/agents/register", "", RegisterRequest{Name: name, Description: description})
	if err != nil {
		return Registration{}, err
	}

	var out registerResponse
	if err := c.do(req, &out); err != nil {
		return Registration{}, err
	}
	if out.Agent == nil || out.Agent.APIKey == "" {
		if out.Error != "" {
			return Registration{}, errors.New(out.Error)
		}
		return Registration{}, fmt.Errorf("unexpected moltbook response format")
	}

	reg := *out.Agent
	if reg.ProfileURL == "" {
		reg.ProfileURL = fmt.Sprintf("%s/u/%s", c.ProfileURL, name)
	}
	return reg, nil
}

// Publish posts content to community as the agent owning apiKey.
func (c *Client) Publish(ctx context.Context, apiKey, content, community string) (Post, error) {
	if apiKey == "" {
		return Post{}, fmt.Errorf("moltbook api key required")
	}
	if community == "" {
		community = DefaultCommunity
	}
	req, err := c.newRequest(ctx, "/posts", apiKey, PostRequest{Content: content, Community: community})
	if err != nil {
		return Post{}, err
	}

	var out postResponse
	if err := c.do(req, &out); err != nil {
		return Post{}, err
	}
	post := out.Post
	if out.Nested != nil {
		if post.ID == "" {
			post.ID = out.Nested.ID
		}
		if post.URL == "" {
			post.URL = out.Nested.URL
		}
	}
	if post.URL == "" {
		id := post.ID
		if id == "" {
			id = "unknown"
		}
		post.URL = fmt.Sprintf("%s/post/%s", c.ProfileURL, id)
	}
	return post, nil
}

func (c *Client) newRequest(ctx context.Context, path, apiKey string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg := "moltbook request failed"
		if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
			trimmed := strings.TrimSpace(string(body))
			if trimmed != "" {
				msg = fmt.Sprintf("%s: %s", msg, trimmed)
			}
		}
		return fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
