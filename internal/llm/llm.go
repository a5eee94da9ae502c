// Package llm wraps the chat completion providers behind a single Client.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is one completion request. Messages carries earlier turns; User,
// when set, is appended as the final user turn. MaxTokens overrides the
// client default for this request.
type Prompt struct {
	System    string
	Messages  []Message
	User      string
	MaxTokens int
}

func (p Prompt) turns() []Message {
	out := make([]Message, 0, len(p.Messages)+1)
	for _, m := range p.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	if strings.TrimSpace(p.User) != "" {
		out = append(out, Message{Role: RoleUser, Content: p.User})
	}
	return out
}

func (p Prompt) maxTokens(fallback int) int {
	if p.MaxTokens > 0 {
		return p.MaxTokens
	}
	return fallback
}

type Client interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Provider() string
	Model() string
}

type Config struct {
	Provider        string
	Model           string
	BaseURL         string
	APIKey          string
	Temperature     float64
	MaxOutputTokens int
	TimeoutSeconds  int
}

func timeoutOf(cfg Config, fallback int) time.Duration {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = fallback
	}
	return time.Duration(timeout) * time.Second
}

func apiKeyOf(cfg Config, env string) string {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(env))
	}
	return apiKey
}

// New builds the client for cfg.Provider. An empty provider yields a nil
// client and no error.
func New(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		return nil, nil
	}

	switch provider {
	case "anthropic":
		apiKey := apiKeyOf(cfg, "ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, errors.New("anthropic selected but no API key provided (ANTHROPIC_API_KEY)")
		}
		model := strings.TrimSpace(cfg.Model)
		if model == "" {
			model = DefaultAnthropicModel
		}
		baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		if baseURL == "" {
			baseURL = "https://api.anthropic.com/v1"
		}
		maxTokens := cfg.MaxOutputTokens
		if maxTokens <= 0 {
			maxTokens = 1024
		}
		return &anthropicClient{
			baseURL:         baseURL,
			apiKey:          apiKey,
			model:           model,
			temperature:     cfg.Temperature,
			maxOutputTokens: maxTokens,
			timeout:         timeoutOf(cfg, 60),
		}, nil
	case "openai":
		apiKey := apiKeyOf(cfg, "OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("openai selected but no API key provided (OPENAI_API_KEY)")
		}
		model := strings.TrimSpace(cfg.Model)
		if model == "" {
			return nil, errors.New("openai selected but no model configured")
		}
		baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return &openAIClient{
			baseURL:         baseURL,
			apiKey:          apiKey,
			model:           model,
			temperature:     cfg.Temperature,
			maxOutputTokens: cfg.MaxOutputTokens,
			timeout:         timeoutOf(cfg, 15),
		}, nil
	case "ollama":
		model := strings.TrimSpace(cfg.Model)
		if model == "" {
			model = "llama3.2"
		}
		baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return &ollamaClient{
			baseURL:         baseURL,
			model:           model,
			temperature:     cfg.Temperature,
			maxOutputTokens: cfg.MaxOutputTokens,
			timeout:         timeoutOf(cfg, 15),
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
