package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviders(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	c, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = New(Config{Provider: "anthropic"})
	assert.Error(t, err)

	c, err = New(Config{Provider: "Anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Provider())
	assert.Equal(t, DefaultAnthropicModel, c.Model())

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	c, err = New(Config{Provider: "anthropic"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.(*anthropicClient).apiKey)

	_, err = New(Config{Provider: "openai", APIKey: "k"})
	assert.Error(t, err, "openai needs a model")

	c, err = New(Config{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", c.Model())

	_, err = New(Config{Provider: "gemini"})
	assert.EqualError(t, err, "unknown llm provider: gemini")
}

func TestAnthropicGenerate(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"on the hunt. "},{"type":"text","text":"spotted something."}]}`)
	}))
	defer srv.Close()

	c, err := New(Config{Provider: "anthropic", APIKey: "secret", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), Prompt{
		System: "you are a scout wolf",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "yo"},
		},
		User:      "find alpha",
		MaxTokens: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, "on the hunt. spotted something.", out)

	want := anthropicRequest{
		Model:     DefaultAnthropicModel,
		MaxTokens: 300,
		System:    "you are a scout wolf",
		Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "yo"},
			{Role: RoleUser, Content: "find alpha"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestAnthropicDefaultMaxTokens(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer srv.Close()

	c, err := New(Config{Provider: "anthropic", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), Prompt{User: "task"})
	require.NoError(t, err)
	assert.Equal(t, 1024, got.MaxTokens)
}

func TestAnthropicErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"status", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, `anthropic error (401): {"error":{"message":"bad key"}}`},
		{"error body", http.StatusOK, `{"error":{"type":"overloaded_error","message":"overloaded"}}`, "anthropic error: overloaded"},
		{"empty", http.StatusOK, `{"content":[]}`, "anthropic response had no text content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c, err := New(Config{Provider: "anthropic", APIKey: "k", BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = c.Generate(context.Background(), Prompt{User: "x"})
			assert.EqualError(t, err, tt.want)
		})
	}

	c, err := New(Config{Provider: "anthropic", APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), Prompt{System: "only system"})
	assert.EqualError(t, err, "empty prompt")
}

func TestOllamaGenerateWithHistory(t *testing.T) {
	var got struct {
		Model    string         `json:"model"`
		Messages []Message      `json:"messages"`
		Stream   bool           `json:"stream"`
		Options  map[string]any `json:"options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"message":{"content":"  howl  "}}`)
	}))
	defer srv.Close()

	c, err := New(Config{Provider: "ollama", BaseURL: srv.URL})
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), Prompt{
		System:    "sys",
		Messages:  []Message{{Role: RoleUser, Content: "a"}, {Role: RoleAssistant, Content: "b"}},
		User:      "c",
		MaxTokens: 800,
	})
	require.NoError(t, err)
	assert.Equal(t, "howl", out)
	assert.Equal(t, []Message{
		{Role: "system", Content: "sys"},
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}, got.Messages)
	assert.False(t, got.Stream)
	assert.EqualValues(t, 800, got.Options["num_predict"])
}

func TestOpenAIGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"output":[{"type":"message","content":[{"type":"output_text","text":"done"}]}]}`)
	}))
	defer srv.Close()

	c, err := New(Config{Provider: "openai", APIKey: "k", Model: "gpt-4o-mini", BaseURL: srv.URL})
	require.NoError(t, err)
	out, err := c.Generate(context.Background(), Prompt{
		Messages: []Message{{Role: RoleAssistant, Content: "earlier"}},
		User:     "now",
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	input := got["input"].([]any)
	require.Len(t, input, 2)
	first := input[0].(map[string]any)
	assert.Equal(t, "assistant", first["role"])
	assert.Equal(t, "output_text", first["content"].([]any)[0].(map[string]any)["type"])
}
