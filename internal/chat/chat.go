// Package chat answers free-form messages through the configured LLM with a
// short per-client memory.
package chat

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/llm"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/log"
)

var logger = log.NewLogger("chat")

//go:embed personalities.yaml
var personalitiesYAML []byte

// ErrNotConfigured is returned when no LLM client is available.
var ErrNotConfigured = errors.New("chat llm not configured")

// ErrUnknownWorkType is returned by Work for a type without a prompt.
var ErrUnknownWorkType = errors.New("unknown work type")

const workMaxTokens = 1024

// Mode selects the system prompt, token budget and memory use of a reply.
type Mode string

const (
	WebChat      Mode = "web_chat"
	WolfTask     Mode = "wolf_task"
	WolfFollowup Mode = "wolf_followup"
)

func (m Mode) maxTokens() int {
	switch m {
	case WolfTask:
		return 1500
	case WolfFollowup:
		return 800
	default:
		return 300
	}
}

type prompts struct {
	Default       string            `yaml:"default"`
	Task          string            `yaml:"task"`
	Personalities map[string]string `yaml:"personalities"`
	Work          map[string]string `yaml:"work"`
}

func loadPrompts() (prompts, error) {
	var p prompts
	if err := yaml.Unmarshal(personalitiesYAML, &p); err != nil {
		return prompts{}, fmt.Errorf("parse personalities: %w", err)
	}
	if _, ok := p.Personalities[p.Default]; !ok {
		return prompts{}, fmt.Errorf("default personality %q missing", p.Default)
	}
	if len(p.Work) == 0 {
		return prompts{}, errors.New("no work prompts defined")
	}
	return p, nil
}

type Service struct {
	client  llm.Client
	history *Conversations
	prompts prompts
}

// New returns a chat service. A nil client is allowed; Reply then reports
// ErrNotConfigured.
func New(client llm.Client, history *Conversations) (*Service, error) {
	p, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = NewConversations(DefaultMaxConversations)
	}
	return &Service{client: client, history: history, prompts: p}, nil
}

func (s *Service) Configured() bool {
	return s.client != nil
}

// Personalities lists the wolf types with a chat persona.
func (s *Service) Personalities() []string {
	out := make([]string, 0, len(s.prompts.Personalities))
	for k := range s.prompts.Personalities {
		out = append(out, k)
	}
	return out
}

func (s *Service) systemPrompt(mode Mode, wolfType string) string {
	if mode == WolfTask || mode == WolfFollowup {
		return s.prompts.Task
	}
	if p, ok := s.prompts.Personalities[wolfType]; ok {
		return p
	}
	return s.prompts.Personalities[s.prompts.Default]
}

// Reply answers message for the client identified by key. wolf_task starts
// from an empty history.
func (s *Service) Reply(ctx context.Context, key, message string, mode Mode, wolfType string) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}
	switch mode {
	case WebChat, WolfTask, WolfFollowup:
	case "":
		mode = WebChat
	default:
		return "", fmt.Errorf("unknown chat context: %s", mode)
	}

	var turns []llm.Message
	if mode != WolfTask {
		turns = s.history.Get(key)
	}
	turns = trim(append(turns, llm.Message{Role: llm.RoleUser, Content: message}))

	reply, err := s.client.Generate(ctx, llm.Prompt{
		System:    s.systemPrompt(mode, wolfType),
		Messages:  turns,
		MaxTokens: mode.maxTokens(),
	})
	if err != nil {
		return "", err
	}

	s.history.Put(key, append(turns, llm.Message{Role: llm.RoleAssistant, Content: reply}))
	logger.Debug().Str("mode", string(mode)).Int("turns", len(turns)).Msg("chat reply")
	return reply, nil
}

// WorkTypes lists the task types Work accepts, sorted.
func (s *Service) WorkTypes() []string {
	out := make([]string, 0, len(s.prompts.Work))
	for k := range s.prompts.Work {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Work runs a one-shot task with the prompt for workType. No history is
// read or kept.
func (s *Service) Work(ctx context.Context, workType, task string) (string, error) {
	system, ok := s.prompts.Work[workType]
	if !ok {
		return "", ErrUnknownWorkType
	}
	if s.client == nil {
		return "", ErrNotConfigured
	}
	result, err := s.client.Generate(ctx, llm.Prompt{System: system, User: task, MaxTokens: workMaxTokens})
	if err != nil {
		return "", err
	}
	logger.Info().Str("type", workType).Int("task_len", len(task)).Msg("work task done")
	return result, nil
}
