package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/llm"
)

type recordingClient struct {
	prompts []llm.Prompt
	reply   string
	err     error
}

func (c *recordingClient) Generate(_ context.Context, p llm.Prompt) (string, error) {
	msgs := make([]llm.Message, len(p.Messages))
	copy(msgs, p.Messages)
	p.Messages = msgs
	c.prompts = append(c.prompts, p)
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("%s %d", c.reply, len(c.prompts)), nil
}

func (c *recordingClient) Provider() string { return "fake" }
func (c *recordingClient) Model() string    { return "fake-1" }

func newService(t *testing.T, c llm.Client) *Service {
	t.Helper()
	s, err := New(c, NewConversations(0))
	require.NoError(t, err)
	return s
}

func TestReplyRemembersConversation(t *testing.T) {
	c := &recordingClient{reply: "howl"}
	s := newService(t, c)
	ctx := context.Background()

	r, err := s.Reply(ctx, "1.2.3.4", "hi", WebChat, "")
	require.NoError(t, err)
	assert.Equal(t, "howl 1", r)

	_, err = s.Reply(ctx, "1.2.3.4", "what's trending", "", "")
	require.NoError(t, err)

	last := c.prompts[1]
	assert.Equal(t, 300, last.MaxTokens)
	assert.Equal(t, s.prompts.Personalities["scout"], last.System)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "howl 1"},
		{Role: llm.RoleUser, Content: "what's trending"},
	}, last.Messages)

	// other clients start fresh
	_, err = s.Reply(ctx, "5.6.7.8", "yo", WebChat, "oracle")
	require.NoError(t, err)
	assert.Len(t, c.prompts[2].Messages, 1)
	assert.Contains(t, c.prompts[2].System, "oracle wolf")
}

func TestReplyHistoryLimit(t *testing.T) {
	c := &recordingClient{reply: "ok"}
	s := newService(t, c)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := s.Reply(ctx, "ip", fmt.Sprintf("m%d", i), WebChat, "")
		require.NoError(t, err)
	}
	last := c.prompts[len(c.prompts)-1]
	require.LessOrEqual(t, len(last.Messages), historyLimit)
	assert.Equal(t, llm.RoleUser, last.Messages[0].Role)
	assert.Equal(t, "m5", last.Messages[len(last.Messages)-1].Content)
}

func TestReplyModes(t *testing.T) {
	c := &recordingClient{reply: "done"}
	s := newService(t, c)
	ctx := context.Background()

	_, err := s.Reply(ctx, "ip", "first", WebChat, "")
	require.NoError(t, err)

	_, err = s.Reply(ctx, "ip", "summarise solana news", WolfTask, "")
	require.NoError(t, err)
	task := c.prompts[1]
	assert.Equal(t, 1500, task.MaxTokens)
	assert.Equal(t, s.prompts.Task, task.System)
	assert.Len(t, task.Messages, 1, "tasks start from an empty history")

	_, err = s.Reply(ctx, "ip", "more detail", WolfFollowup, "")
	require.NoError(t, err)
	follow := c.prompts[2]
	assert.Equal(t, 800, follow.MaxTokens)
	assert.Len(t, follow.Messages, 3)

	_, err = s.Reply(ctx, "ip", "x", Mode("shell"), "")
	assert.Error(t, err)
}

func TestReplyNotConfigured(t *testing.T) {
	s := newService(t, nil)
	assert.False(t, s.Configured())
	_, err := s.Reply(context.Background(), "ip", "hi", WebChat, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestReplyErrorKeepsHistory(t *testing.T) {
	c := &recordingClient{err: errors.New("overloaded")}
	s := newService(t, c)
	_, err := s.Reply(context.Background(), "ip", "hi", WebChat, "")
	assert.EqualError(t, err, "overloaded")
	assert.Zero(t, s.history.Len())
}

func TestConversationsDropOldestHalf(t *testing.T) {
	conv := NewConversations(10)
	for i := 0; i < 11; i++ {
		conv.Put(fmt.Sprintf("ip-%d", i), []llm.Message{{Role: llm.RoleUser, Content: "x"}})
	}
	assert.Equal(t, 6, conv.Len())
	assert.Empty(t, conv.Get("ip-0"))
	assert.Empty(t, conv.Get("ip-4"))
	assert.NotEmpty(t, conv.Get("ip-5"))
	assert.NotEmpty(t, conv.Get("ip-10"))
}

func TestPersonalitiesLoaded(t *testing.T) {
	s := newService(t, nil)
	assert.ElementsMatch(t, []string{"scout", "research", "trader", "monitor", "writer", "oracle"}, s.Personalities())
}

func TestWork(t *testing.T) {
	c := &recordingClient{reply: "report"}
	s := newService(t, c)
	ctx := context.Background()
	assert.Equal(t, []string{"analyst", "monitor", "research"}, s.WorkTypes())

	out, err := s.Work(ctx, "research", "solana validator economics")
	require.NoError(t, err)
	assert.Equal(t, "report 1", out)
	require.Len(t, c.prompts, 1)
	assert.Equal(t, "solana validator economics", c.prompts[0].User)
	assert.Equal(t, 1024, c.prompts[0].MaxTokens)
	assert.Contains(t, c.prompts[0].System, "research wolf")
	assert.Empty(t, c.prompts[0].Messages)

	_, err = s.Work(ctx, "scout", "anything")
	assert.ErrorIs(t, err, ErrUnknownWorkType)

	_, err = newService(t, nil).Work(ctx, "monitor", "the mempool")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
