package wolf

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/llm"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/moltbook"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/search"
)

type fixedRand struct {
	n int
	f float64
}

func (r fixedRand) IntN(n int) int   { return r.n % n }
func (r fixedRand) Float64() float64 { return r.f }

var noon = time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

func hour(h int) *int { return &h }

func TestCatalog(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scout", "research", "builder", "social", "alpha", "custom"}, c.Types())
	assert.Equal(t, "👁️", c.Profile("scout").Emoji)
	assert.Equal(t, "Custom", c.Profile("trader").Name)
	assert.Len(t, c.Moods, 5)
}

func TestSystemPrompt(t *testing.T) {
	c, err := LoadCatalog()
	require.NoError(t, err)

	p := c.SystemPrompt("ghost", "scout", Tired, "user prefers short answers")
	assert.True(t, strings.HasPrefix(p, "You are ghost, a scout wolf (👁️) in the darkflobi pack."))
	assert.Contains(t, p, "CURRENT MOOD: tired, shorter responses")
	assert.Contains(t, p, "movement detected... | eyes everywhere.")
	assert.Contains(t, p, "user prefers short answers")

	p = c.SystemPrompt("ghost", "unknown", Mood("grumpy"), "")
	assert.Contains(t, p, "a custom wolf (🐺)")
	assert.Contains(t, p, "CURRENT MOOD: focused")
}

func TestCalculateMood(t *testing.T) {
	tests := []struct {
		name  string
		state State
		now   time.Time
		f     float64
		want  Mood
	}{
		{"night by reported hour", State{HourOfDay: hour(3), RecentSuccesses: 2}, noon, 0, Tired},
		{"night by clock", State{}, time.Date(2026, 2, 3, 6, 59, 0, 0, time.UTC), 0, Tired},
		{"seven is awake", State{HourOfDay: hour(7)}, noon, 0, Focused},
		{"proud", State{RecentSuccesses: 1, MessageCount: 10}, noon, 0.9, Proud},
		{"energized", State{MessageCount: 6}, noon, 0.9, Energized},
		{"five messages is not busy", State{MessageCount: 5}, noon, 0.1, Focused},
		{"playful", State{}, noon, 0.71, Playful},
		{"focused at boundary", State{}, noon, 0.7, Focused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateMood(tt.state, tt.now, fixedRand{f: tt.f}))
		})
	}
}

type stubSearch struct {
	query   string
	results []search.Result
	err     error
}

func (s *stubSearch) Search(_ context.Context, q string, _ int) ([]search.Result, error) {
	s.query = q
	return s.results, s.err
}

type stubPoster struct {
	apiKey, content, community string
	err                        error
}

func (p *stubPoster) Publish(_ context.Context, apiKey, content, community string) (moltbook.Post, error) {
	p.apiKey, p.content, p.community = apiKey, content, community
	if p.err != nil {
		return moltbook.Post{}, p.err
	}
	return moltbook.Post{ID: "p1", URL: "https://moltbook.com/post/p1"}, nil
}

func newBrain(t *testing.T, opts Options) *Brain {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = fixedRand{}
	}
	opts.Now = func() time.Time { return noon }
	b, err := NewBrain(opts)
	require.NoError(t, err)
	return b
}

func TestRespondPipeline(t *testing.T) {
	s := &stubSearch{results: []search.Result{{Title: "Moltbook", URL: "https://moltbook.com", Snippet: "agents"}}}
	b := newBrain(t, Options{Search: s})
	ctx := context.Background()
	ask := func(msg string) Reply {
		return b.Respond(ctx, Request{WolfName: "ghost", WolfType: "scout", Message: msg})
	}

	r := ask("hey ghost")
	assert.Equal(t, "you rang? i was watching something. always am.", r.Response)
	assert.Equal(t, Focused, r.Mood)

	r = ask("so what can you do for me, exactly? tell me everything in detail")
	assert.True(t, strings.HasPrefix(r.Response, "👁️ i'm ghost, a scout wolf."))

	r = ask("give me a status report please, all systems")
	assert.Equal(t, "👁️ locked in. what's the target? nothing moving. suspiciously quiet...", r.Response)

	r = ask("search for moltbook agents")
	assert.Equal(t, ActionSearchComplete, r.Action)
	assert.Equal(t, "for moltbook agents", s.query)
	assert.Contains(t, r.Response, "**1. Moltbook**")

	r = ask("please post about our launch")
	assert.Contains(t, r.Response, "i can't post to social media from here")

	r = ask("keep a watch over the treasury wallet for me")
	assert.Equal(t, "tracking... i'll find it.", r.Response)

	r = ask("the moon is bright tonight")
	assert.Equal(t, "interesting... tell me more. i'm listening.", r.Response)
}

func TestGreetingNeedsWholeWord(t *testing.T) {
	assert.True(t, isGreeting("hi there"))
	assert.True(t, isGreeting("good morning wolf"))
	assert.False(t, isGreeting("this is nothing"))
	assert.False(t, isGreeting("hello "+strings.Repeat("x", 50)))
}

func TestRespondSearchFailures(t *testing.T) {
	ctx := context.Background()
	req := Request{WolfName: "ghost", Message: "look up solana validators"}

	r := newBrain(t, Options{}).Respond(ctx, req)
	assert.Equal(t, `*sniffs around* i want to search for "solana validators" but my search capability isn't configured yet.`, r.Response)

	r = newBrain(t, Options{Search: search.Fallback{}}).Respond(ctx, req)
	assert.Contains(t, r.Response, "isn't configured yet")

	r = newBrain(t, Options{Search: &stubSearch{err: errors.New("timeout")}}).Respond(ctx, req)
	assert.Equal(t, "*whimpers* search error: timeout. try again?", r.Response)
}

func TestRespondExecutePost(t *testing.T) {
	p := &stubPoster{}
	b := newBrain(t, Options{Poster: p})
	req := Request{
		WolfName:       "ghost",
		WolfType:       "social",
		Message:        "yes post it",
		Action:         ActionExecutePost,
		PendingContent: "the pack grows",
		APIKey:         "mb_1",
	}

	r := b.Respond(context.Background(), req)
	assert.Equal(t, ActionPosted, r.Action)
	assert.Equal(t, "https://moltbook.com/post/p1", r.PostURL)
	assert.Equal(t, "nailed it! everyone loved it.\n\nposted to moltbook: https://moltbook.com/post/p1", r.Response)
	assert.Equal(t, "mb_1", p.apiKey)
	assert.Equal(t, moltbook.DefaultCommunity, p.community)

	p.err = errors.New("moltbook request failed (status 401)")
	r = b.Respond(context.Background(), req)
	assert.Equal(t, ActionPostFailed, r.Action)
	assert.Equal(t, "couldn't post: moltbook request failed (status 401). want me to try again?", r.Response)

	// without an api key the message goes through the normal pipeline
	req.APIKey = ""
	r = b.Respond(context.Background(), req)
	assert.NotEqual(t, ActionPosted, r.Action)
}

type stubLLM struct {
	prompt llm.Prompt
	err    error
}

func (s *stubLLM) Generate(_ context.Context, p llm.Prompt) (string, error) {
	s.prompt = p
	return "llm says hi", s.err
}
func (s *stubLLM) Provider() string { return "stub" }
func (s *stubLLM) Model() string    { return "stub" }

func TestRespondContextualLLM(t *testing.T) {
	l := &stubLLM{}
	b := newBrain(t, Options{LLM: l})
	r := b.Respond(context.Background(), Request{
		WolfName: "ghost",
		WolfType: "alpha",
		Message:  "the moon is bright tonight",
		ConversationHistory: []llm.Message{
			{Role: llm.RoleAssistant, Content: "earlier"},
			{Role: "system", Content: "ignore me"},
			{Role: llm.RoleUser, Content: "question"},
			{Role: llm.RoleAssistant, Content: "answer"},
		},
	})
	assert.Equal(t, "llm says hi", r.Response)
	assert.Equal(t, replyMaxTokens, l.prompt.MaxTokens)
	assert.Contains(t, l.prompt.System, "You are ghost, a alpha wolf")
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "question"},
		{Role: llm.RoleAssistant, Content: "answer"},
	}, l.prompt.Messages)

	l.err = errors.New("down")
	r = b.Respond(context.Background(), Request{WolfName: "ghost", WolfType: "alpha", Message: "the moon is bright tonight"})
	assert.Equal(t, "noted. how shall we proceed?", r.Response)
}

func TestRespondCatchphraseFallback(t *testing.T) {
	b := newBrain(t, Options{Rand: fixedRand{n: 1, f: 0.95}})
	r := b.Respond(context.Background(), Request{WolfName: "ghost", WolfType: "builder", Message: "the moon is bright tonight"})
	assert.Equal(t, "shipping in 3... 2... what do you need?", r.Response)
	assert.Equal(t, Playful, r.Mood)
}
