package wolf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/llm"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/log"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/moltbook"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/search"
)

var logger = log.NewLogger("wolf")

const (
	ActionExecutePost    = "execute_post"
	ActionPosted         = "posted"
	ActionPostFailed     = "post_failed"
	ActionSearchComplete = "search_complete"

	historyLimit   = 6
	replyMaxTokens = 300
)

type Request struct {
	WolfName            string        `json:"wolfName"`
	WolfType            string        `json:"wolfType"`
	Message             string        `json:"message"`
	APIKey              string        `json:"apiKey"`
	Action              string        `json:"action"`
	PendingContent      string        `json:"pendingContent"`
	ConversationHistory []llm.Message `json:"conversationHistory"`
	WolfState           State         `json:"wolfState"`
}

type Reply struct {
	Response string `json:"response"`
	Action   string `json:"action,omitempty"`
	Mood     Mood   `json:"mood,omitempty"`
	PostURL  string `json:"postUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Poster publishes content on behalf of a wolf.
type Poster interface {
	Publish(ctx context.Context, apiKey, content, community string) (moltbook.Post, error)
}

type Options struct {
	Search    search.Searcher
	Poster    Poster
	LLM       llm.Client
	Community string
	Rand      Rand
	Now       func() time.Time
}

type Brain struct {
	catalog   *Catalog
	search    search.Searcher
	poster    Poster
	llm       llm.Client
	community string
	rand      Rand
	now       func() time.Time
}

func NewBrain(opts Options) (*Brain, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	if opts.Rand == nil {
		opts.Rand = globalRand{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Community == "" {
		opts.Community = moltbook.DefaultCommunity
	}
	return &Brain{
		catalog:   catalog,
		search:    opts.Search,
		poster:    opts.Poster,
		llm:       opts.LLM,
		community: opts.Community,
		rand:      opts.Rand,
		now:       opts.Now,
	}, nil
}

func (b *Brain) Catalog() *Catalog {
	return b.catalog
}

// Respond runs the response pipeline for one message. The first matching
// stage wins: post execution, greeting, identity, status, search, posting
// notice, task acknowledgement, then a contextual reply.
func (b *Brain) Respond(ctx context.Context, req Request) Reply {
	wolfType := req.WolfType
	if wolfType == "" {
		wolfType = DefaultType
	}

	if req.Action == ActionExecutePost && req.PendingContent != "" && req.APIKey != "" {
		return b.executePost(ctx, wolfType, req)
	}

	mood := CalculateMood(req.WolfState, b.now(), b.rand)
	reply := func(text, action string) Reply {
		return Reply{Response: text, Action: action, Mood: mood}
	}
	profile := b.catalog.Profile(wolfType)
	lower := strings.ToLower(req.Message)

	switch {
	case isGreeting(lower):
		return reply(pick(b.rand, profile.Greetings), "")
	case containsAny(lower, "who are you", "what are you", "what can you do"):
		return reply(b.catalog.intro(req.WolfName, wolfType), "")
	case containsAny(lower, "status", "how are you", "what's up"):
		return reply(b.status(profile, mood), "")
	}

	if query, ok := search.DetectIntent(req.Message); ok {
		return reply(b.performSearch(ctx, query, wolfType), ActionSearchComplete)
	}

	switch {
	case containsAny(lower, "post", "tweet", "send to"):
		return reply(`i can't post to social media from here, but i *can* search and research things for you. try "search for [topic]" or "find info about [subject]"`, "")
	case containsAny(lower, "track", "monitor", "watch", "alert me", "notify"):
		return reply(pick(b.rand, profile.Acks), "")
	}

	return reply(b.contextual(ctx, req, wolfType, mood), "")
}

func (b *Brain) executePost(ctx context.Context, wolfType string, req Request) Reply {
	if b.poster == nil {
		return Reply{Response: "couldn't post: posting is not configured. want me to try again?", Action: ActionPostFailed, Error: "posting is not configured"}
	}
	post, err := b.poster.Publish(ctx, req.APIKey, req.PendingContent, b.community)
	if err != nil {
		logger.Warn().Err(err).Str("wolf", req.WolfName).Msg("moltbook post failed")
		return Reply{
			Response: fmt.Sprintf("couldn't post: %v. want me to try again?", err),
			Action:   ActionPostFailed,
			Error:    err.Error(),
		}
	}
	success := pick(b.rand, b.catalog.Profile(wolfType).Success)
	return Reply{
		Response: fmt.Sprintf("%s\n\nposted to moltbook: %s", success, post.URL),
		Action:   ActionPosted,
		PostURL:  post.URL,
	}
}

func (b *Brain) status(p Profile, mood Mood) string {
	m, ok := b.catalog.Moods[mood]
	if !ok {
		m = b.catalog.Moods[Focused]
	}
	return fmt.Sprintf("%s %s %s", p.Emoji, m.Status, pick(b.rand, p.Idle))
}

func (b *Brain) performSearch(ctx context.Context, query, wolfType string) string {
	if b.search == nil {
		return notConfigured(query)
	}
	results, err := b.search.Search(ctx, query, search.DefaultCount)
	if errors.Is(err, search.ErrNotConfigured) {
		return notConfigured(query)
	}
	if err != nil {
		logger.Warn().Err(err).Str("query", query).Msg("search failed")
		return fmt.Sprintf("*whimpers* search error: %v. try again?", err)
	}
	return search.Format(results, query, wolfType)
}

func notConfigured(query string) string {
	return fmt.Sprintf("*sniffs around* i want to search for \"%s\" but my search capability isn't configured yet.", query)
}

// contextual answers through the LLM when one is configured and falls back
// to the profile's scripted replies.
func (b *Brain) contextual(ctx context.Context, req Request, wolfType string, mood Mood) string {
	if b.llm != nil {
		out, err := b.llm.Generate(ctx, llm.Prompt{
			System:    b.catalog.SystemPrompt(req.WolfName, wolfType, mood, ""),
			Messages:  history(req.ConversationHistory),
			User:      req.Message,
			MaxTokens: replyMaxTokens,
		})
		if err == nil {
			return out
		}
		logger.Warn().Err(err).Msg("llm reply failed, using scripted reply")
	}

	profile := b.catalog.Profile(wolfType)
	if b.rand.Float64() > 0.7 {
		return pick(b.rand, profile.Catchphrases) + " what do you need?"
	}
	return pick(b.rand, profile.Replies)
}

// history keeps the last turns of a client supplied conversation with valid
// roles, starting on a user turn.
func history(in []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(in))
	for _, m := range in {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			out = append(out, m)
		}
	}
	if len(out) > historyLimit {
		out = out[len(out)-historyLimit:]
	}
	for len(out) > 0 && out[0].Role != llm.RoleUser {
		out = out[1:]
	}
	return out
}

var greetingWords = map[string]bool{
	"hello": true, "hi": true, "hey": true, "yo": true, "sup": true, "greetings": true,
}

func isGreeting(lower string) bool {
	if len(lower) >= 50 {
		return false
	}
	if containsAny(lower, "good morning", "good evening") {
		return true
	}
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if greetingWords[w] {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
