package chat

import (
	"sync"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/llm"
)

const (
	DefaultMaxConversations = 1000
	historyLimit            = 6
)

// Conversations keeps recent turns per client. When more than max clients
// are tracked, the oldest half (by first contact) is forgotten.
type Conversations struct {
	mu    sync.Mutex
	max   int
	turns map[string][]llm.Message
	order []string
}

func NewConversations(max int) *Conversations {
	if max <= 0 {
		max = DefaultMaxConversations
	}
	return &Conversations{
		max:   max,
		turns: make(map[string][]llm.Message),
	}
}

func (c *Conversations) Get(key string) []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	turns := c.turns[key]
	out := make([]llm.Message, len(turns))
	copy(out, turns)
	return out
}

func (c *Conversations) Put(key string, turns []llm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.turns[key]; !ok {
		c.order = append(c.order, key)
	}
	c.turns[key] = turns

	if len(c.turns) > c.max {
		drop := c.max / 2
		for _, k := range c.order[:drop] {
			delete(c.turns, k)
		}
		c.order = append([]string(nil), c.order[drop:]...)
	}
}

func (c *Conversations) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// trim keeps the last historyLimit turns and never starts on an assistant
// turn.
func trim(turns []llm.Message) []llm.Message {
	if len(turns) > historyLimit {
		turns = turns[len(turns)-historyLimit:]
	}
	for len(turns) > 0 && turns[0].Role != llm.RoleUser {
		turns = turns[1:]
	}
	return turns
}
