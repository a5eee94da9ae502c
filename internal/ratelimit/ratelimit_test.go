package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestWalletCooldown(t *testing.T) {
	c := &clock{t: time.Unix(1_760_000_000, 0)}
	l := NewWalletCooldown(0)
	l.now = c.now

	assert.Equal(t, Decision{Allowed: true}, l.Check("W"))

	c.advance(10 * time.Second)
	assert.Equal(t, Decision{RetryAfter: 50}, l.Check("W"))

	c.advance(49*time.Second + 500*time.Millisecond)
	assert.Equal(t, Decision{RetryAfter: 1}, l.Check("W"))

	assert.True(t, l.Check("other").Allowed)

	c.advance(500 * time.Millisecond)
	assert.True(t, l.Check("W").Allowed)
}

func TestWalletCooldownRejectionDoesNotExtend(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := NewWalletCooldown(time.Minute)
	l.now = c.now

	l.Check("W")
	c.advance(30 * time.Second)
	assert.False(t, l.Check("W").Allowed)
	c.advance(30 * time.Second)
	assert.True(t, l.Check("W").Allowed)
}

func TestWalletCooldownEmptyWallet(t *testing.T) {
	l := NewWalletCooldown(time.Minute)
	assert.True(t, l.Check("").Allowed)
	assert.True(t, l.Check("").Allowed)
	assert.Zero(t, l.Len())
}

func TestWalletCooldownSweep(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	l := NewWalletCooldown(time.Minute)
	l.now = c.now

	for i := 0; i < 500; i++ {
		l.Check(fmt.Sprintf("old-%d", i))
	}
	assert.Equal(t, 500, l.Len())

	c.advance(3 * time.Minute)
	l.Check("fresh")
	assert.Equal(t, 1, l.Len())
}

func TestIPWindow(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	w := NewIPWindow(0, 0)
	w.now = c.now

	for i := 0; i < DefaultMaxRequests; i++ {
		assert.True(t, w.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, w.Allow("1.2.3.4"))
	assert.True(t, w.Allow("5.6.7.8"))

	c.advance(time.Hour)
	assert.False(t, w.Allow("1.2.3.4"), "window boundary is inclusive")

	c.advance(time.Second)
	assert.True(t, w.Allow("1.2.3.4"))
}
