// Package ratelimit holds the in-process limiters: a per-wallet spawn
// cooldown and a per-IP hourly window for chat.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

const (
	DefaultCooldown = time.Minute
	sweepThreshold  = 500
	sweepRetention  = 2 * time.Minute
)

// Decision is the result of a cooldown check. RetryAfter is whole seconds
// and positive when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

// WalletCooldown allows one accepted spawn per wallet per cooldown period.
type WalletCooldown struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

func NewWalletCooldown(cooldown time.Duration) *WalletCooldown {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &WalletCooldown{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Check records an accepted call for wallet, or reports how long to wait.
// An empty wallet is always allowed and never recorded.
func (c *WalletCooldown) Check(wallet string) Decision {
	if wallet == "" {
		return Decision{Allowed: true}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.last[wallet]; ok {
		if elapsed := now.Sub(last); elapsed < c.cooldown {
			wait := int(math.Ceil((c.cooldown - elapsed).Seconds()))
			if wait < 1 {
				wait = 1
			}
			return Decision{RetryAfter: wait}
		}
	}

	c.last[wallet] = now
	if len(c.last) > sweepThreshold {
		cutoff := now.Add(-sweepRetention)
		for w, t := range c.last {
			if t.Before(cutoff) {
				delete(c.last, w)
			}
		}
	}
	return Decision{Allowed: true}
}

func (c *WalletCooldown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}
