// Package stats keeps the recent spawn events and running totals shown on
// the admin dashboard. State lives in memory and resets on restart.
package stats

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultLogSize = 100
	recentLimit    = 20
	refundsLimit   = 10
)

type Status string

const (
	StatusSuccess        Status = "success"
	StatusPaymentFailed  Status = "payment_failed"
	StatusMoltbookFailed Status = "moltbook_failed"
	StatusRateLimited    Status = "rate_limited"
	StatusRejected       Status = "rejected"
	StatusError          Status = "error"
)

// Event is one spawn attempt.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	Status      Status    `json:"status"`
	WolfID      string    `json:"wolfId,omitempty"`
	WolfName    string    `json:"wolfName,omitempty"`
	WolfType    string    `json:"wolfType,omitempty"`
	Tier        string    `json:"tier,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Wallet      string    `json:"wallet,omitempty"`
	TxSignature string    `json:"txSignature,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	IP          string    `json:"ip,omitempty"`
}

type Totals struct {
	Total          int `json:"total"`
	Success        int `json:"success"`
	Failed         int `json:"failed"`
	PendingRefunds int `json:"pendingRefunds"`
}

// Add folds one event into t. Payment failures are left out entirely since
// no money was received; a failed registration after payment owes a refund.
func (t *Totals) Add(s Status) {
	switch s {
	case StatusPaymentFailed:
		return
	case StatusSuccess:
		t.Success++
	case StatusMoltbookFailed:
		t.Failed++
		t.PendingRefunds++
	}
	t.Total++
}

// Recorder persists spawn events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

type Snapshot struct {
	Totals         Totals
	Recent         []Event
	PendingRefunds []Event
}

// Log is a bounded newest-first event log.
type Log struct {
	mu     sync.Mutex
	size   int
	events []Event
	totals Totals
	now    func() time.Time
}

var _ Recorder = (*Log)(nil)

func NewLog(size int) *Log {
	if size <= 0 {
		size = DefaultLogSize
	}
	return &Log{size: size, now: time.Now}
}

func (l *Log) Record(_ context.Context, e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}
	l.events = append([]Event{e}, l.events...)
	if len(l.events) > l.size {
		l.events = l.events[:l.size]
	}
	l.totals.Add(e.Status)
	return nil
}

func (l *Log) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Snapshot{
		Totals:         l.totals,
		Recent:         append([]Event(nil), l.events[:min(recentLimit, len(l.events))]...),
		PendingRefunds: []Event{},
	}
	for _, e := range l.events {
		if len(s.PendingRefunds) == refundsLimit {
			break
		}
		if e.Status == StatusMoltbookFailed {
			s.PendingRefunds = append(s.PendingRefunds, e)
		}
	}
	return s
}

// Multi fans an event out to every recorder and returns the first error.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, e Event) error {
	var first error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// TruncateWallet shortens a wallet address for logs.
func TruncateWallet(w string) string {
	if w == "" {
		return ""
	}
	if len(w) > 10 {
		w = w[:10]
	}
	return w + "..."
}
