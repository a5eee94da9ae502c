package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultWindow      = time.Hour
	DefaultMaxRequests = 20
)

type windowRecord struct {
	start time.Time
	count int
}

// IPWindow counts requests per key in a window that restarts on the first
// request after it expires.
type IPWindow struct {
	mu      sync.Mutex
	records map[string]*windowRecord
	window  time.Duration
	max     int
	now     func() time.Time
}

func NewIPWindow(window time.Duration, max int) *IPWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	return &IPWindow{
		records: make(map[string]*windowRecord),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// Allow counts one request for ip and reports whether it is within limits.
func (w *IPWindow) Allow(ip string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	rec, ok := w.records[ip]
	if !ok || now.Sub(rec.start) > w.window {
		w.records[ip] = &windowRecord{start: now, count: 1}
		w.sweep(now)
		return true
	}
	if rec.count >= w.max {
		return false
	}
	rec.count++
	return true
}

// sweep drops expired windows once the table grows past the cooldown
// threshold.
func (w *IPWindow) sweep(now time.Time) {
	if len(w.records) <= sweepThreshold {
		return
	}
	for ip, rec := range w.records {
		if now.Sub(rec.start) > w.window {
			delete(w.records, ip)
		}
	}
}
