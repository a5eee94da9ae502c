package stats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotals(t *testing.T) {
	var tot Totals
	for _, s := range []Status{StatusSuccess, StatusPaymentFailed, StatusMoltbookFailed, StatusRateLimited, StatusSuccess} {
		tot.Add(s)
	}
	assert.Equal(t, Totals{Total: 4, Success: 2, Failed: 1, PendingRefunds: 1}, tot)
}

func TestLogSnapshot(t *testing.T) {
	l := NewLog(100)
	clock := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		status := StatusSuccess
		if i%10 == 0 {
			status = StatusMoltbookFailed
		}
		require.NoError(t, l.Record(ctx, Event{Status: status, WolfID: fmt.Sprintf("wolf-%d", i)}))
	}
	require.NoError(t, l.Record(ctx, Event{Status: StatusPaymentFailed}))

	s := l.Snapshot()
	assert.Equal(t, Totals{Total: 120, Success: 108, Failed: 12, PendingRefunds: 12}, s.Totals)
	require.Len(t, s.Recent, 20)
	assert.Equal(t, StatusPaymentFailed, s.Recent[0].Status)
	assert.Equal(t, "wolf-119", s.Recent[1].WolfID)
	assert.Equal(t, clock, s.Recent[0].Timestamp)

	// 100 retained events hold refunds for wolf-110 down to wolf-30.
	require.Len(t, s.PendingRefunds, 9)
	assert.Equal(t, "wolf-110", s.PendingRefunds[0].WolfID)
	assert.Equal(t, "wolf-30", s.PendingRefunds[8].WolfID)
	assert.Len(t, l.events, 100)
}

func TestPendingRefundsLimit(t *testing.T) {
	l := NewLog(0)
	for i := 0; i < 15; i++ {
		require.NoError(t, l.Record(context.Background(), Event{Status: StatusMoltbookFailed}))
	}
	s := l.Snapshot()
	assert.Len(t, s.PendingRefunds, 10)
	assert.Len(t, s.Recent, 15)
	assert.Equal(t, 15, s.Totals.PendingRefunds)
}

func TestEmptySnapshot(t *testing.T) {
	s := NewLog(0).Snapshot()
	assert.Empty(t, s.Recent)
	assert.NotNil(t, s.PendingRefunds)
}

type failing struct{}

func (failing) Record(context.Context, Event) error { return errors.New("disk full") }

func TestMulti(t *testing.T) {
	l := NewLog(5)
	err := Multi{failing{}, nil, l}.Record(context.Background(), Event{Status: StatusSuccess})
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1, l.Snapshot().Totals.Success)
}

func TestTruncateWallet(t *testing.T) {
	assert.Equal(t, "9xQeWvG816...", TruncateWallet("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"))
	assert.Equal(t, "abc...", TruncateWallet("abc"))
	assert.Equal(t, "", TruncateWallet(""))
}
