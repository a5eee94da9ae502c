package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/stats"
)

func openSQLite(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndTotals(t *testing.T) {
	l := openSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	events := []stats.Event{
		{Status: stats.StatusSuccess, WolfID: "wolf-a", Tier: "basic", Amount: "10000", Wallet: "9xQeWvG816..."},
		{Status: stats.StatusPaymentFailed, Reason: "Transaction too old. Must be within last hour."},
		{Status: stats.StatusMoltbookFailed, WolfName: "rex", Reason: "moltbook request failed: taken (status 409)"},
		{Status: stats.StatusSuccess, WolfID: "wolf-b", Tier: "premium"},
	}
	for i, e := range events {
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, l.Record(ctx, e))
	}

	tot, err := l.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Totals{Total: 3, Success: 2, Failed: 1, PendingRefunds: 1}, tot)

	recent, err := l.Recent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "wolf-b", recent[0].WolfID)
	assert.Equal(t, base.Add(3*time.Minute), recent[0].Timestamp)
	assert.Equal(t, stats.StatusMoltbookFailed, recent[1].Status)

	refunds, err := l.Recent(ctx, stats.StatusMoltbookFailed, 10)
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, "rex", refunds[0].WolfName)
}

func TestReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	l, err := Open(ctx, "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, stats.Event{Status: stats.StatusSuccess}))
	require.NoError(t, l.Close())

	l, err = Open(ctx, "sqlite", path)
	require.NoError(t, err)
	defer l.Close()
	tot, err := l.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tot.Success)
}

func TestRebind(t *testing.T) {
	pg := &Ledger{driver: "postgres"}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &Ledger{driver: "sqlite"}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.EqualError(t, err, "unsupported ledger driver: mysql")
}
