// Package ledger persists spawn events in SQL so admin totals survive
// restarts. Postgres (lib/pq) and SQLite (modernc) are supported.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/log"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/stats"
)

var logger = log.NewLogger("ledger")

const schema = `
CREATE TABLE IF NOT EXISTS spawn_events (
	created_at   BIGINT NOT NULL,
	status       TEXT NOT NULL,
	wolf_id      TEXT NOT NULL DEFAULT '',
	wolf_name    TEXT NOT NULL DEFAULT '',
	wolf_type    TEXT NOT NULL DEFAULT '',
	tier         TEXT NOT NULL DEFAULT '',
	amount       TEXT NOT NULL DEFAULT '',
	wallet       TEXT NOT NULL DEFAULT '',
	tx_signature TEXT NOT NULL DEFAULT '',
	reason       TEXT NOT NULL DEFAULT '',
	ip           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS spawn_events_created ON spawn_events (created_at);
`

type Ledger struct {
	db     *sql.DB
	driver string
}

var _ stats.Recorder = (*Ledger)(nil)

// Open connects to driver ("postgres" or "sqlite") and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*Ledger, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}
	l := &Ledger{db: db, driver: driver}
	if err := l.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info().Str("driver", driver).Msg("ledger ready")
	return l, nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $N for postgres.
func (l *Ledger) rebind(query string) string {
	if l.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (l *Ledger) Record(ctx context.Context, e stats.Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, l.rebind(`INSERT INTO spawn_events
		(created_at, status, wolf_id, wolf_name, wolf_type, tier, amount, wallet, tx_signature, reason, ip)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.Timestamp.UnixMilli(), string(e.Status), e.WolfID, e.WolfName, e.WolfType, e.Tier,
		e.Amount, e.Wallet, e.TxSignature, e.Reason, e.IP)
	if err != nil {
		return fmt.Errorf("record spawn event: %w", err)
	}
	return nil
}

// Totals counts every recorded event the same way the in-memory log does.
func (l *Ledger) Totals(ctx context.Context) (stats.Totals, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM spawn_events GROUP BY status`)
	if err != nil {
		return stats.Totals{}, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var t stats.Totals
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats.Totals{}, fmt.Errorf("scan totals: %w", err)
		}
		for i := 0; i < n; i++ {
			t.Add(stats.Status(status))
		}
	}
	return t, rows.Err()
}

// Recent returns up to limit events, newest first. A non-empty status
// filters on it.
func (l *Ledger) Recent(ctx context.Context, status stats.Status, limit int) ([]stats.Event, error) {
	query := `SELECT created_at, status, wolf_id, wolf_name, wolf_type, tier, amount, wallet, tx_signature, reason, ip
		FROM spawn_events`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, l.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	events := []stats.Event{}
	for rows.Next() {
		var e stats.Event
		var ms int64
		var st string
		if err := rows.Scan(&ms, &st, &e.WolfID, &e.WolfName, &e.WolfType, &e.Tier,
			&e.Amount, &e.Wallet, &e.TxSignature, &e.Reason, &e.IP); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ms).UTC()
		e.Status = stats.Status(st)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
