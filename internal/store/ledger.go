package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"checkpoint/internal/types"
)

var ErrNilDB = errors.New("store: nil database")

// Decision is one audited gate outcome.
type Decision struct {
	SessionID string
	ClientIP  string
	State     types.VerificationState
	Score     int
	Elapsed   time.Duration
	Settle    time.Duration
	DecidedAt time.Time
}

// Ledger records gate decisions in SQLite.
type Ledger struct {
	db *sql.DB
}

func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	l, err := NewLedger(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func NewLedger(db *sql.DB) (*Ledger, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	client_ip  TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL,
	score      INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	settle_ms  INTEGER NOT NULL,
	decided_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON decisions(decided_at);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrating ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Record(ctx context.Context, d Decision) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO decisions (session_id, client_ip, state, score, elapsed_ms, settle_ms, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.SessionID, d.ClientIP, d.State.String(), d.Score,
		d.Elapsed.Milliseconds(), d.Settle.Milliseconds(), d.DecidedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("recording decision %s: %w", d.SessionID, err)
	}
	return nil
}

// Recent returns up to limit decisions, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Decision, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT session_id, client_ip, state, score, elapsed_ms, settle_ms, decided_at
		 FROM decisions ORDER BY decided_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var state string
		var elapsed, settle, at int64
		if err := rows.Scan(&d.SessionID, &d.ClientIP, &state, &d.Score, &elapsed, &settle, &at); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		d.State = parseState(state)
		d.Elapsed = time.Duration(elapsed) * time.Millisecond
		d.Settle = time.Duration(settle) * time.Millisecond
		d.DecidedAt = time.UnixMilli(at).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// Counts returns how many sessions passed and failed since the given time.
func (l *Ledger) Counts(ctx context.Context, since time.Time) (verified, failed int, err error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM decisions WHERE decided_at >= ? GROUP BY state`, since.UnixMilli())
	if err != nil {
		return 0, 0, fmt.Errorf("counting decisions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return 0, 0, fmt.Errorf("scanning count: %w", err)
		}
		switch parseState(state) {
		case types.Verified:
			verified = n
		case types.Failed:
			failed = n
		}
	}
	return verified, failed, rows.Err()
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func parseState(s string) types.VerificationState {
	for _, st := range []types.VerificationState{types.Idle, types.Pending, types.Verified, types.Failed} {
		if st.String() == s {
			return st
		}
	}
	return types.Idle
}
