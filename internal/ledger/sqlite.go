package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLedger is an append-only ledger in a SQLite table, one row per
// entry with the index as primary key. Suited to deployments that want
// queryable exports; the file backend remains the default.
type SQLiteLedger struct {
	db *sql.DB

	mu       sync.Mutex
	nextIdx  uint64
	prevHash string
	now      func() time.Time
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	idx INTEGER PRIMARY KEY,
	prev_hash TEXT NOT NULL,
	payload_hash TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	ts TEXT NOT NULL,
	hash TEXT NOT NULL
);
`

// OpenSQLite opens (or creates) a SQLite-backed ledger at the given
// database path and recovers the chain tail from the highest index.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	// A single connection serializes all access below the writer lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}

	l := &SQLiteLedger{
		db:       db,
		prevHash: GenesisHash,
		now:      func() time.Time { return time.Now().UTC() },
	}

	row := db.QueryRow(`SELECT idx, hash FROM audit_entries ORDER BY idx DESC LIMIT 1`)
	var idx uint64
	var hash string
	switch err := row.Scan(&idx, &hash); {
	case err == nil:
		l.nextIdx = idx + 1
		l.prevHash = hash
	case errors.Is(err, sql.ErrNoRows):
		// fresh ledger
	default:
		db.Close()
		return nil, fmt.Errorf("ledger: recover chain tail: %w", err)
	}

	return l, nil
}

// Append commits one event under the writer lock.
func (l *SQLiteLedger) Append(ev Event) (Entry, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: marshal payload: %v", ErrWriteFailure, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Index:     l.nextIdx,
		PrevHash:  l.prevHash,
		Type:      ev.Type,
		Payload:   payload,
		Timestamp: l.now().Format(TimestampFormat),
	}
	e.seal()

	_, err = l.db.Exec(
		`INSERT INTO audit_entries (idx, prev_hash, payload_hash, event_type, payload, ts, hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Index, e.PrevHash, e.PayloadHash, string(e.Type), string(e.Payload), e.Timestamp, e.Hash,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: insert: %v", ErrWriteFailure, err)
	}

	l.nextIdx = e.Index + 1
	l.prevHash = e.Hash
	return e, nil
}

// Len returns the number of committed entries.
func (l *SQLiteLedger) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextIdx
}

// ExportRange returns rows with from <= idx <= to.
func (l *SQLiteLedger) ExportRange(from, to uint64) ([]Entry, error) {
	l.mu.Lock()
	n := l.nextIdx
	l.mu.Unlock()

	from, to, ok := clampRange(from, to, n)
	if !ok {
		return nil, nil
	}

	rows, err := l.db.Query(
		`SELECT idx, prev_hash, payload_hash, event_type, payload, ts, hash
		 FROM audit_entries WHERE idx >= ? AND idx <= ? ORDER BY idx`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: export: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Verify reads every row in index order and validates the full chain.
func (l *SQLiteLedger) Verify() VerifyResult {
	rows, err := l.db.Query(
		`SELECT idx, prev_hash, payload_hash, event_type, payload, ts, hash
		 FROM audit_entries ORDER BY idx`,
	)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("query: %v", err)}
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return VerifyResult{Error: err.Error()}
	}
	return verifyChain(entries)
}

// Close closes the database.
func (l *SQLiteLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var eventType, payload string
		if err := rows.Scan(&e.Index, &e.PrevHash, &e.PayloadHash, &eventType, &payload, &e.Timestamp, &e.Hash); err != nil {
			return nil, fmt.Errorf("ledger: scan row: %w", err)
		}
		e.Type = EventType(eventType)
		e.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: rows: %w", err)
	}
	return entries, nil
}
