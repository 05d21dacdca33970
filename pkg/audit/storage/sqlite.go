package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"oracleguard/gateway/pkg/audit"
	"oracleguard/gateway/pkg/gatewayerr"
)

// SQLite is the durable audit backend. It deliberately uses the cgo
// mattn/go-sqlite3 driver, independent of the pure-Go modernc.org/sqlite
// driver the reference Session uses, so the audit store and the
// reference database session remain unrelated subsystems.
type SQLite struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	event_id    TEXT PRIMARY KEY,
	ts          TEXT NOT NULL,
	kind        TEXT NOT NULL,
	op          TEXT NOT NULL,
	reason      TEXT,
	complexity  INTEGER,
	rows        INTEGER,
	token_id    TEXT,
	slot        INTEGER,
	phase       TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts);
`

// NewSQLite opens (creating if absent) a durable audit store at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.DriverError, "failed to open audit store: "+err.Error())
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, gatewayerr.New(gatewayerr.DriverError, "failed to initialize audit schema: "+err.Error())
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Write(ev audit.Event) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO audit_events
		 (event_id, ts, kind, op, reason, complexity, rows, token_id, slot, phase)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.TS.UTC().Format(time.RFC3339Nano), ev.Kind, ev.Op, ev.Reason,
		ev.Complexity, ev.Rows, ev.TokenID, ev.Slot, ev.Phase,
	)
	if err != nil {
		return gatewayerr.New(gatewayerr.DriverError, "audit write failed: "+err.Error())
	}
	return nil
}

func (s *SQLite) Query(since time.Time, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.Query(
		`SELECT event_id, ts, kind, op, reason, complexity, rows, token_id, slot, phase
		 FROM audit_events WHERE ts > ? ORDER BY ts ASC LIMIT ?`,
		since.UTC().Format(time.RFC3339Nano), limit,
	)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.DriverError, "audit query failed: "+err.Error())
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var ev audit.Event
		var tsStr string
		if err := rows.Scan(&ev.EventID, &tsStr, &ev.Kind, &ev.Op, &ev.Reason,
			&ev.Complexity, &ev.Rows, &ev.TokenID, &ev.Slot, &ev.Phase); err != nil {
			return nil, gatewayerr.New(gatewayerr.DriverError, "audit row scan failed: "+err.Error())
		}
		ev.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLite) Prune(olderThan time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM audit_events WHERE ts < ?`, olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, gatewayerr.New(gatewayerr.DriverError, "audit prune failed: "+err.Error())
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
