package session

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"oracleguard/gateway/pkg/gatewayerr"

	_ "modernc.org/sqlite"
)

// sqliteSession is the reference Session implementation. It stands in
// for the Oracle driver in development and tests: the pool, breaker,
// and dispatcher exercise the exact same interface a real Oracle
// session would implement. It deliberately uses modernc.org/sqlite (a
// pure-Go driver) rather than the cgo mattn/go-sqlite3 driver used by
// the audit store, so the two SQLite-backed subsystems stay on
// independent drivers.
type sqliteSession struct {
	db *sql.DB
}

// NewSQLiteFactory returns a Factory producing sessions against the
// given DSN (e.g. "file::memory:?cache=shared" for a throwaway session,
// or a file path for a persistent reference database).
func NewSQLiteFactory(dsn string) Factory {
	return func(ctx context.Context) (Session, error) {
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, gatewayerr.New(gatewayerr.DriverError, "failed to open session: "+err.Error())
		}
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, gatewayerr.New(gatewayerr.DriverError, "failed to connect session: "+err.Error())
		}
		return &sqliteSession{db: db}, nil
	}
}

var rownumCapPattern = regexp.MustCompile(`(?is)^SELECT \* FROM \((.*)\) WHERE ROWNUM <= (\d+)$`)

// translate rewrites the gateway's Oracle-shaped row-cap wrapper
// ("SELECT * FROM (...) WHERE ROWNUM <= N") into the equivalent SQLite
// LIMIT form, so the reference session can actually execute statements
// the validator has rewritten. A real Oracle session needs no such
// translation; this exists only because the reference driver's SQL
// dialect differs from the deployment target's.
func translate(sqlText string) string {
	if m := rownumCapPattern.FindStringSubmatch(strings.TrimSpace(sqlText)); m != nil {
		return fmt.Sprintf("SELECT * FROM (%s) LIMIT %s", m[1], m[2])
	}
	return sqlText
}

func (s *sqliteSession) Run(ctx context.Context, sqlText string, fetchChunk int) (Result, error) {
	rows, err := s.db.QueryContext(ctx, translate(sqlText))
	if err != nil {
		return Result{}, gatewayerr.New(gatewayerr.DriverError, "query failed: "+err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, gatewayerr.New(gatewayerr.DriverError, "failed to read columns: "+err.Error())
	}

	result := Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, gatewayerr.New(gatewayerr.DriverError, "failed to scan row: "+err.Error())
		}
		result.Rows = append(result.Rows, Row{Values: vals})
		// Fetch discipline: fetching one chunk at a time server-side is
		// the real driver's job; the reference driver stops accumulating
		// rows once it holds fetchChunk*1000 of them, a defensive bound
		// on its client-side memory.
		if fetchChunk > 0 && len(result.Rows) >= fetchChunk*1000 {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return Result{}, gatewayerr.New(gatewayerr.DriverError, "row iteration failed: "+err.Error())
	}
	return result, nil
}

func (s *sqliteSession) Probe(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return gatewayerr.New(gatewayerr.DriverError, "health probe failed: "+err.Error())
	}
	return nil
}

func (s *sqliteSession) DescribeTable(ctx context.Context, schema, table string) ([]ColumnMeta, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.DriverError, "describe failed: "+err.Error())
	}
	defer rows.Close()

	var cols []ColumnMeta
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, gatewayerr.New(gatewayerr.DriverError, "describe scan failed: "+err.Error())
		}
		cols = append(cols, ColumnMeta{
			Name:     name,
			Type:     ctype,
			Nullable: notNull == 0,
			PK:       pk != 0,
		})
	}
	return cols, rows.Err()
}

// ListTables lists every table in the database; schema is ignored.
func (s *sqliteSession) ListTables(ctx context.Context, schema string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.DriverError, "list tables failed: "+err.Error())
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, gatewayerr.New(gatewayerr.DriverError, "list tables scan failed: "+err.Error())
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *sqliteSession) Close() error {
	return s.db.Close()
}

// quoteIdent wraps an already-identifier-checked name in double quotes
// for safe interpolation into PRAGMA statements, which do not support
// bind parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
