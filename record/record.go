// Package record persists stub call logs to SQLite.
//
// A Store implements stub.Recorder: wire it with stub.WithRecorder and every
// invocation of the patched member lands as one row, keyed by stub ID and
// call sequence. Rows survive Reset and Restore, so a test can inspect the
// full history after teardown.
package record

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/restub/stub"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for stub call records.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Pass ":memory:" for an ephemeral in-test store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one call record. Implements stub.Recorder.
//
// Uses ON CONFLICT DO NOTHING on (stub_id, seq) for idempotency - a stub's
// sequence numbers strictly increase, so a duplicate means the same call was
// recorded twice and is silently ignored.
//
// Arguments are serialized to best-effort JSON for human inspection; values
// JSON cannot express fall back to their fmt rendering.
func (s *Store) Record(ctx context.Context, call stub.CallRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stub_calls
		(stub_id, label, seq, args, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(stub_id, seq) DO NOTHING
	`,
		call.StubID,
		call.Label,
		call.Seq,
		marshalArgs(call.Args),
		call.Outcome,
		call.Detail,
	)
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// Call is one persisted invocation, read back for inspection.
type Call struct {
	StubID  string
	Label   string
	Seq     int
	Args    string // JSON-rendered argument list
	Outcome string
	Detail  string
}

// ReadCalls returns every recorded call for a stub, ordered by sequence.
func (s *Store) ReadCalls(ctx context.Context, stubID string) ([]Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stub_id, label, seq, args, outcome, detail
		FROM stub_calls
		WHERE stub_id = ?
		ORDER BY seq
	`, stubID)
	if err != nil {
		return nil, fmt.Errorf("read calls: %w", err)
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.StubID, &c.Label, &c.Seq, &c.Args, &c.Outcome, &c.Detail); err != nil {
			return nil, fmt.Errorf("read calls: scan: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read calls: %w", err)
	}
	return calls, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// marshalArgs renders an argument list as JSON for storage. Unmarshalable
// values (funcs, channels) degrade to their fmt rendering element-wise.
func marshalArgs(args []any) string {
	if args == nil {
		args = []any{}
	}
	if b, err := json.Marshal(args); err == nil {
		return string(b)
	}
	rendered := make([]any, len(args))
	for i, a := range args {
		if _, err := json.Marshal(a); err != nil {
			rendered[i] = fmt.Sprint(a)
		} else {
			rendered[i] = a
		}
	}
	b, err := json.Marshal(rendered)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}
