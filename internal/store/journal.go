package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/querybind/internal/value"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on dispatches.component_id
const currentSchemaVersion = 1

// Journal is a SQLite-backed append-only log of store dispatches.
type Journal struct {
	db *sql.DB
}

// SessionInfo summarizes one journaled session.
type SessionInfo struct {
	ID         string `json:"id"`
	Label      string `json:"label,omitempty"`
	Dispatches int    `json:"dispatches"`
}

// Open creates or opens a journal database at path (":memory:" for an
// ephemeral one). Pragmas and migrations are applied on every open, so Open
// is idempotent.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

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

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_dispatches_component
			ON dispatches(component_id)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// BeginSession records a session with a human-readable label (for example the
// scenario name). Re-beginning an existing session keeps its first label.
func (j *Journal) BeginSession(ctx context.Context, session, label string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, session, label)
	if err != nil {
		return fmt.Errorf("begin session %s: %w", session, err)
	}
	return nil
}

// Record inserts a dispatch. Uses ON CONFLICT DO NOTHING, so writing the same
// dispatch twice is a no-op. The session row is created on demand.
func (j *Journal) Record(ctx context.Context, d Dispatch) error {
	payload, err := value.MarshalCanonical(payloadOrEmpty(d.Payload))
	if err != nil {
		return fmt.Errorf("record dispatch: marshal payload: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record dispatch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id) VALUES (?)
		ON CONFLICT(id) DO NOTHING
	`, d.Session); err != nil {
		return fmt.Errorf("record dispatch: session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dispatches (id, session, seq, action, component_id, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		d.ID,
		d.Session,
		d.Seq,
		string(d.Action),
		d.ComponentID,
		string(payload),
	); err != nil {
		return fmt.Errorf("record dispatch: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record dispatch: commit: %w", err)
	}
	return nil
}

// ReadSession returns every dispatch of a session ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) when the session has no dispatches.
func (j *Journal) ReadSession(ctx context.Context, session string) ([]Dispatch, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session, seq, action, component_id, payload
		FROM dispatches
		WHERE session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := []Dispatch{}
	for rows.Next() {
		var d Dispatch
		var action, payload string
		if err := rows.Scan(&d.ID, &d.Session, &d.Seq, &action, &d.ComponentID, &payload); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		d.Action = Action(action)
		if err := json.Unmarshal([]byte(payload), &d.Payload); err != nil {
			return nil, fmt.Errorf("dispatch %s: unmarshal payload: %w", d.ID, err)
		}
		dispatches = append(dispatches, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return dispatches, nil
}

// Sessions lists journaled sessions in the order they were first written.
func (j *Journal) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.label, COUNT(d.id)
		FROM sessions s
		LEFT JOIN dispatches d ON d.session = s.id
		GROUP BY s.id
		ORDER BY s.rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Label, &info.Dispatches); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// LastSeq returns the highest seq journaled for session, or 0.
func (j *Journal) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq sql.NullInt64
	err := j.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM dispatches WHERE session = ?
	`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
