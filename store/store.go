// Package store persists documents in SQLite. Each object is one row
// holding its type, name and legacy field tokens, so a stored document
// reloads through the same coercion path as a parsed one.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	j "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/samuelduchesne/archetypal-core/diag"
	"github.com/samuelduchesne/archetypal-core/idf"
	"github.com/samuelduchesne/archetypal-core/internal/ctxlog"
	"github.com/samuelduchesne/archetypal-core/internal/engine"
	"github.com/samuelduchesne/archetypal-core/legacy"
	"github.com/samuelduchesne/archetypal-core/schema"
	"github.com/samuelduchesne/archetypal-core/value"
)

// ErrNotFound is returned when no document is stored under a key.
var ErrNotFound = errors.New("store: document not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	key            TEXT PRIMARY KEY,
	schema_version TEXT NOT NULL DEFAULT '',
	saved_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS objects (
	doc_key TEXT NOT NULL REFERENCES documents(key) ON DELETE CASCADE,
	seq     INTEGER NOT NULL,
	type    TEXT NOT NULL,
	name    TEXT NOT NULL DEFAULT '',
	fields  TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (doc_key, seq)
);

CREATE INDEX IF NOT EXISTS idx_objects_type ON objects(doc_key, type);
`

// DB wraps a sql.DB with document operations.
type DB struct {
	conn *sql.DB
}

// Info describes a stored document.
type Info struct {
	Key           string
	SchemaVersion string
	Objects       int
	SavedAt       time.Time
}

// Open opens (or creates) the database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if inMemory(dsn) {
		// Every connection to :memory: opens a fresh database.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

const pragmas = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragmas
	}
	return dsn + "?" + pragmas
}

func inMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory")
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Save writes doc under key, replacing any previous version.
func (db *DB) Save(ctx context.Context, key string, doc *idf.Document) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: clear %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO documents (key, schema_version, saved_at) VALUES (?, ?, ?)`,
		key, doc.Registry().Version(), time.Now().UTC()); err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO objects (doc_key, seq, type, name, fields) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare object insert: %w", err)
	}
	defer stmt.Close()
	for seq, o := range doc.All() {
		toks := make([]string, 0, len(o.Values))
		for _, v := range o.Tokens() {
			toks = append(toks, value.Format(v))
		}
		fields, err := j.Marshal(engine.TrimTrailingBlanks(toks))
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", doc.Path(o), err)
		}
		if _, err := stmt.ExecContext(ctx, key, seq, o.Type, o.Name, string(fields)); err != nil {
			return fmt.Errorf("store: insert object: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("saved document", "key", key, "objects", doc.Len())
	return nil
}

// Load reads the document stored under key against reg. Objects are
// coerced and resolved again, so a schema change since Save shows up as
// issues rather than an error.
func (db *DB) Load(ctx context.Context, key string, reg *schema.Registry) (*idf.Document, diag.Issues, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE key = ?`, key).Scan(&exists)
	if err != nil {
		return nil, nil, fmt.Errorf("store: load %s: %w", key, err)
	}
	if exists == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT seq, type, fields FROM objects WHERE doc_key = ? ORDER BY seq`, key)
	if err != nil {
		return nil, nil, fmt.Errorf("store: load %s: %w", key, err)
	}
	defer rows.Close()

	var stmts []legacy.Statement
	for rows.Next() {
		var (
			seq    int
			typ    string
			fields string
		)
		if err := rows.Scan(&seq, &typ, &fields); err != nil {
			return nil, nil, fmt.Errorf("store: scan object: %w", err)
		}
		st := legacy.Statement{Type: typ, Line: seq + 1, Offset: -1}
		if err := j.Unmarshal([]byte(fields), &st.Fields); err != nil {
			return nil, nil, fmt.Errorf("store: decode object %d: %w", seq, err)
		}
		stmts = append(stmts, st)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: load %s: %w", key, err)
	}
	return legacy.Build(ctx, stmts, reg)
}

// List returns the stored documents ordered by key.
func (db *DB) List(ctx context.Context) ([]Info, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT d.key, d.schema_version, d.saved_at, count(o.seq)
		FROM documents d LEFT JOIN objects o ON o.doc_key = d.key
		GROUP BY d.key
		ORDER BY d.key
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var in Info
		if err := rows.Scan(&in.Key, &in.SchemaVersion, &in.SavedAt, &in.Objects); err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Delete removes the document stored under key.
func (db *DB) Delete(ctx context.Context, key string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}
