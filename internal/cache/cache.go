// Package cache stores rendered output per compilation unit keyed by a
// content fingerprint, so unchanged units skip decoding and lowering on
// repeat runs.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	_ "modernc.org/sqlite"

	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/token"
)

const schema = `
CREATE TABLE IF NOT EXISTS units (
	id          TEXT NOT NULL,
	path        TEXT NOT NULL PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	output      TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);`

// Cache is a sqlite-backed unit store. Safe for use from one process;
// concurrent writers are serialized by sqlite itself.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, *diagnostics.DiagnosticError) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrX001, token.Span{File: path},
			"cache: open: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, diagnostics.Errorf(diagnostics.ErrX001, token.Span{File: path},
			"cache: init schema: %v", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Fingerprint derives the cache key for one unit from its raw IR bytes
// and the active configuration, so a config change invalidates entries.
func Fingerprint(source, configBytes []byte) string {
	h := sha256.New()
	h.Write(source)
	h.Write([]byte{0})
	h.Write(configBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the stored output for a unit when its fingerprint still
// matches.
func (c *Cache) Lookup(path, fingerprint string) (string, bool, error) {
	var stored, output string
	row := c.db.QueryRow(
		`SELECT fingerprint, output FROM units WHERE path = ?`, path)
	if err := row.Scan(&stored, &output); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	if stored != fingerprint {
		return "", false, nil
	}
	return output, true, nil
}

// Store upserts the rendered output for a unit.
func (c *Cache) Store(id, path, fingerprint, output string) error {
	_, err := c.db.Exec(`
		INSERT INTO units (id, path, fingerprint, output, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id = excluded.id,
			fingerprint = excluded.fingerprint,
			output = excluded.output,
			updated_at = excluded.updated_at`,
		id, path, fingerprint, output, time.Now().UTC())
	return err
}
