// Package ircache is a content-addressed compile cache: emitted IR
// documents keyed by a hash of the source text and the IR version, stored
// in a local sqlite database.
package ircache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/synthizer/waveling/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS compilations (
	source_hash TEXT PRIMARY KEY,
	build_id    TEXT NOT NULL,
	ir          BLOB NOT NULL,
	created_at  TEXT NOT NULL
);`

type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database, creating parent directories
// as needed.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ircache: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ircache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ircache: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the cache key for a source text. The IR version is part of
// the key so a contract bump invalidates everything at once.
func Key(source string) string {
	h := sha256.New()
	fmt.Fprintf(h, "ir=%d\n", config.IRVersion)
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached IR document for a key, if present.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var blob []byte
	err := c.db.QueryRow(`SELECT ir FROM compilations WHERE source_hash = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ircache: %w", err)
	}
	return blob, true, nil
}

// Put stores an emitted IR document under a key, stamping a fresh build id.
func (c *Cache) Put(key string, document []byte) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO compilations (source_hash, build_id, ir, created_at) VALUES (?, ?, ?, ?)`,
		key, uuid.NewString(), document, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("ircache: %w", err)
	}
	return nil
}
