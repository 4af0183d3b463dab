// Package buildcache stores compiled artifacts keyed by source
// content, so unchanged units skip code generation and the Go build.
// The cache is strictly best-effort: every failure degrades to a
// miss and the build proceeds.
package buildcache

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"
)

// Key derives the cache key for one unit from its source bytes plus
// anything else that influences output, compiler version included.
func Key(source []byte, extra ...string) string {
	h, _ := blake2b.New256(nil)
	h.Write(source)
	for _, e := range extra {
		h.Write([]byte{0})
		h.Write([]byte(e))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is an on-disk artifact store with sqlite-backed metadata.
type Cache struct {
	dir string
	db  *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	key        TEXT PRIMARY KEY,
	file       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Open prepares the cache directory and metadata store.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "meta.db"))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache metadata: %w", err)
	}
	return &Cache{dir: dir, db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the stored artifact path for key. A stale metadata row
// whose file has vanished counts as a miss and is pruned.
func (c *Cache) Get(key string) (string, bool) {
	var file string
	err := c.db.QueryRow(`SELECT file FROM artifacts WHERE key = ?`, key).Scan(&file)
	if err != nil {
		return "", false
	}
	path := filepath.Join(c.dir, file)
	if _, err := os.Stat(path); err != nil {
		c.db.Exec(`DELETE FROM artifacts WHERE key = ?`, key)
		return "", false
	}
	return path, true
}

// Put stores an artifact under key and returns its path. Re-putting
// an existing key replaces the previous artifact.
func (c *Cache) Put(key string, artifact []byte) (string, error) {
	file := uuid.NewString()
	path := filepath.Join(c.dir, file)
	if err := os.WriteFile(path, artifact, 0o755); err != nil {
		return "", err
	}
	_, err := c.db.Exec(
		`INSERT INTO artifacts (key, file, size, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET file = excluded.file, size = excluded.size, created_at = excluded.created_at`,
		key, file, len(artifact), time.Now().Unix(),
	)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("record artifact: %w", err)
	}
	return path, nil
}

// PutFile stores an existing file, used for compiled binaries too
// large to hold in memory.
func (c *Cache) PutFile(key, src string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	return c.Put(key, data)
}

// Prune drops artifacts older than the given age.
func (c *Cache) Prune(maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge).Unix()
	rows, err := c.db.Query(`SELECT file FROM artifacts WHERE created_at < ?`, cutoff)
	if err != nil {
		return err
	}
	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err == nil {
			files = append(files, f)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, f := range files {
		os.Remove(filepath.Join(c.dir, f))
	}
	_, err = c.db.Exec(`DELETE FROM artifacts WHERE created_at < ?`, cutoff)
	return err
}
