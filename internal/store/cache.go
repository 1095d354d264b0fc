package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// HashCache is a SQLite digest cache keyed by path and stat identity.
// It lets a fresh scan skip rehashing files whose inode, size and
// change time match a previous run, even when no prior snapshot is
// available (or when the store itself was rebuilt).
type HashCache struct {
	db   *sql.DB
	algo string
	mu   sync.Mutex
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS hashes (
	path   TEXT NOT NULL,
	algo   TEXT NOT NULL,
	ino    INTEGER NOT NULL,
	size   INTEGER NOT NULL,
	ctime  INTEGER NOT NULL,
	digest TEXT NOT NULL,
	PRIMARY KEY (path, algo)
);
`

// OpenHashCache opens (creating if needed) the cache database at path,
// serving digests for the given algorithm.
func OpenHashCache(path, algo string) (*HashCache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open hash cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init hash cache: %w", err)
	}
	return &HashCache{db: db, algo: algo}, nil
}

// Lookup returns the cached digest when the identity still matches.
func (c *HashCache) Lookup(path string, ino, size, ctime int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var digest string
	err := c.db.QueryRow(
		`SELECT digest FROM hashes WHERE path = ? AND algo = ? AND ino = ? AND size = ? AND ctime = ?`,
		path, c.algo, ino, size, ctime,
	).Scan(&digest)
	if err != nil {
		return "", false
	}
	return digest, true
}

// Store upserts the digest for a path under the current identity.
func (c *HashCache) Store(path string, ino, size, ctime int64, digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT INTO hashes (path, algo, ino, size, ctime, digest) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (path, algo) DO UPDATE SET ino = excluded.ino, size = excluded.size,
		 ctime = excluded.ctime, digest = excluded.digest`,
		path, c.algo, ino, size, ctime, digest,
	)
	return err
}

func (c *HashCache) Close() error { return c.db.Close() }
