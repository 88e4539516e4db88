// Package cache persists rendered kernel source keyed by a deterministic
// digest of a mapping's keyword tables, so repeated calls with
// structurally identical expressions skip re-rendering (SPEC_FULL.md
// §4.9). It is a pure lookaside cache: a miss always falls through to a
// caller-supplied render function, never to the mapper itself.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"sort"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"symcore/internal/mapped"
)

// Cache stores rendered kernel source behind a digest-keyed table over
// database/sql, with concurrent misses for the same digest collapsed by
// singleflight (SPEC_FULL.md §5).
type Cache struct {
	db     *sql.DB
	driver string
	group  singleflight.Group
}

// Open dials driver/dsn and ensures the kernel_cache table exists.
// The registered driver names are "sqlite3" (cgo, mattn/go-sqlite3),
// "sqlite" (pure Go, modernc.org/sqlite, for cgo-free builds), "mysql",
// "postgres", "sqlserver" — the teacher's DatabaseModule driver set plus
// a cgo-free sqlite alternative. The SQL this package issues (CREATE
// TABLE IF NOT EXISTS with a TEXT primary key, "?" placeholders) is
// written for sqlite and is not rewritten per driver: with "mysql" and
// "sqlserver" the schema statement fails and Open returns an error, and
// with "postgres" Open succeeds but every store fails on the "?"
// placeholders.
func Open(driver, dsn string) (*Cache, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "cache: open")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cache: ping")
	}
	c := &Cache{db: db, driver: driver}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) ensureSchema() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS kernel_cache (
		digest TEXT PRIMARY KEY,
		source TEXT NOT NULL
	)`)
	return errors.Wrap(err, "cache: ensure schema")
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Digest computes the deterministic cache key for m: the sha256 of every
// (type-key, keyword, value) triple across the mapping's entries, sorted
// by key first so iteration order never affects the digest (the same
// determinism discipline as tmpl.ReplaceKeywords).
func Digest(m *mapped.Mapping) string {
	keys := m.Keys()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].NodeIndex != keys[j].NodeIndex {
			return keys[i].NodeIndex < keys[j].NodeIndex
		}
		return keys[i].Slot < keys[j].Slot
	})

	h := sha256.New()
	for _, k := range keys {
		obj, ok := m.Get(k)
		if !ok {
			continue
		}
		h.Write([]byte(obj.TypeKey))
		h.Write([]byte{0})
		kwKeys := make([]string, 0, len(obj.Keywords))
		for kw := range obj.Keywords {
			kwKeys = append(kwKeys, kw)
		}
		sort.Strings(kwKeys)
		for _, kw := range kwKeys {
			h.Write([]byte(kw))
			h.Write([]byte{0})
			h.Write([]byte(obj.Keywords[kw]))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrRender returns the cached source for digest, rendering and
// storing it via render on a miss. Concurrent callers sharing the same
// digest block on one render instead of each performing it.
func (c *Cache) GetOrRender(digest string, render func() (string, error)) (string, error) {
	if source, ok := c.lookup(digest); ok {
		return source, nil
	}
	v, err, _ := c.group.Do(digest, func() (interface{}, error) {
		if source, ok := c.lookup(digest); ok {
			return source, nil
		}
		source, err := render()
		if err != nil {
			return "", err
		}
		if err := c.store(digest, source); err != nil {
			return "", err
		}
		return source, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) lookup(digest string) (string, bool) {
	var source string
	err := c.db.QueryRow(`SELECT source FROM kernel_cache WHERE digest = ?`, digest).Scan(&source)
	if err != nil {
		return "", false
	}
	return source, true
}

func (c *Cache) store(digest, source string) error {
	_, err := c.db.Exec(`INSERT INTO kernel_cache (digest, source) VALUES (?, ?)`, digest, source)
	return errors.Wrap(err, "cache: store")
}
