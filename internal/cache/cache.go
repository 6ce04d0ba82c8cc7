// Package cache implements a content-addressed build cache for compiled
// TinyWhale sources. It serves the same purpose as the teacher's
// host-binary cache (internal/ext/cache.go: hash inputs, look up a stored
// artifact, store a fresh one on miss) but backed by a small SQLite table
// instead of a directory of hashed files, because `twc cache stats` needs
// to query cache history rather than just test for file existence.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/nerdalytics/tinywhale/internal/config"
	"github.com/nerdalytics/tinywhale/internal/diagnostics"
)

// schemaVersion is bumped whenever the record shape changes, the same role
// codegenVersion plays in the teacher's cache key.
const schemaVersion = "v1"

// Record is one cached compilation outcome, keyed by the hash of its
// inputs.
type Record struct {
	Hash            string
	Valid           bool
	InstCount       int
	SymbolCount     int
	TypeCount       int
	DiagnosticsJSON string
	CompiledAt      int64
}

// Cache wraps a SQLite-backed table of compiles keyed by input hash.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) the cache database at path and
// ensures its schema exists.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS compiles (
	hash             TEXT PRIMARY KEY,
	valid            INTEGER NOT NULL,
	inst_count       INTEGER NOT NULL,
	symbol_count     INTEGER NOT NULL,
	type_count       INTEGER NOT NULL DEFAULT 0,
	diagnostics_json TEXT NOT NULL,
	compiled_at      INTEGER NOT NULL
)`
	_, err := c.db.Exec(ddl)
	if err != nil {
		return fmt.Errorf("creating cache schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Hash derives the cache key for a compilation from its source text and
// resolved options, following the teacher's computeKey shape: a
// NUL-separated SHA-256 over every input that affects the result,
// truncated to 16 hex characters (64 bits, ample for a local dev cache).
func Hash(source string, opts config.CompileOptions) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", opts.Mode)
	h.Write([]byte{0})
	fmt.Fprintf(h, "%t", opts.Optimize)
	h.Write([]byte{0})
	h.Write([]byte(schemaVersion))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Lookup returns the cached Record for hash, if one exists.
func (c *Cache) Lookup(hash string) (Record, bool, error) {
	row := c.db.QueryRow(`SELECT hash, valid, inst_count, symbol_count, type_count, diagnostics_json, compiled_at FROM compiles WHERE hash = ?`, hash)
	var rec Record
	var valid int
	if err := row.Scan(&rec.Hash, &valid, &rec.InstCount, &rec.SymbolCount, &rec.TypeCount, &rec.DiagnosticsJSON, &rec.CompiledAt); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("looking up cache entry %s: %w", hash, err)
	}
	rec.Valid = valid != 0
	return rec, true, nil
}

// Store upserts rec into the cache, keyed by rec.Hash.
func (c *Cache) Store(rec Record) error {
	_, err := c.db.Exec(
		`INSERT INTO compiles (hash, valid, inst_count, symbol_count, type_count, diagnostics_json, compiled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET
			valid = excluded.valid,
			inst_count = excluded.inst_count,
			symbol_count = excluded.symbol_count,
			type_count = excluded.type_count,
			diagnostics_json = excluded.diagnostics_json,
			compiled_at = excluded.compiled_at`,
		rec.Hash, boolToInt(rec.Valid), rec.InstCount, rec.SymbolCount, rec.TypeCount, rec.DiagnosticsJSON, rec.CompiledAt,
	)
	if err != nil {
		return fmt.Errorf("storing cache entry %s: %w", rec.Hash, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// EncodeDiagnostics serializes a diagnostic slice for storage in
// Record.DiagnosticsJSON.
func EncodeDiagnostics(diags []*diagnostics.Diagnostic) (string, error) {
	data, err := json.Marshal(diags)
	if err != nil {
		return "", fmt.Errorf("encoding diagnostics: %w", err)
	}
	return string(data), nil
}

// DecodeDiagnostics is EncodeDiagnostics's inverse, used to replay a cache
// hit's warnings without recompiling.
func DecodeDiagnostics(data string) ([]*diagnostics.Diagnostic, error) {
	var diags []*diagnostics.Diagnostic
	if err := json.Unmarshal([]byte(data), &diags); err != nil {
		return nil, fmt.Errorf("decoding diagnostics: %w", err)
	}
	return diags, nil
}

// Stats summarizes cache contents for `twc cache stats`.
type Stats struct {
	Total  int
	Valid  int
	Failed int
}

// Stats queries aggregate counts over every cached compilation.
func (c *Cache) Stats() (Stats, error) {
	row := c.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(valid), 0) FROM compiles`)
	var s Stats
	if err := row.Scan(&s.Total, &s.Valid); err != nil {
		return Stats{}, fmt.Errorf("querying cache stats: %w", err)
	}
	s.Failed = s.Total - s.Valid
	return s, nil
}

// Clean removes every cached entry.
func (c *Cache) Clean() error {
	_, err := c.db.Exec(`DELETE FROM compiles`)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}
