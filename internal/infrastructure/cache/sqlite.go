// Package cache provides the fuzzy-key search result stores.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/cloudmatch/backend/internal/domain"
)

// hotCacheSize bounds the in-process exact-key front
const hotCacheSize = 256

// Options configures the SQLite store
type Options struct {
	FuzzyThreshold int           // 0-100 key similarity for an approximate hit
	TTL            time.Duration // entry lifetime, 0 means never expire
	MaxEntries     int           // eviction kicks in above this, 0 means unbounded
}

// SQLiteStore persists cache entries in a single SQLite file. WAL mode lets
// multiple process instances read while one writes; a bounded busy timeout
// turns lock contention into ErrCacheUnavailable instead of an indefinite
// block, and callers degrade to a miss.
type SQLiteStore struct {
	db   *sql.DB
	opts Options
	hot  *lru.Cache[string, *domain.CacheEntry]
}

// NewSQLiteStore opens (creating if needed) the cache database at path
func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS search_cache (
		cache_key     TEXT PRIMARY KEY,
		marketplace   TEXT NOT NULL,
		results       TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL,
		last_accessed TIMESTAMP NOT NULL,
		access_count  INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_cache_last_accessed ON search_cache(last_accessed);
	CREATE INDEX IF NOT EXISTS idx_cache_created_at ON search_cache(created_at);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	hot, err := lru.New[string, *domain.CacheEntry](hotCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, opts: opts, hot: hot}, nil
}

// Get returns the best stored entry whose key similarity to key meets the
// threshold. Exact hits are served from the in-process front when possible.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	if entry, ok := s.hot.Get(key); ok && !s.expired(entry.CreatedAt) {
		s.touch(ctx, entry.Key)
		return entry, nil
	}

	// Exact row first
	entry, err := s.load(ctx, key)
	if err == nil {
		s.hot.Add(key, entry)
		s.touch(ctx, key)
		return entry, nil
	}
	if err != domain.ErrCacheMiss {
		return nil, err
	}

	// Approximate scan over live stored keys; an expired row must not
	// shadow a lower-similarity entry that still qualifies
	bestKey, bestScore := "", 0
	rows, err := s.db.QueryContext(ctx, `SELECT cache_key, created_at FROM search_cache`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	for rows.Next() {
		var stored string
		var createdAt time.Time
		if err := rows.Scan(&stored, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
		}
		if s.expired(createdAt) {
			continue
		}
		if score := fuzzy.Ratio(key, stored); score > bestScore {
			bestScore = score
			bestKey = stored
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	if bestKey == "" || bestScore < s.opts.FuzzyThreshold {
		return nil, domain.ErrCacheMiss
	}

	entry, err = s.load(ctx, bestKey)
	if err != nil {
		return nil, err
	}
	log.Printf("[CACHE] Fuzzy hit: %q matched %q (%d%%)", key, bestKey, bestScore)
	s.touch(ctx, bestKey)
	return entry, nil
}

// Put inserts or replaces the entry under the exact key
func (s *SQLiteStore) Put(ctx context.Context, key string, entry *domain.CacheEntry) error {
	data, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	now := time.Now().UTC()
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_cache (cache_key, marketplace, results, created_at, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(cache_key) DO UPDATE SET
			marketplace = excluded.marketplace,
			results = excluded.results,
			created_at = excluded.created_at,
			last_accessed = excluded.last_accessed`,
		key, string(entry.Marketplace), string(data), createdAt.UTC(), now)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	stored := *entry
	stored.Key = key
	stored.CreatedAt = createdAt
	s.hot.Add(key, &stored)

	s.evictIfNeeded(ctx)
	return nil
}

// Clear removes all entries
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM search_cache`); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	s.hot.Purge()
	return nil
}

// Inspect lists current entries, most recently accessed first
func (s *SQLiteStore) Inspect(ctx context.Context) ([]domain.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, marketplace, results, created_at, last_accessed, access_count
		FROM search_cache ORDER BY last_accessed DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	defer rows.Close()

	var entries []domain.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return entries, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// load reads one unexpired row by exact key
func (s *SQLiteStore) load(ctx context.Context, key string) (*domain.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT cache_key, marketplace, results, created_at, last_accessed, access_count
		FROM search_cache WHERE cache_key = ?`, key)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	if s.expired(entry.CreatedAt) {
		return nil, domain.ErrCacheMiss
	}
	return entry, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	var marketplace, results string
	if err := row.Scan(&entry.Key, &marketplace, &results,
		&entry.CreatedAt, &entry.LastAccessed, &entry.AccessCount); err != nil {
		return nil, err
	}
	entry.Marketplace = domain.Marketplace(marketplace)
	if err := json.Unmarshal([]byte(results), &entry.Results); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *SQLiteStore) expired(createdAt time.Time) bool {
	return s.opts.TTL > 0 && time.Since(createdAt) > s.opts.TTL
}

// touch bumps access stats. Best effort; a failed touch never fails a read.
func (s *SQLiteStore) touch(ctx context.Context, key string) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE search_cache
		SET access_count = access_count + 1, last_accessed = ?
		WHERE cache_key = ?`, time.Now().UTC(), key)
	if err != nil {
		log.Printf("[CACHE] Failed to update access stats for %q: %v", key, err)
	}
}

// evictIfNeeded trims the table back under MaxEntries, dropping the entries
// least worth keeping (stale and rarely read) first
func (s *SQLiteStore) evictIfNeeded(ctx context.Context) {
	if s.opts.MaxEntries <= 0 {
		return
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_cache`).Scan(&count); err != nil {
		log.Printf("[CACHE] Eviction count failed: %v", err)
		return
	}
	if count <= s.opts.MaxEntries {
		return
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM search_cache WHERE cache_key IN (
			SELECT cache_key FROM search_cache
			ORDER BY (julianday('now') - julianday(last_accessed)) * 2 + (1.0 / (access_count + 1)) DESC
			LIMIT ?
		)`, count-s.opts.MaxEntries)
	if err != nil {
		log.Printf("[CACHE] Eviction failed: %v", err)
		return
	}
	s.hot.Purge()
}
