package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	apperrors "calltree/internal/core/errors"
	"calltree/internal/engine/extract"
	"calltree/internal/engine/resolve"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Entry is the cached parse result for one (path, fingerprint) pair. It
// carries everything needed to rebuild the graph without re-reading the
// source: the extracted functions, the resolved call sites and the
// unresolved count.
type Entry struct {
	Functions  []extract.Function `json:"functions"`
	Sites      []resolve.CallSite `json:"sites"`
	Unresolved int                `json:"unresolved"`
}

// Run is one row of run history: summary counts per analysis.
type Run struct {
	ID         string
	Path       string
	Language   string
	Timestamp  time.Time
	Functions  int
	Roots      int
	Orphans    int
	Edges      int
	Unresolved int
	CacheHit   bool
	Duration   time.Duration
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Fingerprint derives the cache freshness key from file content.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, apperrors.New(apperrors.CodeValidationError, "cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, apperrors.New(apperrors.CodeValidationError,
			fmt.Sprintf("cache path %q is a directory, expected file", cleanPath))
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "create cache directory")
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "open cache database")
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "ping cache database")
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "initialize cache schema")
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the cached entry for path when the fingerprint still matches.
func (s *Store) Load(path, fingerprint string) (*Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	err := s.db.QueryRow(
		`SELECT payload FROM results WHERE path = ? AND fingerprint = ?`,
		path, fingerprint,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeCacheError, "read cache entry")
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeCacheError, "decode cache entry")
	}
	return &entry, true, nil
}

// Save stores the entry and drops stale fingerprints for the same path.
func (s *Store) Save(path, fingerprint string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(entry)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "encode cache entry")
	}

	return s.withRetry("save cache entry", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM results WHERE path = ? AND fingerprint != ?`,
			path, fingerprint); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO results (path, fingerprint, payload, created_utc) VALUES (?, ?, ?, ?)`,
			path, fingerprint, payload, time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// RecordRun appends one row of run history.
func (s *Store) RecordRun(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}

	return s.withRetry("record run", func() error {
		_, err := s.db.Exec(
			`INSERT INTO runs (id, path, language, ts_utc, function_count, root_count,
			   orphan_count, edge_count, unresolved_count, cache_hit, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Path, run.Language,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.Functions, run.Roots, run.Orphans, run.Edges, run.Unresolved,
			boolToInt(run.CacheHit), run.Duration.Milliseconds(),
		)
		return err
	})
}

// LastRun returns the most recent run recorded for path, if any.
func (s *Store) LastRun(path string) (*Run, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run Run
	var ts string
	var hit int
	var durMS int64
	err := s.db.QueryRow(
		`SELECT id, path, language, ts_utc, function_count, root_count, orphan_count,
		   edge_count, unresolved_count, cache_hit, duration_ms
		 FROM runs WHERE path = ? ORDER BY ts_utc DESC LIMIT 1`,
		path,
	).Scan(&run.ID, &run.Path, &run.Language, &ts, &run.Functions, &run.Roots,
		&run.Orphans, &run.Edges, &run.Unresolved, &hit, &durMS)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeCacheError, "read run history")
	}

	run.CacheHit = hit != 0
	run.Duration = time.Duration(durMS) * time.Millisecond
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		run.Timestamp = parsed
	}
	return &run, true, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "locked") && !strings.Contains(err.Error(), "busy") {
			break
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return apperrors.Wrap(err, apperrors.CodeCacheError, op)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
