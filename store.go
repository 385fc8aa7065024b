package storysite

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/storysite/cms"
)

// Store is a SQLite-backed cms.Cache. CDN responses survive restarts, so a
// fresh process serves pages without waiting on Storyblok.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ cms.Cache = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema. Entries expire after ttl.
func NewStore(path string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, ttl: ttl, logger: logger, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS responses (
    key TEXT PRIMARY KEY,
    body BLOB NOT NULL,
    total INTEGER NOT NULL DEFAULT 0,
    fetched_at INTEGER NOT NULL
);
`)
	return err
}

// Get returns the response stored under key if it is still fresh.
func (s *Store) Get(key string) (cms.Entry, bool) {
	var (
		e       cms.Entry
		fetched int64
	)
	err := s.db.QueryRow(`SELECT body, total, fetched_at FROM responses WHERE key = ?`, key).
		Scan(&e.Body, &e.Total, &fetched)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return cms.Entry{}, false
	}
	e.Fetched = time.Unix(0, fetched)
	if s.now().Sub(e.Fetched) >= s.ttl {
		return cms.Entry{}, false
	}
	return e, true
}

// Set stores e under key, replacing any previous response. The entry keeps
// its fetch time when it has one.
func (s *Store) Set(key string, e cms.Entry) {
	fetched := e.Fetched
	if fetched.IsZero() {
		fetched = s.now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO responses (key, body, total, fetched_at) VALUES (?, ?, ?, ?)`,
		key, e.Body, e.Total, fetched.UnixNano())
	if err != nil {
		s.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Invalidate removes every stored response.
func (s *Store) Invalidate() {
	if _, err := s.db.Exec(`DELETE FROM responses`); err != nil {
		s.logger.Warn("cache invalidate failed", slog.Any("error", err))
	}
}

// Prune deletes expired responses and returns how many were removed.
func (s *Store) Prune() (int64, error) {
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.Exec(`DELETE FROM responses WHERE fetched_at <= ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Len returns the number of stored responses, fresh or not.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM responses`).Scan(&n)
	return n, err
}
