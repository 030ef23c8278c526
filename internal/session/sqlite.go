// ABOUTME: SQLite implementation of the session store using modernc.org/sqlite
// ABOUTME: Sessions survive BFF restarts; expired rows are rejected and purged

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a session store at the given path. The schema is
// created automatically, as are parent directories.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "session")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating session store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("session store initialized", "path", path)
	return s, nil
}

// createSchema creates the sessions table if it doesn't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			access_token TEXT NOT NULL,
			user_info TEXT,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at
			ON sessions(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create stores a new session. An empty ID is filled with a fresh UUID.
func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, subject, access_token, user_info, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Subject, sess.AccessToken, string(sess.User),
		sess.CreatedAt.UTC(), sess.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get returns the session with the given ID, or ErrNotFound when it does
// not exist or has expired.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess Session
		user string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject, access_token, user_info, created_at, expires_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Subject, &sess.AccessToken, &user, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if sess.Expired(time.Now()) {
		// Remove the stale row opportunistically; the answer is the same
		// whether or not the delete succeeds.
		if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			s.logger.Warn("deleting expired session", "error", err)
		}
		return nil, ErrNotFound
	}

	if user != "" {
		sess.User = []byte(user)
	}
	return &sess, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired purges all lapsed sessions and returns how many were removed.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("purged expired sessions", "count", n)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
