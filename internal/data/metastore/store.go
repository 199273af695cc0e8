// Package metastore keeps decoded class metadata in SQLite so a project can
// start warm and survive unreadable files.
package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	qxerrors "qxsense/internal/core/errors"
	"qxsense/internal/core/ports"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

var _ ports.RecordStore = (*Store)(nil)

type Store struct {
	projectKey string
	db         *sql.DB
	mu         sync.Mutex
}

// Hash is the content hash stored with every record.
func Hash(payload []byte) uint64 {
	return xxhash.Sum64(payload)
}

func Open(path, projectKey string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, qxerrors.New(qxerrors.CodeValidationError, "metastore path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, qxerrors.AddContext(
			qxerrors.New(qxerrors.CodeValidationError, "metastore path is a directory, expected file"),
			qxerrors.CtxPath, cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create metastore directory %q: %w", dir, err)
		}
	}

	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		projectKey = "default"
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite metastore %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite metastore %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{projectKey: projectKey, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Upsert(ctx context.Context, rec ports.CachedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(rec.Path) == "" {
		return qxerrors.New(qxerrors.CodeValidationError, "record path must not be empty")
	}
	if rec.Hash == 0 {
		rec.Hash = Hash(rec.Payload)
	}

	query := `
INSERT INTO records (project_key, path, class_name, content_hash, payload, updated_at_utc)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(project_key, path) DO UPDATE SET
  class_name=excluded.class_name,
  content_hash=excluded.content_hash,
  payload=excluded.payload,
  updated_at_utc=excluded.updated_at_utc
`
	return s.withRetry("upsert record", func() error {
		_, err := s.db.ExecContext(ctx, query,
			s.projectKey,
			rec.Path,
			rec.Class,
			int64(rec.Hash),
			rec.Payload,
			time.Now().UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

func (s *Store) Get(ctx context.Context, path string) (ports.CachedRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		rec  ports.CachedRecord
		hash int64
	)
	err := s.withRetry("get record", func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT path, class_name, content_hash, payload FROM records WHERE project_key = ? AND path = ?`,
			s.projectKey, path,
		).Scan(&rec.Path, &rec.Class, &hash, &rec.Payload)
	})
	if err != nil {
		if isNoRows(err) {
			return ports.CachedRecord{}, false, nil
		}
		return ports.CachedRecord{}, false, err
	}
	rec.Hash = uint64(hash)
	return rec, true, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("delete record", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE project_key = ? AND path = ?`, s.projectKey, path)
		return err
	})
}

// All returns every record of the project ordered by path.
func (s *Store) All(ctx context.Context) ([]ports.CachedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load records", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx,
			`SELECT path, class_name, content_hash, payload FROM records WHERE project_key = ? ORDER BY path ASC`,
			s.projectKey)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]ports.CachedRecord, 0)
	for rows.Next() {
		var (
			rec  ports.CachedRecord
			hash int64
		)
		if err := rows.Scan(&rec.Path, &rec.Class, &hash, &rec.Payload); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		rec.Hash = uint64(hash)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return records, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
