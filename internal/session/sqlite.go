package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/rawlogin/adminctl/pkg/errors"
	"github.com/rawlogin/adminctl/pkg/logger"
)

// DefaultDatabasePath is where the sqlite store keeps credentials.
const DefaultDatabasePath = "~/.adminctl/sessions.db"

//go:embed schema.sql
var ddl string

// SQLiteStore keeps one credential per profile in a sqlite database, so
// sessions against several API servers can coexist.
type SQLiteStore struct {
	db      *sql.DB
	profile string
	logger  *logger.Logger
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path, profile string, log *logger.Logger) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultDatabasePath
	}
	if profile == "" {
		profile = "default"
	}
	if log == nil {
		log = logger.NewNop()
	}
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database schema: %w", err)
	}

	return &SQLiteStore{db: db, profile: profile, logger: log}, nil
}

func (s *SQLiteStore) Get() (string, error) {
	ctx := logger.WithProfile(context.Background(), s.profile)
	start := time.Now()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM credentials WHERE profile = ?", s.profile).Scan(&value)
	s.logger.DBQuery(ctx, "select", "credentials", time.Since(start))

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to read credential", err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(credential string) error {
	if credential == "" {
		return s.Clear()
	}

	ctx := logger.WithProfile(context.Background(), s.profile)
	start := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (profile, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(profile) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.profile, credential)
	s.logger.DBQuery(ctx, "upsert", "credentials", time.Since(start))

	if err != nil {
		return apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to write credential", err)
	}
	return nil
}

func (s *SQLiteStore) Clear() error {
	ctx := logger.WithProfile(context.Background(), s.profile)
	start := time.Now()

	_, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE profile = ?", s.profile)
	s.logger.DBQuery(ctx, "delete", "credentials", time.Since(start))

	if err != nil {
		return apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to remove credential", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
