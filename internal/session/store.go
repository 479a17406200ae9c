// Package session persists the credential that proves an authenticated
// session with the admin API (a bearer token or a session cookie value).
package session

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/rawlogin/adminctl/pkg/errors"
	"github.com/rawlogin/adminctl/pkg/logger"
)

// Store is the durable holder of the credential. Get returns "" when no
// credential is present. Set overwrites, and Set("") behaves like Clear.
// Clear is idempotent.
type Store interface {
	Get() (string, error)
	Set(credential string) error
	Clear() error
}

// Backends accepted by New.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend string
	// Path is the credential file, or the sqlite database for BackendSQLite.
	Path string
	// Profile keys the credential inside a shared sqlite database.
	Profile string
}

// New creates the Store described by opts.
func New(opts Options, log *logger.Logger) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Path), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		s, err := NewSQLiteStore(opts.Path, opts.Profile, log)
		if err != nil {
			return nil, apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to open credential database", err)
		}
		return s, nil
	default:
		return nil, apperrors.NewSessionError(apperrors.ErrCodeConfiguration,
			fmt.Sprintf("unknown credential store %q", opts.Backend), nil)
	}
}

// ExpandPath expands ~ to the home directory in file paths.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if len(path) == 1 {
		return home
	}

	return filepath.Join(home, path[1:])
}
