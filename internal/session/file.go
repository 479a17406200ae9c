package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/rawlogin/adminctl/pkg/errors"
)

// DefaultCredentialPath is where the file store keeps the credential.
const DefaultCredentialPath = "~/.adminctl/credential"

// FileStore keeps the credential in a single file readable only by the
// current user, so a session survives between command invocations.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a file-backed store. An empty path selects
// DefaultCredentialPath.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultCredentialPath
	}
	return &FileStore{path: ExpandPath(path)}
}

// Path returns the resolved credential file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to read credential", err).
			WithMetadata("path", s.path)
	}

	return strings.TrimSpace(string(content)), nil
}

func (s *FileStore) Set(credential string) error {
	if credential == "" {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to create credential directory", err)
	}

	// Write to a sibling file and rename so a crash never leaves half a token.
	tmp := fmt.Sprintf("%s.tmp", s.path)
	if err := os.WriteFile(tmp, []byte(credential), 0600); err != nil {
		return apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to write credential", err).
			WithMetadata("path", s.path)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to write credential", err).
			WithMetadata("path", s.path)
	}

	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return apperrors.NewSessionError(apperrors.ErrCodeStorage, "failed to remove credential", err).
			WithMetadata("path", s.path)
	}
	return nil
}
