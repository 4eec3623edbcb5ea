// Package files exposes read-only access to the protected document
// directory. Every call is gated the same way logins are: refused while the
// system freeze runs, refused without a live session, and confined to the
// configured directory.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/auth"
	"github.com/eklabs/vaultgate/internal/config"
)

var (
	ErrFrozen      = errors.New("System is frozen")
	ErrNotLoggedIn = errors.New("Not logged in")

	// ErrInvalidPath covers absolute filenames and anything that escapes
	// the protected directory after resolution.
	ErrInvalidPath = errors.New("Invalid path")
)

type Accessor struct {
	dir  string
	auth *auth.Service
	log  *zap.Logger
}

// NewAccessor creates the protected directory if needed and returns the
// gated accessor over it.
func NewAccessor(cfg *config.StorageConfig, svc *auth.Service, log *zap.Logger) (*Accessor, error) {
	if err := os.MkdirAll(cfg.ProtectedDir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", cfg.ProtectedDir, err)
	}
	return &Accessor{dir: cfg.ProtectedDir, auth: svc, log: log}, nil
}

// List returns the names of the regular files in the protected directory,
// sorted. Subdirectories are not descended into.
func (a *Accessor) List(token string) ([]string, error) {
	if err := a.requireAuth(token); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("list protected files: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Open reads one protected file and returns its content.
func (a *Accessor) Open(token, filename string) (string, error) {
	if err := a.requireAuth(token); err != nil {
		return "", err
	}

	full, err := a.resolve(filename)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("open protected file: %w", err)
	}
	return string(data), nil
}

// requireAuth applies the freeze gate first, then the session gate, in the
// same order logins check them.
func (a *Accessor) requireAuth(token string) error {
	if a.auth.IsSystemFrozen() {
		return ErrFrozen
	}
	if _, err := a.auth.CurrentUser(token); err != nil {
		return ErrNotLoggedIn
	}
	return nil
}

// resolve joins filename onto the protected directory and verifies the
// result still lives inside it.
func (a *Accessor) resolve(filename string) (string, error) {
	if filename == "" || filepath.IsAbs(filename) {
		return "", ErrInvalidPath
	}
	base, err := filepath.Abs(a.dir)
	if err != nil {
		return "", fmt.Errorf("resolve protected dir: %w", err)
	}
	full, err := filepath.Abs(filepath.Join(base, filename))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", filename, err)
	}
	if !strings.HasPrefix(full, base+string(filepath.Separator)) {
		a.log.Warn("rejected path escaping the protected directory",
			zap.String("filename", filename))
		return "", ErrInvalidPath
	}
	return full, nil
}
