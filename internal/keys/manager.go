// Package keys resolves the symmetric key that seals the credential store.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/filex"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// EnvKey names the environment variable that can supply the key as
// standard base64. When set, the key file is ignored entirely.
const EnvKey = "VAULTGATE_KEY"

var ErrInvalidKey = errors.New("invalid encryption key")

type Manager struct {
	path string
	log  *zap.Logger
}

func NewManager(cfg *config.StorageConfig, log *zap.Logger) *Manager {
	return &Manager{path: cfg.KeyFile, log: log}
}

// Resolve returns the store key. An environment-supplied key wins; it is
// validated by constructing a cipher from it and never written to disk.
// Otherwise the key file is read, being generated with owner-only
// permissions on first use. A key file that exists but holds unusable
// material (truncated, wrong length) is ErrInvalidKey, not a cipher error
// further down.
func (m *Manager) Resolve() ([]byte, error) {
	if raw := os.Getenv(EnvKey); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not valid base64", ErrInvalidKey, EnvKey)
		}
		if err := Validate(key); err != nil {
			return nil, err
		}
		return key, nil
	}

	if _, err := os.Stat(m.path); errors.Is(err, os.ErrNotExist) {
		return m.generate()
	}

	key, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if err := Validate(key); err != nil {
		return nil, fmt.Errorf("key file %s: %w", m.path, err)
	}
	return key, nil
}

// Persist writes key material to the key file with owner-only permissions.
// Rotation callers must re-encrypt the store themselves; any other process
// still holding the old key loses access after this.
func (m *Manager) Persist(key []byte) error {
	if err := Validate(key); err != nil {
		return err
	}
	if err := filex.AtomicWrite(m.path, key, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// FromFile reports whether the key is file-backed rather than supplied via
// the environment. Key rotation is only possible for file-backed keys.
func (m *Manager) FromFile() bool {
	return os.Getenv(EnvKey) == ""
}

// Generate returns a fresh random AES-256 key.
func Generate() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// Validate checks key material by attempting to construct an AEAD from it.
// Only full-size AES-256 keys are accepted.
func Validate(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if _, err := cipher.NewGCM(block); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return nil
}

func (m *Manager) generate() ([]byte, error) {
	key, err := Generate()
	if err != nil {
		return nil, err
	}
	if err := m.Persist(key); err != nil {
		return nil, err
	}
	m.log.Info("generated new store key", zap.String("path", m.path))
	return key, nil
}
