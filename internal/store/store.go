// Package store owns the encrypted-at-rest credential table.
//
// The table lives in a single AES-256-GCM sealed file that is replaced
// atomically on every save, so a concurrent reader sees either the previous
// snapshot or the new one, never a partial write. There is deliberately no
// cross-process lock around the read-modify-write cycle: two processes
// updating different users at once can lose one update (last writer wins on
// the whole table). That is an accepted limitation of the low-concurrency
// deployments this is built for, not something to paper over with locking.
package store

import (
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/filex"
	"github.com/eklabs/vaultgate/internal/keys"
)

// ErrCorruptStore means the store file exists but cannot be decrypted with
// the resolved key. This is fatal: returning an empty table here would mask
// tampering as "no users".
var ErrCorruptStore = errors.New("credential store is corrupt or was encrypted with a different key")

type Store struct {
	path string
	keys *keys.Manager
	log  *zap.Logger
}

func New(cfg *config.StorageConfig, km *keys.Manager, log *zap.Logger) *Store {
	return &Store{path: cfg.StoreFile, keys: km, log: log}
}

// Load decrypts and returns the full credential table. A missing store file
// is the bootstrap state and yields an empty table; a store that fails to
// decrypt yields ErrCorruptStore.
func (s *Store) Load() (Table, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	key, err := s.keys.Resolve()
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := open(aead, blob)
	if err != nil {
		return nil, err
	}

	var table Table
	if err := json.Unmarshal(plaintext, &table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	return table, nil
}

// Save serializes the whole table, seals it, and atomically replaces the
// store file.
func (s *Store) Save(table Table) error {
	key, err := s.keys.Resolve()
	if err != nil {
		return err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return err
	}
	return s.saveWith(aead, table)
}

// Get returns the record for username, or nil if it does not exist.
func (s *Store) Get(username string) (*UserRecord, error) {
	table, err := s.Load()
	if err != nil {
		return nil, err
	}
	return table[username], nil
}

// Upsert runs the full load-mutate-save cycle for a single record. Callers
// must not hold a record across other store calls and write it back later;
// re-read instead.
func (s *Store) Upsert(rec *UserRecord) error {
	table, err := s.Load()
	if err != nil {
		return err
	}
	table[rec.Username] = rec
	return s.Save(table)
}

// Usernames returns all known usernames, sorted.
func (s *Store) Usernames() ([]string, error) {
	table, err := s.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RotateKey decrypts the store with the current key, persists newKey (a
// fresh random key when nil), and re-encrypts the store under it. Only
// file-backed keys can be rotated; with an environment-supplied key the
// operator must swap the variable and re-encrypt out of band.
func (s *Store) RotateKey(newKey []byte) error {
	if !s.keys.FromFile() {
		return fmt.Errorf("%w: cannot rotate an environment-supplied key", keys.ErrInvalidKey)
	}

	table, err := s.Load()
	if err != nil {
		return err
	}

	if newKey == nil {
		if newKey, err = keys.Generate(); err != nil {
			return err
		}
	}
	aead, err := newAEAD(newKey)
	if err != nil {
		return err
	}

	if err := s.keys.Persist(newKey); err != nil {
		return err
	}
	if err := s.saveWith(aead, table); err != nil {
		return err
	}

	s.log.Info("store key rotated", zap.String("path", s.path))
	return nil
}

func (s *Store) saveWith(aead cipher.AEAD, table Table) error {
	plaintext, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	blob, err := seal(aead, plaintext)
	if err != nil {
		return err
	}
	if err := filex.AtomicWrite(s.path, blob, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}
