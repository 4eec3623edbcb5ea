// Package sessions enforces at most one active session per username across
// all processes on the host.
//
// The registry is a shared JSON file mapping username to {pid, last_active}.
// Every access, read-only or mutating, happens under an exclusive advisory
// flock on that file and starts by pruning entries whose heartbeat is older
// than the staleness threshold, then persisting the pruned set. Reclamation
// is therefore a side effect of any access by any process, which is what
// makes the registry self-healing after a crash or kill -9.
package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/filex"
)

var (
	// ErrAlreadyActive means a live (non-stale) entry for the username exists.
	ErrAlreadyActive = errors.New("user already has an active session")
	// ErrLockTimeout means the session file lock could not be acquired
	// within the configured bound.
	ErrLockTimeout = errors.New("timed out waiting for the session file lock")
)

// Entry is one active session as stored in the shared file.
type Entry struct {
	PID        int       `json:"pid"`
	LastActive time.Time `json:"last_active"`
}

type Registry struct {
	path          string
	staleAfter    time.Duration
	retryInterval time.Duration
	lockTimeout   time.Duration
	log           *zap.Logger

	mu    sync.Mutex
	owned map[string]struct{}
}

func NewRegistry(cfg *config.SessionConfig, log *zap.Logger) *Registry {
	return &Registry{
		path:          cfg.File,
		staleAfter:    cfg.StaleAfter,
		retryInterval: cfg.RetryInterval,
		lockTimeout:   cfg.LockTimeout,
		log:           log,
		owned:         make(map[string]struct{}),
	}
}

// IsActive reports whether a live session entry exists for username.
func (r *Registry) IsActive(username string) (bool, error) {
	var active bool
	err := r.withLock(func(set map[string]Entry) error {
		_, active = set[username]
		return nil
	})
	return active, err
}

// Acquire claims the single session slot for username, failing with
// ErrAlreadyActive if another live entry survived pruning.
func (r *Registry) Acquire(username string) error {
	err := r.withLock(func(set map[string]Entry) error {
		if _, ok := set[username]; ok {
			return ErrAlreadyActive
		}
		set[username] = Entry{PID: os.Getpid(), LastActive: time.Now().UTC()}
		return nil
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.owned[username] = struct{}{}
	r.mu.Unlock()
	return nil
}

// Release removes the session entry for username. Releasing a username with
// no entry is a no-op.
func (r *Registry) Release(username string) error {
	err := r.withLock(func(set map[string]Entry) error {
		delete(set, username)
		return nil
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.owned, username)
	r.mu.Unlock()
	return nil
}

// Refresh is the heartbeat: it re-stamps an existing live entry and does
// nothing for a username that has no entry. It never resurrects a session
// the staleness sweep already reclaimed.
func (r *Registry) Refresh(username string) error {
	return r.withLock(func(set map[string]Entry) error {
		if entry, ok := set[username]; ok {
			entry.LastActive = time.Now().UTC()
			set[username] = entry
		}
		return nil
	})
}

// ReleaseOwned drops every entry this process acquired and has not released
// yet. Wired to process shutdown as the best-effort cleanup; the staleness
// sweep remains the backstop when it never runs.
func (r *Registry) ReleaseOwned() error {
	r.mu.Lock()
	names := make([]string, 0, len(r.owned))
	for name := range r.owned {
		names = append(names, name)
	}
	r.owned = make(map[string]struct{})
	r.mu.Unlock()

	if len(names) == 0 {
		return nil
	}
	return r.withLock(func(set map[string]Entry) error {
		for _, name := range names {
			delete(set, name)
		}
		return nil
	})
}

// withLock opens the session file, takes the exclusive advisory lock with a
// bounded retry loop, reads and prunes the entry set, hands it to fn, and
// writes the result back before unlocking. fn mutates the map in place.
func (r *Registry) withLock(fn func(set map[string]Entry) error) error {
	if err := filex.EnsureParentDir(r.path); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	if err := r.flock(f); err != nil {
		return err
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	set, err := r.read(f)
	if err != nil {
		return err
	}
	r.prune(set)

	if opErr := fn(set); opErr != nil {
		// Persist the pruning even when the operation itself is refused, so
		// every access cleans up after crashed processes.
		if err := r.write(f, set); err != nil {
			return err
		}
		return opErr
	}

	return r.write(f, set)
}

func (r *Registry) flock(f *os.File) error {
	deadline := time.Now().Add(r.lockTimeout)
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("lock session file: %w", err)
		}
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(r.retryInterval)
	}
}

func (r *Registry) read(f *os.File) (map[string]Entry, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek session file: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	set := make(map[string]Entry)
	if len(data) == 0 {
		return set, nil
	}
	if err := json.Unmarshal(data, &set); err != nil {
		// A mangled registry only tracks ephemeral sessions; start over
		// rather than refusing every login on the host.
		r.log.Warn("session file unreadable, resetting", zap.Error(err))
		return make(map[string]Entry), nil
	}
	return set, nil
}

func (r *Registry) write(f *os.File, set map[string]Entry) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate session file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek session file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync session file: %w", err)
	}
	return nil
}

func (r *Registry) prune(set map[string]Entry) {
	cutoff := time.Now().Add(-r.staleAfter)
	for name, entry := range set {
		if entry.LastActive.Before(cutoff) {
			delete(set, name)
			r.log.Info("reclaimed stale session",
				zap.String("username", name),
				zap.Int("pid", entry.PID),
				zap.Time("last_active", entry.LastActive))
		}
	}
}
