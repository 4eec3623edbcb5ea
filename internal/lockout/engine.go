// Package lockout drives the per-user failed-attempt state machine and the
// system-wide freeze it can trigger.
//
// All lock and freeze state is a deterministic function of wall-clock time:
// there are no timers, and every gate re-checks now against the stored
// deadlines at the moment of the next relevant operation.
package lockout

import (
	"time"

	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/events"
	"github.com/eklabs/vaultgate/internal/freeze"
	"github.com/eklabs/vaultgate/internal/store"
)

type Engine struct {
	maxAttempts int
	userLock    time.Duration
	freezeFor   time.Duration

	store  *store.Store
	clock  *freeze.Clock
	events *events.Logger
	log    *zap.Logger
}

func NewEngine(cfg *config.AuthConfig, st *store.Store, clock *freeze.Clock, ev *events.Logger, log *zap.Logger) *Engine {
	return &Engine{
		maxAttempts: cfg.MaxAttempts,
		userLock:    cfg.UserLockDuration,
		freezeFor:   cfg.FreezeDuration,
		store:       st,
		clock:       clock,
		events:      ev,
		log:         log,
	}
}

// Gate runs every pre-password check for a login attempt, in order: clear
// expired locks and freezes, refuse while frozen, refuse unknown users
// (without touching any counter), refuse while the per-user lock runs. On
// success it returns the record so the caller can verify the password
// without a second lookup.
func (e *Engine) Gate(username string) (*store.UserRecord, error) {
	if err := e.clearExpired(username); err != nil {
		return nil, err
	}

	if remaining, frozen := e.clock.Remaining(); frozen {
		return nil, &SystemFrozenError{Remaining: remaining}
	}

	rec, err := e.store.Get(username)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// No counter is kept for nonexistent names; incrementing one would
		// leak account existence through the lockout side channel.
		e.events.Emit("LOGIN_FAIL", username, zap.String("reason", "no_such_user"))
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if rec.Locked(now) {
		remaining, _ := rec.LockRemaining(now)
		return nil, &AccountLockedError{Remaining: remaining}
	}

	return rec, nil
}

// RecordSuccess resets the attempt counter and stamps the login time.
func (e *Engine) RecordSuccess(rec *store.UserRecord) error {
	now := time.Now()
	rec.FailedAttempts = 0
	rec.LastLoginAt = &now
	if err := e.store.Upsert(rec); err != nil {
		return err
	}
	e.events.Emit("LOGIN_SUCCESS", rec.Username)
	return nil
}

// RecordFailure bumps the attempt counter and returns the refusal the
// caller must surface: a final-attempt warning one short of the threshold,
// a lock-plus-freeze at the threshold, or a generic count otherwise.
func (e *Engine) RecordFailure(rec *store.UserRecord) error {
	rec.FailedAttempts++
	attempts := rec.FailedAttempts
	if err := e.store.Upsert(rec); err != nil {
		return err
	}
	e.events.Emit("LOGIN_FAIL", rec.Username, zap.Int("attempt", attempts))

	if attempts == e.maxAttempts-1 {
		e.events.Emit("LOCK_WARN", rec.Username,
			zap.Int("attempts", attempts),
			zap.Int("attempts_left", e.maxAttempts-attempts))
		return &AttemptError{Attempts: attempts, Max: e.maxAttempts, Final: true}
	}

	if attempts >= e.maxAttempts {
		if err := e.lock(rec); err != nil {
			return err
		}
		frozen := e.TriggerFreeze(e.freezeFor)
		return &LockoutError{UserLock: e.userLock, Freeze: frozen}
	}

	return &AttemptError{Attempts: attempts, Max: e.maxAttempts}
}

// TriggerFreeze starts the system-wide freeze and returns its duration, or
// the remainder of a freeze that is already running.
func (e *Engine) TriggerFreeze(d time.Duration) time.Duration {
	if remaining, frozen := e.clock.Remaining(); frozen {
		return remaining
	}
	d = e.clock.FreezeFor(d)
	e.events.Emit("FREEZE_ON", "", zap.Int("seconds", seconds(d)))
	return d
}

// AttemptsLeft reports how many attempts remain before the lock threshold.
// Unknown users report the full budget, leaking nothing.
func (e *Engine) AttemptsLeft(username string) (int, error) {
	rec, err := e.store.Get(username)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return e.maxAttempts, nil
	}
	left := e.maxAttempts - rec.FailedAttempts
	if left < 0 {
		left = 0
	}
	return left, nil
}

// UserLockRemaining looks the user up and reports the remaining lock time.
func (e *Engine) UserLockRemaining(username string) (time.Duration, bool, error) {
	rec, err := e.store.Get(username)
	if err != nil {
		return 0, false, err
	}
	if rec == nil {
		return 0, false, nil
	}
	remaining, locked := rec.LockRemaining(time.Now())
	return remaining, locked, nil
}

// LockRemaining is the by-record variant for callers that already hold one.
func (e *Engine) LockRemaining(rec *store.UserRecord) (time.Duration, bool) {
	return rec.LockRemaining(time.Now())
}

func (e *Engine) lock(rec *store.UserRecord) error {
	until := time.Now().Add(e.userLock)
	rec.LockedUntil = &until
	if err := e.store.Upsert(rec); err != nil {
		return err
	}
	e.events.Emit("USER_LOCK_ON", rec.Username, zap.Int("seconds", seconds(e.userLock)))
	return nil
}

// clearExpired performs the lazy auto-unlock pass that precedes every
// authentication attempt.
func (e *Engine) clearExpired(username string) error {
	if e.clock.ClearExpired() {
		e.events.Emit("FREEZE_OFF", "")
	}

	rec, err := e.store.Get(username)
	if err != nil {
		return err
	}
	if rec == nil || rec.LockedUntil == nil {
		return nil
	}
	if time.Now().Before(*rec.LockedUntil) {
		return nil
	}

	rec.LockedUntil = nil
	rec.FailedAttempts = 0
	if err := e.store.Upsert(rec); err != nil {
		return err
	}
	e.events.Emit("USER_LOCK_OFF", username)
	return nil
}
