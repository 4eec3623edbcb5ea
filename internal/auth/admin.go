package auth

import (
	"time"

	"go.uber.org/zap"
)

// UserSummary is what ListUsers exposes per account. Password hashes never
// leave the store through this surface.
type UserSummary struct {
	Username       string     `json:"username"`
	IsAdmin        bool       `json:"is_admin"`
	FailedAttempts int        `json:"failed_attempts"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// requireAdmin authenticates the caller from the session token, then checks
// the admin flag against the store. The token only names the caller: the
// session registry decides whether they are still logged in, and the store
// decides whether they are still an admin. A token that outlives its session
// (logout, staleness reclaim) grants nothing.
func (s *Service) requireAdmin(token string) (string, error) {
	username, err := s.CurrentUser(token)
	if err != nil {
		return "", ErrPermissionDenied
	}
	rec, err := s.store.Get(username)
	if err != nil {
		return "", err
	}
	if rec == nil || !rec.IsAdmin {
		return "", ErrPermissionDenied
	}
	return username, nil
}

// ResetPassword sets a new password for the target user.
func (s *Service) ResetPassword(token, targetUsername, newPassword string) error {
	actor, err := s.requireAdmin(token)
	if err != nil {
		return err
	}
	if newPassword == "" {
		return ErrInvalidInput
	}

	rec, err := s.store.Get(targetUsername)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrUserNotFound
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	now := time.Now()
	rec.PasswordHash = hash
	rec.PasswordChangedAt = &now
	if err := s.store.Upsert(rec); err != nil {
		return err
	}

	s.events.Emit("ADMIN_RESET_PASSWORD", actor, zap.String("target", targetUsername))
	return nil
}

// ListUsers returns a summary of every account.
func (s *Service) ListUsers(token string) ([]UserSummary, error) {
	actor, err := s.requireAdmin(token)
	if err != nil {
		return nil, err
	}

	table, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	users := make([]UserSummary, 0, len(table))
	for _, rec := range table {
		users = append(users, UserSummary{
			Username:       rec.Username,
			IsAdmin:        rec.IsAdmin,
			FailedAttempts: rec.FailedAttempts,
			LastLoginAt:    rec.LastLoginAt,
		})
	}

	s.events.Emit("ADMIN_LIST_USERS", actor, zap.Int("count", len(users)))
	return users, nil
}

// LockSystem manually starts a system-wide freeze. Zero or negative seconds
// selects the configured default. Returns the seconds the freeze will run,
// which is the pre-existing remainder if one was already active.
func (s *Service) LockSystem(token string, seconds int) (int, error) {
	actor, err := s.requireAdmin(token)
	if err != nil {
		return 0, err
	}

	d := s.config.FreezeDuration
	if seconds > 0 {
		d = time.Duration(seconds) * time.Second
	}
	frozen := s.engine.TriggerFreeze(d)

	s.events.Emit("LOCK_MANUAL", actor, zap.Int("seconds", int(frozen/time.Second)))
	return int(frozen / time.Second), nil
}

// UnlockSystem clears the system-wide freeze immediately.
func (s *Service) UnlockSystem(token string) error {
	actor, err := s.requireAdmin(token)
	if err != nil {
		return err
	}

	s.clock.Clear()
	s.events.Emit("UNLOCK_MANUAL", actor)
	return nil
}

// SetUserLock sets or clears (until == nil) the per-user lock directly.
func (s *Service) SetUserLock(token, targetUsername string, until *time.Time) error {
	actor, err := s.requireAdmin(token)
	if err != nil {
		return err
	}

	rec, err := s.store.Get(targetUsername)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrUserNotFound
	}

	rec.LockedUntil = until
	if until == nil {
		rec.FailedAttempts = 0
	}
	if err := s.store.Upsert(rec); err != nil {
		return err
	}

	if until == nil {
		s.events.Emit("USER_LOCK_OFF", targetUsername, zap.String("by", actor))
	} else {
		s.events.Emit("USER_LOCK_ON", targetUsername,
			zap.String("by", actor),
			zap.Int("seconds", int(time.Until(*until)/time.Second)))
	}
	return nil
}

// RotateStoreKey re-encrypts the credential store under a new key. Any
// other process still holding the old key loses access; operators must
// coordinate that externally.
func (s *Service) RotateStoreKey(token string, newKey []byte) error {
	actor, err := s.requireAdmin(token)
	if err != nil {
		return err
	}

	if err := s.store.RotateKey(newKey); err != nil {
		return err
	}

	s.events.Emit("KEY_ROTATED", actor)
	return nil
}
