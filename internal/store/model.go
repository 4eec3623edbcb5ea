package store

import "time"

// UserRecord is one entry in the credential table. The username is the
// table key and never changes. Timestamps beyond LockedUntil are audit
// data only and gate nothing.
type UserRecord struct {
	Username          string     `json:"username"`
	PasswordHash      string     `json:"password_hash"`
	IsAdmin           bool       `json:"is_admin"`
	FailedAttempts    int        `json:"failed_attempts"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
}

// Locked reports whether the per-user lock is set and still in the future.
func (u *UserRecord) Locked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// LockRemaining returns how long the per-user lock has left to run.
func (u *UserRecord) LockRemaining(now time.Time) (time.Duration, bool) {
	if u.LockedUntil == nil {
		return 0, false
	}
	d := u.LockedUntil.Sub(now)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// Table maps username to record. It is always persisted as a whole: one
// encrypted blob, replaced atomically on every save.
type Table map[string]*UserRecord
