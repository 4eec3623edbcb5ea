package lockout

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCredentials covers both wrong-password and unknown-username
// refusals. The two are never surfaced distinctly, so a caller cannot probe
// which accounts exist.
var ErrInvalidCredentials = errors.New("Invalid credentials")

// AccountLockedError is returned while the per-user lock is running.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("Account temporarily locked. Try again in %ds.", seconds(e.Remaining))
}

// SystemFrozenError is returned while the system-wide freeze is running.
type SystemFrozenError struct {
	Remaining time.Duration
}

func (e *SystemFrozenError) Error() string {
	if e.Remaining <= 0 {
		return "System is frozen. Try again later or contact admin."
	}
	return fmt.Sprintf("System is frozen. Try again in %ds or contact admin.", seconds(e.Remaining))
}

// AttemptError is a failed password attempt below the lock threshold. It
// matches ErrInvalidCredentials under errors.Is.
type AttemptError struct {
	Attempts int
	Max      int
	Final    bool
}

func (e *AttemptError) Error() string {
	if e.Final {
		return fmt.Sprintf("Invalid credentials. Final attempt remaining (1 of %d).", e.Max)
	}
	left := e.Max - e.Attempts
	return fmt.Sprintf("Invalid credentials. Attempt %d of %d (%d left).", e.Attempts, e.Max, left)
}

func (e *AttemptError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

// LockoutError is the attempt that crossed the threshold: the account is now
// locked and the system freeze has been triggered (or was already running,
// in which case Freeze carries its remainder). Matches ErrInvalidCredentials
// under errors.Is.
type LockoutError struct {
	UserLock time.Duration
	Freeze   time.Duration
}

func (e *LockoutError) Error() string {
	msg := "Too many attempts. "
	if e.Freeze > 0 {
		msg += fmt.Sprintf("System frozen for %ds. ", seconds(e.Freeze))
	}
	msg += fmt.Sprintf("Your account is locked for %ds.", seconds(e.UserLock))
	return msg
}

func (e *LockoutError) Is(target error) bool {
	return target == ErrInvalidCredentials
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
