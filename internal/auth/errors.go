package auth

import "errors"

var (
	// ErrInvalidInput covers empty usernames or passwords; it never reaches
	// storage.
	ErrInvalidInput = errors.New("Username and password required")

	ErrDuplicateUser = errors.New("User already exists")

	// ErrSessionConflict means the password was correct but another process
	// holds the user's session slot. The login fails anyway: session
	// exclusivity outranks a verified password.
	ErrSessionConflict = errors.New("User is already logged in from another session")

	// ErrNotLoggedIn means the token named a user with no live session entry.
	// Logout and the staleness sweep both end a token's usefulness early,
	// regardless of its expiry claim.
	ErrNotLoggedIn = errors.New("Not logged in")

	// ErrPermissionDenied is returned for admin operations invoked without a
	// valid admin session token.
	ErrPermissionDenied = errors.New("Admin privileges required")

	// ErrUserNotFound is only surfaced from admin operations, where account
	// enumeration is not a concern. Login paths collapse it into
	// lockout.ErrInvalidCredentials.
	ErrUserNotFound = errors.New("User not found")
)
