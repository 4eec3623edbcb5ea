// Package auth composes the credential store, lockout engine, freeze clock
// and session registry into the login/logout/register protocol. It is the
// only entry point presentation layers call.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/events"
	"github.com/eklabs/vaultgate/internal/freeze"
	"github.com/eklabs/vaultgate/internal/lockout"
	"github.com/eklabs/vaultgate/internal/sessions"
	"github.com/eklabs/vaultgate/internal/store"
)

const adminUsername = "admin"

type Service struct {
	config   *config.AuthConfig
	log      *zap.Logger
	store    *store.Store
	engine   *lockout.Engine
	sessions *sessions.Registry
	clock    *freeze.Clock
	events   *events.Logger
}

// Claims is the session token payload. It identifies the caller; it is
// never trusted for authorization, which is re-checked against the store.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginResult is a successful authentication: the session token admin
// operations require, plus the user-facing message.
type LoginResult struct {
	Token   string
	Message string
}

func NewService(cfg *config.AuthConfig, log *zap.Logger, st *store.Store,
	engine *lockout.Engine, reg *sessions.Registry, clock *freeze.Clock, ev *events.Logger) *Service {
	return &Service{
		config:   cfg,
		log:      log,
		store:    st,
		engine:   engine,
		sessions: reg,
		clock:    clock,
		events:   ev,
	}
}

func (s *Service) HashPassword(password string) (string, error) {
	cost := s.config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func (s *Service) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Register creates a new user with a hashed password and zeroed counters.
func (s *Service) Register(username, password string, isAdmin bool) error {
	if username == "" || password == "" {
		return ErrInvalidInput
	}

	existing, err := s.store.Get(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateUser
	}

	rec, err := s.newRecord(username, password, isAdmin)
	if err != nil {
		return err
	}
	if err := s.store.Upsert(rec); err != nil {
		return err
	}

	s.events.Emit("REGISTER_SUCCESS", username)
	return nil
}

// Authenticate runs the full login protocol: freeze gate, lockout gate,
// password verification, then the single-session gate. A correct password
// with an active session elsewhere fails with ErrSessionConflict and leaves
// the attempt counter untouched - the guess was right, so it does not count
// against the lockout budget.
func (s *Service) Authenticate(username, password string) (*LoginResult, error) {
	rec, err := s.engine.Gate(username)
	if err != nil {
		return nil, err
	}

	if !s.CheckPasswordHash(password, rec.PasswordHash) {
		return nil, s.engine.RecordFailure(rec)
	}

	if err := s.sessions.Acquire(username); err != nil {
		if errors.Is(err, sessions.ErrAlreadyActive) {
			s.events.Emit("SESSION_CONFLICT", username)
			return nil, ErrSessionConflict
		}
		return nil, err
	}

	if err := s.engine.RecordSuccess(rec); err != nil {
		s.abandonSession(username)
		return nil, err
	}

	token, err := s.GenerateToken(username)
	if err != nil {
		s.abandonSession(username)
		return nil, err
	}

	return &LoginResult{Token: token, Message: "Login successful"}, nil
}

// abandonSession gives the just-acquired slot back when a later login step
// fails, so the user is not locked out of retrying until the staleness sweep.
func (s *Service) abandonSession(username string) {
	if err := s.sessions.Release(username); err != nil {
		s.log.Warn("failed to release session after login error",
			zap.String("username", username), zap.Error(err))
	}
}

// CurrentUser resolves a session token to its live username. A valid token
// is not enough on its own: the user must still hold a session entry, so
// logout or a staleness reclaim ends the token's usefulness immediately.
func (s *Service) CurrentUser(token string) (string, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return "", err
	}
	active, err := s.sessions.IsActive(claims.Username)
	if err != nil {
		return "", err
	}
	if !active {
		return "", ErrNotLoggedIn
	}
	return claims.Username, nil
}

// Logout releases the user's session slot. Idempotent.
func (s *Service) Logout(username string) error {
	if err := s.sessions.Release(username); err != nil {
		return err
	}
	s.events.Emit("LOGOUT", username)
	return nil
}

// Heartbeat re-stamps the user's session entry so the staleness sweep does
// not reclaim it mid-session.
func (s *Service) Heartbeat(username string) error {
	return s.sessions.Refresh(username)
}

// BootstrapAdmin ensures an admin account exists. Idempotent: if any
// admin-flagged account or an account named "admin" is already present it
// does nothing and never overwrites.
func (s *Service) BootstrapAdmin(defaultPassword string) error {
	table, err := s.store.Load()
	if err != nil {
		return err
	}
	for name, rec := range table {
		if name == adminUsername || rec.IsAdmin {
			return nil
		}
	}

	rec, err := s.newRecord(adminUsername, defaultPassword, true)
	if err != nil {
		return err
	}
	if err := s.store.Upsert(rec); err != nil {
		return err
	}

	s.events.Emit("REGISTER_SUCCESS", adminUsername, zap.Bool("bootstrap", true))
	return nil
}

// GenerateToken signs a session token for username.
func (s *Service) GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// ValidateToken parses and verifies a session token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// IsSystemFrozen reports the system-wide freeze gate.
func (s *Service) IsSystemFrozen() bool {
	return s.clock.IsFrozen()
}

// FreezeRemainingSeconds returns the seconds left on the freeze, if any.
func (s *Service) FreezeRemainingSeconds() (int, bool) {
	remaining, frozen := s.clock.Remaining()
	if !frozen {
		return 0, false
	}
	return int(remaining / time.Second), true
}

// UserLockRemainingSeconds returns the seconds left on the user's own lock.
func (s *Service) UserLockRemainingSeconds(username string) (int, bool, error) {
	remaining, locked, err := s.engine.UserLockRemaining(username)
	if err != nil || !locked {
		return 0, false, err
	}
	return int(remaining / time.Second), true, nil
}

// AttemptsLeft reports the remaining login attempts before lockout.
func (s *Service) AttemptsLeft(username string) (int, error) {
	return s.engine.AttemptsLeft(username)
}

func (s *Service) newRecord(username, password string, isAdmin bool) (*store.UserRecord, error) {
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &store.UserRecord{
		Username:          username,
		PasswordHash:      hash,
		IsAdmin:           isAdmin,
		CreatedAt:         &now,
		PasswordChangedAt: &now,
	}, nil
}
