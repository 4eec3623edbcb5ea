package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eklabs/vaultgate/internal/auth"
	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/events"
	"github.com/eklabs/vaultgate/internal/freeze"
	"github.com/eklabs/vaultgate/internal/keys"
	"github.com/eklabs/vaultgate/internal/lockout"
	"github.com/eklabs/vaultgate/internal/sessions"
	"github.com/eklabs/vaultgate/internal/store"
)

type testAccessor struct {
	*Accessor
	svc   *auth.Service
	clock *freeze.Clock
	token string
}

func newTestAccessor(t *testing.T) *testAccessor {
	dir := t.TempDir()
	log := zap.NewNop()

	storageCfg := &config.StorageConfig{
		DataDir:      dir,
		StoreFile:    filepath.Join(dir, "users.json.enc"),
		KeyFile:      filepath.Join(dir, "key.key"),
		ProtectedDir: filepath.Join(dir, "protected"),
	}
	authCfg := &config.AuthConfig{
		BcryptCost:       bcrypt.MinCost,
		MaxAttempts:      5,
		UserLockDuration: 180 * time.Second,
		FreezeDuration:   60 * time.Second,
		JWTSecret:        "test-secret-key",
		TokenExpiration:  time.Hour,
	}
	sessionCfg := &config.SessionConfig{
		File:          filepath.Join(dir, "active_sessions.json"),
		StaleAfter:    300 * time.Second,
		RetryInterval: 10 * time.Millisecond,
		LockTimeout:   time.Second,
	}

	ev := events.NewNop()
	st := store.New(storageCfg, keys.NewManager(storageCfg, log), log)
	clock := freeze.NewClock()
	engine := lockout.NewEngine(authCfg, st, clock, ev, log)
	registry := sessions.NewRegistry(sessionCfg, log)
	svc := auth.NewService(authCfg, log, st, engine, registry, clock, ev)

	accessor, err := NewAccessor(storageCfg, svc, log)
	require.NoError(t, err)

	require.NoError(t, svc.Register("alice", "secret123", false))
	result, err := svc.Authenticate("alice", "secret123")
	require.NoError(t, err)

	return &testAccessor{Accessor: accessor, svc: svc, clock: clock, token: result.Token}
}

func (a *testAccessor) addFile(t *testing.T, name, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(a.dir, name), []byte(content), 0o600))
}

func TestAccessor_ListSkipsDirectories(t *testing.T) {
	a := newTestAccessor(t)
	a.addFile(t, "notes.txt", "n")
	a.addFile(t, "report.txt", "r")
	require.NoError(t, os.Mkdir(filepath.Join(a.dir, "archive"), 0o700))

	names, err := a.List(a.token)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt", "report.txt"}, names)
}

func TestAccessor_OpenReadsContent(t *testing.T) {
	a := newTestAccessor(t)
	a.addFile(t, "notes.txt", "the content")

	content, err := a.Open(a.token, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "the content", content)

	_, err = a.Open(a.token, "missing.txt")
	assert.Error(t, err)
}

func TestAccessor_RequiresLiveSession(t *testing.T) {
	a := newTestAccessor(t)
	a.addFile(t, "notes.txt", "n")

	_, err := a.List("not-a-token")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	// A valid token stops working the moment its session ends.
	require.NoError(t, a.svc.Logout("alice"))
	_, err = a.Open(a.token, "notes.txt")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestAccessor_RefusedWhileFrozen(t *testing.T) {
	a := newTestAccessor(t)
	a.addFile(t, "notes.txt", "n")
	a.clock.FreezeFor(time.Minute)

	_, err := a.List(a.token)
	assert.ErrorIs(t, err, ErrFrozen)
	_, err = a.Open(a.token, "notes.txt")
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestAccessor_PathTraversalRejected(t *testing.T) {
	a := newTestAccessor(t)

	// A sibling file outside the protected directory must stay unreachable.
	outside := filepath.Join(filepath.Dir(a.dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("s"), 0o600))

	for _, filename := range []string{
		"",
		"..",
		"../secret.txt",
		"sub/../../secret.txt",
		"/etc/passwd",
	} {
		_, err := a.Open(a.token, filename)
		assert.ErrorIs(t, err, ErrInvalidPath, "filename %q", filename)
	}

	// A nested path that stays inside resolves normally.
	require.NoError(t, os.MkdirAll(filepath.Join(a.dir, "sub"), 0o700))
	a.addFile(t, filepath.Join("sub", "inner.txt"), "i")
	content, err := a.Open(a.token, "sub/inner.txt")
	require.NoError(t, err)
	assert.Equal(t, "i", content)
}
