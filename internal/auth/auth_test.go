package auth

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/events"
	"github.com/eklabs/vaultgate/internal/freeze"
	"github.com/eklabs/vaultgate/internal/keys"
	"github.com/eklabs/vaultgate/internal/lockout"
	"github.com/eklabs/vaultgate/internal/sessions"
	"github.com/eklabs/vaultgate/internal/store"
)

type testService struct {
	*Service
	store    *store.Store
	clock    *freeze.Clock
	registry *sessions.Registry
	cfg      *config.AuthConfig
}

func newTestConfig() *config.AuthConfig {
	return &config.AuthConfig{
		BcryptCost:       bcrypt.MinCost, // keep the test suite fast
		MaxAttempts:      5,
		UserLockDuration: 180 * time.Second,
		FreezeDuration:   60 * time.Second,
		JWTSecret:        "test-secret-key",
		TokenExpiration:  time.Hour,
	}
}

func newTestService(t *testing.T) *testService {
	return newTestServiceWith(t, newTestConfig())
}

func newTestServiceWith(t *testing.T, authCfg *config.AuthConfig) *testService {
	dir := t.TempDir()
	return newTestServiceAt(t, authCfg, dir, dir)
}

// newTestServiceAt allows the store and session files to live in different
// directories, so tests can break one without touching the other.
func newTestServiceAt(t *testing.T, authCfg *config.AuthConfig, storeDir, sessionDir string) *testService {
	log := zap.NewNop()

	storageCfg := &config.StorageConfig{
		DataDir:   storeDir,
		StoreFile: filepath.Join(storeDir, "users.json.enc"),
		KeyFile:   filepath.Join(storeDir, "key.key"),
	}
	sessionCfg := &config.SessionConfig{
		File:          filepath.Join(sessionDir, "active_sessions.json"),
		StaleAfter:    300 * time.Second,
		RetryInterval: 10 * time.Millisecond,
		LockTimeout:   time.Second,
	}

	ev := events.NewNop()
	st := store.New(storageCfg, keys.NewManager(storageCfg, log), log)
	clock := freeze.NewClock()
	engine := lockout.NewEngine(authCfg, st, clock, ev, log)
	registry := sessions.NewRegistry(sessionCfg, log)

	return &testService{
		Service:  NewService(authCfg, log, st, engine, registry, clock, ev),
		store:    st,
		clock:    clock,
		registry: registry,
		cfg:      authCfg,
	}
}
