package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
)

func newTestLogger(t *testing.T) (*Logger, string) {
	path := filepath.Join(t.TempDir(), "security.log")
	l, err := NewLogger(&config.AuditConfig{File: path})
	require.NoError(t, err)
	return l, path
}

func readLines(t *testing.T, path string) []map[string]any {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestLogger_EmitLineFormat(t *testing.T) {
	l, path := newTestLogger(t)

	l.Emit("LOGIN_SUCCESS", "alice")
	l.Emit("FREEZE_ON", "", zap.Int("seconds", 60))
	l.Emit("LOGIN_FAIL", "bob", zap.Int("attempt", 2))
	require.NoError(t, l.Sync())

	lines := readLines(t, path)
	require.Len(t, lines, 3)

	assert.Equal(t, "LOGIN_SUCCESS", lines[0]["event"])
	assert.Equal(t, "alice", lines[0]["username"])
	assert.NotEmpty(t, lines[0]["ts"])

	// No username on system-level events.
	assert.Equal(t, "FREEZE_ON", lines[1]["event"])
	assert.NotContains(t, lines[1], "username")
	meta, ok := lines[1]["meta"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 60, meta["seconds"])

	meta, ok = lines[2]["meta"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, meta["attempt"])
}

func TestLogger_AppendsAcrossInstances(t *testing.T) {
	l, path := newTestLogger(t)
	l.Emit("REGISTER_SUCCESS", "alice")
	require.NoError(t, l.Sync())

	// A new logger on the same file must append, not truncate.
	l2, err := NewLogger(&config.AuditConfig{File: path})
	require.NoError(t, err)
	l2.Emit("LOGOUT", "alice")
	require.NoError(t, l2.Sync())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "REGISTER_SUCCESS", lines[0]["event"])
	assert.Equal(t, "LOGOUT", lines[1]["event"])
}
