// Package events emits the structured security event stream consumed by
// external log tooling. Every state transition in the engine (register,
// login success/fail, lock on/off, freeze on/off) lands here as one JSON
// line of the form {ts, event, username?, meta?}. The engine never formats
// or rotates this file.
package events

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/filex"
)

type Logger struct {
	log *zap.Logger
}

// NewLogger opens the append-only audit file and wraps it in a JSON zap
// core keyed the way the downstream log collaborators expect.
func NewLogger(cfg *config.AuditConfig) (*Logger, error) {
	if err := filex.EnsureParentDir(cfg.File); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "ts",
		MessageKey:  "event",
		LevelKey:    zapcore.OmitKey,
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(f), zapcore.InfoLevel)

	return &Logger{log: zap.New(core)}, nil
}

// NewNop returns a logger that swallows every event. Used in tests.
func NewNop() *Logger {
	return &Logger{log: zap.NewNop()}
}

// Emit records one security event. An empty username is omitted from the
// line; extra fields are grouped under "meta".
func (l *Logger) Emit(event string, username string, meta ...zap.Field) {
	fields := make([]zap.Field, 0, len(meta)+2)
	if username != "" {
		fields = append(fields, zap.String("username", username))
	}
	if len(meta) > 0 {
		fields = append(fields, zap.Namespace("meta"))
		fields = append(fields, meta...)
	}
	l.log.Info(event, fields...)
}

func (l *Logger) Sync() error {
	return l.log.Sync()
}
