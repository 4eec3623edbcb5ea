package app

import (
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
)

// NewLogger builds the process logger for the given environment.
func NewLogger(env string) (*zap.Logger, error) {
	switch env {
	case config.EnvProduction:
		return zap.NewProduction()
	case config.EnvTesting:
		return zap.NewNop(), nil
	default:
		return zap.NewDevelopment()
	}
}
