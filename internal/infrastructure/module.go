// Package infrastructure provides the process-wide logger and its Fx module.
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/config"
	pkginfra "github.com/Raikerian/go-asterisk-bridge/pkg/infrastructure"
)

// LoggerModule provides logging infrastructure.
var LoggerModule = fx.Module("logger",
	fx.Provide(NewZapLogger),
)

// NewZapLoggerParams holds dependencies for NewZapLogger.
type NewZapLoggerParams struct {
	fx.In
	Cfg *config.Config
	LC  fx.Lifecycle
}

// NewZapLogger builds the root logger at the configured level and flushes it
// on shutdown.
func NewZapLogger(params NewZapLoggerParams) (*zap.Logger, error) {
	zapConfig, err := pkginfra.NewZapConfig(params.Cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logger, err := zapConfig.Build(zap.Fields(zap.String("service", "asterisk-bridge")))
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	params.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Syncing a terminal stderr fails with ENOTTY or EINVAL.
			if err := logger.Sync(); err != nil && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
				return err
			}
			return nil
		},
	})

	return logger, nil
}
