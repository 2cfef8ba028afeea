package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Raikerian/go-asterisk-bridge/internal/config"
)

func TestNewZapLogger_Level(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"

	lc := fxtest.NewLifecycle(t)
	logger, err := NewZapLogger(NewZapLoggerParams{Cfg: cfg, LC: lc})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewZapLogger_InvalidLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "chatty"

	_, err := NewZapLogger(NewZapLoggerParams{Cfg: cfg, LC: fxtest.NewLifecycle(t)})
	assert.Error(t, err)
}

func TestLoggerModule(t *testing.T) {
	var logger *zap.Logger
	app := fxtest.New(t,
		fx.Supply(config.Default()),
		LoggerModule,
		fx.Populate(&logger),
	)

	app.RequireStart()
	assert.NotNil(t, logger)
	app.RequireStop()
}
