package infrastructure_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Raikerian/go-asterisk-bridge/pkg/infrastructure"
)

func TestNewZapConfig(t *testing.T) {
	tests := map[string]struct {
		level    string
		want     zapcore.Level
		encoding string
	}{
		"debug": {level: "debug", want: zapcore.DebugLevel, encoding: "console"},
		"info":  {level: "info", want: zapcore.InfoLevel, encoding: "json"},
		"warn":  {level: "warn", want: zapcore.WarnLevel, encoding: "json"},
		"error": {level: "error", want: zapcore.ErrorLevel, encoding: "json"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := infrastructure.NewZapConfig(tt.level)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Level.Level())
			assert.Equal(t, tt.encoding, cfg.Encoding)
		})
	}

	_, err := infrastructure.NewZapConfig("verbose")
	assert.Error(t, err)
}

func TestFxLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := infrastructure.NewFxLogger(zap.New(core))

	logger.LogEvent(&fxevent.Provided{
		ConstructorName: "NewServer",
		OutputTypeNames: []string{"*asterisk.Server"},
		ModuleName:      "asterisk",
	})
	logger.LogEvent(&fxevent.OnStartExecuted{
		FunctionName: "start",
		CallerName:   "app",
		Err:          errors.New("bind failed"),
	})
	logger.LogEvent(&fxevent.Started{})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "asterisk", entries[0].ContextMap()["module"])
	assert.Equal(t, "*asterisk.Server", entries[0].ContextMap()["types"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "bind failed", entries[1].ContextMap()["error"])

	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
	assert.Equal(t, "Started", entries[2].Message)
	assert.Equal(t, "fx", entries[2].LoggerName)
}

func TestFxLogger_ErrorEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := infrastructure.NewFxLogger(zap.New(core))

	testErr := errors.New("boom")
	for _, event := range []fxevent.Event{
		&fxevent.Supplied{TypeName: "*config.Config", Err: testErr},
		&fxevent.Invoked{FunctionName: "register", Err: testErr},
		&fxevent.RollingBack{StartErr: testErr},
		&fxevent.RolledBack{Err: testErr},
		&fxevent.Stopped{Err: testErr},
		&fxevent.LoggerInitialized{ConstructorName: "NewFxLogger", Err: testErr},
	} {
		logger.LogEvent(event)
	}

	entries := logs.All()
	require.Len(t, entries, 6)
	for _, entry := range entries {
		assert.Equal(t, zapcore.ErrorLevel, entry.Level, entry.Message)
	}
}

func TestFxPrinter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	printer := infrastructure.NewFxPrinter(zap.New(core))

	printer.Printf("listening on %s", ":8765")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "listening on :8765", logs.All()[0].Message)
}

func TestFxLogger_WithApp(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	app := fxtest.New(t,
		fx.WithLogger(infrastructure.NewFxLogger),
		fx.Supply(logger),
		fx.Invoke(func(*zap.Logger) {}),
	)
	app.RequireStart()
	app.RequireStop()

	assert.NotZero(t, logs.FilterMessage("Started").Len())
}
