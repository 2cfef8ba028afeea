// Package infrastructure provides reusable logging helpers for fx applications.
package infrastructure

import (
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapConfig returns the zap configuration for a log level name. "debug"
// selects the human readable development encoder; every other level logs
// JSON. Unknown names are an error.
func NewZapConfig(level string) (zap.Config, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg, nil
}

// FxLogger routes fx's own events and prints through a zap logger. Container
// chatter goes to Debug; lifecycle failures go to Error.
type FxLogger struct {
	logger *zap.Logger
}

// NewFxLogger builds an fxevent.Logger suitable for fx.WithLogger.
func NewFxLogger(logger *zap.Logger) fxevent.Logger {
	return &FxLogger{logger: logger.Named("fx")}
}

// NewFxPrinter builds an fx.Printer backed by the same logger.
func NewFxPrinter(logger *zap.Logger) fx.Printer {
	return &FxLogger{logger: logger.Named("fx")}
}

// LogEvent implements fxevent.Logger.
func (l *FxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.logger.Debug("OnStart hook executing",
			zap.String("callee", e.FunctionName),
			zap.String("caller", e.CallerName))
	case *fxevent.OnStartExecuted:
		l.hookDone("OnStart", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		l.logger.Debug("OnStop hook executing",
			zap.String("callee", e.FunctionName),
			zap.String("caller", e.CallerName))
	case *fxevent.OnStopExecuted:
		l.hookDone("OnStop", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		l.debugOrError("Supplied", e.Err, zap.String("type", e.TypeName), moduleField(e.ModuleName))
	case *fxevent.Provided:
		l.debugOrError("Provided", e.Err,
			zap.String("constructor", e.ConstructorName),
			zap.String("types", strings.Join(e.OutputTypeNames, ", ")),
			moduleField(e.ModuleName))
	case *fxevent.Decorated:
		l.debugOrError("Decorated", e.Err,
			zap.String("decorator", e.DecoratorName),
			zap.String("types", strings.Join(e.OutputTypeNames, ", ")),
			moduleField(e.ModuleName))
	case *fxevent.Invoking:
		l.logger.Debug("Invoking", zap.String("function", e.FunctionName), moduleField(e.ModuleName))
	case *fxevent.Invoked:
		l.debugOrError("Invoked", e.Err, zap.String("function", e.FunctionName), moduleField(e.ModuleName))
	case *fxevent.Stopping:
		l.logger.Info("Received signal", zap.String("signal", strings.ToUpper(e.Signal.String())))
	case *fxevent.Stopped:
		l.infoOrError("Stopped", e.Err)
	case *fxevent.RollingBack:
		l.logger.Error("Start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.RolledBack:
		l.infoOrError("Rolled back", e.Err)
	case *fxevent.Started:
		l.infoOrError("Started", e.Err)
	case *fxevent.LoggerInitialized:
		l.debugOrError("Logger initialized", e.Err, zap.String("constructor", e.ConstructorName))
	default:
		l.logger.Debug("Unhandled fx event", zap.String("event", fmt.Sprintf("%T", event)))
	}
}

// Printf implements fx.Printer.
func (l *FxLogger) Printf(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *FxLogger) hookDone(hook, callee, caller, runtime string, err error) {
	if err != nil {
		l.logger.Error(hook+" hook failed",
			zap.String("callee", callee),
			zap.String("caller", caller),
			zap.Error(err))
		return
	}
	l.logger.Debug(hook+" hook executed",
		zap.String("callee", callee),
		zap.String("caller", caller),
		zap.String("runtime", runtime))
}

func (l *FxLogger) debugOrError(msg string, err error, fields ...zap.Field) {
	if err != nil {
		l.logger.Error(msg+" with error", append(fields, zap.Error(err))...)
		return
	}
	l.logger.Debug(msg, fields...)
}

func (l *FxLogger) infoOrError(msg string, err error) {
	if err != nil {
		l.logger.Error(msg+" with error", zap.Error(err))
		return
	}
	l.logger.Info(msg)
}

func moduleField(name string) zap.Field {
	if name == "" {
		return zap.Skip()
	}
	return zap.String("module", name)
}
