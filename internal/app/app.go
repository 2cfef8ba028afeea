// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/asterisk"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
func New(modules ...fx.Option) *Application {
	options := append(modules, fx.Invoke(registerLifecycleHooks))

	return &Application{
		app: fx.New(options...),
	}
}

// Err reports a failure building the dependency graph.
func (a *Application) Err() error {
	return a.app.Err()
}

// Start starts the media server.
func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// registerLifecycleHooks binds the media server to the application lifecycle.
func registerLifecycleHooks(lc fx.Lifecycle, server *asterisk.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting application: opening media listener")

			if err := server.Start(ctx); err != nil {
				logger.Error("Failed to start media server", zap.Error(err))

				return err
			}

			logger.Info("Application started successfully", zap.String("addr", server.Addr()))

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping application: draining calls",
				zap.Int64("active_connections", server.ActiveConnections()))

			if err := server.Stop(ctx); err != nil {
				logger.Error("Failed to stop media server", zap.Error(err))

				return err
			}

			logger.Info("Application stopped successfully")

			return nil
		},
	})
}
