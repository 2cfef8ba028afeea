// Package main provides the entry point for the Asterisk media bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/Raikerian/go-asterisk-bridge/internal/agent"
	"github.com/Raikerian/go-asterisk-bridge/internal/app"
	"github.com/Raikerian/go-asterisk-bridge/internal/asterisk"
	"github.com/Raikerian/go-asterisk-bridge/internal/calls"
	"github.com/Raikerian/go-asterisk-bridge/internal/config"
	"github.com/Raikerian/go-asterisk-bridge/internal/infrastructure"
	pkginfra "github.com/Raikerian/go-asterisk-bridge/pkg/infrastructure"
)

func main() {
	defaultPath := "config.yaml"
	if env := os.Getenv("BRIDGE_CONFIG"); env != "" {
		defaultPath = env
	}
	configPath := flag.String("config", defaultPath, "path to the YAML configuration file")
	flag.Parse()

	application := app.New(
		// Core modules
		config.Module,
		infrastructure.LoggerModule,

		// Transport and call bookkeeping
		asterisk.Module,
		calls.Module,

		// Conversational pipeline
		agent.Module,

		fx.Supply(config.Path(*configPath)),

		// Configure Fx to use our Zap logger for its own internal logging
		fx.WithLogger(pkginfra.NewFxLogger),
	)
	if err := application.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build application: %v\n", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	err := application.Start(startCtx)
	cancelStart()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start application: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	fmt.Printf("Received signal: %s, initiating shutdown.\n", sig)

	// Give live calls 30 seconds to drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = application.Stop(shutdownCtx)
	cancel()

	if err != nil {
		fmt.Printf("Error during shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application has shut down gracefully.")
}
