// Command policycite cites local policy documents for summary sentences.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/policycite/internal/adapters/driven/config/file"
	"github.com/custodia-labs/policycite/internal/adapters/driving/cli"
	"github.com/custodia-labs/policycite/internal/core/services"
	"github.com/custodia-labs/policycite/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		logger.Error("Loading config: %v", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		logger.Error("Loading settings: %v", err)
		return err
	}

	dataDir := settings.Paths.DataDir
	if dataDir == "" {
		home, err := file.DefaultDir()
		if err != nil {
			logger.Error("Resolving data directory: %v", err)
			return err
		}
		dataDir = filepath.Join(home, "data")
	}

	eng, err := openEngine(ctx, dataDir, settings, settingsService)
	if err != nil {
		logger.Error("Starting policycite: %v", err)
		return err
	}
	defer eng.Close()

	cli.SetVersion(version)
	cli.SetServices(eng.services)

	return cli.Execute(ctx)
}
