package main

import (
	"github.com/spf13/cobra"

	"github.com/mkowalski/scrawl/internal/config"
	"github.com/mkowalski/scrawl/internal/connectivity"
	"github.com/mkowalski/scrawl/internal/queue"
	"github.com/mkowalski/scrawl/internal/remote"
	"github.com/mkowalski/scrawl/internal/service"
	"github.com/mkowalski/scrawl/internal/storage"
	"github.com/mkowalski/scrawl/internal/syncer"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scrawl",
	Short: "Offline-first client for the shared story feed",
	Long: `scrawl submits short text posts to the shared story store.

Writes made while offline are recorded durably on this device and synced
automatically when connectivity returns. Writes that keep failing are
dropped after a bounded number of retries and reported, never silently
lost.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.scrawl/config.yaml)")
}

// app bundles everything a command needs, plus its teardown.
type app struct {
	cfg     config.Config
	store   *storage.Store
	queue   *queue.Store
	monitor *connectivity.Monitor
	engine  *syncer.Engine
	service *service.Service
}

// close releases the app's resources.
func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// buildApp is the composition root: it loads configuration and constructs
// the service with its collaborators explicitly injected.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	pending := queue.New(store, nil)
	monitor := connectivity.NewMonitor(connectivity.NewHTTPProbe(cfg.RemoteURL), nil)
	client := remote.NewHTTPClient(cfg.RemoteURL, cfg.RequestTimeout)
	engine := syncer.New(pending, client, &syncer.Config{
		MaxRetries:     cfg.MaxRetries,
		AttemptTimeout: cfg.RequestTimeout,
	})
	svc := service.New(monitor, pending, client, engine, nil)

	return &app{
		cfg:     cfg,
		store:   store,
		queue:   pending,
		monitor: monitor,
		engine:  engine,
		service: svc,
	}, nil
}
