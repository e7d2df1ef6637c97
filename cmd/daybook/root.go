package main

import (
	"context"
	"fmt"
	"log"
	"os"
	stdsync "sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daybook-app/daybook/internal/app"
	"github.com/daybook-app/daybook/internal/cloud"
	"github.com/daybook-app/daybook/internal/config"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/migrate"
	"github.com/daybook-app/daybook/internal/store"
	"github.com/daybook-app/daybook/internal/sync"
)

var (
	cfgFile string

	cfg      *config.Config
	cfgViper *viper.Viper
	logs     *logging.Factory

	lazyStore   *store.Lazy
	migrateOnce stdsync.Once
	migrateErr  error
)

var rootCmd = &cobra.Command{
	Use:   "daybook",
	Short: "Offline-first tasks and notes with optional cloud sync",
	Long: `daybook keeps tasks, notes, and your profile in a local database
that is always the source of truth. With sync enabled, every change is
queued and replicated to the cloud backend whenever it is reachable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, cfgViper, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logs = logging.NewFactory(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Console:    cfg.Log.Console,
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if lazyStore != nil {
			return lazyStore.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.daybook/config.yaml)")
	rootCmd.AddCommand(taskCmd, noteCmd, profileCmd, syncCmd, dataCmd, statusCmd, dashboardCmd)
}

// openStore returns the process-wide store handle, opening it on first
// use and running the one-time legacy migration before anything reads
// it. Repeated calls share the same open database.
func openStore(ctx context.Context) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	if lazyStore == nil {
		lazyStore = store.NewLazy(cfg.DBPath())
	}
	s, err := lazyStore.Get()
	if err != nil {
		return nil, err
	}
	migrateOnce.Do(func() {
		_, migrateErr = migrate.Run(ctx, s, cfg.LegacyDBPath, logs.For("migrate"))
	})
	if migrateErr != nil {
		return nil, migrateErr
	}
	return s, nil
}

func newController(ctx context.Context, s *store.Store) (*app.Controller, error) {
	return app.New(ctx, app.Options{
		Store:       s,
		Logger:      logs.For("app"),
		SyncEnabled: cfg.Sync.Enabled,
	})
}

// newOrchestrator wires the cloud client, connectivity answer, and store
// into a sync orchestrator. online may be nil for one-shot syncs.
func newOrchestrator(s *store.Store, online func() bool, logger *log.Logger) *sync.Orchestrator {
	client := cloud.New(cloud.Config{
		BaseURL: cfg.Sync.BaseURL,
		APIKey:  cfg.Sync.APIKey,
		Logger:  logger,
	})
	return sync.New(sync.Options{
		Store:   s,
		Remote:  client,
		OwnerID: cfg.Sync.OwnerID,
		Logger:  logger,
		Online:  online,
	})
}

func syncInterval() time.Duration {
	return time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
}
