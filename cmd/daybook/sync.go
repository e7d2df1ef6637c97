package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/config"
	"github.com/daybook-app/daybook/internal/connectivity"
	"github.com/daybook-app/daybook/internal/sync"
	"github.com/daybook-app/daybook/internal/ui"
)

var syncDaemon bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replicate local changes to the cloud backend",
	Long: `sync runs one push/pull cycle and exits. With --daemon it keeps
running: a cycle on an interval, an extra cycle whenever connectivity
comes back, and config hot reload for the owner id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Sync.Enabled {
			return fmt.Errorf("sync is disabled; set sync.enabled in the config")
		}
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}

		logger := logs.For("sync")

		if !syncDaemon {
			orc := newOrchestrator(s, nil, logger)
			res, err := orc.SyncNow(ctx)
			if err != nil {
				return err
			}
			if res.Skipped != "" {
				fmt.Println(ui.Muted("skipped: " + res.Skipped))
				return nil
			}
			fmt.Printf("%s pushed %d, pulled %d tasks and %d notes\n",
				ui.Success("synced"), res.Pushed, res.PulledTasks, res.PulledNotes)
			if res.DeadLettered > 0 {
				fmt.Println(ui.Error(fmt.Sprintf("%d item(s) dead-lettered; see 'daybook status'", res.DeadLettered)))
			}
			return nil
		}

		monitor := connectivity.NewMonitor(connectivity.Options{
			URL:    probeURL(),
			Logger: logs.For("connectivity"),
		})
		orc := newOrchestrator(s, monitor.Online, logger)
		sched, err := sync.NewScheduler(orc, syncInterval(), logger)
		if err != nil {
			return err
		}
		monitor.OnReconnect(sched.Trigger)

		// The daemon picks up owner changes (sign in/out) without a
		// restart.
		config.Watch(cfgViper, func(next config.Config) {
			logger.Printf("config reloaded")
			orc.SetOwner(next.Sync.OwnerID)
		})

		monitor.Start()
		sched.Start()
		fmt.Println(ui.Accent("sync daemon running; ctrl-c to stop"))

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		sched.Stop()
		monitor.Stop()
		return nil
	},
}

// probeURL is what the connectivity monitor pings; default to the sync
// backend itself.
func probeURL() string {
	if cfg.Sync.ProbeURL != "" {
		return cfg.Sync.ProbeURL
	}
	return cfg.Sync.BaseURL
}

func init() {
	syncCmd.Flags().BoolVar(&syncDaemon, "daemon", false, "keep running and sync on an interval")
}
