package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/connectivity"
	"github.com/daybook-app/daybook/internal/dashboard"
	"github.com/daybook-app/daybook/internal/sync"
	"github.com/daybook-app/daybook/internal/ui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the sync daemon with a live WebSocket status feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Sync.Enabled {
			return fmt.Errorf("sync is disabled; set sync.enabled in the config")
		}
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}

		monitor := connectivity.NewMonitor(connectivity.Options{
			URL:    probeURL(),
			Logger: logs.For("connectivity"),
		})
		orc := newOrchestrator(s, monitor.Online, logs.For("sync"))

		srv := dashboard.NewServer(dashboard.Config{
			Port:   cfg.Dashboard.Port,
			Logger: logs.For("dashboard"),
		})
		srv.Attach(orc)
		if err := srv.Start(); err != nil {
			return err
		}

		sched, err := sync.NewScheduler(orc, syncInterval(), logs.For("sync"))
		if err != nil {
			srv.Stop()
			return err
		}
		monitor.OnReconnect(sched.Trigger)
		monitor.Start()
		sched.Start()

		fmt.Println(ui.Accent("dashboard on ws://" + srv.Addr() + "/ws; ctrl-c to stop"))

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		sched.Stop()
		monitor.Stop()
		return srv.Stop()
	},
}
