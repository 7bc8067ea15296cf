package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkowalski/scrawl/internal/daemon"
	"github.com/mkowalski/scrawl/internal/dashboard"
	"github.com/mkowalski/scrawl/internal/ui"
)

var daemonNoDashboard bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Run the background sync daemon.

The daemon keeps the device's pending queue drained: it probes connectivity,
syncs queued stories whenever the device comes back online, ingests draft
files dropped into the spool directory, and serves a WebSocket dashboard
with live queue and connectivity state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		logger := a.cfg.NewLogger("[daemon] ")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Dashboard first, so the monitor's immediate notification reaches it
		if !daemonNoDashboard {
			server := dashboard.NewServer(&dashboard.Config{
				Port:   a.cfg.DashboardPort,
				Logger: a.cfg.NewLogger("[dashboard] "),
			})
			if err := server.Start(); err != nil {
				return err
			}
			defer func() {
				if err := server.Stop(); err != nil {
					logger.Printf("Dashboard shutdown error: %v", err)
				}
			}()

			handler := dashboard.NewHandler(server, a.service, logger)
			a.engine.SetOnReport(handler.OnDrainReport)
			unsubscribe := a.service.SubscribeConnectivity(ctx, handler.OnConnectivityChange)
			defer unsubscribe()

			fmt.Printf("%s Dashboard: ws://localhost:%d/ws\n", ui.RenderAccent("📡"), a.cfg.DashboardPort)
		}

		// Connectivity polling drives the reconnection-triggered drains
		go a.monitor.Run(ctx, a.cfg.ProbeInterval)

		cfg := daemon.DefaultConfig()
		cfg.DrainInterval = a.cfg.DrainInterval
		cfg.Logger = logger

		d, err := daemon.New(a.service, a.cfg.SpoolDir, cfg)
		if err != nil {
			return err
		}

		fmt.Printf("%s Spool: %s\n", ui.RenderAccent("📂"), a.cfg.SpoolDir)

		return d.Start(ctx)
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonNoDashboard, "no-dashboard", false, "disable the websocket dashboard")
	rootCmd.AddCommand(daemonCmd)
}
