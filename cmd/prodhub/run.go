package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prodhub/prodhub/internal/connectivity"
	"github.com/prodhub/prodhub/internal/daemon"
	"github.com/prodhub/prodhub/internal/dashboard"
	"github.com/prodhub/prodhub/internal/sync"
	"github.com/prodhub/prodhub/internal/ui"
)

var runCmd = &cobra.Command{
	Use:     "run",
	GroupID: "sync",
	Short:   "Start the sync daemon (foreground)",
	Long: `Start the background sync daemon in foreground mode.

The daemon will:
  1. Probe the API to track connectivity
  2. Run a sync cycle immediately, then on a fixed interval
  3. Run an extra cycle whenever connectivity returns
  4. Optionally serve a local WebSocket dashboard of sync activity

Example usage:
  prodhub run                          # sync every 30s (default)
  prodhub run --dashboard :8080        # also serve the dashboard
  prodhub run --log-file ~/.prodhub/prodhub.log`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fail("%v", err)
		}

		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		client := newAPIClient()

		engineConfig := &sync.Config{
			RetryCap: cfg.RetryCap,
			Logger:   newLogger("[sync] "),
		}
		proberConfig := connectivity.ProberConfig{
			ProbeURL: cfg.APIBaseURL + "/api/health",
			Interval: cfg.ProbeInterval,
			Logger:   newLogger("[connectivity] "),
		}

		dashAddr, _ := cmd.Flags().GetString("dashboard")
		if dashAddr == "" {
			dashAddr = cfg.DashboardAddr
		}

		var dashServer *dashboard.Server
		if dashAddr != "" {
			dashServer = dashboard.NewServer(dashAddr, newLogger("[dashboard] "))
			if err := dashServer.Start(); err != nil {
				fail("failed to start dashboard: %v", err)
			}
			defer dashServer.Stop()

			handler := dashboard.NewHandler(dashServer, st, newLogger("[dashboard] "))
			engineConfig.Events = handler.Events()
			proberConfig.OnChange = handler.OnConnectivityChanged

			fmt.Printf("%s Dashboard on http://%s (ws://%s/ws)\n",
				ui.RenderAccent("●"), dashServer.Addr(), dashServer.Addr())
		}

		prober := connectivity.NewProber(proberConfig)
		engine := sync.New(st, client, prober, engineConfig)

		d, err := daemon.New(engine, prober, &daemon.Config{
			SyncInterval: cfg.SyncInterval,
			Logger:       newLogger("[daemon] "),
		})
		if err != nil {
			fail("failed to create daemon: %v", err)
		}

		prober.Start()
		defer prober.Stop()

		fmt.Printf("%s Sync daemon started (interval %v)\n", ui.RenderPass("✓"), cfg.SyncInterval)
		fmt.Printf("   API: %s\n", cfg.APIBaseURL)
		fmt.Printf("   DB:  %s\n", cfg.DBPath)
		fmt.Println("\nPress Ctrl+C to stop")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := d.Start(ctx); err != nil {
			fail("daemon stopped with error: %v", err)
		}

		fmt.Println("Sync daemon stopped")
	},
}

func init() {
	runCmd.Flags().String("dashboard", "", "serve the sync dashboard on this address (e.g. :8080)")
	rootCmd.AddCommand(runCmd)
}
