package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/prodhub/prodhub/internal/connectivity"
	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/sync"
	"github.com/prodhub/prodhub/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one sync cycle now",
	Long: `Run a single sync cycle against the remote API.

The cycle drains the mutation queue in order, then pulls every remote
collection and merges it into the local store. If the API is unreachable
the cycle is skipped and queued mutations stay put.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fail("%v", err)
		}

		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		before, err := st.Stats(cmd.Context())
		if err != nil {
			fail("failed to read local state: %v", err)
		}

		prober := connectivity.NewProber(connectivity.ProberConfig{
			ProbeURL: cfg.APIBaseURL + "/api/health",
			Logger:   newLogger("[connectivity] "),
		})
		prober.Start()
		defer prober.Stop()

		if !prober.Online() {
			fmt.Printf("%s API unreachable at %s; %d mutation(s) remain queued\n",
				ui.RenderWarn("⚠"), cfg.APIBaseURL, before.QueueDepth)
			return
		}

		engine := sync.New(st, newAPIClient(), prober, &sync.Config{
			RetryCap: cfg.RetryCap,
			Logger:   newLogger("[sync] "),
		})

		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("↻"), cfg.APIBaseURL)
		start := time.Now()

		if err := engine.RunCycle(cmd.Context()); err != nil {
			fail("sync cycle failed: %v", err)
		}

		after, err := st.Stats(cmd.Context())
		if err != nil {
			fail("failed to read local state: %v", err)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Queue: %d before, %d after\n", before.QueueDepth, after.QueueDepth)
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show local store and queue status",
	Long: `Display a snapshot of the local database.

Shows per-collection row counts with pending and failed breakdowns, the
depth of the outgoing mutation queue, and current API reachability.`,
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			fail("failed to read local state: %v", err)
		}

		fmt.Printf("\n%s Local Store Status\n\n", ui.RenderAccent("●"))
		fmt.Printf("Database: %s\n\n", cfg.DBPath)

		for _, typ := range entity.Types {
			es := stats.Entities[typ]
			line := fmt.Sprintf("%-19s %4d", typ.PathSegment(), es.Total)
			if es.Pending > 0 {
				line += fmt.Sprintf("  %s", ui.RenderWarn(fmt.Sprintf("%d pending", es.Pending)))
			}
			if es.Failed > 0 {
				line += fmt.Sprintf("  %s", ui.RenderErr(fmt.Sprintf("%d failed", es.Failed)))
			}
			fmt.Println(line)
		}

		fmt.Printf("\nQueue: %d entr", stats.QueueDepth)
		if stats.QueueDepth == 1 {
			fmt.Print("y")
		} else {
			fmt.Print("ies")
		}
		if stats.QueueRetrying > 0 {
			fmt.Printf(" (%s)", ui.RenderWarn(fmt.Sprintf("%d retrying", stats.QueueRetrying)))
		}
		fmt.Println()

		// One-shot reachability check; the initial probe is synchronous.
		// Transition logging is noise here, the result line says it all.
		prober := connectivity.NewProber(connectivity.ProberConfig{
			ProbeURL: cfg.APIBaseURL + "/api/health",
			Timeout:  3 * time.Second,
			Logger:   log.New(io.Discard, "", 0),
		})
		prober.Start()
		prober.Stop()

		if prober.Online() {
			fmt.Printf("API: %s %s\n", ui.RenderPass("online"), ui.RenderDim(cfg.APIBaseURL))
		} else {
			fmt.Printf("API: %s %s\n", ui.RenderWarn("offline"), ui.RenderDim(cfg.APIBaseURL))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}
