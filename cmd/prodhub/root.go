package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/prodhub/prodhub/internal/api"
	"github.com/prodhub/prodhub/internal/config"
	"github.com/prodhub/prodhub/internal/store"
)

var (
	cfgFile string
	logFile string

	// cfg is loaded by the root PersistentPreRunE and shared by every
	// command.
	cfg *config.Config

	// logSink is where subsystem loggers write. Stderr unless a log file
	// is configured.
	logSink io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "prodhub",
	Short: "Offline-first productivity client",
	Long: `prodhub is an offline-first client for tasks, expenses, notes, and projects.

All reads and writes go to a local SQLite database, so every command works
without a network connection. Mutations are queued and pushed to the remote
API by the sync engine; remote changes are pulled and merged by recency.

Run 'prodhub run' to start the background sync daemon, or 'prodhub sync'
for a single on-demand cycle.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logFile != "" {
			cfg.LogFile = logFile
		}
		if cfg.LogFile != "" {
			logSink = &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     30, // days
				Compress:   true,
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.prodhub/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotating file instead of stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "items", Title: "Item Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
	)
}

// newLogger returns a prefixed logger writing to the configured sink.
func newLogger(prefix string) *log.Logger {
	return log.New(logSink, prefix, log.LstdFlags)
}

// openStore opens the local database and ensures the schema exists.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is not configured; run 'prodhub init' first")
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(cmd.Context()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// newAPIClient builds the remote client from the loaded config.
func newAPIClient() *api.Client {
	return api.New(api.Options{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.APIToken,
	})
}

// fail prints an error and exits, matching the style of every leaf command.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
