package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prodhub/prodhub/internal/config"
	"github.com/prodhub/prodhub/internal/ui"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "setup",
	Short:   "Write a starter config file",
	Long: `Create ~/.prodhub/config.yaml with the current (or default) settings.

Edit the file afterwards to set your API endpoint, token, and user id, or
override any value with PRODHUB_* environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}

		if err := config.WriteStarter(path, cfg); err != nil {
			fail("%v", err)
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		fmt.Println("\nNext steps:")
		fmt.Println("  1. Set api_base_url, api_token, and user_id in the config")
		fmt.Println("  2. Run 'prodhub status' to create the local database")
		fmt.Println("  3. Run 'prodhub run' to start syncing")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
