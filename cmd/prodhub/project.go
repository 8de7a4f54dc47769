package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	GroupID: "items",
	Short:   "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		color, _ := cmd.Flags().GetString("color")

		p, err := st.CreateProject(cmd.Context(), &entity.Project{
			UserID: cfg.UserID,
			Name:   args[0],
			Color:  color,
		})
		if err != nil {
			fail("failed to add project: %v", err)
		}

		fmt.Printf("%s Added project %s (%s)\n", ui.RenderPass("✓"), p.Name, shortID(p.ID))
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		projects, err := st.ListProjects(cmd.Context(), cfg.UserID)
		if err != nil {
			fail("failed to list projects: %v", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects.")
			return
		}

		for _, p := range projects {
			fmt.Printf("%s %s  %s\n", ui.StatusGlyph(string(p.SyncStatus)), shortID(p.ID), p.Name)
		}
	},
}

var projectRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a project",
	Long: `Delete a project.

Tasks and notes that referenced the project keep their projectId; the
server decides how dangling references are handled.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		projects, err := st.ListProjects(cmd.Context(), cfg.UserID)
		if err != nil {
			fail("failed to list projects: %v", err)
		}

		var match string
		for _, p := range projects {
			if strings.HasPrefix(p.ID, args[0]) {
				if match != "" {
					fail("id prefix %q is ambiguous", args[0])
				}
				match = p.ID
			}
		}
		if match == "" {
			fail("no project matches %q", args[0])
		}

		if err := st.DeleteProject(cmd.Context(), match); err != nil {
			fail("failed to delete project: %v", err)
		}

		fmt.Printf("%s Deleted project %s\n", ui.RenderPass("✓"), shortID(match))
	},
}

func init() {
	projectAddCmd.Flags().String("color", "", "display color (hex)")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectRmCmd)
	rootCmd.AddCommand(projectCmd)
}
