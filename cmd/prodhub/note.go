package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/ui"
)

var noteCmd = &cobra.Command{
	Use:     "note",
	GroupID: "items",
	Short:   "Manage notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		content, _ := cmd.Flags().GetString("content")
		projectID, _ := cmd.Flags().GetString("project")

		n, err := st.CreateNote(cmd.Context(), &entity.Note{
			UserID:    cfg.UserID,
			ProjectID: projectID,
			Title:     args[0],
			Content:   content,
		})
		if err != nil {
			fail("failed to add note: %v", err)
		}

		fmt.Printf("%s Added note %s\n", ui.RenderPass("✓"), shortID(n.ID))
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		projectID, _ := cmd.Flags().GetString("project")

		notes, err := st.ListNotes(cmd.Context(), cfg.UserID, projectID)
		if err != nil {
			fail("failed to list notes: %v", err)
		}

		if len(notes) == 0 {
			fmt.Println("No notes.")
			return
		}

		for _, n := range notes {
			preview := n.Content
			if len(preview) > 40 {
				preview = preview[:40] + "…"
			}
			preview = strings.ReplaceAll(preview, "\n", " ")
			fmt.Printf("%s %s  %s  %s\n", ui.StatusGlyph(string(n.SyncStatus)), shortID(n.ID), n.Title, ui.RenderDim(preview))
		}
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		notes, err := st.ListNotes(cmd.Context(), cfg.UserID, "")
		if err != nil {
			fail("failed to list notes: %v", err)
		}

		var match string
		for _, n := range notes {
			if strings.HasPrefix(n.ID, args[0]) {
				if match != "" {
					fail("id prefix %q is ambiguous", args[0])
				}
				match = n.ID
			}
		}
		if match == "" {
			fail("no note matches %q", args[0])
		}

		if err := st.DeleteNote(cmd.Context(), match); err != nil {
			fail("failed to delete note: %v", err)
		}

		fmt.Printf("%s Deleted note %s\n", ui.RenderPass("✓"), shortID(match))
	},
}

func init() {
	noteAddCmd.Flags().StringP("content", "c", "", "note body")
	noteAddCmd.Flags().String("project", "", "project id")

	noteListCmd.Flags().String("project", "", "filter by project id")

	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteRmCmd)
	rootCmd.AddCommand(noteCmd)
}
