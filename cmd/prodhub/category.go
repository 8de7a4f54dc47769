package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/store"
	"github.com/prodhub/prodhub/internal/ui"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	GroupID: "items",
	Short:   "Manage expense categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an expense category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		icon, _ := cmd.Flags().GetString("icon")
		color, _ := cmd.Flags().GetString("color")

		c, err := st.CreateCategory(cmd.Context(), &entity.Category{
			UserID: cfg.UserID,
			Name:   args[0],
			Icon:   icon,
			Color:  color,
		})
		if err != nil {
			fail("failed to add category: %v", err)
		}

		fmt.Printf("%s Added category %s (%s)\n", ui.RenderPass("✓"), c.Name, shortID(c.ID))
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expense categories",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		categories, err := st.ListCategories(cmd.Context(), cfg.UserID)
		if err != nil {
			fail("failed to list categories: %v", err)
		}

		if len(categories) == 0 {
			fmt.Println("No categories.")
			return
		}

		for _, c := range categories {
			line := fmt.Sprintf("%s %s  %s", ui.StatusGlyph(string(c.SyncStatus)), shortID(c.ID), c.Name)
			if c.Icon != "" {
				line += "  " + c.Icon
			}
			fmt.Println(line)
		}
	},
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename an expense category",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		id, err := resolveCategoryID(cmd, st, args[0])
		if err != nil {
			fail("%v", err)
		}

		name := args[1]
		c, err := st.UpdateCategory(cmd.Context(), id, &entity.CategoryPatch{Name: &name})
		if err != nil {
			fail("failed to rename category: %v", err)
		}

		fmt.Printf("%s Renamed category to %s\n", ui.RenderPass("✓"), c.Name)
	},
}

var categoryRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an expense category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		id, err := resolveCategoryID(cmd, st, args[0])
		if err != nil {
			fail("%v", err)
		}

		if err := st.DeleteCategory(cmd.Context(), id); err != nil {
			fail("failed to delete category: %v", err)
		}

		fmt.Printf("%s Deleted category %s\n", ui.RenderPass("✓"), shortID(id))
	},
}

// resolveCategoryID expands a unique id prefix to the full category id.
func resolveCategoryID(cmd *cobra.Command, st *store.Store, prefix string) (string, error) {
	categories, err := st.ListCategories(cmd.Context(), cfg.UserID)
	if err != nil {
		return "", err
	}

	var match string
	for _, c := range categories {
		if !strings.HasPrefix(c.ID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("id prefix %q is ambiguous", prefix)
		}
		match = c.ID
	}
	if match == "" {
		return "", fmt.Errorf("no category matches %q", prefix)
	}
	return match, nil
}

func init() {
	categoryAddCmd.Flags().String("icon", "", "display icon")
	categoryAddCmd.Flags().String("color", "", "display color (hex)")

	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryRenameCmd)
	categoryCmd.AddCommand(categoryRmCmd)
	rootCmd.AddCommand(categoryCmd)
}
