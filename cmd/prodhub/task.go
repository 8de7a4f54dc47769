package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/store"
	"github.com/prodhub/prodhub/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: "items",
	Short:   "Manage tasks",
	Long: `Create, list, complete, and delete tasks.

Tasks are written to the local database immediately and pushed to the
remote API by the next sync cycle. Everything works offline.`,
}

// dueParser understands natural-language due dates ("tomorrow 5pm",
// "next friday").
var dueParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDue turns a natural-language phrase into a wire date and optional
// wire time. The base is today's midnight so a date-only phrase yields an
// empty time component.
func parseDue(phrase string) (date, clock string, err error) {
	now := time.Now()
	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	r, err := dueParser.Parse(phrase, base)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse due date %q: %w", phrase, err)
	}
	if r == nil {
		return "", "", fmt.Errorf("could not understand due date %q", phrase)
	}

	date = r.Time.Format("2006-01-02")
	if r.Time.Hour() != 0 || r.Time.Minute() != 0 {
		clock = r.Time.Format("15:04")
	}
	return date, clock, nil
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a new task.

Example usage:
  prodhub task add "Buy milk"
  prodhub task add "File taxes" --priority high --due "next friday"
  prodhub task add "Standup notes" --project <project-id> --due "tomorrow 9am" --remind`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		priority, _ := cmd.Flags().GetString("priority")
		projectID, _ := cmd.Flags().GetString("project")
		description, _ := cmd.Flags().GetString("desc")
		due, _ := cmd.Flags().GetString("due")
		remind, _ := cmd.Flags().GetBool("remind")

		t := &entity.Task{
			UserID:          cfg.UserID,
			ProjectID:       projectID,
			Title:           args[0],
			Description:     description,
			Priority:        priority,
			ReminderEnabled: remind,
		}

		if due != "" {
			t.DueDate, t.DueTime, err = parseDue(due)
			if err != nil {
				fail("%v", err)
			}
		}

		created, err := st.CreateTask(cmd.Context(), t)
		if err != nil {
			fail("failed to add task: %v", err)
		}

		fmt.Printf("%s Added task %s\n", ui.RenderPass("✓"), created.ID)
		if created.DueDate != "" {
			fmt.Printf("   Due: %s", created.DueDate)
			if created.DueTime != "" {
				fmt.Printf(" %s", created.DueTime)
			}
			fmt.Println()
		}
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		projectID, _ := cmd.Flags().GetString("project")
		all, _ := cmd.Flags().GetBool("all")

		tasks, err := st.ListTasks(cmd.Context(), cfg.UserID, projectID)
		if err != nil {
			fail("failed to list tasks: %v", err)
		}

		shown := 0
		for _, t := range tasks {
			if t.Completed && !all {
				continue
			}
			shown++

			check := " "
			if t.Completed {
				check = ui.RenderPass("x")
			}
			line := fmt.Sprintf("[%s] %s %s  %s", check, ui.StatusGlyph(string(t.SyncStatus)), shortID(t.ID), t.Title)
			if t.Priority == entity.PriorityHigh {
				line += "  " + ui.RenderErr("!")
			}
			if t.DueDate != "" {
				due := t.DueDate
				if t.DueTime != "" {
					due += " " + t.DueTime
				}
				line += "  " + ui.RenderDim("due "+due)
			}
			fmt.Println(line)
		}

		if shown == 0 {
			fmt.Println("No tasks. Add one with 'prodhub task add'.")
		}
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		id, err := resolveTaskID(cmd, st, args[0])
		if err != nil {
			fail("%v", err)
		}

		completed := true
		t, err := st.UpdateTask(cmd.Context(), id, &entity.TaskPatch{Completed: &completed})
		if err != nil {
			fail("failed to complete task: %v", err)
		}

		fmt.Printf("%s Completed: %s\n", ui.RenderPass("✓"), t.Title)
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		id, err := resolveTaskID(cmd, st, args[0])
		if err != nil {
			fail("%v", err)
		}

		if err := st.DeleteTask(cmd.Context(), id); err != nil {
			fail("failed to delete task: %v", err)
		}

		fmt.Printf("%s Deleted task %s\n", ui.RenderPass("✓"), shortID(id))
	},
}

// shortID abbreviates a UUID for list output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveTaskID expands a unique id prefix to the full task id.
func resolveTaskID(cmd *cobra.Command, st *store.Store, prefix string) (string, error) {
	tasks, err := st.ListTasks(cmd.Context(), cfg.UserID, "")
	if err != nil {
		return "", err
	}

	var match string
	for _, t := range tasks {
		if !strings.HasPrefix(t.ID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("id prefix %q is ambiguous", prefix)
		}
		match = t.ID
	}
	if match == "" {
		return "", fmt.Errorf("no task matches %q", prefix)
	}
	return match, nil
}

func init() {
	taskAddCmd.Flags().StringP("priority", "p", entity.PriorityMedium, "priority: low, medium, or high")
	taskAddCmd.Flags().String("project", "", "project id")
	taskAddCmd.Flags().String("desc", "", "description")
	taskAddCmd.Flags().String("due", "", `due date, natural language ("tomorrow 5pm")`)
	taskAddCmd.Flags().Bool("remind", false, "enable a reminder")

	taskListCmd.Flags().String("project", "", "filter by project id")
	taskListCmd.Flags().BoolP("all", "a", false, "include completed tasks")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRmCmd)
	rootCmd.AddCommand(taskCmd)
}
