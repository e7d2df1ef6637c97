package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/model"
	"github.com/daybook-app/daybook/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var (
	taskDue       string
	taskTags      []string
	taskPriority  string
	taskImportant bool
	taskRecur     string
	taskShowAll   bool
)

var taskAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		c, err := newController(ctx, s)
		if err != nil {
			return err
		}

		draft := model.Task{
			Text:        strings.Join(args, " "),
			Tags:        taskTags,
			IsImportant: taskImportant,
			Priority:    model.Priority(taskPriority),
		}
		if taskDue != "" {
			due, err := parseDueDate(taskDue)
			if err != nil {
				return err
			}
			draft.DueDate = due
		}
		if taskRecur != "" {
			draft.RecurrenceRule = &model.RecurrenceRule{Type: model.RecurrenceType(taskRecur)}
		}

		created, err := c.CreateTask(ctx, draft)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", ui.Success("added"), created.Text, ui.Muted("("+created.ID+")"))
		if created.DueDate != "" {
			fmt.Println(ui.Muted("  due " + created.DueDate))
		}
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		c, err := newController(ctx, s)
		if err != nil {
			return err
		}

		tasks := c.Tasks()
		shown := 0
		for _, t := range tasks {
			if t.Completed && !taskShowAll {
				continue
			}
			shown++
			line := t.Text
			if t.Completed {
				line = ui.Done(line)
			}
			fmt.Printf("%s %s", ui.Checkbox(t.Completed), line)
			if t.IsImportant {
				fmt.Printf(" %s", ui.Error("!"))
			}
			if t.Priority != model.PriorityNone {
				fmt.Printf(" %s", ui.Accent(string(t.Priority)))
			}
			if t.DueDate != "" {
				fmt.Printf(" %s", ui.Muted("due "+t.DueDate))
			}
			for _, tag := range t.Tags {
				fmt.Printf(" %s", ui.Tag(tag))
			}
			fmt.Printf(" %s\n", ui.Muted(t.ID))
		}
		if shown == 0 {
			fmt.Println(ui.Muted("no tasks"))
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Toggle a task's completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		c, err := newController(ctx, s)
		if err != nil {
			return err
		}

		t, err := c.ToggleTask(ctx, args[0])
		if err != nil {
			return err
		}
		if t.Completed {
			fmt.Printf("%s %s\n", ui.Success("done"), t.Text)
		} else {
			fmt.Printf("%s %s\n", ui.Accent("reopened"), t.Text)
		}
		return nil
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		c, err := newController(ctx, s)
		if err != nil {
			return err
		}

		if err := c.DeleteTask(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println(ui.Success("deleted ") + args[0])
		return nil
	},
}

// parseDueDate accepts either the calendar format directly or natural
// language like "tomorrow" or "next friday".
func parseDueDate(input string) (string, error) {
	if _, err := time.Parse(model.DueDateLayout, input); err == nil {
		return input, nil
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(input, time.Now())
	if err != nil {
		return "", fmt.Errorf("could not parse due date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("could not parse due date %q", input)
	}
	return r.Time.Format(model.DueDateLayout), nil
}

func init() {
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", `due date ("2025-01-15", "tomorrow", "next friday")`)
	taskAddCmd.Flags().StringSliceVar(&taskTags, "tag", nil, "tag (repeatable)")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "none", "priority: none, low, medium, high")
	taskAddCmd.Flags().BoolVar(&taskImportant, "important", false, "mark as important")
	taskAddCmd.Flags().StringVar(&taskRecur, "repeat", "", "recurrence: daily, weekly, monthly, yearly")
	taskListCmd.Flags().BoolVarP(&taskShowAll, "all", "a", false, "include completed tasks")
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskRmCmd)
}
