package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/ui"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
}

var noteTitle string

var noteAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Add a note",
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

		n, err := c.CreateNote(ctx, noteTitle, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", ui.Success("added note"), ui.Muted(n.ID))
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently edited first",
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

		notes := c.Notes()
		if len(notes) == 0 {
			fmt.Println(ui.Muted("no notes"))
			return nil
		}
		for _, n := range notes {
			title := n.Title
			if title == "" {
				title = "(untitled)"
			}
			pin := ""
			if n.IsPinned {
				pin = ui.Accent("* ")
			}
			fmt.Printf("%s%s %s\n", pin, ui.Title(title), ui.Muted(n.ID))
			if n.Content != "" {
				fmt.Println("  " + firstLine(n.Content))
			}
		}
		return nil
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
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

		if err := c.DeleteNote(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println(ui.Success("deleted ") + args[0])
		return nil
	},
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func init() {
	noteAddCmd.Flags().StringVar(&noteTitle, "title", "", "note title")
	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteRmCmd)
}
