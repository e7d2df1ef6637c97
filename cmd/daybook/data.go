package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/transfer"
	"github.com/daybook-app/daybook/internal/ui"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export, import, or wipe local data",
}

var dataYes bool

var dataExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write all local data to a JSON archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}

		if err := transfer.ExportFile(ctx, s, args[0]); err != nil {
			return err
		}
		fmt.Println(ui.Success("exported to ") + args[0])
		return nil
	},
}

var dataImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all local data from a JSON archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirmDestructive("Importing replaces ALL local data. Continue?"); err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}

		if err := transfer.ImportFile(ctx, s, args[0]); err != nil {
			return err
		}
		fmt.Println(ui.Success("imported from ") + args[0])
		return nil
	},
}

var dataWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all local data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirmDestructive("This deletes every task, note, and setting. Continue?"); err != nil {
			return err
		}
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}

		if err := s.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Println(ui.Success("all local data wiped"))
		return nil
	},
}

// confirmDestructive prompts unless --yes was passed.
func confirmDestructive(title string) error {
	if dataYes {
		return nil
	}
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		return err
	}
	if !confirmed {
		return fmt.Errorf("aborted")
	}
	return nil
}

func init() {
	dataCmd.PersistentFlags().BoolVarP(&dataYes, "yes", "y", false, "skip confirmation prompts")
	dataCmd.AddCommand(dataExportCmd, dataImportCmd, dataWipeCmd)
}
