package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/model"
	"github.com/daybook-app/daybook/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store, queue, and sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}

		version, err := s.Version(ctx)
		if err != nil {
			return err
		}
		counts, err := s.Counts(ctx)
		if err != nil {
			return err
		}
		depth, err := s.QueueDepth(ctx)
		if err != nil {
			return err
		}
		dead, err := s.DeadLetters(ctx)
		if err != nil {
			return err
		}

		fmt.Println(ui.Title("daybook status"))
		fmt.Printf("store:     %s %s\n", s.Path(), ui.Muted(fmt.Sprintf("(schema v%d)", version)))
		fmt.Printf("tasks:     %d\n", counts[string(model.CollectionTasks)])
		fmt.Printf("notes:     %d\n", counts[string(model.CollectionNotes)])
		fmt.Printf("unlocked:  %d\n", counts[string(model.CollectionAchievements)])

		if cfg.Sync.Enabled {
			fmt.Printf("sync:      %s owner=%s\n", ui.Success("enabled"), cfg.Sync.OwnerID)
		} else {
			fmt.Printf("sync:      %s\n", ui.Muted("disabled"))
		}
		fmt.Printf("queued:    %d pending mutation(s)\n", depth)
		if len(dead) > 0 {
			fmt.Println(ui.Error(fmt.Sprintf("dead:      %d rejected item(s) parked", len(dead))))
			for _, it := range dead {
				fmt.Printf("  %s %s %s %s\n", ui.Muted(fmt.Sprintf("#%d", it.ID)),
					it.Action, it.Table, it.EntityID)
			}
		}
		return nil
	},
}
