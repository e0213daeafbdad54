package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foodlens/backend/internal/app"
)

func newPruneCmd(c *cli) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored reports older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.cfg.Store.Enabled {
				return fmt.Errorf("report store is disabled")
			}
			if olderThan > 0 {
				c.cfg.Store.Retention = olderThan
			}

			a, err := app.New(cmd.Context(), c.cfg, c.logger, app.Options{WithoutEvents: true})
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.Pruner.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			remaining, err := a.Store.CountReports(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Removed %d report(s) older than %s, %d remaining\n", removed, c.cfg.Store.Retention, remaining)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "override the configured retention, e.g. 168h")
	return cmd
}
