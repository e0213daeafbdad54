package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foodlens/backend/internal/app"
	"github.com/foodlens/backend/internal/domain"
)

func newRawCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <barcode>",
		Short: "Print the stored upstream record for a barcode",
		Long: `Raw prints the upstream record saved by a debug analysis
(foodlens analyze --debug or ?debug=true on the API).`,
		Example: "  foodlens raw 3017620422003",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.cfg.Store.Enabled {
				return fmt.Errorf("report store is disabled")
			}

			a, err := app.New(cmd.Context(), c.cfg, c.logger, app.Options{WithoutEvents: true})
			if err != nil {
				return err
			}
			defer a.Close()

			barcode := strings.TrimSpace(args[0])
			raw, err := a.Store.GetRaw(cmd.Context(), barcode)
			if errors.Is(err, domain.ErrReportNotFound) {
				return fmt.Errorf("no raw record stored for %s; analyze it with --debug first", barcode)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			return enc.Encode(raw)
		},
	}
}
