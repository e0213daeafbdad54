package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodlens/backend/internal/app"
)

func newAdditiveCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "additive <code>",
		Short:   "Look up an additive in the knowledge base",
		Example: "  foodlens additive E250",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), c.cfg, c.logger, app.Options{WithoutStore: true, WithoutEvents: true})
			if err != nil {
				return err
			}
			defer a.Close()

			detail, err := a.Products.LookupAdditive(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(detail)
			}
			fmt.Fprintf(c.out, "%s  %s\n", detail.Code, detail.Name)
			fmt.Fprintf(c.out, "Category: %s\n", detail.Category)
			fmt.Fprintf(c.out, "Risk:     %s\n", detail.Risk)
			fmt.Fprintf(c.out, "%s\n", detail.Explanation)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
