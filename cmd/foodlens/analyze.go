package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foodlens/backend/internal/app"
	"github.com/foodlens/backend/internal/domain"
	"github.com/foodlens/backend/internal/usecase"
)

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		file       string
		asJSON     bool
		debug      bool
		noInsights bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [barcode]",
		Short: "Analyze a product by barcode or from a JSON file",
		Long: `Analyze fetches the product for a barcode and prints its health report.
With --file the record is read from disk (a bare product object or a full
API response) and nothing is fetched or stored.`,
		Example: `  foodlens analyze 3017620422003
  foodlens analyze --file product.json --json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(args) != 1 {
				return fmt.Errorf("requires a barcode or --file")
			}
			if file != "" && len(args) > 0 {
				return fmt.Errorf("barcode and --file are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := usecase.AnalyzeOptions{Debug: debug, SkipInsights: noInsights}

			a, err := app.New(ctx, c.cfg, c.logger, app.Options{
				WithoutStore:  file != "",
				WithoutEvents: file != "",
			})
			if err != nil {
				return err
			}
			defer a.Close()

			var report *domain.ProductReport
			if file != "" {
				raw, err := readRawProduct(file)
				if err != nil {
					return err
				}
				report, err = a.Products.AnalyzeRaw(ctx, raw, opts)
				if err != nil {
					return err
				}
			} else {
				report, err = a.Products.AnalyzeBarcode(ctx, args[0], opts)
				if err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(c.out, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "analyze a product record from a JSON file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().BoolVar(&debug, "debug", false, "bypass cached reports and store the raw record")
	cmd.Flags().BoolVar(&noInsights, "no-insights", false, "skip generated commentary")
	return cmd
}

// readRawProduct reads a bare record or an API envelope with a "product" object
func readRawProduct(path string) (domain.RawProduct, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw domain.RawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON object", domain.ErrInvalidRequest, path)
	}
	return raw.Unwrap(), nil
}

func printReport(w io.Writer, r *domain.ProductReport) {
	name := r.Product.Name
	if name == "" {
		name = "(unnamed product)"
	}
	fmt.Fprintf(w, "%s - %s [%s]\n", name, r.Product.Brand, r.Barcode)
	fmt.Fprintf(w, "Health score: %d/100 (%s)\n", r.Highlights.HealthScore, r.Highlights.Verdict)
	if r.Highlights.NovaGroup != nil {
		fmt.Fprintf(w, "NOVA group: %d\n", *r.Highlights.NovaGroup)
	}

	printList(w, "Likes", r.Highlights.Likes)
	printList(w, "Concerns", r.Highlights.Concerns)

	if len(r.Nutrients) > 0 {
		fmt.Fprintln(w, "Nutrients per 100g:")
		for _, n := range r.Nutrients {
			fmt.Fprintf(w, "  %-14s %8.2f %-4s %5.1f%% RDA  %s\n", n.Name, n.Amount100g, n.Unit, n.RDAPercent, n.Rating)
		}
	}

	if len(r.Additives) > 0 {
		fmt.Fprintln(w, "Additives:")
		for _, a := range r.Additives {
			fmt.Fprintf(w, "  %-6s %-28s %s\n", a.Code, a.Name, a.Risk)
		}
	}

	if len(r.Allergens) > 0 {
		fmt.Fprintf(w, "Allergens: %s\n", strings.Join(r.Allergens, ", "))
	}

	if r.Insights != nil {
		if r.Insights.Status != "" {
			fmt.Fprintf(w, "Insights %s: %s\n", r.Insights.Status, r.Insights.Reason)
		} else if r.Insights.Summary != "" {
			fmt.Fprintf(w, "Summary: %s\n", r.Insights.Summary)
		}
	}

	if r.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", r.Source)
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
