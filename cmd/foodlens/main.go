// Package main is the entry point for the foodlens CLI. It runs the same
// analysis as the HTTP server against the upstream database or a local file.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foodlens/backend/config"
	"github.com/foodlens/backend/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// cli carries state shared by subcommands
type cli struct {
	configFile string
	verbose    bool
	cfg        *config.Config
	logger     *slog.Logger
	out        io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "foodlens",
		Short: "Analyze packaged food products by barcode",
		Long: `foodlens fetches a product from the Open Food Facts database, scores it
and prints a health report. Records can also be analyzed from a local JSON
file, and the additive knowledge base can be queried directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg

			level := cfg.Logging.Level
			if c.verbose {
				level = "debug"
			}
			c.logger = logging.New(errOut, "foodlens-cli", logging.Config{Format: cfg.Logging.Format, Level: level})
			slog.SetDefault(c.logger)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: ./config.yaml or /etc/foodlens/config.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAnalyzeCmd(c),
		newAdditiveCmd(c),
		newPruneCmd(c),
		newRawCmd(c),
		newWatchCmd(c),
		newVersionCmd(c),
	)
	return root
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
