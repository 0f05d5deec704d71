package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"price-recommender/config"
	"price-recommender/utils"
)

// app carries what every subcommand needs. Database and browser handles are
// not kept here: each command opens its own and closes it before returning.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

var (
	verbose bool
	noColor bool
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "price-recommender",
		Short: "Catalog scraping and per-category price recommendation",
		Long: `price-recommender collects storefront listings into a staging table, normalizes
and cleans them, fits one price model per category, and serves the recommended
prices over HTTP. Every stage reads only the previous stage's table, so the
pipeline can be resumed at any stage.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			if verbose {
				a.cfg.LogLevel = "debug"
			}
			if noColor {
				color.NoColor = true
			}
			a.logger = utils.NewLoggerWithConfig(utils.LogConfig{
				Level:  a.cfg.LogLevel,
				Format: a.cfg.LogFormat,
			})
			return a.cfg.Validate()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newCollectCmd(a),
		newNormalizeCmd(a),
		newCleanseCmd(a),
		newRecommendCmd(a),
		newPipelineCmd(a),
		newServeCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
