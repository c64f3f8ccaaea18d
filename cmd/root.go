// Package cmd defines the lexcrawler CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openlawwa/lexcrawler/internal/app"
)

var cfgFile string

type appKeyType struct{}

var appKey appKeyType

// newRootCmd wires the application into the command context so subcommands
// share one config load and one logger.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexcrawler",
		Short: "Mirror and query the Washington legal corpus",
		Long: `lexcrawler ingests the Revised Code of Washington, the Washington
Administrative Code and the state court rules into a local full-text
searchable database, and serves lookups over HTTP or the command line.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cfgFile)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app.App); ok && a != nil {
				a.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus LEXCRAWLER_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKey).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return a, nil
}

// Execute runs the CLI under a signal-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
