package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-family document counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.OpenStoreReadOnly()
			if err != nil {
				return fmt.Errorf("open corpus (run 'lexcrawler crawl' first?): %w", err)
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			for _, fs := range stats {
				updated := "never"
				if !fs.LastUpdated.IsZero() {
					updated = fs.LastUpdated.Format("2006-01-02 15:04:05 MST")
				}
				cmd.Printf("%-6s %8d documents  last updated %s\n",
					fs.Family, fs.Documents, updated)
			}
			return nil
		},
	}
}
