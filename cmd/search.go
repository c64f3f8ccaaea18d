package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openlawwa/lexcrawler/internal/corpus"
	"github.com/openlawwa/lexcrawler/internal/store"
)

func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <terms>...",
		Short: "Full-text search across the local corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			st, err := a.OpenStoreReadOnly()
			if err != nil {
				return fmt.Errorf("open corpus (run 'lexcrawler crawl' first?): %w", err)
			}
			defer func() { _ = st.Close() }()

			hits, err := st.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				cmd.Println("no results")
				return nil
			}
			for _, h := range hits {
				cmd.Printf("%-6s %-10s %s\n", h.Family, label(h), h.Name)
				cmd.Printf("       %s\n", h.Excerpt)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultSearchLimit, "maximum number of results")
	return cmd
}

func label(h store.SearchResult) string {
	if h.Family == corpus.FamilyRules {
		return h.RuleSet + " " + h.Citation
	}
	return h.Citation
}
