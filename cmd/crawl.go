package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openlawwa/lexcrawler/internal/corpus"
	"github.com/openlawwa/lexcrawler/internal/crawl"
	"github.com/openlawwa/lexcrawler/internal/fetch"
)

func newCrawlCmd() *cobra.Command {
	var families []string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the configured sources into the local corpus",
		Long: `Walks the configured listing pages, extracts document text and upserts
it into the corpus database. Repeated runs overwrite changed documents in
place. Interrupting a run is safe; every document lands atomically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			tags, err := parseFamilies(families)
			if err != nil {
				return err
			}
			src, err := crawl.SourcesFor(tags,
				a.Cfg.Sources.RCWIndex, a.Cfg.Sources.WACIndex, a.Cfg.Sources.Rules)
			if err != nil {
				return err
			}

			st, err := a.OpenStore()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := st.Close(); cerr != nil {
					a.Log.Warn("close store", zap.Error(cerr))
				}
			}()

			client := fetch.New(fetch.Config{
				UserAgent:   a.Cfg.Crawler.UserAgent,
				Timeout:     a.Cfg.Timeout(),
				Parallelism: a.Cfg.Crawler.Parallelism,
				Delay:       a.Cfg.Delay(),
			})

			o := crawl.New(a.Log, client, st, a.Cfg.Crawler.Workers)
			return o.Run(cmd.Context(), src)
		},
	}

	cmd.Flags().StringSliceVar(&families, "family", []string{"rcw", "wac", "rules"},
		"families to crawl: rcw, wac, rules")
	return cmd
}

func parseFamilies(names []string) ([]corpus.FamilyTag, error) {
	tags := make([]corpus.FamilyTag, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "rcw":
			tags = append(tags, corpus.FamilyRCW)
		case "wac":
			tags = append(tags, corpus.FamilyWAC)
		case "rules":
			tags = append(tags, corpus.FamilyRules)
		default:
			return nil, fmt.Errorf("unknown family %q (want rcw, wac or rules)", name)
		}
	}
	return tags, nil
}
