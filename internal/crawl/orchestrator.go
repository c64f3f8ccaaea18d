// Package crawl walks the source hierarchies and feeds extracted documents
// into the store. One generic pipeline covers every family: a listing fetch
// discovers candidates, a fixed worker pool processes them, and a progress
// ledger records each completed unit. Failures are isolated per item; a bad
// page never ends a run.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/openlawwa/lexcrawler/internal/corpus"
	"github.com/openlawwa/lexcrawler/internal/extract"
	"github.com/openlawwa/lexcrawler/internal/store"
	"github.com/openlawwa/lexcrawler/internal/telemetry"
)

// Fetcher is the outbound surface the orchestrator depends on.
type Fetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
	FetchBinary(ctx context.Context, rawURL string) ([]byte, error)
}

// Store is the persistence surface the orchestrator depends on.
type Store interface {
	UpsertSection(ctx context.Context, family corpus.FamilyTag, sec store.Section) error
	UpsertRule(ctx context.Context, r store.Rule) error
	SetProgress(ctx context.Context, family, unit, status, errMsg string) error
	StartRun(ctx context.Context, families []string) (string, error)
	FinishRun(ctx context.Context, runID, status, note string) error
}

// Sources enumerates what one run covers. Empty slices mean the family is
// skipped entirely.
type Sources struct {
	Statutes []corpus.StatuteFamily
	RuleSets []corpus.RuleSet
}

// Orchestrator drives crawl runs.
type Orchestrator struct {
	log     *zap.Logger
	fetcher Fetcher
	store   Store
	workers int
}

// New builds an Orchestrator. workers bounds in-flight document processing
// and defaults to 4.
func New(log *zap.Logger, f Fetcher, st Store, workers int) *Orchestrator {
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{log: log, fetcher: f, store: st, workers: workers}
}

// Run executes one crawl over the given sources. It returns an error only
// when the run itself cannot proceed (context canceled, run bookkeeping
// failed); per-item and per-unit failures are logged and counted instead.
func (o *Orchestrator) Run(ctx context.Context, src Sources) error {
	families := make([]string, 0, len(src.Statutes)+1)
	for _, sf := range src.Statutes {
		families = append(families, string(sf.Tag))
	}
	if len(src.RuleSets) > 0 {
		families = append(families, string(corpus.FamilyRules))
	}
	if len(families) == 0 {
		return fmt.Errorf("crawl run: no sources configured")
	}

	runID, err := o.store.StartRun(ctx, families)
	if err != nil {
		return err
	}
	o.log.Info("crawl run started",
		zap.String("run_id", runID),
		zap.Strings("families", families),
		zap.Int("workers", o.workers))

	start := time.Now()
	var failures []string
	for _, sf := range src.Statutes {
		err := o.crawlStatuteFamily(ctx, sf)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			_ = o.store.FinishRun(ctx, runID, "aborted", err.Error())
			return err
		}
		// One family's broken entry point must not cost the others their
		// crawl; note it on the run and move on.
		o.log.Warn("family crawl failed",
			zap.String("family", string(sf.Tag)), zap.Error(err))
		telemetry.IncItemFailed(string(sf.Tag), "family")
		failures = append(failures, fmt.Sprintf("%s: %v", sf.Tag, err))
	}
	for _, rs := range src.RuleSets {
		if err := o.crawlRuleSet(ctx, rs); err != nil {
			_ = o.store.FinishRun(ctx, runID, "aborted", err.Error())
			return err
		}
	}

	if err := o.store.FinishRun(ctx, runID, "completed", strings.Join(failures, "; ")); err != nil {
		return err
	}
	o.log.Info("crawl run finished",
		zap.String("run_id", runID),
		zap.Int("family_failures", len(failures)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// crawlStatuteFamily walks title index -> chapter listings -> sections.
// The ledger gets one row per chapter.
func (o *Orchestrator) crawlStatuteFamily(ctx context.Context, sf corpus.StatuteFamily) error {
	log := o.log.With(zap.String("family", string(sf.Tag)))

	titles, err := o.fetchCandidates(ctx, sf.Tag, sf.IndexURL, 1)
	if err != nil {
		return fmt.Errorf("%s title index: %w", sf.Tag, err)
	}
	log.Info("title index fetched", zap.Int("titles", len(titles)))

	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl %s: %w", sf.Tag, err)
		}
		chapters, err := o.fetchCandidates(ctx, sf.Tag, title.URL, 2)
		if err != nil {
			log.Warn("title listing failed, skipping",
				zap.String("title", title.ID), zap.Error(err))
			telemetry.IncItemFailed(string(sf.Tag), "listing")
			continue
		}
		for _, chapter := range chapters {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("crawl %s: %w", sf.Tag, err)
			}
			o.crawlChapter(ctx, sf, title, chapter)
		}
	}
	return nil
}

// crawlChapter fetches one chapter listing and fans its sections out to the
// worker pool. The chapter's ledger row ends in error only when the listing
// itself is unusable; individual section failures are counted and logged but
// the chapter still completes.
func (o *Orchestrator) crawlChapter(ctx context.Context, sf corpus.StatuteFamily, title, chapter corpus.Candidate) {
	family := string(sf.Tag)
	log := o.log.With(zap.String("family", family), zap.String("chapter", chapter.ID))

	if err := o.store.SetProgress(ctx, family, chapter.ID, store.ProgressPending, ""); err != nil {
		log.Warn("ledger write failed", zap.Error(err))
	}

	sections, err := o.fetchCandidates(ctx, sf.Tag, chapter.URL, 3)
	if err != nil {
		log.Warn("chapter listing failed", zap.Error(err))
		telemetry.IncItemFailed(family, "listing")
		_ = o.store.SetProgress(ctx, family, chapter.ID, store.ProgressError, err.Error())
		return
	}

	o.runPool(ctx, sections, func(ctx context.Context, cand corpus.Candidate) {
		if err := o.processSection(ctx, sf, title, chapter, cand); err != nil {
			log.Warn("section failed", zap.String("citation", cand.ID), zap.Error(err))
		}
	})

	if err := ctx.Err(); err != nil {
		_ = o.store.SetProgress(ctx, family, chapter.ID, store.ProgressError, err.Error())
		return
	}
	_ = o.store.SetProgress(ctx, family, chapter.ID, store.ProgressCompleted, "")
	log.Info("chapter completed", zap.Int("sections", len(sections)))
}

func (o *Orchestrator) processSection(ctx context.Context, sf corpus.StatuteFamily, title, chapter, cand corpus.Candidate) error {
	family := string(sf.Tag)

	page, err := o.timedFetchText(ctx, family, cand.URL)
	if err != nil {
		telemetry.IncItemFailed(family, "fetch")
		return err
	}
	text, err := extract.HTML(page, family, cand.ID)
	if err != nil {
		telemetry.IncItemFailed(family, "extract")
		return err
	}
	if extract.NearEmpty(text) {
		o.log.Warn("near-empty body stored",
			zap.String("family", family), zap.String("citation", cand.ID),
			zap.Int("length", len(text)))
	}

	sec := store.Section{
		Citation:      cand.ID,
		TitleName:     title.Name,
		ChapterName:   chapter.Name,
		SectionName:   cand.Name,
		FullText:      text,
		EffectiveDate: extract.EffectiveDate(text),
		LastAmended:   extract.LastAmended(text),
	}
	if err := o.store.UpsertSection(ctx, sf.Tag, sec); err != nil {
		telemetry.IncItemFailed(family, "store")
		return err
	}
	telemetry.IncUpserted(family)
	return nil
}

// crawlRuleSet fetches one rule-set listing and processes every discovered
// rule. The ledger gets one row per rule set.
func (o *Orchestrator) crawlRuleSet(ctx context.Context, rs corpus.RuleSet) error {
	family := string(corpus.FamilyRules)
	log := o.log.With(zap.String("rule_set", rs.Tag))

	if err := o.store.SetProgress(ctx, family, rs.Tag, store.ProgressPending, ""); err != nil {
		log.Warn("ledger write failed", zap.Error(err))
	}

	page, err := o.timedFetchText(ctx, family, rs.ListingURL)
	if err != nil {
		log.Warn("rule listing failed", zap.Error(err))
		telemetry.IncItemFailed(family, "listing")
		_ = o.store.SetProgress(ctx, family, rs.Tag, store.ProgressError, err.Error())
		return nil
	}
	doc, base, err := parseListing(page, rs.ListingURL)
	if err != nil {
		telemetry.IncItemFailed(family, "listing")
		_ = o.store.SetProgress(ctx, family, rs.Tag, store.ProgressError, err.Error())
		return nil
	}
	candidates := corpus.RuleCandidates(rs, doc, base)
	log.Info("rule listing fetched", zap.Int("rules", len(candidates)))

	o.runPool(ctx, candidates, func(ctx context.Context, cand corpus.Candidate) {
		if err := o.processRule(ctx, rs, cand); err != nil {
			log.Warn("rule failed", zap.String("rule", cand.ID), zap.Error(err))
		}
	})

	if err := ctx.Err(); err != nil {
		_ = o.store.SetProgress(ctx, family, rs.Tag, store.ProgressError, err.Error())
		return fmt.Errorf("crawl %s: %w", rs.Tag, err)
	}
	_ = o.store.SetProgress(ctx, family, rs.Tag, store.ProgressCompleted, "")
	return nil
}

func (o *Orchestrator) processRule(ctx context.Context, rs corpus.RuleSet, cand corpus.Candidate) error {
	family := string(corpus.FamilyRules)

	var text string
	if cand.PDF {
		data, err := o.timedFetchBinary(ctx, family, cand.URL)
		if err != nil {
			telemetry.IncItemFailed(family, "fetch")
			return err
		}
		text, err = extract.PDF(data, rs.Tag, cand.ID)
		if err != nil {
			telemetry.IncItemFailed(family, "extract")
			return err
		}
	} else {
		page, err := o.timedFetchText(ctx, family, cand.URL)
		if err != nil {
			telemetry.IncItemFailed(family, "fetch")
			return err
		}
		text, err = extract.HTML(page, rs.Tag, cand.ID)
		if err != nil {
			telemetry.IncItemFailed(family, "extract")
			return err
		}
	}
	if extract.NearEmpty(text) {
		o.log.Warn("near-empty body stored",
			zap.String("rule_set", rs.Tag), zap.String("rule", cand.ID),
			zap.Int("length", len(text)))
	}

	r := store.Rule{
		RuleSet:    rs.Tag,
		RuleNumber: cand.ID,
		RuleName:   cand.Name,
		FullText:   text,
	}
	if err := o.store.UpsertRule(ctx, r); err != nil {
		telemetry.IncItemFailed(family, "store")
		return err
	}
	telemetry.IncUpserted(family)
	return nil
}

// runPool fans candidates out to a fixed pool of workers and waits for all of
// them. Workers stop pulling new items once ctx is done.
func (o *Orchestrator) runPool(ctx context.Context, cands []corpus.Candidate, fn func(context.Context, corpus.Candidate)) {
	jobs := make(chan corpus.Candidate)
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, cand)
			}
		}()
	}
	for _, cand := range cands {
		if ctx.Err() != nil {
			break
		}
		jobs <- cand
	}
	close(jobs)
	wg.Wait()
}

// fetchCandidates fetches one listing page and extracts dotted-citation
// links of the given depth in canonical order.
func (o *Orchestrator) fetchCandidates(ctx context.Context, tag corpus.FamilyTag, rawURL string, depth int) ([]corpus.Candidate, error) {
	page, err := o.timedFetchText(ctx, string(tag), rawURL)
	if err != nil {
		return nil, err
	}
	doc, base, err := parseListing(page, rawURL)
	if err != nil {
		return nil, err
	}
	return corpus.CiteLinks(doc, base, depth), nil
}

func parseListing(page, rawURL string) (*goquery.Document, *url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, nil, fmt.Errorf("parse listing %s: %w", rawURL, err)
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse listing url %s: %w", rawURL, err)
	}
	return doc, base, nil
}

func (o *Orchestrator) timedFetchText(ctx context.Context, family, rawURL string) (string, error) {
	start := time.Now()
	page, err := o.fetcher.FetchText(ctx, rawURL)
	observeFetch(family, len(page), err, start)
	return page, err
}

func (o *Orchestrator) timedFetchBinary(ctx context.Context, family, rawURL string) ([]byte, error) {
	start := time.Now()
	data, err := o.fetcher.FetchBinary(ctx, rawURL)
	observeFetch(family, len(data), err, start)
	return data, err
}

func observeFetch(family string, n int, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.ObserveFetch(family, outcome, n, time.Since(start))
}

// SourcesFor assembles the Sources for the requested family tags from the
// configured URLs. Unknown tags are rejected so a typo fails fast instead of
// silently crawling nothing.
func SourcesFor(tags []corpus.FamilyTag, rcwIndex, wacIndex string, ruleListings map[string]string) (Sources, error) {
	var src Sources
	for _, tag := range tags {
		switch tag {
		case corpus.FamilyRCW:
			src.Statutes = append(src.Statutes, corpus.StatuteFamily{Tag: tag, IndexURL: rcwIndex})
		case corpus.FamilyWAC:
			src.Statutes = append(src.Statutes, corpus.StatuteFamily{Tag: tag, IndexURL: wacIndex})
		case corpus.FamilyRules:
			for _, rs := range corpus.RuleSetTable {
				rs.ListingURL = ruleListings[rs.Tag]
				if rs.ListingURL == "" {
					return Sources{}, fmt.Errorf("no listing url configured for rule set %s", rs.Tag)
				}
				src.RuleSets = append(src.RuleSets, rs)
			}
		default:
			return Sources{}, fmt.Errorf("unknown family %q", tag)
		}
	}
	return src, nil
}
