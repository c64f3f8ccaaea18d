package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openlawwa/lexcrawler/internal/corpus"
	"github.com/openlawwa/lexcrawler/internal/telemetry"
)

// DefaultSearchLimit applies when a caller does not specify one.
const DefaultSearchLimit = 20

// SearchResult is one ranked hit with enough context for a caller to decide
// whether to fetch the full record. Score ascends with relevance.
type SearchResult struct {
	Family   corpus.FamilyTag `json:"family"`
	Citation string           `json:"citation"`
	RuleSet  string           `json:"rule_set,omitempty"`
	Name     string           `json:"name,omitempty"`
	Excerpt  string           `json:"excerpt"`
	Score    float64          `json:"score"`
}

// FamilyStats is the per-family corpus summary.
type FamilyStats struct {
	Family      corpus.FamilyTag `json:"family"`
	Documents   int              `json:"documents"`
	LastUpdated time.Time        `json:"last_updated"`
}

// Search queries every family's search index independently, each capped at a
// fair share of the overall limit, then merges and re-sorts by descending
// relevance before truncating. bm25 ranks ascending-better, so the exposed
// score is its negation.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	match := buildMatch(query)
	if match == "" {
		return nil, fmt.Errorf("empty search query")
	}
	telemetry.IncSearch()

	perFamily := limit / 3
	if perFamily == 0 {
		perFamily = 1
	}

	var merged []SearchResult
	for _, family := range []corpus.FamilyTag{corpus.FamilyRCW, corpus.FamilyWAC} {
		part, err := s.searchSections(ctx, family, match, perFamily)
		if err != nil {
			return nil, err
		}
		merged = append(merged, part...)
	}
	rulePart, err := s.searchRules(ctx, match, perFamily)
	if err != nil {
		return nil, err
	}
	merged = append(merged, rulePart...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *Store) searchSections(ctx context.Context, family corpus.FamilyTag, match string, limit int) ([]SearchResult, error) {
	_, search, err := sectionTables(family)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT citation, COALESCE(section_name,''),
       snippet(%[1]s, 4, '[', ']', '…', 12),
       -bm25(%[1]s)
FROM %[1]s WHERE %[1]s MATCH ?
ORDER BY bm25(%[1]s) LIMIT ?`, search), match, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", family, err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchResult
	for rows.Next() {
		r := SearchResult{Family: family}
		if err := rows.Scan(&r.Citation, &r.Name, &r.Excerpt, &r.Score); err != nil {
			return nil, fmt.Errorf("scan %s hit: %w", family, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s hits: %w", family, err)
	}
	return out, nil
}

func (s *Store) searchRules(ctx context.Context, match string, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT rule_set, rule_number, COALESCE(rule_name,''),
       snippet(rule_search, 3, '[', ']', '…', 12),
       -bm25(rule_search)
FROM rule_search WHERE rule_search MATCH ?
ORDER BY bm25(rule_search) LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchResult
	for rows.Next() {
		r := SearchResult{Family: corpus.FamilyRules}
		if err := rows.Scan(&r.RuleSet, &r.Citation, &r.Name, &r.Excerpt, &r.Score); err != nil {
			return nil, fmt.Errorf("scan rule hit: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule hits: %w", err)
	}
	return out, nil
}

// buildMatch quotes each query term so user input never reaches the FTS5
// query parser as syntax.
func buildMatch(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, ``)
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " ")
}

// Stats reports per-family document counts and last-update markers.
func (s *Store) Stats(ctx context.Context) ([]FamilyStats, error) {
	type src struct {
		family corpus.FamilyTag
		table  string
	}
	sources := []src{
		{corpus.FamilyRCW, "rcw_sections"},
		{corpus.FamilyWAC, "wac_sections"},
		{corpus.FamilyRules, "court_rules"},
	}
	out := make([]FamilyStats, 0, len(sources))
	for _, sc := range sources {
		row := s.db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT COUNT(*), COALESCE(MAX(updated_at),'') FROM %s`, sc.table))
		var count int
		var updated string
		if err := row.Scan(&count, &updated); err != nil {
			return nil, fmt.Errorf("stats for %s: %w", sc.family, err)
		}
		out = append(out, FamilyStats{
			Family:      sc.family,
			Documents:   count,
			LastUpdated: parseTime(updated),
		})
	}
	return out, nil
}
