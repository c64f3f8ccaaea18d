package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlawwa/lexcrawler/internal/corpus"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func firearmSection(cite, name, text string) Section {
	return Section{
		Citation:    cite,
		SectionName: name,
		ChapterName: "Firearms and dangerous weapons",
		TitleName:   "Crimes and punishments",
		FullText:    text,
	}
}

func TestUpsertSectionIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	sec := firearmSection("9.41.040", "Unlawful possession of firearms",
		"A person is guilty of unlawful possession of a firearm in the first degree.")
	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW, sec))

	sec.FullText = "A person is guilty of unlawful firearm possession in the first degree, as amended."
	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW, sec))

	got, err := s.GetSection(ctx, corpus.FamilyRCW, "9.41.040")
	require.NoError(t, err)
	assert.Contains(t, got.FullText, "as amended")
	assert.Equal(t, "9", got.TitleNum)
	assert.Equal(t, "9.41", got.ChapterNum)

	// Exactly one primary row and exactly one index row.
	var n int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM rcw_sections WHERE citation = '9.41.040'`).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM rcw_search WHERE citation = '9.41.040'`).Scan(&n))
	assert.Equal(t, 1, n)

	// The index row reflects the overwrite, not the original body.
	hits, err := s.Search(ctx, "amended", 6)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "9.41.040", hits[0].Citation)
}

func TestUpsertSectionUnchangedContentSkipsWrite(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	sec := firearmSection("9.41.040", "Unlawful possession of firearms",
		"A person is guilty of unlawful possession of a firearm in the first degree.")
	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW, sec))
	first, err := s.GetSection(ctx, corpus.FamilyRCW, "9.41.040")
	require.NoError(t, err)

	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW, sec))
	second, err := s.GetSection(ctx, corpus.FamilyRCW, "9.41.040")
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)

	var n int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM rcw_search WHERE citation = '9.41.040'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestUpsertSectionMetadataChangeOverwrites(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	sec := firearmSection("9.41.040", "Unlawful posession of firearms",
		"A person is guilty of unlawful possession of a firearm in the first degree.")
	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW, sec))

	// Same body, corrected display name and new annotation: must land.
	sec.SectionName = "Unlawful possession of firearms"
	sec.EffectiveDate = "January 1, 2020"
	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW, sec))

	got, err := s.GetSection(ctx, corpus.FamilyRCW, "9.41.040")
	require.NoError(t, err)
	assert.Equal(t, "Unlawful possession of firearms", got.SectionName)
	assert.Equal(t, "January 1, 2020", got.EffectiveDate)
}

func TestUpsertRuleNameChangeOverwrites(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	r := Rule{RuleSet: "CR", RuleNumber: "41", RuleName: "Dismissal",
		FullText: "Dismissal of actions and claims is governed by this rule."}
	require.NoError(t, s.UpsertRule(ctx, r))

	r.RuleName = "Dismissal of Actions"
	require.NoError(t, s.UpsertRule(ctx, r))

	got, err := s.GetRule(ctx, "CR", "41")
	require.NoError(t, err)
	assert.Equal(t, "Dismissal of Actions", got.RuleName)
}

func TestUpsertSectionRejectsEmptyBody(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	err := s.UpsertSection(context.Background(), corpus.FamilyRCW, Section{
		Citation: "9.41.040",
		FullText: "   \n ",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty body")
}

func TestUpsertSectionRejectsMalformedCitation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	err := s.UpsertSection(context.Background(), corpus.FamilyRCW, Section{
		Citation: "not-a-cite",
		FullText: "some body",
	})
	require.Error(t, err)
}

func TestGetSectionNotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.GetSection(context.Background(), corpus.FamilyWAC, "1.1.1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHierarchyNumericOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, cite := range []string{"46.61.502", "9.41.040", "9.41.050", "7.84.100"} {
		require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW,
			firearmSection(cite, "Section "+cite, "Body text for "+cite+" long enough to matter.")))
	}

	titles, err := s.ListTitles(ctx, corpus.FamilyRCW)
	require.NoError(t, err)
	keys := make([]string, 0, len(titles))
	for _, e := range titles {
		keys = append(keys, e.Key)
	}
	// Chapter "9" before "46": numeric, not lexicographic.
	assert.Equal(t, []string{"7", "9", "46"}, keys)

	chapters, err := s.ListChapters(ctx, corpus.FamilyRCW, "9")
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, "9.41", chapters[0].Key)
	assert.Equal(t, 2, chapters[0].Sections)

	sections, err := s.ListSections(ctx, corpus.FamilyRCW, "9.41")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "9.41.040", sections[0].Key)
	assert.Equal(t, "9.41.050", sections[1].Key)
}

func TestUpsertRuleOverwritesWithoutDuplicate(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	// CRLJ (1,1,0) normalizes to "1.1"; re-ingestion with updated body
	// must overwrite, never duplicate.
	r := Rule{RuleSet: "CRLJ", RuleNumber: "1.1", RuleName: "Scope", FullText: "These rules govern civil proceedings."}
	require.NoError(t, s.UpsertRule(ctx, r))
	r.FullText = "These rules govern all civil proceedings in courts of limited jurisdiction."
	require.NoError(t, s.UpsertRule(ctx, r))

	rules, err := s.ListRules(ctx, "CRLJ")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Contains(t, rules[0].FullText, "limited jurisdiction")

	var n int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM rule_search WHERE rule_set='CRLJ' AND rule_number='1.1'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetRuleZeroSubFallback(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRule(ctx, Rule{
		RuleSet: "RALJ", RuleNumber: "8.0", RuleName: "Costs",
		FullText: "Costs on appeal are awarded to the substantially prevailing party.",
	}))

	// Bare "8" falls back to "8.0" exactly once.
	got, err := s.GetRule(ctx, "RALJ", "8")
	require.NoError(t, err)
	assert.Equal(t, "8.0", got.RuleNumber)

	// Bare form absent in both spellings: not found.
	_, err = s.GetRule(ctx, "RALJ", "9")
	assert.ErrorIs(t, err, ErrNotFound)

	// A number that already has a sub part gets no fallback.
	_, err = s.GetRule(ctx, "RALJ", "9.1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRulesOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, num := range []string{"12.4", "1.1", "3.2a", "3.2"} {
		require.NoError(t, s.UpsertRule(ctx, Rule{
			RuleSet: "CRLJ", RuleNumber: num,
			FullText: "Rule body for " + num + " with enough words to store.",
		}))
	}
	rules, err := s.ListRules(ctx, "CRLJ")
	require.NoError(t, err)
	nums := make([]string, 0, len(rules))
	for _, r := range rules {
		nums = append(nums, r.RuleNumber)
	}
	assert.Equal(t, []string{"1.1", "3.2", "3.2a", "12.4"}, nums)
}

func TestSearchMergesFairShares(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW,
		firearmSection("9.41.040", "Unlawful possession",
			"Unlawful firearm possession in the first degree is a class B felony.")))
	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW,
		firearmSection("9.41.050", "Carrying firearms",
			"Carrying a concealed firearm without a license; possession restrictions apply.")))
	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyWAC, Section{
		Citation: "246.01.001", SectionName: "Definitions",
		FullText: "Firearm possession by licensees is governed by this chapter.",
	}))
	require.NoError(t, s.UpsertRule(ctx, Rule{
		RuleSet: "CR", RuleNumber: "41", RuleName: "Dismissal",
		FullText: "Nothing here about weapons at all, only dismissal of actions.",
	}))

	// Two families contribute fewer than their share; the union comes back.
	hits, err := s.Search(ctx, "firearm possession", 6)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	for _, h := range hits {
		assert.NotEmpty(t, h.Excerpt)
	}

	// Limit is a hard cap after merging.
	hits, err = s.Search(ctx, "firearm possession", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 2)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.Search(context.Background(), "   ", 10)
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSection(ctx, corpus.FamilyRCW,
		firearmSection("7.84.100", "Intent", "The legislature finds that civil infractions are appropriate.")))
	require.NoError(t, s.UpsertRule(ctx, Rule{
		RuleSet: "ER", RuleNumber: "803", FullText: "Hearsay exceptions; availability of declarant immaterial.",
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	byFamily := map[corpus.FamilyTag]FamilyStats{}
	for _, st := range stats {
		byFamily[st.Family] = st
	}
	assert.Equal(t, 1, byFamily[corpus.FamilyRCW].Documents)
	assert.Equal(t, 0, byFamily[corpus.FamilyWAC].Documents)
	assert.Equal(t, 1, byFamily[corpus.FamilyRules].Documents)
	assert.False(t, byFamily[corpus.FamilyRCW].LastUpdated.IsZero())
}

func TestProgressLedger(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetProgress(ctx, "RCW", "9.41", ProgressPending, ""))
	require.NoError(t, s.SetProgress(ctx, "RCW", "9.41", ProgressCompleted, ""))
	require.NoError(t, s.SetProgress(ctx, "RCW", "7.84", ProgressError, "listing fetch failed"))

	ledger, err := s.ListProgress(ctx, "RCW")
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	byUnit := map[string]Progress{}
	for _, p := range ledger {
		byUnit[p.Unit] = p
	}
	assert.Equal(t, ProgressCompleted, byUnit["9.41"].Status)
	assert.Equal(t, ProgressError, byUnit["7.84"].Status)
	assert.Equal(t, "listing fetch failed", byUnit["7.84"].ErrorMessage)
}

func TestRunRecords(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx, []string{"RCW", "RULES"})
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	require.NoError(t, s.FinishRun(ctx, runID, "completed", ""))

	var status string
	require.NoError(t, s.db.QueryRow(
		`SELECT status FROM crawl_runs WHERE run_id = ?`, runID).Scan(&status))
	assert.Equal(t, "completed", status)
}

func TestOpenReadOnly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "corpus.db")
	rw, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, rw.UpsertSection(context.Background(), corpus.FamilyRCW,
		firearmSection("7.84.100", "Intent", "The legislature finds that civil infractions are appropriate.")))
	require.NoError(t, rw.Close())

	ro, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer func() { _ = ro.Close() }()

	got, err := ro.GetSection(context.Background(), corpus.FamilyRCW, "7.84.100")
	require.NoError(t, err)
	assert.Equal(t, "Intent", got.SectionName)

	// The read-only handle refuses writes at the engine level.
	err = ro.UpsertSection(context.Background(), corpus.FamilyRCW,
		firearmSection("7.84.110", "Next", "More text that should not be writable here."))
	assert.Error(t, err)
}
