package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openlawwa/lexcrawler/internal/corpus"
	"github.com/openlawwa/lexcrawler/internal/fetch"
	"github.com/openlawwa/lexcrawler/internal/store"
)

func listingPage(links ...string) string {
	body := "<html><body><div class='content'>"
	for _, l := range links {
		body += l
	}
	return body + "</div></body></html>"
}

func sectionPage(cite string) string {
	return fmt.Sprintf(
		`<html><body><div class="content">RCW %s This section provides that civil infractions are handled as described herein, with sufficient body text to pass the near-empty threshold. [2019 c 243 § 1; 1994 c 129 § 2.] [Effective January 1, 2020.]</div></body></html>`,
		cite)
}

func newCorpusServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rcw/", func(w http.ResponseWriter, r *http.Request) {
		cite := r.URL.Query().Get("cite")
		switch cite {
		case "":
			fmt.Fprint(w, listingPage(
				`<a href="/rcw/?cite=7">Title 7</a>`,
				`<a href="/rcw/?cite=9">Title 9</a>`))
		case "7":
			fmt.Fprint(w, listingPage(
				`<a href="/rcw/?cite=7.84">7.84 Infractions</a>`))
		case "9":
			fmt.Fprint(w, listingPage(
				`<a href="/rcw/?cite=9.41">9.41 Firearms</a>`))
		case "7.84":
			fmt.Fprint(w, listingPage(
				`<a href="/rcw/?cite=7.84.100">7.84.100 Intent</a>`,
				`<a href="/rcw/?cite=7.84.110">7.84.110 Broken</a>`))
		case "9.41":
			fmt.Fprint(w, listingPage(
				`<a href="/rcw/?cite=9.41.010">9.41.010 Definitions</a>`))
		case "7.84.110":
			// One bad detail page: isolation means the rest still lands.
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			fmt.Fprint(w, sectionPage(cite))
		}
	})
	mux.HandleFunc("/courtrules/cr", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPage(
			`<a href="/courtrules/cr/11">CR 11 Signing of Pleadings</a>`,
			`<a href="/courtrules/cr/41">CR 41 Dismissal of Actions</a>`,
			`<a href="/courtrules/about">About these rules</a>`))
	})
	mux.HandleFunc("/courtrules/cr/", func(w http.ResponseWriter, r *http.Request) {
		num := filepath.Base(r.URL.Path)
		fmt.Fprintf(w,
			`<html><body><div class="content">CR %s The text of this rule describes procedure in sufficient detail for storage and later retrieval by the query surface.</div></body></html>`,
			num)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	client := fetch.New(fetch.Config{
		UserAgent:   "lexcrawler-test/0",
		Timeout:     5 * time.Second,
		Parallelism: 2,
	})
	return New(zap.NewNop(), client, st, 2), st
}

func TestRunStatuteFamily(t *testing.T) {
	t.Parallel()
	srv := newCorpusServer(t)
	o, st := newTestOrchestrator(t)
	ctx := context.Background()

	src := Sources{Statutes: []corpus.StatuteFamily{
		{Tag: corpus.FamilyRCW, IndexURL: srv.URL + "/rcw/"},
	}}
	require.NoError(t, o.Run(ctx, src))

	// Two good sections landed; the broken one did not.
	got, err := st.GetSection(ctx, corpus.FamilyRCW, "7.84.100")
	require.NoError(t, err)
	assert.Equal(t, "Intent", got.SectionName)
	assert.Equal(t, "Infractions", got.ChapterName)
	assert.Equal(t, "Title 7", got.TitleName)
	assert.Contains(t, got.FullText, "civil infractions")
	assert.Equal(t, "January 1, 2020", got.EffectiveDate)
	assert.Equal(t, "2019", got.LastAmended)

	_, err = st.GetSection(ctx, corpus.FamilyRCW, "9.41.010")
	require.NoError(t, err)
	_, err = st.GetSection(ctx, corpus.FamilyRCW, "7.84.110")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Both chapters completed in the ledger despite the failed section.
	ledger, err := st.ListProgress(ctx, "RCW")
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	for _, p := range ledger {
		assert.Equal(t, store.ProgressCompleted, p.Status)
	}
}

func TestRunRuleSet(t *testing.T) {
	t.Parallel()
	srv := newCorpusServer(t)
	o, st := newTestOrchestrator(t)
	ctx := context.Background()

	src := Sources{RuleSets: []corpus.RuleSet{
		{Tag: "CR", ListingURL: srv.URL + "/courtrules/cr"},
	}}
	require.NoError(t, o.Run(ctx, src))

	rules, err := st.ListRules(ctx, "CR")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "11", rules[0].RuleNumber)
	assert.Equal(t, "Signing of Pleadings", rules[0].RuleName)
	assert.Equal(t, "41", rules[1].RuleNumber)

	ledger, err := st.ListProgress(ctx, "RULES")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, store.ProgressCompleted, ledger[0].Status)
}

func TestRunIsolatesFamilyFailure(t *testing.T) {
	t.Parallel()
	srv := newCorpusServer(t)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	o, st := newTestOrchestrator(t)
	ctx := context.Background()

	// A dead title index must not cost the rule sets their crawl.
	src := Sources{
		Statutes: []corpus.StatuteFamily{
			{Tag: corpus.FamilyRCW, IndexURL: broken.URL + "/rcw/"},
		},
		RuleSets: []corpus.RuleSet{
			{Tag: "CR", ListingURL: srv.URL + "/courtrules/cr"},
		},
	}
	require.NoError(t, o.Run(ctx, src))

	rules, err := st.ListRules(ctx, "CR")
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	ledger, err := st.ListProgress(ctx, "RULES")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, store.ProgressCompleted, ledger[0].Status)
}

func TestRunErrorLedgerOnBadListing(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	o, st := newTestOrchestrator(t)
	ctx := context.Background()

	src := Sources{RuleSets: []corpus.RuleSet{
		{Tag: "ER", ListingURL: srv.URL + "/courtrules/er"},
	}}
	require.NoError(t, o.Run(ctx, src))

	ledger, err := st.ListProgress(ctx, "RULES")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, store.ProgressError, ledger[0].Status)
	assert.NotEmpty(t, ledger[0].ErrorMessage)
}

func TestRunRequiresSources(t *testing.T) {
	t.Parallel()
	o, _ := newTestOrchestrator(t)

	err := o.Run(context.Background(), Sources{})
	assert.Error(t, err)
}

func TestSourcesFor(t *testing.T) {
	t.Parallel()

	listings := map[string]string{
		"CR": "http://example.test/cr", "ER": "http://example.test/er",
		"CRLJ": "http://example.test/crlj", "RALJ": "http://example.test/ralj",
	}
	src, err := SourcesFor(
		[]corpus.FamilyTag{corpus.FamilyRCW, corpus.FamilyRules},
		"http://example.test/rcw", "http://example.test/wac", listings)
	require.NoError(t, err)
	require.Len(t, src.Statutes, 1)
	assert.Equal(t, corpus.FamilyRCW, src.Statutes[0].Tag)
	require.Len(t, src.RuleSets, 4)
	assert.Equal(t, "http://example.test/crlj", src.RuleSets[2].ListingURL)

	_, err = SourcesFor([]corpus.FamilyTag{"XYZ"}, "", "", nil)
	assert.Error(t, err)

	_, err = SourcesFor([]corpus.FamilyTag{corpus.FamilyRules}, "", "",
		map[string]string{"CR": "http://example.test/cr"})
	assert.Error(t, err)
}
