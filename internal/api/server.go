// Package api exposes the read-only HTTP query surface over the corpus.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openlawwa/lexcrawler/internal/corpus"
	"github.com/openlawwa/lexcrawler/internal/store"
)

// Store is the read surface the server depends on.
type Store interface {
	GetSection(ctx context.Context, family corpus.FamilyTag, cite string) (store.Section, error)
	GetRule(ctx context.Context, ruleSet, number string) (store.Rule, error)
	ListTitles(ctx context.Context, family corpus.FamilyTag) ([]store.HierarchyEntry, error)
	ListChapters(ctx context.Context, family corpus.FamilyTag, titleNum string) ([]store.HierarchyEntry, error)
	ListSections(ctx context.Context, family corpus.FamilyTag, chapterNum string) ([]store.HierarchyEntry, error)
	ListRules(ctx context.Context, ruleSet string) ([]store.Rule, error)
	Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error)
	Stats(ctx context.Context) ([]store.FamilyStats, error)
	ListProgress(ctx context.Context, family string) ([]store.Progress, error)
}

// Server wires HTTP handlers to the store.
type Server struct {
	router chi.Router
	store  Store
	log    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(st Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{store: st, log: log}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(metricsMiddleware)
	r.Use(recoverMiddleware(log))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		for _, family := range []corpus.FamilyTag{corpus.FamilyRCW, corpus.FamilyWAC} {
			family := family
			r.Route("/"+strings.ToLower(string(family)), func(r chi.Router) {
				r.Get("/titles", s.listTitles(family))
				r.Get("/titles/{title}/chapters", s.listChapters(family))
				r.Get("/chapters/{chapter}/sections", s.listSections(family))
				r.Get("/sections/{citation}", s.getSection(family))
			})
		}
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.listRules)
			r.Get("/{set}", s.listRules)
			r.Get("/{set}/{number}", s.getRule)
		})
		r.Get("/search", s.search)
		r.Get("/stats", s.stats)
		r.Get("/progress/{family}", s.listProgress)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// A store that can answer Stats can answer everything else.
	if _, err := s.store.Stats(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getSection(family corpus.FamilyTag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cite := chi.URLParam(r, "citation")
		sec, err := s.store.GetSection(r.Context(), family, cite)
		if err != nil {
			s.respondLookupError(w, err, string(family), cite)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	}
}

func (s *Server) listTitles(family corpus.FamilyTag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.store.ListTitles(r.Context(), family)
		if err != nil {
			s.respondStoreError(w, err, "list titles")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"titles": entries})
	}
}

func (s *Server) listChapters(family corpus.FamilyTag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.store.ListChapters(r.Context(), family, chi.URLParam(r, "title"))
		if err != nil {
			s.respondStoreError(w, err, "list chapters")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"chapters": entries})
	}
}

func (s *Server) listSections(family corpus.FamilyTag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.store.ListSections(r.Context(), family, chi.URLParam(r, "chapter"))
		if err != nil {
			s.respondStoreError(w, err, "list sections")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sections": entries})
	}
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	set := strings.ToUpper(chi.URLParam(r, "set"))
	number := chi.URLParam(r, "number")
	rule, err := s.store.GetRule(r.Context(), set, number)
	if err != nil {
		s.respondLookupError(w, err, set, number)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	set := strings.ToUpper(chi.URLParam(r, "set"))
	if set != "" {
		if _, ok := corpus.RuleSetByTag(set); !ok {
			writeError(w, http.StatusNotFound, "unknown rule set "+set)
			return
		}
	}
	rules, err := s.store.ListRules(r.Context(), set)
	if err != nil {
		s.respondStoreError(w, err, "list rules")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit := store.DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	hits, err := s.store.Search(r.Context(), q, limit)
	if err != nil {
		s.respondStoreError(w, err, "search")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": hits,
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.respondStoreError(w, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"families": stats})
}

func (s *Server) listProgress(w http.ResponseWriter, r *http.Request) {
	family := strings.ToUpper(chi.URLParam(r, "family"))
	ledger, err := s.store.ListProgress(r.Context(), family)
	if err != nil {
		s.respondStoreError(w, err, "list progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": ledger})
}

func (s *Server) respondLookupError(w http.ResponseWriter, err error, kind, id string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, kind+" "+id+" not found")
		return
	}
	s.respondStoreError(w, err, "lookup "+kind)
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error, op string) {
	s.log.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, op+" failed")
}
