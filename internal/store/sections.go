package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openlawwa/lexcrawler/internal/citation"
	"github.com/openlawwa/lexcrawler/internal/corpus"
	"github.com/openlawwa/lexcrawler/internal/hash/sha256"
)

// Section is one statute or administrative-code unit. Display-name fields
// may be empty; FullText never is once stored.
type Section struct {
	Citation      string    `json:"citation"`
	TitleNum      string    `json:"title_num"`
	ChapterNum    string    `json:"chapter_num"`
	SectionNum    string    `json:"section_num"`
	TitleName     string    `json:"title_name,omitempty"`
	ChapterName   string    `json:"chapter_name,omitempty"`
	SectionName   string    `json:"section_name,omitempty"`
	FullText      string    `json:"full_text"`
	EffectiveDate string    `json:"effective_date,omitempty"`
	LastAmended   string    `json:"last_amended,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HierarchyEntry is one child in a hierarchy listing: a title, a chapter, or
// a section heading, with the number of leaf sections beneath it.
type HierarchyEntry struct {
	Key      string `json:"key"`
	Name     string `json:"name,omitempty"`
	Sections int    `json:"sections"`
}

func sectionTables(family corpus.FamilyTag) (primary, search string, err error) {
	switch family {
	case corpus.FamilyRCW:
		return "rcw_sections", "rcw_search", nil
	case corpus.FamilyWAC:
		return "wac_sections", "wac_search", nil
	default:
		return "", "", fmt.Errorf("family %q has no section tables", family)
	}
}

// UpsertSection inserts or overwrites a section keyed by citation and
// refreshes its search-index row in the same transaction.
func (s *Store) UpsertSection(ctx context.Context, family corpus.FamilyTag, sec Section) error {
	primary, search, err := sectionTables(family)
	if err != nil {
		return err
	}
	if strings.TrimSpace(sec.FullText) == "" {
		return fmt.Errorf("upsert %s %s: empty body rejected", family, sec.Citation)
	}
	cite, err := citation.Parse(sec.Citation)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", family, err)
	}

	// Re-crawls mostly see unchanged documents; skip the write (and the
	// index churn) when the stored digest matches. The digest covers the
	// metadata too, so a corrected display name or annotation still lands.
	sum := sha256.Sum(strings.Join([]string{
		sec.TitleName, sec.ChapterName, sec.SectionName,
		sec.EffectiveDate, sec.LastAmended, sec.FullText,
	}, "\x1f"))
	unchanged, err := s.checksumMatches(ctx,
		fmt.Sprintf(`SELECT checksum FROM %s WHERE citation = ?`, primary), sum, sec.Citation)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", family, sec.Citation, err)
	}
	if unchanged {
		return nil
	}

	ts := now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (
    citation, title_num, chapter_num, section_num,
    title_name, chapter_name, section_name,
    full_text, checksum, effective_date, last_amended, created_at, updated_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(citation) DO UPDATE SET
    title_name     = excluded.title_name,
    chapter_name   = excluded.chapter_name,
    section_name   = excluded.section_name,
    full_text      = excluded.full_text,
    checksum       = excluded.checksum,
    effective_date = excluded.effective_date,
    last_amended   = excluded.last_amended,
    updated_at     = excluded.updated_at`, primary),
		sec.Citation, cite.Title, cite.Chapter, sec.Citation,
		sec.TitleName, sec.ChapterName, sec.SectionName,
		sec.FullText, sum, sec.EffectiveDate, sec.LastAmended, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", family, sec.Citation, err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE citation = ?`, search), sec.Citation); err != nil {
		return fmt.Errorf("clear index row %s: %w", sec.Citation, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (citation, title_name, chapter_name, section_name, full_text)
VALUES (?,?,?,?,?)`, search),
		sec.Citation, sec.TitleName, sec.ChapterName, sec.SectionName, sec.FullText,
	); err != nil {
		return fmt.Errorf("insert index row %s: %w", sec.Citation, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert %s: %w", sec.Citation, err)
	}
	return nil
}

// GetSection looks up a section by exact canonical citation.
func (s *Store) GetSection(ctx context.Context, family corpus.FamilyTag, cite string) (Section, error) {
	primary, _, err := sectionTables(family)
	if err != nil {
		return Section{}, err
	}
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT citation, title_num, chapter_num, section_num,
       COALESCE(title_name,''), COALESCE(chapter_name,''), COALESCE(section_name,''),
       full_text, COALESCE(effective_date,''), COALESCE(last_amended,''),
       created_at, updated_at
FROM %s WHERE citation = ?`, primary), cite)

	var sec Section
	var created, updated string
	err = row.Scan(
		&sec.Citation, &sec.TitleNum, &sec.ChapterNum, &sec.SectionNum,
		&sec.TitleName, &sec.ChapterName, &sec.SectionName,
		&sec.FullText, &sec.EffectiveDate, &sec.LastAmended,
		&created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Section{}, ErrNotFound
	}
	if err != nil {
		return Section{}, fmt.Errorf("get %s %s: %w", family, cite, err)
	}
	sec.CreatedAt = parseTime(created)
	sec.UpdatedAt = parseTime(updated)
	return sec, nil
}

// ListTitles enumerates the titles of a family in numeric order.
func (s *Store) ListTitles(ctx context.Context, family corpus.FamilyTag) ([]HierarchyEntry, error) {
	primary, _, err := sectionTables(family)
	if err != nil {
		return nil, err
	}
	return s.listHierarchy(ctx, fmt.Sprintf(`
SELECT title_num, COALESCE(MAX(title_name),''), COUNT(*)
FROM %s GROUP BY title_num`, primary))
}

// ListChapters enumerates the chapters under one title in numeric order.
func (s *Store) ListChapters(ctx context.Context, family corpus.FamilyTag, titleNum string) ([]HierarchyEntry, error) {
	primary, _, err := sectionTables(family)
	if err != nil {
		return nil, err
	}
	return s.listHierarchy(ctx, fmt.Sprintf(`
SELECT chapter_num, COALESCE(MAX(chapter_name),''), COUNT(*)
FROM %s WHERE title_num = ? GROUP BY chapter_num`, primary), titleNum)
}

// ListSections enumerates the sections of one chapter in numeric order.
func (s *Store) ListSections(ctx context.Context, family corpus.FamilyTag, chapterNum string) ([]HierarchyEntry, error) {
	primary, _, err := sectionTables(family)
	if err != nil {
		return nil, err
	}
	return s.listHierarchy(ctx, fmt.Sprintf(`
SELECT citation, COALESCE(section_name,''), 1
FROM %s WHERE chapter_num = ?`, primary), chapterNum)
}

// listHierarchy runs a (key, name, count) query and sorts the result with
// the canonical numeric comparator; a plain string sort would misplace
// chapter "9" after "46".
func (s *Store) listHierarchy(ctx context.Context, query string, args ...any) ([]HierarchyEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list hierarchy: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []HierarchyEntry
	for rows.Next() {
		var e HierarchyEntry
		if err := rows.Scan(&e.Key, &e.Name, &e.Sections); err != nil {
			return nil, fmt.Errorf("scan hierarchy row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hierarchy rows: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return citation.Less(out[i].Key, out[j].Key)
	})
	return out, nil
}
