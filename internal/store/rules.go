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
	"github.com/openlawwa/lexcrawler/internal/hash/sha256"
)

// Rule is one court-rule unit, unique on (RuleSet, RuleNumber).
type Rule struct {
	RuleSet    string    `json:"rule_set"`
	RuleNumber string    `json:"rule_number"`
	RuleName   string    `json:"rule_name,omitempty"`
	FullText   string    `json:"full_text"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpsertRule inserts or overwrites a rule keyed by (rule set, rule number)
// and refreshes its search-index row in the same transaction.
func (s *Store) UpsertRule(ctx context.Context, r Rule) error {
	if r.RuleSet == "" || r.RuleNumber == "" {
		return fmt.Errorf("upsert rule: rule set and number are required")
	}
	if strings.TrimSpace(r.FullText) == "" {
		return fmt.Errorf("upsert %s %s: empty body rejected", r.RuleSet, r.RuleNumber)
	}

	sum := sha256.Sum(r.RuleName + "\x1f" + r.FullText)
	unchanged, err := s.checksumMatches(ctx,
		`SELECT checksum FROM court_rules WHERE rule_set = ? AND rule_number = ?`,
		sum, r.RuleSet, r.RuleNumber)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", r.RuleSet, r.RuleNumber, err)
	}
	if unchanged {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO court_rules (rule_set, rule_number, rule_name, full_text, checksum, updated_at)
VALUES (?,?,?,?,?,?)
ON CONFLICT(rule_set, rule_number) DO UPDATE SET
    rule_name  = excluded.rule_name,
    full_text  = excluded.full_text,
    checksum   = excluded.checksum,
    updated_at = excluded.updated_at`,
		r.RuleSet, r.RuleNumber, r.RuleName, r.FullText, sum, now(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", r.RuleSet, r.RuleNumber, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM rule_search WHERE rule_set = ? AND rule_number = ?`,
		r.RuleSet, r.RuleNumber); err != nil {
		return fmt.Errorf("clear index row %s %s: %w", r.RuleSet, r.RuleNumber, err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO rule_search (rule_set, rule_number, rule_name, full_text)
VALUES (?,?,?,?)`,
		r.RuleSet, r.RuleNumber, r.RuleName, r.FullText); err != nil {
		return fmt.Errorf("insert index row %s %s: %w", r.RuleSet, r.RuleNumber, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert %s %s: %w", r.RuleSet, r.RuleNumber, err)
	}
	return nil
}

// GetRule looks up a rule by set and number. When the exact key is absent
// and the supplied number carries no sub part, it retries once with a zero
// sub part appended ("8" -> "8.0") before reporting ErrNotFound.
func (s *Store) GetRule(ctx context.Context, ruleSet, number string) (Rule, error) {
	r, err := s.getRuleExact(ctx, ruleSet, number)
	if err == nil {
		return r, nil
	}
	if errors.Is(err, ErrNotFound) && !citation.HasSubPart(number) {
		return s.getRuleExact(ctx, ruleSet, number+".0")
	}
	return Rule{}, err
}

func (s *Store) getRuleExact(ctx context.Context, ruleSet, number string) (Rule, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT rule_set, rule_number, COALESCE(rule_name,''), full_text, updated_at
FROM court_rules WHERE rule_set = ? AND rule_number = ?`, ruleSet, number)

	var r Rule
	var updated string
	err := row.Scan(&r.RuleSet, &r.RuleNumber, &r.RuleName, &r.FullText, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Rule{}, ErrNotFound
	}
	if err != nil {
		return Rule{}, fmt.Errorf("get rule %s %s: %w", ruleSet, number, err)
	}
	r.UpdatedAt = parseTime(updated)
	return r, nil
}

// ListRules enumerates rules, optionally filtered to one rule set, in
// canonical numeric order within each set.
func (s *Store) ListRules(ctx context.Context, ruleSet string) ([]Rule, error) {
	query := `
SELECT rule_set, rule_number, COALESCE(rule_name,''), full_text, updated_at
FROM court_rules`
	var args []any
	if ruleSet != "" {
		query += ` WHERE rule_set = ?`
		args = append(args, ruleSet)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Rule
	for rows.Next() {
		var r Rule
		var updated string
		if err := rows.Scan(&r.RuleSet, &r.RuleNumber, &r.RuleName, &r.FullText, &updated); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		r.UpdatedAt = parseTime(updated)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule rows: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RuleSet != out[j].RuleSet {
			return out[i].RuleSet < out[j].RuleSet
		}
		return citation.Less(out[i].RuleNumber, out[j].RuleNumber)
	})
	return out, nil
}
