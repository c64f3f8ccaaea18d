package store

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Statute sections (RCW), keyed by canonical dotted citation.
CREATE TABLE IF NOT EXISTS rcw_sections (
    citation       TEXT PRIMARY KEY,
    title_num      TEXT NOT NULL,
    chapter_num    TEXT NOT NULL,
    section_num    TEXT NOT NULL,
    title_name     TEXT,
    chapter_name   TEXT,
    section_name   TEXT,
    full_text      TEXT NOT NULL CHECK (length(full_text) > 0),
    checksum       TEXT NOT NULL,
    effective_date TEXT,
    last_amended   TEXT,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rcw_title   ON rcw_sections(title_num);
CREATE INDEX IF NOT EXISTS idx_rcw_chapter ON rcw_sections(chapter_num);

-- Administrative code sections (WAC), same shape as statutes.
CREATE TABLE IF NOT EXISTS wac_sections (
    citation       TEXT PRIMARY KEY,
    title_num      TEXT NOT NULL,
    chapter_num    TEXT NOT NULL,
    section_num    TEXT NOT NULL,
    title_name     TEXT,
    chapter_name   TEXT,
    section_name   TEXT,
    full_text      TEXT NOT NULL CHECK (length(full_text) > 0),
    checksum       TEXT NOT NULL,
    effective_date TEXT,
    last_amended   TEXT,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_wac_title   ON wac_sections(title_num);
CREATE INDEX IF NOT EXISTS idx_wac_chapter ON wac_sections(chapter_num);

-- Court rules, keyed by (rule set, canonical rule number).
CREATE TABLE IF NOT EXISTS court_rules (
    rule_set    TEXT NOT NULL,
    rule_number TEXT NOT NULL,
    rule_name   TEXT,
    full_text   TEXT NOT NULL CHECK (length(full_text) > 0),
    checksum    TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    PRIMARY KEY (rule_set, rule_number)
);

-- Search indexes. These are derived projections kept in lockstep with the
-- primary tables by the upsert transaction; no triggers.
CREATE VIRTUAL TABLE IF NOT EXISTS rcw_search USING fts5(
    citation, title_name, chapter_name, section_name, full_text
);
CREATE VIRTUAL TABLE IF NOT EXISTS wac_search USING fts5(
    citation, title_name, chapter_name, section_name, full_text
);
CREATE VIRTUAL TABLE IF NOT EXISTS rule_search USING fts5(
    rule_set, rule_number, rule_name, full_text
);

-- Crawl ledger: one row per (family, hierarchical unit) attempted.
CREATE TABLE IF NOT EXISTS crawl_progress (
    family        TEXT NOT NULL,
    unit          TEXT NOT NULL,
    status        TEXT NOT NULL,
    error_message TEXT,
    updated_at    TEXT NOT NULL,
    PRIMARY KEY (family, unit)
);

-- One row per crawl invocation, for observability across multi-hour runs.
CREATE TABLE IF NOT EXISTS crawl_runs (
    run_id      TEXT PRIMARY KEY,
    families    TEXT NOT NULL,
    status      TEXT NOT NULL,
    note        TEXT,
    started_at  TEXT NOT NULL,
    finished_at TEXT
);
`
