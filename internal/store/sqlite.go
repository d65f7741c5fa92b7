package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/compiq/compiq/internal/comps"
)

// SQLiteStore persists finished search sessions and maintains a verified
// company cache fed by validation outcomes. One writer connection; WAL mode.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS searches (
	id              TEXT PRIMARY KEY,
	target_key      TEXT NOT NULL,
	target_name     TEXT NOT NULL,
	target_data     TEXT NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL,
	rounds          INTEGER NOT NULL DEFAULT 0,
	attempts        INTEGER NOT NULL DEFAULT 0,
	num_comparables INTEGER NOT NULL DEFAULT 0,
	data            TEXT NOT NULL DEFAULT '{}',
	started_at      TEXT NOT NULL,
	completed_at    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_searches_target_key ON searches (target_key, completed_at);

CREATE TABLE IF NOT EXISTS comparables (
	search_id       TEXT NOT NULL,
	rank            INTEGER NOT NULL,
	name            TEXT NOT NULL,
	ticker          TEXT NOT NULL DEFAULT '',
	exchange        TEXT NOT NULL DEFAULT '',
	composite_score REAL NOT NULL DEFAULT 0,
	data            TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (search_id, rank)
);

CREATE TABLE IF NOT EXISTS companies (
	name              TEXT PRIMARY KEY,
	display_name      TEXT NOT NULL,
	ticker            TEXT NOT NULL DEFAULT '',
	exchange          TEXT NOT NULL DEFAULT '',
	is_public         INTEGER NOT NULL DEFAULT 0,
	last_verified     TEXT NOT NULL,
	verification_data TEXT NOT NULL DEFAULT '{}'
);
`

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSession writes the session, its ranked comparables, and refreshes the
// company cache in a single transaction.
func (s *SQLiteStore) SaveSession(ctx context.Context, snap comps.SessionSnapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &comps.PersistenceError{Op: "save_session", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO searches
		(id, target_key, target_name, target_data, status, rounds, attempts, num_comparables, data, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID,
		snap.TargetKey,
		snap.Target.Name,
		marshalJSON(snap.Target),
		string(snap.Status),
		snap.Rounds,
		snap.AttemptsUsed,
		len(snap.Accepted),
		marshalJSON(snap),
		timeToString(snap.StartedAt),
		timeToString(snap.CompletedAt),
	); err != nil {
		return &comps.PersistenceError{Op: "save_session", Err: err}
	}

	for rank, sc := range snap.Accepted {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO comparables
			(search_id, rank, name, ticker, exchange, composite_score, data)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snap.ID,
			rank+1,
			sc.Candidate.Name,
			sc.Candidate.Ticker,
			sc.Candidate.Exchange,
			sc.CompositeScore,
			marshalJSON(sc),
		); err != nil {
			return &comps.PersistenceError{Op: "save_comparable", Err: err}
		}
	}

	now := timeToString(snap.CompletedAt)
	for _, sc := range snap.Accepted {
		if err := upsertCompany(ctx, tx, sc.Candidate, true, now, sc); err != nil {
			return &comps.PersistenceError{Op: "save_company", Err: err}
		}
	}
	for _, r := range snap.Rejected {
		// Only a listing-status rejection tells us something durable
		// about the company itself.
		if r.FailingCheck != comps.CheckPublicStatus {
			continue
		}
		if err := upsertCompany(ctx, tx, r.Candidate, false, now, r); err != nil {
			return &comps.PersistenceError{Op: "save_company", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &comps.PersistenceError{Op: "save_session", Err: err}
	}
	return nil
}

func upsertCompany(ctx context.Context, tx *sqlx.Tx, c comps.Candidate, isPublic bool, verifiedAt string, detail any) error {
	_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO companies
		(name, display_name, ticker, exchange, is_public, last_verified, verification_data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.NormalizedName(),
		c.Name,
		c.Ticker,
		c.Exchange,
		boolToInt(isPublic),
		verifiedAt,
		marshalJSON(detail),
	)
	return err
}

// FindCached returns the most recent satisfied session for the target key,
// or nil when the target has not been searched successfully before.
func (s *SQLiteStore) FindCached(ctx context.Context, targetKey string) (*comps.SessionSnapshot, error) {
	var blob string
	err := s.db.GetContext(ctx, &blob,
		`SELECT data FROM searches WHERE target_key = ? AND status = ? ORDER BY completed_at DESC LIMIT 1`,
		targetKey, string(comps.StatusSatisfied))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &comps.PersistenceError{Op: "find_cached", Err: err}
	}
	return unmarshalSnapshot(blob)
}

// GetSearch loads one stored session by id.
func (s *SQLiteStore) GetSearch(ctx context.Context, id string) (*comps.SessionSnapshot, error) {
	var blob string
	err := s.db.GetContext(ctx, &blob, `SELECT data FROM searches WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &comps.PersistenceError{Op: "get_search", Err: err}
	}
	return unmarshalSnapshot(blob)
}

// SearchSummary is one row of the search history listing.
type SearchSummary struct {
	ID             string `db:"id" json:"id"`
	TargetName     string `db:"target_name" json:"target_name"`
	Status         string `db:"status" json:"status"`
	Rounds         int    `db:"rounds" json:"rounds"`
	NumComparables int    `db:"num_comparables" json:"num_comparables"`
	CompletedAt    string `db:"completed_at" json:"completed_at"`
}

func (s *SQLiteStore) ListSearches(ctx context.Context, limit int) ([]SearchSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []SearchSummary{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, target_name, status, rounds, num_comparables, completed_at
		 FROM searches ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &comps.PersistenceError{Op: "list_searches", Err: err}
	}
	return out, nil
}

// CompanyRecord is one verified entry from the company cache.
type CompanyRecord struct {
	Name         string `db:"name" json:"name"`
	DisplayName  string `db:"display_name" json:"display_name"`
	Ticker       string `db:"ticker" json:"ticker"`
	Exchange     string `db:"exchange" json:"exchange"`
	IsPublic     bool   `db:"-" json:"is_public"`
	IsPublicInt  int    `db:"is_public" json:"-"`
	LastVerified string `db:"last_verified" json:"last_verified"`
}

func (s *SQLiteStore) SearchCompanies(ctx context.Context, query string, limit int) ([]CompanyRecord, error) {
	if limit <= 0 {
		limit = 25
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	out := []CompanyRecord{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT name, display_name, ticker, exchange, is_public, last_verified
		 FROM companies WHERE name LIKE ? OR lower(ticker) LIKE ?
		 ORDER BY name LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, &comps.PersistenceError{Op: "search_companies", Err: err}
	}
	for i := range out {
		out[i].IsPublic = out[i].IsPublicInt != 0
	}
	return out, nil
}

// CompanyInfo looks up one company by name in the cache; nil when unknown.
func (s *SQLiteStore) CompanyInfo(ctx context.Context, name string) (*CompanyRecord, error) {
	var rec CompanyRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT name, display_name, ticker, exchange, is_public, last_verified FROM companies WHERE name = ?`,
		comps.NormalizeName(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &comps.PersistenceError{Op: "company_info", Err: err}
	}
	rec.IsPublic = rec.IsPublicInt != 0
	return &rec, nil
}

// Stats summarizes what the store holds.
type Stats struct {
	Searches        int `json:"searches"`
	Comparables     int `json:"comparables"`
	CachedCompanies int `json:"cached_companies"`
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.GetContext(ctx, &st.Searches, `SELECT COUNT(*) FROM searches`); err != nil {
		return st, &comps.PersistenceError{Op: "stats", Err: err}
	}
	if err := s.db.GetContext(ctx, &st.Comparables, `SELECT COUNT(*) FROM comparables`); err != nil {
		return st, &comps.PersistenceError{Op: "stats", Err: err}
	}
	if err := s.db.GetContext(ctx, &st.CachedCompanies, `SELECT COUNT(*) FROM companies`); err != nil {
		return st, &comps.PersistenceError{Op: "stats", Err: err}
	}
	return st, nil
}

func unmarshalSnapshot(blob string) (*comps.SessionSnapshot, error) {
	var snap comps.SessionSnapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return nil, &comps.PersistenceError{Op: "decode_session", Err: err}
	}
	return &snap, nil
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure the store satisfies the controller's persistence contract.
var _ comps.SessionStore = (*SQLiteStore)(nil)
