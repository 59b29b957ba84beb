package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tapline/happyhour-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id           TEXT PRIMARY KEY,
	venue        TEXT NOT NULL,
	category     TEXT NOT NULL DEFAULT 'default',
	status       TEXT NOT NULL DEFAULT 'queued',
	result       TEXT,
	error        TEXT,
	needs_review INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS claims (
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	id          TEXT NOT NULL,
	field_path  TEXT NOT NULL,
	source_type TEXT NOT NULL,
	payload     TEXT NOT NULL,
	observed_at DATETIME NOT NULL,
	PRIMARY KEY (analysis_id, id)
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_needs_review ON analyses(needs_review);
CREATE INDEX IF NOT EXISTS idx_analyses_venue ON analyses(venue);
CREATE INDEX IF NOT EXISTS idx_claims_analysis_id ON claims(analysis_id);
CREATE INDEX IF NOT EXISTS idx_claims_field_path ON claims(field_path);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, venue model.Venue, category string) (*model.Analysis, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	if category == "" {
		category = venue.Category
	}
	if category == "" {
		category = "default"
	}

	venueJSON, err := json.Marshal(venue)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal venue")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, venue, category, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(venueJSON), category, string(model.AnalysisQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert analysis")
	}

	return &model.Analysis{
		ID:        id,
		Venue:     venue,
		Category:  category,
		Status:    model.AnalysisQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateAnalysisStatus(ctx context.Context, analysisID string, status model.AnalysisStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update analysis status %s", analysisID)
	}
	return checkRowsAffected(res, "analysis", analysisID)
}

func (s *SQLiteStore) SaveResult(ctx context.Context, analysisID string, result *model.ConsensusResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	needsReview := 0
	if result.NeedsHumanReview {
		needsReview = 1
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET result = ?, status = ?, needs_review = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(model.AnalysisComplete), needsReview, time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save result %s", analysisID)
	}
	return checkRowsAffected(res, "analysis", analysisID)
}

func (s *SQLiteStore) FailAnalysis(ctx context.Context, analysisID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.AnalysisFailed), reason, time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail analysis %s", analysisID)
	}
	return checkRowsAffected(res, "analysis", analysisID)
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, venue, category, status, result, error, created_at, updated_at FROM analyses WHERE id = ?`,
		analysisID,
	)
	return scanAnalysis(row)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, venue, category, status, result, error, created_at, updated_at FROM analyses WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.VenueName != "" {
		query += ` AND json_extract(venue, '$.name') = ?`
		args = append(args, filter.VenueName)
	}
	if filter.NeedsReview {
		query += ` AND needs_review = 1`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) SaveClaims(ctx context.Context, analysisID string, claims []model.Claim) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save claims")
	}
	defer tx.Rollback()

	for _, c := range claims {
		payload, err := json.Marshal(c)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal claim %s", c.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO claims (analysis_id, id, field_path, source_type, payload, observed_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (analysis_id, id) DO UPDATE SET
			   field_path = excluded.field_path, source_type = excluded.source_type,
			   payload = excluded.payload, observed_at = excluded.observed_at`,
			analysisID, c.ID, c.FieldPath, string(c.SourceType), string(payload), c.ObservedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert claim %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save claims")
}

func (s *SQLiteStore) GetClaims(ctx context.Context, analysisID string) ([]model.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM claims WHERE analysis_id = ? ORDER BY id`,
		analysisID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get claims %s", analysisID)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claim")
		}
		var c model.Claim
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal claim")
		}
		claims = append(claims, c)
	}
	return claims, eris.Wrap(rows.Err(), "sqlite: get claims iterate")
}

func (s *SQLiteStore) ListReviewQueue(ctx context.Context, limit int) ([]model.Analysis, error) {
	return s.ListAnalyses(ctx, AnalysisFilter{
		Status:      model.AnalysisComplete,
		NeedsReview: true,
		Limit:       limit,
	})
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scannable) (*model.Analysis, error) {
	var a model.Analysis
	var venueJSON string
	var resultJSON, errMsg sql.NullString

	err := row.Scan(&a.ID, &venueJSON, &a.Category, &a.Status, &resultJSON, &errMsg, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan analysis")
	}

	if err := json.Unmarshal([]byte(venueJSON), &a.Venue); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal venue")
	}
	if resultJSON.Valid {
		a.Result = &model.ConsensusResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), a.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	if errMsg.Valid {
		a.Error = errMsg.String
	}
	return &a, nil
}
