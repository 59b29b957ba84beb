package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tapline/happyhour-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_analysis":        `INSERT INTO analyses (id, venue, category, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"update_analysis_status": `UPDATE analyses SET status = $1, updated_at = $2 WHERE id = $3`,
	"save_result":            `UPDATE analyses SET result = $1, status = $2, needs_review = $3, updated_at = $4 WHERE id = $5`,
	"get_analysis":           `SELECT id, venue, category, status, result, error, created_at, updated_at FROM analyses WHERE id = $1`,
	"get_claims":             `SELECT payload FROM claims WHERE analysis_id = $1 ORDER BY id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	venue        JSONB NOT NULL,
	category     TEXT NOT NULL DEFAULT 'default',
	status       TEXT NOT NULL DEFAULT 'queued',
	result       JSONB,
	error        TEXT,
	needs_review BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS claims (
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	id          TEXT NOT NULL,
	field_path  TEXT NOT NULL,
	source_type TEXT NOT NULL,
	payload     JSONB NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (analysis_id, id)
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_needs_review ON analyses(needs_review);
CREATE INDEX IF NOT EXISTS idx_analyses_venue_name ON analyses((venue->>'name'));
CREATE INDEX IF NOT EXISTS idx_claims_analysis_id ON claims(analysis_id);
CREATE INDEX IF NOT EXISTS idx_claims_field_path ON claims(field_path);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, venue model.Venue, category string) (*model.Analysis, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal venue")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, venue, category, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, venueJSON, category, string(model.AnalysisQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert analysis")
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

func (s *PostgresStore) UpdateAnalysisStatus(ctx context.Context, analysisID string, status model.AnalysisStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update analysis status %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("analysis not found: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, analysisID string, result *model.ConsensusResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET result = $1, status = $2, needs_review = $3, updated_at = $4 WHERE id = $5`,
		resultJSON, string(model.AnalysisComplete), result.NeedsHumanReview, time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save result %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("analysis not found: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) FailAnalysis(ctx context.Context, analysisID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.AnalysisFailed), reason, time.Now().UTC(), analysisID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail analysis %s", analysisID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("analysis not found: %s", analysisID)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error) {
	var a model.Analysis
	var venueJSON []byte
	var resultJSON *[]byte
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, venue, category, status, result, error, created_at, updated_at FROM analyses WHERE id = $1`,
		analysisID,
	).Scan(&a.ID, &venueJSON, &a.Category, &a.Status, &resultJSON, &errMsg, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", analysisID)
	}

	if err := json.Unmarshal(venueJSON, &a.Venue); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal venue")
	}
	if resultJSON != nil {
		a.Result = &model.ConsensusResult{}
		if err := json.Unmarshal(*resultJSON, a.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	if errMsg != nil {
		a.Error = *errMsg
	}
	return &a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, venue, category, status, result, error, created_at, updated_at FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.VenueName != "" {
		query += fmt.Sprintf(` AND venue->>'name' = $%d`, argIdx)
		args = append(args, filter.VenueName)
		argIdx++
	}
	if filter.NeedsReview {
		query += ` AND needs_review = true`
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		var a model.Analysis
		var venueJSON []byte
		var resultJSON *[]byte
		var errMsg *string

		if err := rows.Scan(&a.ID, &venueJSON, &a.Category, &a.Status, &resultJSON, &errMsg, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		if err := json.Unmarshal(venueJSON, &a.Venue); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal venue")
		}
		if resultJSON != nil {
			a.Result = &model.ConsensusResult{}
			if err := json.Unmarshal(*resultJSON, a.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal result")
			}
		}
		if errMsg != nil {
			a.Error = *errMsg
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) SaveClaims(ctx context.Context, analysisID string, claims []model.Claim) error {
	for _, c := range claims {
		payload, err := json.Marshal(c)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal claim %s", c.ID)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO claims (analysis_id, id, field_path, source_type, payload, observed_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (analysis_id, id) DO UPDATE SET
			   field_path = $3, source_type = $4, payload = $5, observed_at = $6`,
			analysisID, c.ID, c.FieldPath, string(c.SourceType), payload, c.ObservedAt.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert claim %s", c.ID)
		}
	}
	return nil
}

func (s *PostgresStore) GetClaims(ctx context.Context, analysisID string) ([]model.Claim, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM claims WHERE analysis_id = $1 ORDER BY id`,
		analysisID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get claims %s", analysisID)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan claim")
		}
		var c model.Claim
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal claim")
		}
		claims = append(claims, c)
	}
	return claims, eris.Wrap(rows.Err(), "postgres: get claims iterate")
}

func (s *PostgresStore) ListReviewQueue(ctx context.Context, limit int) ([]model.Analysis, error) {
	return s.ListAnalyses(ctx, AnalysisFilter{
		Status:      model.AnalysisComplete,
		NeedsReview: true,
		Limit:       limit,
	})
}

