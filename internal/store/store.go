package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/tapline/happyhour-cli/internal/model"
)

// ErrNotFound is returned by lookups when no row matches. Serve handlers
// map it to a 404.
var ErrNotFound = eris.New("store: not found")

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	Status      model.AnalysisStatus `json:"status,omitempty"`
	VenueName   string               `json:"venue_name,omitempty"`
	NeedsReview bool                 `json:"needs_review,omitempty"`
	Limit       int                  `json:"limit,omitempty"`
	Offset      int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for consensus analyses.
type Store interface {
	// Analyses
	CreateAnalysis(ctx context.Context, venue model.Venue, category string) (*model.Analysis, error)
	UpdateAnalysisStatus(ctx context.Context, analysisID string, status model.AnalysisStatus) error
	SaveResult(ctx context.Context, analysisID string, result *model.ConsensusResult) error
	FailAnalysis(ctx context.Context, analysisID string, reason string) error
	GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)

	// Claims
	SaveClaims(ctx context.Context, analysisID string, claims []model.Claim) error
	GetClaims(ctx context.Context, analysisID string) ([]model.Claim, error)

	// Review queue
	ListReviewQueue(ctx context.Context, limit int) ([]model.Analysis, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
