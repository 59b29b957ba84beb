package model

import "time"

// FieldConfidence is the consensus outcome for a single field path.
// Immutable once computed. Supporting and conflicting claim IDs partition
// every claim that shared the field path.
type FieldConfidence struct {
	FieldPath  string  `json:"field_path"`
	FieldValue Value   `json:"field_value"`
	Confidence float64 `json:"confidence"`

	SupportingClaims  []string `json:"supporting_claims"`
	ConflictingClaims []string `json:"conflicting_claims,omitempty"`

	// Raw component sums for the winning candidate, kept so a reviewer can
	// see why a value won.
	SourceWeightSum      float64 `json:"source_weight_sum"`
	RecencyWeightSum     float64 `json:"recency_weight_sum"`
	SpecificityBonus     float64 `json:"specificity_bonus"`
	ContradictionPenalty float64 `json:"contradiction_penalty"`
}

// ConsensusResult is the final aggregate for one analysis run. A later run
// over a different claim set produces a new result; nothing here is updated
// in place.
type ConsensusResult struct {
	ID        string `json:"result_id"`
	VenueName string `json:"venue_name"`

	Schedule Schedule `json:"schedule"`

	OverallConfidence float64           `json:"overall_confidence"`
	FieldConfidences  []FieldConfidence `json:"field_confidences"`
	Completeness      float64           `json:"completeness_score"`

	EvidenceCount   int `json:"evidence_count"`
	SourceDiversity int `json:"source_diversity"`

	NeedsHumanReview bool     `json:"needs_human_review"`
	ReviewReasons    []string `json:"review_reasons,omitempty"`

	CompiledAt time.Time `json:"compiled_at"`
	ClaimsUsed []string  `json:"claims_used,omitempty"`
}

// FieldConfidenceFor returns the resolved field for a path, or nil.
func (r *ConsensusResult) FieldConfidenceFor(path string) *FieldConfidence {
	for i := range r.FieldConfidences {
		if r.FieldConfidences[i].FieldPath == path {
			return &r.FieldConfidences[i]
		}
	}
	return nil
}

// AnalysisStatus is the lifecycle state of a stored analysis run.
type AnalysisStatus string

const (
	AnalysisQueued   AnalysisStatus = "queued"
	AnalysisRunning  AnalysisStatus = "running"
	AnalysisComplete AnalysisStatus = "complete"
	AnalysisFailed   AnalysisStatus = "failed"
)

// Analysis is one stored consensus run for one venue.
type Analysis struct {
	ID        string           `json:"id"`
	Venue     Venue            `json:"venue"`
	Category  string           `json:"category"`
	Status    AnalysisStatus   `json:"status"`
	Result    *ConsensusResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
