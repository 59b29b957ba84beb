package consensus

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tapline/happyhour-cli/internal/model"
)

// ErrNoClaims is returned when Compute is called with an empty claim list.
// Sparse or contradictory claim sets are never an error; an empty one is.
var ErrNoClaims = eris.New("consensus: no claims to resolve")

// Engine resolves claims into a ConsensusResult. It owns no mutable state
// beyond its config, so one engine is safe for concurrent use across venues.
type Engine struct {
	cfg Config
	now time.Time // zero means wall clock at Compute time
}

// New creates an engine after validating the supplied config.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// WithNow pins the analysis time for deterministic tests. An unpinned
// engine evaluates every Compute against the clock at call time, so claim
// ages stay honest on a long-running server.
func (e *Engine) WithNow(t time.Time) *Engine {
	e.now = t
	return e
}

func (e *Engine) clock() time.Time {
	if e.now.IsZero() {
		return time.Now().UTC()
	}
	return e.now
}

// Compute runs the full consensus pipeline: group claims by field path,
// resolve each field, assemble the schedule, and gate the result for human
// review. The venue category only selects the recency half-life; unknown
// categories use the default.
func (e *Engine) Compute(claims []model.Claim, venueCategory string) (*model.ConsensusResult, error) {
	if len(claims) == 0 {
		return nil, ErrNoClaims
	}
	for i := range claims {
		if err := claims[i].Validate(); err != nil {
			return nil, eris.Wrapf(err, "consensus: claim %d invalid", i)
		}
	}

	now := e.clock()
	halfLife := e.cfg.halfLifeFor(venueCategory)
	byField := groupByField(claims)

	// Field paths resolved in sorted order so the result is bit-identical
	// across runs.
	paths := make([]string, 0, len(byField))
	for p := range byField {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fields := make([]model.FieldConfidence, 0, len(paths))
	for _, p := range paths {
		fc, gap := e.resolveField(p, byField[p], halfLife, now)
		fields = append(fields, fc)

		if gap < e.cfg.MinScoreGap {
			zap.L().Debug("consensus: ambiguous field",
				zap.String("field_path", p),
				zap.Float64("score_gap", gap),
			)
		}
	}

	overall := overallConfidence(fields, e.cfg.FieldImportance)
	completeness := completenessScore(paths, e.cfg.ExpectedFields)
	needsReview, reasons := assessReview(fields, claims, overall, completeness, e.cfg.Review)

	claimIDs := make([]string, len(claims))
	for i, c := range claims {
		claimIDs[i] = c.ID
	}
	sort.Strings(claimIDs)

	// The result ID is assigned by whoever persists the result; Compute
	// itself stays a pure function of (claims, category, config, now).
	result := &model.ConsensusResult{
		VenueName:         venueName(claims),
		Schedule:          assembleSchedule(fields),
		OverallConfidence: overall,
		FieldConfidences:  fields,
		Completeness:      completeness,
		EvidenceCount:     len(claims),
		SourceDiversity:   sourceDiversity(claims),
		NeedsHumanReview:  needsReview,
		ReviewReasons:     reasons,
		CompiledAt:        now,
		ClaimsUsed:        claimIDs,
	}

	zap.L().Info("consensus: computed",
		zap.String("venue", result.VenueName),
		zap.Int("claims", len(claims)),
		zap.Int("fields", len(fields)),
		zap.Float64("overall_confidence", overall),
		zap.Float64("completeness", completeness),
		zap.Bool("needs_review", needsReview),
	)

	return result, nil
}

// groupByField partitions claims by exact field-path equality. No fuzzy
// path reconciliation: agents own consistent path naming.
func groupByField(claims []model.Claim) map[string][]model.Claim {
	byField := make(map[string][]model.Claim)
	for _, c := range claims {
		byField[c.FieldPath] = append(byField[c.FieldPath], c)
	}
	return byField
}

// sourceDiversity counts distinct source types across all claims.
func sourceDiversity(claims []model.Claim) int {
	seen := make(map[model.SourceType]struct{})
	for _, c := range claims {
		seen[c.SourceType] = struct{}{}
	}
	return len(seen)
}

// venueName pulls the venue name from a "name" claim when present. Callers
// that know the venue from job context overwrite this.
func venueName(claims []model.Claim) string {
	for _, c := range claims {
		if c.FieldPath == "name" {
			if s, ok := c.FieldValue.AsString(); ok {
				return s
			}
		}
	}
	return ""
}
