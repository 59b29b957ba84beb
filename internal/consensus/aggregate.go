package consensus

import (
	"fmt"
	"strings"

	"github.com/tapline/happyhour-cli/internal/model"
)

// overallConfidence is the importance-weighted mean of field confidences.
// A field's weight comes from the first matching prefix rule; unmatched
// fields weigh 1.0. Getting "is happy hour active at all" right matters
// more than fine print.
func overallConfidence(fields []model.FieldConfidence, rules []ImportanceRule) float64 {
	if len(fields) == 0 {
		return 0
	}
	var weighted, weights float64
	for _, fc := range fields {
		w := 1.0
		for _, rule := range rules {
			if strings.HasPrefix(fc.FieldPath, rule.Prefix) {
				w = rule.Weight
				break
			}
		}
		weighted += fc.Confidence * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return weighted / weights
}

// completenessScore is the fraction of the expected-field checklist covered
// by at least one resolved field path (prefix match). Fields with zero
// claims never resolve, which is exactly what drags this down.
func completenessScore(resolvedPaths []string, expected []string) float64 {
	if len(expected) == 0 {
		return 0
	}
	found := 0
	for _, exp := range expected {
		for _, path := range resolvedPaths {
			if strings.HasPrefix(path, exp) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(expected))
}

// assessReview applies every review trigger and collects a reason per fired
// trigger. One firing trigger is enough to require review; all of them are
// reported, not just the first.
func assessReview(
	fields []model.FieldConfidence,
	claims []model.Claim,
	overall, completeness float64,
	triggers ReviewTriggers,
) (bool, []string) {
	var reasons []string

	if overall < triggers.MinConfidence {
		reasons = append(reasons, fmt.Sprintf("low overall confidence: %.2f", overall))
	}
	if completeness < triggers.MinCompleteness {
		reasons = append(reasons, fmt.Sprintf("incomplete data: %.2f completeness", completeness))
	}
	if n := sourceDiversity(claims); n < triggers.MinSources {
		reasons = append(reasons, fmt.Sprintf("insufficient sources: %d unique source types", n))
	}

	if len(fields) > 0 {
		conflicted := 0
		for _, fc := range fields {
			if len(fc.ConflictingClaims) > 0 {
				conflicted++
			}
		}
		rate := float64(conflicted) / float64(len(fields))
		if rate > triggers.MaxContradictionRate {
			reasons = append(reasons, fmt.Sprintf("high contradiction rate: %.2f", rate))
		}
	}

	// A contested field that did not resolve decisively is surfaced on its
	// own, independent of the aggregate contradiction rate.
	var ambiguous []string
	for _, fc := range fields {
		if fc.Confidence < 0.8 && len(fc.ConflictingClaims) > 0 {
			ambiguous = append(ambiguous, fc.FieldPath)
		}
	}
	if len(ambiguous) > 0 {
		shown := ambiguous
		if len(shown) > 3 {
			shown = shown[:3]
		}
		reasons = append(reasons, fmt.Sprintf("ambiguous fields: %s", strings.Join(shown, ", ")))
	}

	return len(reasons) > 0, reasons
}

// ValidateResult returns advisory warnings about a computed result. These
// are softer than review triggers: hints for operators tuning evidence
// gathering, never gates.
func ValidateResult(result *model.ConsensusResult) []string {
	var issues []string

	if result.OverallConfidence < 0.5 {
		issues = append(issues, "very low overall confidence; consider gathering more evidence")
	}
	if result.Completeness < 0.4 {
		issues = append(issues, "very low completeness; many expected fields missing")
	}

	var lowFields []string
	for _, fc := range result.FieldConfidences {
		if fc.Confidence < 0.6 {
			lowFields = append(lowFields, fc.FieldPath)
		}
	}
	if len(lowFields) > 0 {
		shown := lowFields
		if len(shown) > 5 {
			shown = shown[:5]
		}
		issues = append(issues, fmt.Sprintf("low confidence fields: %s", strings.Join(shown, ", ")))
	}

	if result.SourceDiversity < 2 {
		issues = append(issues, "low source diversity; consider additional evidence channels")
	}

	return issues
}
