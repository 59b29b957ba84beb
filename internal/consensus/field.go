package consensus

import (
	"sort"
	"time"

	"github.com/tapline/happyhour-cli/internal/model"
)

// candidate is one post-normalization value bucket for a field, with the
// claims that support it and its accumulated component weights.
type candidate struct {
	key    string // canonical form of the value
	value  model.Value
	claims []model.Claim

	support          float64
	sourceWeightSum  float64
	recencyWeightSum float64
	specificityBonus float64
	penalty          float64

	lastObserved time.Time
}

// score is the candidate's final standing: support minus what the rest of
// the field's evidence holds against it.
func (c *candidate) score() float64 {
	return c.support - c.penalty
}

// resolveField computes consensus for all claims sharing one field path.
// Claims are bucketed by canonical value, each bucket's support is the sum
// of its claims' composite weights, and every bucket is penalized by the
// weighted disagreement of all other buckets. The second return is the
// post-penalty score gap between the top two candidates, for ambiguity
// reporting.
func (e *Engine) resolveField(fieldPath string, claims []model.Claim, halfLifeDays int, now time.Time) (model.FieldConfidence, float64) {
	cands := e.bucketClaims(claims, halfLifeDays, now)

	// Contradiction penalty: for each candidate, every claim backing a
	// different candidate counts against it, scaled by that claim's source
	// reliability and recency. Reliable recent disagreement suppresses a
	// candidate even when its own support is high.
	for _, c := range cands {
		for _, other := range cands {
			if other.key == c.key {
				continue
			}
			for _, claim := range other.claims {
				w := e.cfg.sourceWeight(claim.SourceType) *
					recencyWeight(claim.ObservedAt, now, halfLifeDays)
				c.penalty += w * e.cfg.ContradictionPenalty
			}
		}
	}

	winner := pickWinner(cands)

	supporting := make([]string, 0, len(winner.claims))
	for _, claim := range winner.claims {
		supporting = append(supporting, claim.ID)
	}
	var conflicting []string
	for _, c := range cands {
		if c.key == winner.key {
			continue
		}
		for _, claim := range c.claims {
			conflicting = append(conflicting, claim.ID)
		}
	}
	sort.Strings(conflicting)

	return model.FieldConfidence{
		FieldPath:            fieldPath,
		FieldValue:           winner.value,
		Confidence:           sigmoid(winner.score()),
		SupportingClaims:     supporting,
		ConflictingClaims:    conflicting,
		SourceWeightSum:      winner.sourceWeightSum,
		RecencyWeightSum:     winner.recencyWeightSum,
		SpecificityBonus:     winner.specificityBonus,
		ContradictionPenalty: winner.penalty,
	}, scoreGap(cands)
}

// bucketClaims groups a field's claims into candidates by canonical value
// and accumulates each claim's composite weight into its bucket. Buckets are
// returned sorted by canonical key so iteration order is deterministic.
func (e *Engine) bucketClaims(claims []model.Claim, halfLifeDays int, now time.Time) []*candidate {
	byKey := make(map[string]*candidate)
	for _, claim := range claims {
		key := claim.FieldValue.Canonical()
		c, ok := byKey[key]
		if !ok {
			c = &candidate{key: key, value: claim.FieldValue}
			byKey[key] = c
		}

		wSource := e.cfg.sourceWeight(claim.SourceType)
		wRecency := recencyWeight(claim.ObservedAt, now, halfLifeDays)
		wSpecificity := e.cfg.specificityMultiplier(claim.Specificity)
		wModality := e.cfg.modalityMultiplier(claim.Modality)

		c.support += wSource * wRecency * wSpecificity * wModality * claim.Confidence
		c.sourceWeightSum += wSource
		c.recencyWeightSum += wRecency
		c.specificityBonus += wSpecificity
		c.claims = append(c.claims, claim)
		if claim.ObservedAt.After(c.lastObserved) {
			c.lastObserved = claim.ObservedAt
		}
	}

	cands := make([]*candidate, 0, len(byKey))
	for _, c := range byKey {
		cands = append(cands, c)
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].key < cands[j].key })
	return cands
}

// pickWinner selects the max-score candidate. Exact ties break toward the
// candidate with the most recent supporting observation, then toward the
// lexicographically smaller canonical value.
func pickWinner(cands []*candidate) *candidate {
	winner := cands[0]
	for _, c := range cands[1:] {
		s, ws := c.score(), winner.score()
		switch {
		case s > ws:
			winner = c
		case s == ws:
			if c.lastObserved.After(winner.lastObserved) {
				winner = c
			} else if c.lastObserved.Equal(winner.lastObserved) && c.key < winner.key {
				winner = c
			}
		}
	}
	return winner
}

// scoreGap returns the difference between the top two candidate scores, or
// +Inf when there is a single candidate. A gap under the configured minimum
// marks the field as ambiguous for review gating.
func scoreGap(cands []*candidate) float64 {
	if len(cands) < 2 {
		return inf
	}
	scores := make([]float64, len(cands))
	for i, c := range cands {
		scores[i] = c.score()
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	return scores[0] - scores[1]
}
