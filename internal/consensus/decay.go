package consensus

import (
	"math"
	"time"
)

// recencyWeight computes the exponential decay factor for a claim's age:
// exp(-ageDays / halfLife). Age is floored at zero so claims observed in the
// future never amplify their own weight.
func recencyWeight(observedAt, now time.Time, halfLifeDays int) float64 {
	ageDays := now.Sub(observedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	halfLife := float64(halfLifeDays)
	if halfLife <= 0 {
		halfLife = 30
	}
	return math.Exp(-ageDays / halfLife)
}

var inf = math.Inf(1)

// sigmoid compresses an unbounded score onto (0,1). Scores around zero map
// near 0.5; a single strong source does not saturate confidence unless its
// weighted score is large.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
