package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tapline/happyhour-cli/internal/model"
)

func fieldConf(path string, conf float64, conflicting ...string) model.FieldConfidence {
	return model.FieldConfidence{
		FieldPath:         path,
		FieldValue:        model.StringValue("v"),
		Confidence:        conf,
		ConflictingClaims: conflicting,
	}
}

func TestOverallConfidence_ImportanceWeighting(t *testing.T) {
	rules := DefaultConfig().FieldImportance
	fields := []model.FieldConfidence{
		fieldConf("status", 1.0),
		fieldConf("fine_print.blackouts", 0.0),
	}

	// status weighs 3.0, fine_print 1.0 → (3.0*1.0 + 1.0*0.0) / 4.0.
	assert.InDelta(t, 0.75, overallConfidence(fields, rules), 1e-9)
}

func TestOverallConfidence_UnmatchedPrefixWeighsOne(t *testing.T) {
	rules := DefaultConfig().FieldImportance
	fields := []model.FieldConfidence{
		fieldConf("name", 0.4),
	}
	assert.InDelta(t, 0.4, overallConfidence(fields, rules), 1e-9)
}

func TestOverallConfidence_Empty(t *testing.T) {
	assert.Equal(t, 0.0, overallConfidence(nil, DefaultConfig().FieldImportance))
}

func TestCompletenessScore(t *testing.T) {
	expected := DefaultConfig().ExpectedFields // 6 entries

	tests := []struct {
		name  string
		paths []string
		want  float64
	}{
		{"nothing resolved", nil, 0.0},
		{"status only", []string{"status"}, 1.0 / 6.0},
		{
			"schedule paths count once",
			[]string{"schedule.monday[0].start", "schedule.monday[0].end", "schedule.friday[0].start"},
			1.0 / 6.0,
		},
		{
			"full checklist",
			[]string{
				"status", "schedule.monday[0].start", "offers.drinks[0].item",
				"offers.food[0].item", "areas[0]", "dine_in_only",
			},
			1.0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, completenessScore(tc.paths, expected), 1e-9)
		})
	}
}

func TestAssessReview_AllClear(t *testing.T) {
	triggers := DefaultConfig().Review
	fields := []model.FieldConfidence{
		fieldConf("status", 0.9),
		fieldConf("schedule.monday[0].start", 0.85),
	}
	claims := []model.Claim{
		claim("a", model.SourceWebsite, "status", model.StringValue("active"), 0.9, 0),
		claim("b", model.SourcePhoneCall, "schedule.monday[0].start", model.StringValue("15:00"), 0.9, 0),
	}

	needs, reasons := assessReview(fields, claims, 0.88, 0.8, triggers)
	assert.False(t, needs)
	assert.Empty(t, reasons)
}

func TestAssessReview_CollectsEveryFiredTrigger(t *testing.T) {
	triggers := DefaultConfig().Review
	fields := []model.FieldConfidence{
		fieldConf("status", 0.5, "conflict-1"),
	}
	claims := []model.Claim{
		claim("a", model.SourceYelpReview, "status", model.StringValue("active"), 0.5, 0),
	}

	needs, reasons := assessReview(fields, claims, 0.5, 0.2, triggers)
	assert.True(t, needs)

	// Low confidence, low completeness, single source, 100% contradiction
	// rate, and one ambiguous field: five reasons, all reported.
	assert.Len(t, reasons, 5)
	assert.Contains(t, reasons[0], "low overall confidence")
	assert.Contains(t, reasons[1], "incomplete data")
	assert.Contains(t, reasons[2], "insufficient sources")
	assert.Contains(t, reasons[3], "high contradiction rate")
	assert.Contains(t, reasons[4], "ambiguous fields: status")
}

func TestAssessReview_AmbiguousFieldIndependentOfRate(t *testing.T) {
	triggers := DefaultConfig().Review
	// Ten fields, one contested: contradiction rate 0.1 stays under the
	// 0.3 ceiling, but the contested low-confidence field still fires the
	// ambiguity trigger on its own.
	var fields []model.FieldConfidence
	for _, p := range []string{
		"schedule.monday[0].start", "schedule.monday[0].end", "schedule.tuesday[0].start",
		"schedule.tuesday[0].end", "offers.drinks[0].item", "offers.drinks[0].happy_hour_price",
		"offers.food[0].item", "areas[0]", "dine_in_only",
	} {
		fields = append(fields, fieldConf(p, 0.9))
	}
	fields = append(fields, fieldConf("status", 0.6, "conflict-1"))

	claims := []model.Claim{
		claim("a", model.SourceWebsite, "status", model.StringValue("active"), 0.9, 0),
		claim("b", model.SourcePhoneCall, "status", model.StringValue("seasonal"), 0.9, 0),
	}

	needs, reasons := assessReview(fields, claims, 0.87, 1.0, triggers)
	assert.True(t, needs)
	assert.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "ambiguous fields: status")
}

func TestValidateResult(t *testing.T) {
	good := &model.ConsensusResult{
		OverallConfidence: 0.9,
		Completeness:      0.8,
		SourceDiversity:   3,
		FieldConfidences: []model.FieldConfidence{
			fieldConf("status", 0.9),
		},
	}
	assert.Empty(t, ValidateResult(good))

	bad := &model.ConsensusResult{
		OverallConfidence: 0.3,
		Completeness:      0.2,
		SourceDiversity:   1,
		FieldConfidences: []model.FieldConfidence{
			fieldConf("status", 0.4),
			fieldConf("areas[0]", 0.5),
		},
	}
	issues := ValidateResult(bad)
	assert.Len(t, issues, 4)
	assert.Contains(t, issues[2], "low confidence fields: status, areas[0]")
}
