// Package consensus implements the evidence consensus engine: it resolves a
// heterogeneous set of timestamped, source-tagged claims about a venue's
// happy-hour fields into a single confidence-scored record.
package consensus

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tapline/happyhour-cli/internal/model"
)

// ReviewTriggers holds the thresholds that route a result to human review.
// Any single trigger firing is sufficient.
type ReviewTriggers struct {
	MinSources           int     `yaml:"min_sources" mapstructure:"min_sources"`
	MinCompleteness      float64 `yaml:"min_completeness" mapstructure:"min_completeness"`
	MaxContradictionRate float64 `yaml:"max_contradiction_rate" mapstructure:"max_contradiction_rate"`
	MinConfidence        float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// ImportanceRule weights fields by path prefix when averaging field
// confidences into the overall score. First matching prefix wins.
type ImportanceRule struct {
	Prefix string  `yaml:"prefix" mapstructure:"prefix"`
	Weight float64 `yaml:"weight" mapstructure:"weight"`
}

// Config is the full weight-table configuration for the engine. It is a pure
// value: inject one per engine rather than mutating shared tables.
type Config struct {
	// Reliability prior per evidence channel. Unknown source types fall
	// back to DefaultSourceWeight.
	SourceWeights       map[model.SourceType]float64 `yaml:"source_weights" mapstructure:"source_weights"`
	DefaultSourceWeight float64                      `yaml:"default_source_weight" mapstructure:"default_source_weight"`

	SpecificityMultipliers map[model.Specificity]float64 `yaml:"specificity_multipliers" mapstructure:"specificity_multipliers"`
	ModalityMultipliers    map[model.Modality]float64    `yaml:"modality_multipliers" mapstructure:"modality_multipliers"`

	// Recency decay half-lives in days, keyed by venue category. Unknown
	// categories silently use DefaultHalfLifeDays.
	HalfLifeDays        map[string]int `yaml:"half_life_days" mapstructure:"half_life_days"`
	DefaultHalfLifeDays int            `yaml:"default_half_life_days" mapstructure:"default_half_life_days"`

	// ContradictionPenalty scales how much disagreeing evidence suppresses
	// a candidate. MinScoreGap is the top-two score gap below which a field
	// counts as ambiguous.
	ContradictionPenalty float64 `yaml:"contradiction_penalty" mapstructure:"contradiction_penalty"`
	MinScoreGap          float64 `yaml:"min_score_gap" mapstructure:"min_score_gap"`

	Review ReviewTriggers `yaml:"review" mapstructure:"review"`

	FieldImportance []ImportanceRule `yaml:"field_importance" mapstructure:"field_importance"`

	// ExpectedFields is the completeness checklist: a field-path prefix per
	// entry, each counting once if any resolved field matches it.
	ExpectedFields []string `yaml:"expected_fields" mapstructure:"expected_fields"`
}

// DefaultConfig returns the production weight tables.
func DefaultConfig() Config {
	return Config{
		SourceWeights: map[model.SourceType]float64{
			// Owner/official.
			model.SourceWebsite:   1.0,
			model.SourcePhoneCall: 1.0,
			model.SourceEmail:     1.0,

			// Owner-managed platform content.
			model.SourceGooglePost:     0.85,
			model.SourceGoogleQA:       0.75,
			model.SourceResyEvent:      0.75,
			model.SourceOpenTableEvent: 0.75,
			model.SourceMenuPDF:        0.8,

			// Live menu aggregators.
			model.SourceUntappdMenu: 0.7,
			model.SourceBeerMenu:    0.7,

			// User-generated.
			model.SourceFacebookPost:  0.6,
			model.SourceInstagramPost: 0.55,
			model.SourceGoogleReview:  0.5,
			model.SourceYelpReview:    0.5,
			model.SourceYelpPhoto:     0.45,
			model.SourceInstagramCmnt: 0.4,
		},
		DefaultSourceWeight: 0.3,

		SpecificityMultipliers: map[model.Specificity]float64{
			model.SpecificityExact:       1.2,
			model.SpecificityApproximate: 1.0,
			model.SpecificityVague:       0.8,
			model.SpecificityImplied:     0.6,
		},
		ModalityMultipliers: map[model.Modality]float64{
			model.ModalityStructuredData: 1.15,
			model.ModalityVoice:          1.1,
			model.ModalityText:           1.0,
			model.ModalityImageOCR:       0.9,
		},

		HalfLifeDays: map[string]int{
			"sports_bar": 7,  // changes for game days
			"tourist":    3,  // tourist-area venues churn fastest
			"seasonal":   14,
			"chain":      60, // chains are the most stable
		},
		DefaultHalfLifeDays: 30,

		ContradictionPenalty: 0.15,
		MinScoreGap:          0.10,

		Review: ReviewTriggers{
			MinSources:           2,
			MinCompleteness:      0.6,
			MaxContradictionRate: 0.3,
			MinConfidence:        0.65,
		},

		FieldImportance: []ImportanceRule{
			{Prefix: "status", Weight: 3.0},
			{Prefix: "schedule", Weight: 2.5},
			{Prefix: "offers", Weight: 2.0},
			{Prefix: "areas", Weight: 1.5},
			{Prefix: "fine_print", Weight: 1.0},
		},

		ExpectedFields: []string{
			"status",
			"schedule.",
			"offers.drinks",
			"offers.food",
			"areas",
			"dine_in_only",
		},
	}
}

// Validate checks that a Config is internally consistent. A config that
// passes here can never produce an unresolvable lookup at compute time.
func (c Config) Validate() error {
	var errs []string

	if c.DefaultSourceWeight <= 0 {
		errs = append(errs, "default_source_weight must be > 0")
	}
	for st, w := range c.SourceWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("source_weights[%s] must be >= 0", st))
		}
	}
	for sp, m := range c.SpecificityMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("specificity_multipliers[%s] must be > 0", sp))
		}
	}
	for mo, m := range c.ModalityMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("modality_multipliers[%s] must be > 0", mo))
		}
	}
	if c.DefaultHalfLifeDays <= 0 {
		errs = append(errs, "default_half_life_days must be > 0")
	}
	for cat, d := range c.HalfLifeDays {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("half_life_days[%s] must be > 0", cat))
		}
	}
	if c.ContradictionPenalty < 0 {
		errs = append(errs, "contradiction_penalty must be >= 0")
	}
	if c.MinScoreGap < 0 {
		errs = append(errs, "min_score_gap must be >= 0")
	}
	if c.Review.MinSources < 1 {
		errs = append(errs, "review.min_sources must be >= 1")
	}
	if c.Review.MinCompleteness < 0 || c.Review.MinCompleteness > 1 {
		errs = append(errs, "review.min_completeness must be in [0,1]")
	}
	if c.Review.MaxContradictionRate < 0 || c.Review.MaxContradictionRate > 1 {
		errs = append(errs, "review.max_contradiction_rate must be in [0,1]")
	}
	if c.Review.MinConfidence < 0 || c.Review.MinConfidence > 1 {
		errs = append(errs, "review.min_confidence must be in [0,1]")
	}
	for _, rule := range c.FieldImportance {
		if rule.Prefix == "" {
			errs = append(errs, "field_importance prefix must be non-empty")
		}
		if rule.Weight <= 0 {
			errs = append(errs, fmt.Sprintf("field_importance[%s] weight must be > 0", rule.Prefix))
		}
	}
	if len(c.ExpectedFields) == 0 {
		errs = append(errs, "expected_fields must be non-empty")
	}

	if len(errs) > 0 {
		return eris.Errorf("consensus: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// halfLifeFor returns the decay half-life for a venue category, falling back
// to the default for unknown categories.
func (c Config) halfLifeFor(category string) int {
	if d, ok := c.HalfLifeDays[category]; ok {
		return d
	}
	return c.DefaultHalfLifeDays
}

// sourceWeight returns the reliability prior for a source type.
func (c Config) sourceWeight(st model.SourceType) float64 {
	if w, ok := c.SourceWeights[st]; ok {
		return w
	}
	return c.DefaultSourceWeight
}

// specificityMultiplier returns the multiplier for a specificity level,
// treating unlisted levels as neutral.
func (c Config) specificityMultiplier(sp model.Specificity) float64 {
	if m, ok := c.SpecificityMultipliers[sp]; ok {
		return m
	}
	return 1.0
}

// modalityMultiplier returns the multiplier for an extraction modality,
// treating unlisted modalities as neutral.
func (c Config) modalityMultiplier(mo model.Modality) float64 {
	if m, ok := c.ModalityMultipliers[mo]; ok {
		return m
	}
	return 1.0
}

// LoadConfig reads a weight-table YAML file. Zero-valued scalar fields fall
// back to the defaults so a partial file only overrides what it names.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "consensus: read config %s", path)
	}

	// The YAML has a top-level "consensus" key.
	var wrapper struct {
		Consensus Config `yaml:"consensus"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Config{}, eris.Wrap(err, "consensus: parse config")
	}

	// Zero is a valid setting for these two scalars (a no-penalty regime),
	// so presence in the file is detected separately from the value.
	var set struct {
		Consensus struct {
			ContradictionPenalty *float64 `yaml:"contradiction_penalty"`
			MinScoreGap          *float64 `yaml:"min_score_gap"`
		} `yaml:"consensus"`
	}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return Config{}, eris.Wrap(err, "consensus: parse config")
	}

	cfg := wrapper.Consensus
	def := DefaultConfig()
	if cfg.SourceWeights == nil {
		cfg.SourceWeights = def.SourceWeights
	}
	if cfg.DefaultSourceWeight == 0 {
		cfg.DefaultSourceWeight = def.DefaultSourceWeight
	}
	if cfg.SpecificityMultipliers == nil {
		cfg.SpecificityMultipliers = def.SpecificityMultipliers
	}
	if cfg.ModalityMultipliers == nil {
		cfg.ModalityMultipliers = def.ModalityMultipliers
	}
	if cfg.HalfLifeDays == nil {
		cfg.HalfLifeDays = def.HalfLifeDays
	}
	if cfg.DefaultHalfLifeDays == 0 {
		cfg.DefaultHalfLifeDays = def.DefaultHalfLifeDays
	}
	if set.Consensus.ContradictionPenalty == nil {
		cfg.ContradictionPenalty = def.ContradictionPenalty
	}
	if set.Consensus.MinScoreGap == nil {
		cfg.MinScoreGap = def.MinScoreGap
	}
	if cfg.Review == (ReviewTriggers{}) {
		cfg.Review = def.Review
	}
	if cfg.FieldImportance == nil {
		cfg.FieldImportance = def.FieldImportance
	}
	if cfg.ExpectedFields == nil {
		cfg.ExpectedFields = def.ExpectedFields
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
