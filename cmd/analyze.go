package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tapline/happyhour-cli/internal/ingest"
	"github.com/tapline/happyhour-cli/internal/model"
)

var (
	analyzeClaimsFile string
	analyzeVenue      string
	analyzeCategory   string
	analyzeNoSave     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run consensus analysis for a single venue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		claims, err := ingest.ReadClaimsFile(ctx, analyzeClaimsFile)
		if err != nil {
			return err
		}

		engine, err := initEngine()
		if err != nil {
			return err
		}

		result, err := engine.Compute(claims, analyzeCategory)
		if err != nil {
			return eris.Wrap(err, "compute consensus")
		}
		if analyzeVenue != "" {
			result.VenueName = analyzeVenue
		}

		if !analyzeNoSave {
			if err := persistAnalysis(ctx, result, claims, analyzeCategory); err != nil {
				return err
			}
		}

		zap.L().Info("analysis complete",
			zap.String("venue", result.VenueName),
			zap.Float64("overall_confidence", result.OverallConfidence),
			zap.Float64("completeness", result.Completeness),
			zap.Bool("needs_review", result.NeedsHumanReview),
		)

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// persistAnalysis records the claims and result as one completed analysis.
func persistAnalysis(ctx context.Context, result *model.ConsensusResult, claims []model.Claim, category string) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	a, err := st.CreateAnalysis(ctx, model.Venue{Name: result.VenueName, Category: category}, category)
	if err != nil {
		return err
	}
	if err := st.SaveClaims(ctx, a.ID, claims); err != nil {
		return err
	}
	if err := st.SaveResult(ctx, a.ID, result); err != nil {
		return err
	}

	zap.L().Info("analysis saved", zap.String("analysis_id", a.ID), zap.String("result_id", result.ID))
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeClaimsFile, "claims", "", "path to claims JSON file (required)")
	analyzeCmd.Flags().StringVar(&analyzeVenue, "venue", "", "venue name override")
	analyzeCmd.Flags().StringVar(&analyzeCategory, "category", "default", "venue category for recency half-life")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "print result without persisting")
	_ = analyzeCmd.MarkFlagRequired("claims")
	rootCmd.AddCommand(analyzeCmd)
}
