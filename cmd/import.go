package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tapline/happyhour-cli/internal/ingest"
	"github.com/tapline/happyhour-cli/internal/model"
)

var (
	importClaimsFile string
	importVenue      string
	importCategory   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import claims into a queued analysis without computing",
	Long:  "Stages a claims file against a new queued analysis so a later run (or the serve API) can compute consensus over it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		claims, err := ingest.ReadClaimsFile(ctx, importClaimsFile)
		if err != nil {
			return err
		}
		if len(claims) == 0 {
			return eris.Errorf("no valid claims in %s", importClaimsFile)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		a, err := st.CreateAnalysis(ctx, model.Venue{Name: importVenue, Category: importCategory}, importCategory)
		if err != nil {
			return eris.Wrap(err, "create analysis")
		}
		if err := st.SaveClaims(ctx, a.ID, claims); err != nil {
			return eris.Wrap(err, "save claims")
		}

		zap.L().Info("import complete",
			zap.String("analysis_id", a.ID),
			zap.Int("claims", len(claims)),
			zap.String("file", importClaimsFile),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importClaimsFile, "claims", "", "path to claims JSON file (required)")
	importCmd.Flags().StringVar(&importVenue, "venue", "", "venue name")
	importCmd.Flags().StringVar(&importCategory, "category", "default", "venue category")
	_ = importCmd.MarkFlagRequired("claims")
	rootCmd.AddCommand(importCmd)
}
