package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tapline/happyhour-cli/internal/model"
	"github.com/tapline/happyhour-cli/internal/store"
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect analysis history",
	Long:  "Commands for listing, viewing, and summarizing consensus analyses.",
}

// -- analyses list --

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		venue, _ := cmd.Flags().GetString("venue")
		needsReview, _ := cmd.Flags().GetBool("needs-review")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.AnalysisFilter{
			Status:      model.AnalysisStatus(status),
			VenueName:   venue,
			NeedsReview: needsReview,
			Limit:       limit,
		}

		analyses, err := st.ListAnalyses(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "analyses list")
		}

		if len(analyses) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		formatAnalysesList(os.Stdout, analyses)
		return nil
	},
}

// -- analyses show --

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show full details of an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		a, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyses show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	},
}

// -- analyses stats --

var analysesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate analysis statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		filter := store.AnalysisFilter{Limit: 10000} // high limit for stats
		analyses, err := st.ListAnalyses(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "analyses stats")
		}

		stats := computeAnalysisStats(analyses)
		formatAnalysisStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	analysesListCmd.Flags().String("status", "", "filter by status (queued, running, complete, failed)")
	analysesListCmd.Flags().String("venue", "", "filter by venue name")
	analysesListCmd.Flags().Bool("needs-review", false, "only analyses flagged for human review")
	analysesListCmd.Flags().Int("limit", 50, "max number of analyses to display")

	analysesCmd.AddCommand(analysesListCmd)
	analysesCmd.AddCommand(analysesShowCmd)
	analysesCmd.AddCommand(analysesStatsCmd)
	rootCmd.AddCommand(analysesCmd)
}

// analysisStats holds aggregate statistics computed from a set of analyses.
type analysisStats struct {
	Total         int
	Complete      int
	Failed        int
	NeedsReview   int
	AvgConfidence float64
	AvgComplete   float64
}

// computeAnalysisStats computes aggregate statistics from a list of analyses.
func computeAnalysisStats(analyses []model.Analysis) analysisStats {
	var s analysisStats
	s.Total = len(analyses)

	var confSum, complSum float64
	var withResult int

	for _, a := range analyses {
		switch a.Status {
		case model.AnalysisComplete:
			s.Complete++
		case model.AnalysisFailed:
			s.Failed++
		}
		if a.Result != nil {
			withResult++
			confSum += a.Result.OverallConfidence
			complSum += a.Result.Completeness
			if a.Result.NeedsHumanReview {
				s.NeedsReview++
			}
		}
	}

	if withResult > 0 {
		s.AvgConfidence = confSum / float64(withResult)
		s.AvgComplete = complSum / float64(withResult)
	}
	return s
}

// formatAnalysesList writes a tabular list of analyses to w.
func formatAnalysesList(out io.Writer, analyses []model.Analysis) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVENUE\tSTATUS\tCONFIDENCE\tREVIEW\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t----------\t------\t-------")

	for _, a := range analyses {
		venue := a.Venue.Name
		if len(venue) > 30 {
			venue = venue[:27] + "..."
		}

		conf := "-"
		review := ""
		if a.Result != nil {
			conf = fmt.Sprintf("%.2f", a.Result.OverallConfidence)
			if a.Result.NeedsHumanReview {
				review = "yes"
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(a.ID),
			venue,
			a.Status,
			conf,
			review,
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatAnalysisStats writes aggregate stats to w.
func formatAnalysisStats(out io.Writer, s analysisStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total analyses:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Needs review:\t%d\n", s.NeedsReview)
	if s.AvgConfidence > 0 {
		_, _ = fmt.Fprintf(w, "Avg confidence:\t%.2f\n", s.AvgConfidence)
		_, _ = fmt.Fprintf(w, "Avg completeness:\t%.2f\n", s.AvgComplete)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
