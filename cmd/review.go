package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tapline/happyhour-cli/internal/model"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List analyses flagged for human review",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("review"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		queue, err := st.ListReviewQueue(ctx, reviewLimit)
		if err != nil {
			return eris.Wrap(err, "review queue")
		}

		if len(queue) == 0 {
			fmt.Fprintln(os.Stderr, "Review queue is empty.")
			return nil
		}

		formatReviewQueue(os.Stdout, queue)
		return nil
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 50, "max number of entries to display")
	rootCmd.AddCommand(reviewCmd)
}

// formatReviewQueue writes flagged analyses with their reasons to w.
func formatReviewQueue(out io.Writer, queue []model.Analysis) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVENUE\tCONFIDENCE\tREASONS")
	_, _ = fmt.Fprintln(w, "--\t-----\t----------\t-------")

	for _, a := range queue {
		if a.Result == nil {
			continue
		}
		reasons := ""
		for i, r := range a.Result.ReviewReasons {
			if i > 0 {
				reasons += "; "
			}
			reasons += r
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n",
			truncateID(a.ID),
			a.Venue.Name,
			a.Result.OverallConfidence,
			reasons,
		)
	}
	_ = w.Flush()
}
