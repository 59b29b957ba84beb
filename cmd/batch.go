package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tapline/happyhour-cli/internal/consensus"
	"github.com/tapline/happyhour-cli/internal/ingest"
	"github.com/tapline/happyhour-cli/internal/model"
	"github.com/tapline/happyhour-cli/internal/store"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze venues from a batch claims file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		jobs, err := ingest.ReadBatchFile(ctx, batchFile)
		if err != nil {
			return err
		}

		engine, err := initEngine()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		return processBatch(ctx, jobs, batchLimit, cfg.Batch.MaxConcurrentVenues, engine, st)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "path to batch JSON file (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of venues to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// processBatch applies limit, then analyzes jobs concurrently. Individual
// venue failures are recorded on the analysis row and do not abort the batch.
func processBatch(ctx context.Context, jobs []ingest.Job, limit, concurrency int, engine *consensus.Engine, st store.Store) error {
	if len(jobs) == 0 {
		zap.L().Info("no venues in batch")
		return nil
	}

	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	zap.L().Info("processing batch",
		zap.Int("venues", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, job := range jobs {
		g.Go(func() error {
			log := zap.L().With(zap.String("venue", job.Venue.Name))

			a, err := st.CreateAnalysis(gctx, job.Venue, job.Category)
			if err != nil {
				failed.Add(1)
				log.Error("create analysis failed", zap.Error(err))
				return nil
			}
			if err := st.SaveClaims(gctx, a.ID, job.Claims); err != nil {
				failed.Add(1)
				log.Error("save claims failed", zap.Error(err))
				return nil
			}
			if err := st.UpdateAnalysisStatus(gctx, a.ID, model.AnalysisRunning); err != nil {
				log.Warn("update status failed", zap.Error(err))
			}

			result, err := engine.Compute(job.Claims, job.Category)
			if err != nil {
				failed.Add(1)
				log.Error("consensus failed", zap.Error(err))
				if fErr := st.FailAnalysis(gctx, a.ID, err.Error()); fErr != nil {
					log.Warn("failed to record analysis failure", zap.Error(fErr))
				}
				return nil // don't abort batch on individual failure
			}
			if job.Venue.Name != "" {
				result.VenueName = job.Venue.Name
			}

			if err := st.SaveResult(gctx, a.ID, result); err != nil {
				failed.Add(1)
				log.Error("save result failed", zap.Error(err))
				return nil
			}

			succeeded.Add(1)
			log.Info("analysis complete",
				zap.String("analysis_id", a.ID),
				zap.Float64("overall_confidence", result.OverallConfidence),
				zap.Bool("needs_review", result.NeedsHumanReview),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
