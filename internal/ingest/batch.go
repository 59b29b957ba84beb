package ingest

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tapline/happyhour-cli/internal/model"
)

// Job pairs one venue's metadata with the claims gathered about it.
// Batch files are JSON arrays of jobs, one per venue.
type Job struct {
	Venue    model.Venue   `json:"venue"`
	Category string        `json:"category,omitempty"`
	Claims   []model.Claim `json:"claims"`
}

// validate backfills claim IDs and drops invalid claims, mirroring the
// single-file ingest path.
func (j *Job) validate() {
	kept := j.Claims[:0]
	for _, c := range j.Claims {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if err := c.Validate(); err != nil {
			zap.L().Warn("ingest: skipping invalid claim",
				zap.String("venue", j.Venue.Name),
				zap.String("claim_id", c.ID),
				zap.Error(err),
			)
			continue
		}
		kept = append(kept, c)
	}
	j.Claims = kept
}

// ReadBatch streams jobs from a batch file reader. Jobs with no valid
// claims are dropped with a warning.
func ReadBatch(ctx context.Context, r io.Reader) ([]Job, error) {
	outCh, errCh := decodeJobs(ctx, r)

	var jobs []Job
	for j := range outCh {
		j.validate()
		if len(j.Claims) == 0 {
			zap.L().Warn("ingest: batch job has no usable claims",
				zap.String("venue", j.Venue.Name))
			continue
		}
		if j.Category == "" {
			j.Category = j.Venue.Category
		}
		jobs = append(jobs, j)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return jobs, nil
}

// ReadBatchFile reads a JSON batch file of per-venue jobs.
func ReadBatchFile(ctx context.Context, path string) ([]Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	jobs, err := ReadBatch(ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	return jobs, nil
}

func decodeJobs(ctx context.Context, r io.Reader) (<-chan Job, <-chan error) {
	return decodeArray[Job](ctx, r)
}
