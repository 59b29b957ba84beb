// Package ingest reads claim files produced by extraction agents and
// prepares them for consensus analysis.
package ingest

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tapline/happyhour-cli/internal/model"
)

// DecodeStream decodes a JSON array of claims streaming, sending each
// element to a channel. Expects input in the form [{...},{...}].
// Both channels are closed when processing completes.
func DecodeStream(ctx context.Context, r io.Reader) (<-chan model.Claim, <-chan error) {
	return decodeArray[model.Claim](ctx, r)
}

// decodeArray is the shared streaming decoder behind claim and batch
// ingestion.
func decodeArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		// Expect opening bracket
		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "ingest: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			errCh <- eris.Errorf("ingest: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}

			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "ingest: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}
		}

		// Consume closing bracket
		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "ingest: read closing token")
		}
	}()

	return outCh, errCh
}

// Collect drains a claim stream, backfilling missing IDs and dropping
// claims that fail validation. Invalid claims are logged and skipped
// rather than aborting the whole file: one bad agent extraction should
// not block an analysis.
func Collect(ctx context.Context, r io.Reader) ([]model.Claim, error) {
	outCh, errCh := DecodeStream(ctx, r)

	var claims []model.Claim
	var skipped int
	for c := range outCh {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if err := c.Validate(); err != nil {
			skipped++
			zap.L().Warn("ingest: skipping invalid claim",
				zap.String("claim_id", c.ID),
				zap.String("field_path", c.FieldPath),
				zap.Error(err),
			)
			continue
		}
		claims = append(claims, c)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	if skipped > 0 {
		zap.L().Info("ingest: claims collected",
			zap.Int("accepted", len(claims)),
			zap.Int("skipped", skipped),
		)
	}
	return claims, nil
}

// ReadClaimsFile reads and validates every claim in a JSON array file.
func ReadClaimsFile(ctx context.Context, path string) ([]model.Claim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	claims, err := Collect(ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	return claims, nil
}
