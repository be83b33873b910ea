package core

// commit.go implements the confirmation/commit engine. It consumes every
// row currently in ready status and creates one canonical asset record per
// row, with three guarantees:
//
//   - at-most-once per row: a row already created is never reprocessed;
//   - independent failure isolation: one row's write failure never aborts
//     the others, every failure is reported with a human-readable cause;
//   - exactly-once accounting: the batch counters are written once, under
//     the per-batch lock, and the batch reaches confirmed only after every
//     eligible row has been attempted.
//
// Rows are processed in row-index order so that two ready rows resolving to
// the same patrimony key cannot race: the second collides deterministically
// and lands in the failure list.

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Confirm commits a batch: every ready row (including duplicates the
// operator overrode into ready) is attempted exactly once. Rows that were
// never ready are skipped and counted, not attempted.
//
// Invoking Confirm on an already-confirmed batch returns the stored prior
// result unchanged; commit never re-executes.
func (s *Service) Confirm(ctx context.Context, batchID string) (*CommitResult, error) {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if batch.Status == BatchConfirmed {
		if batch.Result != nil {
			return batch.Result, nil
		}
		return &CommitResult{Created: batch.Created, Skipped: batch.Skipped}, nil
	}
	if batch.Status.Terminal() {
		return nil, fmt.Errorf("confirm batch %s: %w", batchID, ErrBatchTerminal)
	}

	rows, err := s.store.ListRows(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}

	logger := slog.Default().With("batch_id", batchID)
	result := &CommitResult{}

	// Keys committed in this run; the second colliding row is rejected
	// instead of creating a second canonical record for the same key.
	committedKeys := make(map[string]bool)

	var created, errored int
	for i := range rows {
		r := &rows[i]

		switch r.Status {
		case RowCreated:
			// Committed by an earlier attempt. Never reprocessed.
			created++
			continue
		case RowError:
			errored++
			continue
		case RowReady:
			// attempt below
		default:
			// pending or unresolved duplicate: skipped, never attempted
			continue
		}

		key := NormalizeKey(r.PatrimonyNumber)
		if key != "" && committedKeys[key] {
			result.Failures = append(result.Failures, RowFailure{
				RowIndex:  r.Index,
				Patrimony: r.PatrimonyNumber,
				Reason:    "another row in this batch already created an asset with this patrimony number",
			})
			continue
		}

		assetID, err := s.store.CreateAsset(ctx, assetFromRow(r))
		if err != nil {
			// The row keeps its pre-commit status and stays eligible for a
			// future attempt; the cause is reported, not retried here.
			logger.Warn("asset creation failed",
				"row_index", r.Index,
				"patrimony", r.PatrimonyNumber,
				"error", err,
			)
			result.Failures = append(result.Failures, RowFailure{
				RowIndex:  r.Index,
				Patrimony: r.PatrimonyNumber,
				Reason:    FriendlyCommitError(err),
			})
			continue
		}

		if key != "" {
			committedKeys[key] = true
		}

		r.AssetID = assetID
		transitionRow(r, RowCreated, "")
		if err := s.store.UpdateRow(ctx, r); err != nil {
			// The asset exists; only the row record lags behind.
			logger.Error("row status update failed after asset creation",
				"row_index", r.Index,
				"asset_id", assetID,
				"error", err,
			)
		}
		created++
	}

	result.Created = created
	result.Skipped = batch.RowCount - created - errored

	now := time.Now().UTC()
	batch.Created = created
	batch.Errored = errored
	batch.Skipped = result.Skipped
	batch.Status = BatchConfirmed
	batch.ConfirmedAt = &now
	batch.UpdatedAt = now
	batch.Result = result

	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		// Created rows keep their status, so a retried Confirm counts them
		// without reprocessing.
		return nil, fmt.Errorf("finalize batch: %w", err)
	}

	logger.Info("batch confirmed",
		"created", result.Created,
		"skipped", result.Skipped,
		"errored", errored,
		"failures", len(result.Failures),
	)
	return result, nil
}

// assetFromRow builds the canonical record for a committable row.
func assetFromRow(r *ImportRow) *Asset {
	return &Asset{
		PatrimonyNumber: r.PatrimonyNumber,
		Description:     r.Description,
		SerialNumber:    r.SerialNumber,
		Brand:           r.Brand,
		Condition:       r.Condition,
		Value:           r.Value,
		LocationID:      r.LocationID,
		CategoryID:      r.CategoryID,
		Notes:           r.Notes,
		BatchID:         r.BatchID,
	}
}
