package core

import (
	"context"
	"fmt"
	"time"
)

// BatchGetter is the read side a poller needs. Satisfied by *Service and by
// API clients.
type BatchGetter interface {
	GetBatch(ctx context.Context, batchID string) (*ImportBatch, error)
}

const (
	pollInitialInterval = 250 * time.Millisecond
	pollMaxInterval     = 5 * time.Second
)

// WaitProcessed polls until extraction and normalization have finished for
// the batch, returning the first snapshot with ProcessedAt set. A batch that
// turns terminal first (failed during extraction) is returned as-is.
func WaitProcessed(ctx context.Context, g BatchGetter, batchID string) (*ImportBatch, error) {
	return waitBatch(ctx, g, batchID, func(b *ImportBatch) bool {
		return b.ProcessedAt != nil || b.Terminal()
	})
}

// WaitTerminal polls until the batch reaches a terminal status.
func WaitTerminal(ctx context.Context, g BatchGetter, batchID string) (*ImportBatch, error) {
	return waitBatch(ctx, g, batchID, func(b *ImportBatch) bool {
		return b.Terminal()
	})
}

func waitBatch(ctx context.Context, g BatchGetter, batchID string, done func(*ImportBatch) bool) (*ImportBatch, error) {
	interval := pollInitialInterval
	for {
		batch, err := g.GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if done(batch) {
			return batch, nil
		}

		select {
		case <-ctx.Done():
			return batch, fmt.Errorf("waiting for batch %s: %w", batchID, ctx.Err())
		case <-time.After(interval):
		}

		interval *= 2
		if interval > pollMaxInterval {
			interval = pollMaxInterval
		}
	}
}
