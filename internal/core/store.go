package core

// store.go declares the persistence operations the pipeline needs. Any
// durable store that preserves the documented invariants satisfies it; the
// pgx implementation lives in internal/store, tests use an in-memory fake.

import "context"

// Store is the persistence boundary of the import pipeline.
//
// Implementations must return ErrBatchNotFound / ErrRowNotFound for missing
// records so callers can distinguish absence from infrastructure failure.
type Store interface {
	// CreateBatch persists a new batch record.
	CreateBatch(ctx context.Context, b *ImportBatch) error

	// GetBatch returns the batch or ErrBatchNotFound.
	GetBatch(ctx context.Context, id string) (*ImportBatch, error)

	// UpdateBatch persists batch mutations: status, counters, error message,
	// row count, processed/confirmed timestamps, and the stored commit result.
	UpdateBatch(ctx context.Context, b *ImportBatch) error

	// DeleteBatch removes the batch and cascades to its rows. Used only by
	// the explicit discard operation.
	DeleteBatch(ctx context.Context, id string) error

	// InsertRows persists the extracted rows of a batch in one shot.
	InsertRows(ctx context.Context, rows []ImportRow) error

	// ListRows returns all rows of a batch ordered by row index.
	ListRows(ctx context.Context, batchID string) ([]ImportRow, error)

	// GetRow returns one row by its composite identity or ErrRowNotFound.
	GetRow(ctx context.Context, batchID string, index int) (*ImportRow, error)

	// UpdateRow persists mutations of a single row.
	UpdateRow(ctx context.Context, r *ImportRow) error

	// UpdateRows persists mutations of many rows of one batch.
	UpdateRows(ctx context.Context, rows []ImportRow) error

	// PageRows returns one filtered, paginated slice of a batch's rows plus
	// the total count matching the filter.
	PageRows(ctx context.Context, batchID string, f RowFilter, page, pageSize int) (*RowPage, error)

	// Locations returns the canonical location registry.
	Locations(ctx context.Context) ([]Location, error)

	// Categories returns the canonical category registry.
	Categories(ctx context.Context) ([]Category, error)

	// AssetKeys returns, for each normalized patrimony key in keys, the id
	// of an existing canonical asset carrying it. Missing keys are absent
	// from the result map.
	AssetKeys(ctx context.Context, keys []string) (map[string]string, error)

	// CreateAsset persists a canonical asset record and returns its id.
	// Creation failures must surface the underlying cause; the commit
	// engine records them per row instead of aborting the batch.
	CreateAsset(ctx context.Context, a *Asset) (string, error)
}
