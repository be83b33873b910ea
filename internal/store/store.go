// Package store implements the pipeline's persistence layer on PostgreSQL
// via pgx.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so the store works the
// same inside and outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL implementation of core.Store.
type Store struct {
	db DBTX
}

// New creates a Store over a pool or transaction.
func New(db DBTX) *Store {
	return &Store{db: db}
}

const batchColumns = `id, file_name, mime_type, size_bytes, row_count,
	created_count, skipped_count, errored_count, status, error_message,
	commit_result, created_at, updated_at, processed_at, confirmed_at`

func (s *Store) CreateBatch(ctx context.Context, b *core.ImportBatch) error {
	result, err := marshalResult(b.Result)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO import_batches (`+batchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		toPgUUID(b.ID), b.FileName, toPgText(b.MimeType), b.SizeBytes, b.RowCount,
		b.Created, b.Skipped, b.Errored, string(b.Status), b.Error,
		result, b.CreatedAt, b.UpdatedAt,
		toPgTimestamptz(b.ProcessedAt), toPgTimestamptz(b.ConfirmedAt),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, id string) (*core.ImportBatch, error) {
	pgID := toPgUUID(id)
	if !pgID.Valid {
		return nil, core.ErrBatchNotFound
	}

	row := s.db.QueryRow(ctx, `
		SELECT `+batchColumns+`
		FROM import_batches WHERE id = $1`, pgID)

	return scanBatch(row)
}

func (s *Store) UpdateBatch(ctx context.Context, b *core.ImportBatch) error {
	result, err := marshalResult(b.Result)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE import_batches SET
			row_count = $2, created_count = $3, skipped_count = $4,
			errored_count = $5, status = $6, error_message = $7,
			commit_result = $8, updated_at = $9, processed_at = $10,
			confirmed_at = $11
		WHERE id = $1`,
		toPgUUID(b.ID), b.RowCount, b.Created, b.Skipped,
		b.Errored, string(b.Status), b.Error,
		result, b.UpdatedAt, toPgTimestamptz(b.ProcessedAt),
		toPgTimestamptz(b.ConfirmedAt),
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrBatchNotFound
	}
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM import_batches WHERE id = $1`, toPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrBatchNotFound
	}
	return nil
}

const rowColumns = `batch_id, row_index, location_text, description,
	category_text, patrimony_number, serial_number, brand, condition,
	raw_value, notes, value, location_id, category_id, location_confirmed,
	category_confirmed, duplicate_override, status, error_message, asset_id`

func (s *Store) InsertRows(ctx context.Context, rows []core.ImportRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	sql := `
		INSERT INTO import_rows (` + rowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	for i := range rows {
		r := &rows[i]
		batch.Queue(sql,
			toPgUUID(r.BatchID), r.Index, r.LocationText, r.Description,
			r.CategoryText, r.PatrimonyNumber, r.SerialNumber, r.Brand,
			r.Condition, r.RawValue, r.Notes, toPgFloat8(r.Value),
			toPgUUID(r.LocationID), toPgUUID(r.CategoryID),
			r.LocationConfirmed, r.CategoryConfirmed, r.DuplicateOverride,
			string(r.Status), r.ErrorMessage, toPgUUID(r.AssetID),
		)
	}

	sender, ok := s.db.(interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	})
	if !ok {
		return errors.New("insert rows: connection does not support batching")
	}

	results := sender.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
	}
	return results.Close()
}

func (s *Store) ListRows(ctx context.Context, batchID string) ([]core.ImportRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+rowColumns+`
		FROM import_rows WHERE batch_id = $1
		ORDER BY row_index`, toPgUUID(batchID))
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer rows.Close()

	var out []core.ImportRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) GetRow(ctx context.Context, batchID string, index int) (*core.ImportRow, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+rowColumns+`
		FROM import_rows WHERE batch_id = $1 AND row_index = $2`,
		toPgUUID(batchID), index)

	r, err := scanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrRowNotFound
	}
	return r, err
}

func (s *Store) UpdateRow(ctx context.Context, r *core.ImportRow) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE import_rows SET
			location_text = $3, description = $4, category_text = $5,
			patrimony_number = $6, serial_number = $7, brand = $8,
			condition = $9, raw_value = $10, notes = $11, value = $12,
			location_id = $13, category_id = $14, location_confirmed = $15,
			category_confirmed = $16, duplicate_override = $17, status = $18,
			error_message = $19, asset_id = $20
		WHERE batch_id = $1 AND row_index = $2`,
		toPgUUID(r.BatchID), r.Index, r.LocationText, r.Description,
		r.CategoryText, r.PatrimonyNumber, r.SerialNumber, r.Brand,
		r.Condition, r.RawValue, r.Notes, toPgFloat8(r.Value),
		toPgUUID(r.LocationID), toPgUUID(r.CategoryID),
		r.LocationConfirmed, r.CategoryConfirmed, r.DuplicateOverride,
		string(r.Status), r.ErrorMessage, toPgUUID(r.AssetID),
	)
	if err != nil {
		return fmt.Errorf("update row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrRowNotFound
	}
	return nil
}

func (s *Store) UpdateRows(ctx context.Context, rows []core.ImportRow) error {
	for i := range rows {
		if err := s.UpdateRow(ctx, &rows[i]); err != nil {
			return fmt.Errorf("row %d: %w", rows[i].Index, err)
		}
	}
	return nil
}

func (s *Store) PageRows(ctx context.Context, batchID string, f core.RowFilter, page, pageSize int) (*core.RowPage, error) {
	where := `batch_id = $1`
	args := []any{toPgUUID(batchID)}

	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.UnresolvedLocation {
		where += ` AND location_id IS NULL`
	}
	if f.UnresolvedCategory {
		where += ` AND category_id IS NULL`
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += fmt.Sprintf(` AND (patrimony_number ILIKE $%d OR description ILIKE $%d
			OR location_text ILIKE $%d OR category_text ILIKE $%d
			OR serial_number ILIKE $%d OR brand ILIKE $%d)`, n, n, n, n, n, n)
	}

	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM import_rows WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := s.db.Query(ctx, `
		SELECT `+rowColumns+`
		FROM import_rows WHERE `+where+`
		ORDER BY row_index
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("page rows: %w", err)
	}
	defer rows.Close()

	out := make([]core.ImportRow, 0, pageSize)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &core.RowPage{Rows: out, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *Store) Locations(ctx context.Context) ([]core.Location, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []core.Location
	for rows.Next() {
		var id pgtype.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out = append(out, core.Location{ID: fromPgUUID(id), Name: name})
	}
	return out, rows.Err()
}

func (s *Store) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var id pgtype.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out = append(out, core.Category{ID: fromPgUUID(id), Name: name})
	}
	return out, rows.Err()
}

func (s *Store) AssetKeys(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT patrimony_key, id FROM assets WHERE patrimony_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("lookup asset keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key string
		var id pgtype.UUID
		if err := rows.Scan(&key, &id); err != nil {
			return nil, err
		}
		out[key] = fromPgUUID(id)
	}
	return out, rows.Err()
}

func (s *Store) CreateAsset(ctx context.Context, a *core.Asset) (string, error) {
	var id pgtype.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO assets (patrimony_number, patrimony_key, description,
			serial_number, brand, condition, value, location_id, category_id,
			notes, batch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		a.PatrimonyNumber, core.NormalizeKey(a.PatrimonyNumber), a.Description,
		toPgText(a.SerialNumber), toPgText(a.Brand), toPgText(a.Condition),
		toPgFloat8(a.Value), toPgUUID(a.LocationID), toPgUUID(a.CategoryID),
		toPgText(a.Notes), toPgUUID(a.BatchID),
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return fromPgUUID(id), nil
}

// scanner abstracts pgx.Row and pgx.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(sc scanner) (*core.ImportBatch, error) {
	var (
		b           core.ImportBatch
		id          pgtype.UUID
		mimeType    pgtype.Text
		result      []byte
		processedAt pgtype.Timestamptz
		confirmedAt pgtype.Timestamptz
		status      string
	)
	err := sc.Scan(&id, &b.FileName, &mimeType, &b.SizeBytes, &b.RowCount,
		&b.Created, &b.Skipped, &b.Errored, &status, &b.Error,
		&result, &b.CreatedAt, &b.UpdatedAt, &processedAt, &confirmedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan batch: %w", err)
	}

	b.ID = fromPgUUID(id)
	b.MimeType = fromPgText(mimeType)
	b.Status = core.BatchStatus(status)
	b.ProcessedAt = fromPgTimestamptz(processedAt)
	b.ConfirmedAt = fromPgTimestamptz(confirmedAt)

	if len(result) > 0 {
		var cr core.CommitResult
		if err := json.Unmarshal(result, &cr); err != nil {
			return nil, fmt.Errorf("decode commit result: %w", err)
		}
		b.Result = &cr
	}
	return &b, nil
}

func scanRow(sc scanner) (*core.ImportRow, error) {
	var (
		r          core.ImportRow
		batchID    pgtype.UUID
		value      pgtype.Float8
		locationID pgtype.UUID
		categoryID pgtype.UUID
		assetID    pgtype.UUID
		status     string
	)
	err := sc.Scan(&batchID, &r.Index, &r.LocationText, &r.Description,
		&r.CategoryText, &r.PatrimonyNumber, &r.SerialNumber, &r.Brand,
		&r.Condition, &r.RawValue, &r.Notes, &value, &locationID, &categoryID,
		&r.LocationConfirmed, &r.CategoryConfirmed, &r.DuplicateOverride,
		&status, &r.ErrorMessage, &assetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}

	r.BatchID = fromPgUUID(batchID)
	r.Value = fromPgFloat8(value)
	r.LocationID = fromPgUUID(locationID)
	r.CategoryID = fromPgUUID(categoryID)
	r.AssetID = fromPgUUID(assetID)
	r.Status = core.RowStatus(status)
	return &r, nil
}

// marshalResult encodes a commit result for the jsonb column, NULL when absent.
func marshalResult(r *core.CommitResult) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode commit result: %w", err)
	}
	return data, nil
}
