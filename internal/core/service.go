package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/config"
)

// RawRow is one candidate asset as extracted from the source document,
// before any normalization.
type RawRow struct {
	LocationText    string
	Description     string
	CategoryText    string
	PatrimonyNumber string
	SerialNumber    string
	Brand           string
	Condition       string
	RawValue        string
	Notes           string
}

// RowSource produces the raw rows of an uploaded document. Implemented by
// the extraction layer; a source error fails the batch with no rows.
type RowSource func(ctx context.Context) ([]RawRow, error)

// UploadMeta describes the uploaded document a batch originates from.
type UploadMeta struct {
	FileName string
	MimeType string
	Size     int64
}

// Service orchestrates the import pipeline over a Store.
type Service struct {
	store   Store
	limiter *ImportLimiter

	threshold       float64
	maxCandidates   int
	workers         int
	timeout         time.Duration
	defaultPageSize int
	maxPageSize     int

	mu         sync.Mutex
	batchLocks map[string]*sync.Mutex
}

// NewService creates a Service backed by the given store, configured from
// the application config.
func NewService(store Store, cfg *config.Config) *Service {
	imp := cfg.Import
	return &Service{
		store:           store,
		limiter:         NewImportLimiter(imp.MaxConcurrent, imp.MaxWaitTime),
		threshold:       imp.MatchThreshold,
		maxCandidates:   imp.MaxCandidates,
		workers:         imp.Workers,
		timeout:         imp.Timeout,
		defaultPageSize: imp.DefaultPageSize,
		maxPageSize:     imp.MaxPageSize,
		batchLocks:      make(map[string]*sync.Mutex),
	}
}

// lockBatch returns the mutex serializing mutations of one batch. Every
// operation that writes batch counters, terminal transitions, or row
// snapshots holds it, so a reprocess racing a confirm cannot persist stale
// pre-commit rows over committed ones.
func (s *Service) lockBatch(batchID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.batchLocks[batchID]
	if !ok {
		mu = &sync.Mutex{}
		s.batchLocks[batchID] = mu
	}
	return mu
}

// Limiter exposes the processing limiter for shutdown draining.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// StartImport creates a batch for the uploaded document and processes it in
// the background: extraction, normalization, and duplicate detection. The
// returned batch snapshot is immediately observable via GetBatch; callers
// poll until ProcessedAt is set (or the batch failed).
//
// Returns ErrTooManyImports when all processing slots stay occupied for the
// configured wait time.
func (s *Service) StartImport(ctx context.Context, meta UploadMeta, source RowSource) (*ImportBatch, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	batch := &ImportBatch{
		ID:        uuid.New().String(),
		FileName:  meta.FileName,
		MimeType:  meta.MimeType,
		SizeBytes: meta.Size,
		Status:    BatchParsed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateBatch(ctx, batch); err != nil {
		s.limiter.Release()
		return nil, fmt.Errorf("create batch: %w", err)
	}

	// Detach from the request context; processing outlives the request.
	procCtx, cancel := context.WithTimeout(context.Background(), s.timeout)

	go func() {
		defer s.limiter.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in import processing",
					"batch_id", batch.ID,
					"file", batch.FileName,
					"panic", r,
				)
				s.failBatch(procCtx, batch.ID, fmt.Sprintf("internal error: %v", r))
			}
		}()
		s.processImport(procCtx, batch, source)
	}()

	snapshot := *batch
	return &snapshot, nil
}

// processImport runs extraction and the normalization pipeline for a new batch.
func (s *Service) processImport(ctx context.Context, batch *ImportBatch, source RowSource) {
	logger := slog.Default().With("batch_id", batch.ID, "file", batch.FileName)
	start := time.Now()

	// Extraction is slow I/O; run it before taking the batch lock.
	raw, err := source(ctx)
	if err != nil {
		logger.Error("extraction failed", "error", err)
		s.failBatch(ctx, batch.ID, fmt.Sprintf("extraction failed: %v", err))
		return
	}

	rows := make([]ImportRow, len(raw))
	for i, rr := range raw {
		rows[i] = ImportRow{
			BatchID:         batch.ID,
			Index:           i,
			LocationText:    rr.LocationText,
			Description:     rr.Description,
			CategoryText:    rr.CategoryText,
			PatrimonyNumber: rr.PatrimonyNumber,
			SerialNumber:    rr.SerialNumber,
			Brand:           rr.Brand,
			Condition:       rr.Condition,
			RawValue:        rr.RawValue,
			Notes:           rr.Notes,
			Status:          RowPending,
		}
	}

	insertErr, normErr := s.storeExtracted(ctx, batch.ID, rows)
	if insertErr != nil {
		logger.Error("row insert failed", "error", insertErr)
		s.failBatch(ctx, batch.ID, fmt.Sprintf("storing extracted rows failed: %v", insertErr))
		return
	}
	if normErr != nil {
		// Normalization problems are recoverable via Reprocess; record the
		// message but keep the batch open.
		logger.Error("normalization failed", "error", normErr)
		s.recordBatchError(ctx, batch.ID, fmt.Sprintf("normalization failed: %v", normErr))
		return
	}

	s.markProcessed(ctx, batch.ID)
	logger.Info("import processed",
		"rows", len(rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// storeExtracted persists extracted rows, updates the row count, and runs
// the first normalization pass, all under the batch lock. A batch closed
// while extraction was running keeps no rows.
func (s *Service) storeExtracted(ctx context.Context, batchID string, rows []ImportRow) (insertErr, normErr error) {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return err, nil
	}
	if batch.Terminal() {
		return nil, nil
	}

	if err := s.store.InsertRows(ctx, rows); err != nil {
		return err, nil
	}

	batch.RowCount = len(rows)
	batch.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return err, nil
	}

	return nil, s.reprocess(ctx, batchID)
}

// failBatch transitions a batch to failed with a message. Extraction
// failures land here: the batch exists, carries the fatal message, no rows.
func (s *Service) failBatch(ctx context.Context, batchID, msg string) {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		slog.Error("load batch for failure", "batch_id", batchID, "error", err)
		return
	}
	if !batch.Status.CanTransition(BatchFailed) {
		return
	}
	batch.Status = BatchFailed
	batch.Error = msg
	batch.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		slog.Error("persist batch failure", "batch_id", batchID, "error", err)
	}
}

// recordBatchError stores a non-fatal processing message without changing status.
func (s *Service) recordBatchError(ctx context.Context, batchID, msg string) {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil || batch.Terminal() {
		return
	}
	batch.Error = msg
	batch.UpdatedAt = time.Now().UTC()
	_ = s.store.UpdateBatch(ctx, batch)
}

// markProcessed stamps the end of extraction + normalization.
func (s *Service) markProcessed(ctx context.Context, batchID string) {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()
	s.markProcessedLocked(ctx, batchID)
}

// markProcessedLocked is markProcessed for callers already holding the
// batch lock.
func (s *Service) markProcessedLocked(ctx context.Context, batchID string) {
	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil || batch.Terminal() {
		return
	}
	now := time.Now().UTC()
	batch.ProcessedAt = &now
	batch.UpdatedAt = now
	batch.Error = ""
	_ = s.store.UpdateBatch(ctx, batch)
}

// GetBatch returns the current batch snapshot.
func (s *Service) GetBatch(ctx context.Context, batchID string) (*ImportBatch, error) {
	return s.store.GetBatch(ctx, batchID)
}

// ListRows returns one filtered page of a batch's rows.
func (s *Service) ListRows(ctx context.Context, batchID string, f RowFilter, page, pageSize int) (*RowPage, error) {
	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return s.store.PageRows(ctx, batchID, f, page, pageSize)
}

// matchers loads the canonical registries and prepares one matcher per kind.
func (s *Service) matchers(ctx context.Context) (*matcher, *matcher, error) {
	locations, err := s.store.Locations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load locations: %w", err)
	}
	categories, err := s.store.Categories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load categories: %w", err)
	}

	locIDs := make([]string, len(locations))
	locNames := make([]string, len(locations))
	for i, l := range locations {
		locIDs[i], locNames[i] = l.ID, l.Name
	}
	catIDs := make([]string, len(categories))
	catNames := make([]string, len(categories))
	for i, c := range categories {
		catIDs[i], catNames[i] = c.ID, c.Name
	}

	return newMatcher(locIDs, locNames, s.threshold, s.maxCandidates),
		newMatcher(catIDs, catNames, s.threshold, s.maxCandidates), nil
}

// Reprocess re-runs normalization and duplicate detection over the batch's
// current rows. Safe to invoke repeatedly: with no new confirmations the
// resolutions are identical.
func (s *Service) Reprocess(ctx context.Context, batchID string) error {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.Terminal() {
		return fmt.Errorf("reprocess batch %s: %w", batchID, ErrBatchTerminal)
	}
	if err := s.reprocess(ctx, batchID); err != nil {
		return err
	}
	s.markProcessedLocked(ctx, batchID)
	return nil
}

// reprocess is the shared normalization + duplicate-detection pass.
func (s *Service) reprocess(ctx context.Context, batchID string) error {
	rows, err := s.store.ListRows(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	locMatcher, catMatcher, err := s.matchers(ctx)
	if err != nil {
		return err
	}

	if _, _, err := normalizeRows(ctx, rows, locMatcher, catMatcher, s.workers); err != nil {
		return err
	}
	if err := detectDuplicates(ctx, rows, s.store); err != nil {
		return err
	}

	if err := s.store.UpdateRows(ctx, rows); err != nil {
		return fmt.Errorf("persist rows: %w", err)
	}
	return nil
}

// Summary builds the operator review snapshot: the mapping suggestions per
// distinct free-text value, the outstanding problem count, and whether the
// batch can be confirmed. Read-only.
func (s *Service) Summary(ctx context.Context, batchID string) (*NormalizationSummary, error) {
	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}

	rows, err := s.store.ListRows(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}

	locMatcher, catMatcher, err := s.matchers(ctx)
	if err != nil {
		return nil, err
	}

	locMappings, catMappings, err := buildMappings(ctx, rows, locMatcher, catMatcher, s.workers)
	if err != nil {
		return nil, err
	}

	summary := &NormalizationSummary{
		Locations:  locMappings,
		Categories: catMappings,
	}

	for _, m := range locMappings {
		if !m.Resolved() {
			summary.Problems++
		}
	}
	for _, m := range catMappings {
		if !m.Resolved() {
			summary.Problems++
		}
	}
	for i := range rows {
		switch rows[i].Status {
		case RowReady:
			summary.CanConfirm = true
		case RowError, RowDuplicate:
			summary.Problems++
		}
	}

	return summary, nil
}

// ApplyMapping confirms a canonical id for a free-text value. The
// confirmation applies batch-wide: every row whose text normalizes to the
// same value is re-resolved simultaneously, and the resolution survives
// later normalization runs. Returns the number of rows updated.
func (s *Service) ApplyMapping(ctx context.Context, batchID string, kind MappingKind, text, canonicalID string) (int, error) {
	if canonicalID == "" {
		return 0, fmt.Errorf("canonical id is required")
	}

	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if batch.Terminal() {
		return 0, fmt.Errorf("apply mapping on batch %s: %w", batchID, ErrBatchTerminal)
	}

	if err := s.validateCanonicalID(ctx, kind, canonicalID); err != nil {
		return 0, err
	}

	normalized := NormalizeText(text)
	if normalized == "" {
		return 0, fmt.Errorf("apply mapping: %w", ErrUnknownMapping)
	}

	rows, err := s.store.ListRows(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("load rows: %w", err)
	}

	updated := 0
	for i := range rows {
		r := &rows[i]
		if r.Status == RowCreated {
			continue
		}

		switch kind {
		case MappingLocation:
			if NormalizeText(r.LocationText) != normalized {
				continue
			}
			r.LocationID = canonicalID
			r.LocationConfirmed = true
		case MappingCategory:
			if NormalizeText(r.CategoryText) != normalized {
				continue
			}
			r.CategoryID = canonicalID
			r.CategoryConfirmed = true
		default:
			return 0, fmt.Errorf("unknown mapping kind %q", kind)
		}
		evaluateRow(r)
		updated++
	}

	if updated == 0 {
		return 0, fmt.Errorf("apply mapping %q: %w", text, ErrUnknownMapping)
	}

	// Re-apply duplicate flags; evaluateRow never emits them.
	if err := detectDuplicates(ctx, rows, s.store); err != nil {
		return 0, err
	}

	if err := s.store.UpdateRows(ctx, rows); err != nil {
		return 0, fmt.Errorf("persist rows: %w", err)
	}
	return updated, nil
}

// validateCanonicalID checks that the confirmed id exists in its registry.
func (s *Service) validateCanonicalID(ctx context.Context, kind MappingKind, id string) error {
	switch kind {
	case MappingLocation:
		locations, err := s.store.Locations(ctx)
		if err != nil {
			return fmt.Errorf("load locations: %w", err)
		}
		for _, l := range locations {
			if l.ID == id {
				return nil
			}
		}
		return fmt.Errorf("unknown location id %q", id)
	case MappingCategory:
		categories, err := s.store.Categories(ctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		for _, c := range categories {
			if c.ID == id {
				return nil
			}
		}
		return fmt.Errorf("unknown category id %q", id)
	}
	return fmt.Errorf("unknown mapping kind %q", kind)
}

// OverrideDuplicate accepts a duplicate-flagged row for commit. The flag is
// a strong signal, not a hard block; the explicit override re-evaluates the
// row, typically into ready.
func (s *Service) OverrideDuplicate(ctx context.Context, batchID string, rowIndex int) (*ImportRow, error) {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Terminal() {
		return nil, fmt.Errorf("override on batch %s: %w", batchID, ErrBatchTerminal)
	}

	row, err := s.store.GetRow(ctx, batchID, rowIndex)
	if err != nil {
		return nil, err
	}
	if row.Status != RowDuplicate {
		return nil, fmt.Errorf("override row %d: %w", rowIndex, ErrNotDuplicate)
	}

	row.DuplicateOverride = true
	evaluateRow(row)

	if err := s.store.UpdateRow(ctx, row); err != nil {
		return nil, fmt.Errorf("persist row: %w", err)
	}
	return row, nil
}

// UpdateRow applies an operator edit to a row's raw fields and re-runs
// normalization and duplicate detection over the batch, since an edit can
// change mapping groups and key collisions.
func (s *Service) UpdateRow(ctx context.Context, batchID string, rowIndex int, edit RowEdit) (*ImportRow, error) {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Terminal() {
		return nil, fmt.Errorf("edit row on batch %s: %w", batchID, ErrBatchTerminal)
	}

	row, err := s.store.GetRow(ctx, batchID, rowIndex)
	if err != nil {
		return nil, err
	}
	if row.Status == RowCreated {
		return nil, fmt.Errorf("edit row %d: row already committed", rowIndex)
	}

	applyEdit(row, edit)
	if err := s.store.UpdateRow(ctx, row); err != nil {
		return nil, fmt.Errorf("persist row: %w", err)
	}

	if err := s.reprocess(ctx, batchID); err != nil {
		return nil, err
	}

	return s.store.GetRow(ctx, batchID, rowIndex)
}

// applyEdit copies the non-nil edit fields onto the row. Changing a
// free-text field drops the matching operator confirmation, since it was
// given for the previous text.
func applyEdit(r *ImportRow, e RowEdit) {
	if e.LocationText != nil && *e.LocationText != r.LocationText {
		r.LocationText = *e.LocationText
		r.LocationConfirmed = false
		r.LocationID = ""
	}
	if e.CategoryText != nil && *e.CategoryText != r.CategoryText {
		r.CategoryText = *e.CategoryText
		r.CategoryConfirmed = false
		r.CategoryID = ""
	}
	if e.Description != nil {
		r.Description = *e.Description
	}
	if e.PatrimonyNumber != nil && *e.PatrimonyNumber != r.PatrimonyNumber {
		r.PatrimonyNumber = *e.PatrimonyNumber
		r.DuplicateOverride = false
	}
	if e.SerialNumber != nil {
		r.SerialNumber = *e.SerialNumber
	}
	if e.Brand != nil {
		r.Brand = *e.Brand
	}
	if e.Condition != nil {
		r.Condition = *e.Condition
	}
	if e.RawValue != nil {
		r.RawValue = *e.RawValue
	}
	if e.Notes != nil {
		r.Notes = *e.Notes
	}
}

// Cancel discards a batch before commit: the batch becomes cancelled, no
// rows are committed. Valid only while the batch is still open.
func (s *Service) Cancel(ctx context.Context, batchID string) error {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if !batch.Status.CanTransition(BatchCancelled) {
		return fmt.Errorf("cancel batch %s: %w", batchID, ErrBatchTerminal)
	}

	rows, err := s.store.ListRows(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}

	var errored int
	for i := range rows {
		if rows[i].Status == RowError {
			errored++
		}
	}

	now := time.Now().UTC()
	batch.Status = BatchCancelled
	batch.Created = 0
	batch.Errored = errored
	batch.Skipped = batch.RowCount - errored
	batch.UpdatedAt = now

	if err := s.store.UpdateBatch(ctx, batch); err != nil {
		return fmt.Errorf("persist cancel: %w", err)
	}
	return nil
}

// Discard deletes a batch and all its rows. This is the only operation
// permitted to remove a batch that rows still reference.
func (s *Service) Discard(ctx context.Context, batchID string) error {
	mu := s.lockBatch(batchID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.store.GetBatch(ctx, batchID); err != nil {
		return err
	}
	if err := s.store.DeleteBatch(ctx, batchID); err != nil {
		return fmt.Errorf("discard batch: %w", err)
	}

	s.mu.Lock()
	delete(s.batchLocks, batchID)
	s.mu.Unlock()
	return nil
}

// Locations returns the canonical location registry.
func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	return s.store.Locations(ctx)
}

// Categories returns the canonical category registry.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.store.Categories(ctx)
}
