package core

import "time"

// BatchStatus is the lifecycle state of an import batch.
type BatchStatus string

const (
	// BatchParsed means rows were extracted and normalization/review is in progress.
	BatchParsed BatchStatus = "parsed"
	// BatchConfirmed means commit has completed (at least attempted). Terminal.
	BatchConfirmed BatchStatus = "confirmed"
	// BatchCancelled means the operator discarded the batch before commit. Terminal.
	BatchCancelled BatchStatus = "cancelled"
	// BatchFailed means extraction or irrecoverable processing failed. Terminal.
	BatchFailed BatchStatus = "failed"
)

// RowStatus is the lifecycle state of a single import row.
type RowStatus string

const (
	// RowPending means the row was extracted but is not yet fully resolved.
	RowPending RowStatus = "pending"
	// RowReady means the row is normalized, resolved, and eligible for commit.
	RowReady RowStatus = "ready"
	// RowDuplicate means the row's patrimony number matched an existing asset
	// or an earlier row in the same batch. Requires operator override.
	RowDuplicate RowStatus = "duplicate"
	// RowError means a required field is missing or validation failed.
	RowError RowStatus = "error"
	// RowCreated means the commit engine created the canonical asset record.
	// A row never leaves this state.
	RowCreated RowStatus = "created"
)

// ImportBatch is one upload session containing candidate asset rows.
type ImportBatch struct {
	ID        string
	FileName  string
	MimeType  string
	SizeBytes int64
	RowCount  int

	// Outcome counters. Created + Skipped + Errored <= RowCount at all
	// times; equality holds once Status is terminal.
	Created int
	Skipped int
	Errored int

	Status BatchStatus
	Error  string

	// Result is the stored commit outcome, set when the batch reaches
	// BatchConfirmed. Re-invoking Confirm returns it unchanged.
	Result *CommitResult

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time // extraction + normalization finished
	ConfirmedAt *time.Time
}

// Terminal reports whether the batch status permits no further mutation.
func (b *ImportBatch) Terminal() bool {
	return b.Status.Terminal()
}

// ImportRow is one candidate asset record within a batch. Identity is the
// composite (BatchID, Index); the index is assigned at extraction time and
// never reused.
type ImportRow struct {
	BatchID string
	Index   int

	// Raw extracted fields.
	LocationText    string
	Description     string
	CategoryText    string
	PatrimonyNumber string
	SerialNumber    string
	Brand           string
	Condition       string
	RawValue        string
	Notes           string

	// Normalized fields. Value is nil when the raw string does not parse to
	// a finite number. Empty resolution ids mean unresolved.
	Value      *float64
	LocationID string
	CategoryID string

	// Operator-confirmed resolutions survive normalization re-runs.
	LocationConfirmed bool
	CategoryConfirmed bool

	// DuplicateOverride marks a duplicate the operator has explicitly
	// accepted for commit.
	DuplicateOverride bool

	Status       RowStatus
	ErrorMessage string

	// AssetID links to the canonical record once the row is committed.
	AssetID string
}

// Committable reports whether the row is eligible for commit.
func (r *ImportRow) Committable() bool {
	return r.Status == RowReady
}

// MappingKind distinguishes location mappings from category mappings.
type MappingKind string

const (
	MappingLocation MappingKind = "location"
	MappingCategory MappingKind = "category"
)

// MappingCandidate is one ranked canonical candidate for a free-text value.
type MappingCandidate struct {
	ID    string
	Name  string
	Score float64 // similarity in [0, 1]
}

// FieldMapping groups all rows sharing one distinct free-text value and
// carries the ranked candidates proposed for it. Mappings are computed fresh
// each time normalization runs; an operator confirmation writes through to
// every row sharing the text.
type FieldMapping struct {
	Kind           MappingKind
	Text           string // original free text, first-seen casing
	NormalizedText string
	ResolvedID     string // auto-resolved or operator-confirmed canonical id
	Confirmed      bool   // true when the resolution came from the operator
	RowCount       int
	Candidates     []MappingCandidate // score-descending, capped
}

// Resolved reports whether the mapping carries a canonical id.
func (m *FieldMapping) Resolved() bool {
	return m.ResolvedID != ""
}

// RowFailure describes one row that could not be committed.
type RowFailure struct {
	RowIndex  int
	Patrimony string
	Reason    string
}

// CommitResult is the outcome of a confirmation attempt. Every row in ready
// status at commit start appears exactly once: either in the Created count
// or in the Failures list.
type CommitResult struct {
	Created  int
	Skipped  int
	Failures []RowFailure
}

// NormalizationSummary is the operator-facing review snapshot for a batch.
type NormalizationSummary struct {
	Locations  []FieldMapping
	Categories []FieldMapping

	// Problems counts unresolved mappings, error rows, and unresolved
	// duplicates still requiring operator attention.
	Problems int

	// CanConfirm is true iff at least one row is ready. Confirmation is
	// allowed even while problems remain; non-ready rows are skipped.
	CanConfirm bool
}

// RowFilter selects rows for listing. Zero values mean "no constraint".
type RowFilter struct {
	Status             RowStatus
	Search             string // free-text match over raw fields
	UnresolvedLocation bool
	UnresolvedCategory bool
}

// RowPage is one page of rows plus the total count for the filter.
type RowPage struct {
	Rows     []ImportRow
	Total    int
	Page     int
	PageSize int
}

// RowEdit carries an operator's changes to a row's raw fields. Nil pointers
// leave the field untouched. Editing triggers re-evaluation of the row.
type RowEdit struct {
	LocationText    *string
	Description     *string
	CategoryText    *string
	PatrimonyNumber *string
	SerialNumber    *string
	Brand           *string
	Condition       *string
	RawValue        *string
	Notes           *string
}

// Location is a canonical location record.
type Location struct {
	ID   string
	Name string
}

// Category is a canonical asset category record.
type Category struct {
	ID   string
	Name string
}

// Asset is a canonical asset record created by the commit engine.
type Asset struct {
	ID              string
	PatrimonyNumber string
	Description     string
	SerialNumber    string
	Brand           string
	Condition       string
	Value           *float64
	LocationID      string
	CategoryID      string
	Notes           string
	BatchID         string // provenance: which import created the record
	CreatedAt       time.Time
}
