package core

// errors.go defines the sentinel errors of the pipeline and translates
// low-level storage failures into the human-readable causes reported in
// CommitResult failure lists and API responses.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBatchNotFound is returned when a batch id resolves to nothing.
	ErrBatchNotFound = errors.New("import batch not found")

	// ErrRowNotFound is returned when a (batch, index) pair resolves to nothing.
	ErrRowNotFound = errors.New("import row not found")

	// ErrBatchTerminal is returned when an operation requires a batch that
	// is still open but the batch has already reached a terminal status.
	ErrBatchTerminal = errors.New("import batch already finalized")

	// ErrTooManyImports is returned when all processing slots are occupied
	// and the wait timeout expires. Clients should retry after a short delay.
	ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

	// ErrNotDuplicate is returned when a duplicate override targets a row
	// that is not flagged as a duplicate.
	ErrNotDuplicate = errors.New("row is not flagged as duplicate")

	// ErrUnknownMapping is returned when a mapping confirmation references a
	// free-text value no row in the batch carries.
	ErrUnknownMapping = errors.New("no rows carry the given free-text value")
)

// errPattern maps substrings of storage errors to operator-facing causes.
type errPattern struct {
	substrings []string
	message    string
}

var commitErrPatterns = []errPattern{
	{[]string{"duplicate key", "unique constraint", "violates unique"},
		"an asset with this patrimony number already exists"},
	{[]string{"foreign key", "violates foreign key"},
		"the resolved location or category no longer exists"},
	{[]string{"connection refused", "connection reset", "broken pipe"},
		"the database is unavailable, try confirming again later"},
	{[]string{"deadlock"},
		"the database was busy with a conflicting operation, try again"},
	{[]string{"value too long", "too long for type"},
		"a field value exceeds the maximum allowed length"},
	{[]string{"null value", "not-null"},
		"a required field is missing"},
}

// FriendlyCommitError converts a storage error from asset creation into a
// human-readable cause for the failure list. Unknown errors pass through
// with a generic prefix so the original detail is never lost in logs.
func FriendlyCommitError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "the operation timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "the operation was cancelled"
	}

	lower := strings.ToLower(err.Error())
	for _, p := range commitErrPatterns {
		for _, sub := range p.substrings {
			if strings.Contains(lower, sub) {
				return p.message
			}
		}
	}
	return fmt.Sprintf("record could not be created: %v", err)
}
