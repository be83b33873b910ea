package core

// state.go defines the legal lifecycle transitions for batches and rows.
//
// Batch: parsed -> confirmed | cancelled | failed. The three right-hand
// states are terminal: no counter or row mutation is permitted afterwards.
//
// Row: pending -> ready | duplicate | error -> created. Rows may move
// between ready/duplicate/error/pending freely before commit (operator
// edits trigger re-evaluation); created is absorbing.

// Terminal reports whether the batch status permits no further mutation.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchConfirmed, BatchCancelled, BatchFailed:
		return true
	}
	return false
}

// CanTransition reports whether a batch may move from s to next.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case BatchConfirmed, BatchCancelled, BatchFailed:
		return s == BatchParsed
	case BatchParsed:
		return false
	}
	return false
}

// CanTransition reports whether a row may move from s to next.
// Any pre-commit state may be re-evaluated into ready, duplicate, or error;
// only the commit engine emits created, and created is never left.
func (s RowStatus) CanTransition(next RowStatus) bool {
	if s == RowCreated {
		return false
	}
	switch next {
	case RowCreated:
		return s == RowReady
	case RowReady, RowDuplicate, RowError, RowPending:
		return true
	}
	return false
}

// transitionRow applies a row status change, enforcing the state machine.
// Illegal transitions are ignored so that a created row can never regress;
// the caller decides the target status, this guards the invariants.
func transitionRow(r *ImportRow, next RowStatus, errMsg string) bool {
	if r.Status == next && r.ErrorMessage == errMsg {
		return false
	}
	if !r.Status.CanTransition(next) {
		return false
	}
	r.Status = next
	if next == RowError {
		r.ErrorMessage = errMsg
		// A row in error status never carries resolutions newer than the
		// error; stale ids are dropped so commit cannot pick them up.
		if !r.LocationConfirmed {
			r.LocationID = ""
		}
		if !r.CategoryConfirmed {
			r.CategoryID = ""
		}
	} else {
		r.ErrorMessage = ""
	}
	return true
}
