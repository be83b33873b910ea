package core

// duplicates.go implements the duplicate detector. A row's identifying key
// is its normalized patrimony number. A row is flagged when the key matches
// an existing canonical asset or an earlier row in the same batch; the
// earliest row by index is deterministically the survivor. Duplicates are a
// strong signal, not a hard block: legitimate re-imports occur, so the
// operator may explicitly override a flagged row back into ready.

import (
	"context"
	"fmt"
)

// detectDuplicates flags duplicate rows in place. Rows must be ordered by
// row index. Rows in error or created status are left untouched.
func detectDuplicates(ctx context.Context, rows []ImportRow, store Store) error {
	keySet := make(map[string]struct{})
	for i := range rows {
		r := &rows[i]
		if r.Status == RowCreated || r.Status == RowError {
			continue
		}
		if key := NormalizeKey(r.PatrimonyNumber); key != "" {
			keySet[key] = struct{}{}
		}
	}
	if len(keySet) == 0 {
		return nil
	}

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}

	existing, err := store.AssetKeys(ctx, keys)
	if err != nil {
		return fmt.Errorf("lookup existing asset keys: %w", err)
	}

	// First occurrence by row index survives in-batch collisions.
	survivor := make(map[string]int, len(keySet))

	for i := range rows {
		r := &rows[i]
		if r.Status == RowCreated || r.Status == RowError {
			continue
		}
		key := NormalizeKey(r.PatrimonyNumber)
		if key == "" {
			continue
		}

		dup := false
		if _, ok := existing[key]; ok {
			dup = true
		}
		if first, ok := survivor[key]; ok {
			if first != r.Index {
				dup = true
			}
		} else {
			survivor[key] = r.Index
		}

		switch {
		case dup && !r.DuplicateOverride:
			transitionRow(r, RowDuplicate, "")
		case r.Status == RowDuplicate:
			// Flag no longer applies (or was overridden): re-evaluate.
			evaluateRow(r)
		}
	}

	return nil
}
