package core

// normalize.go implements the normalization engine: parsing monetary
// values, resolving free-text location and category fields against the
// canonical registries, and recomputing row statuses.
//
// Scoring is amortized per distinct free-text value, not per row: identical
// text across many rows is scored once and the result reused. Distinct
// values are scored in parallel with a bounded worker count; each row's
// evaluation only reads the shared registries and writes its own record.

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// textGroup collects all rows of a batch sharing one distinct normalized
// free-text value for a mapping kind.
type textGroup struct {
	text       string // original free text, first-seen casing
	normalized string
	rowPos     []int // positions in the rows slice

	// confirmedID is set when the operator has confirmed a canonical id for
	// this text on at least one row; such groups are not re-scored.
	confirmedID string

	resolvedID string
	candidates []MappingCandidate
}

// groupRows buckets rows by the normalized form of the given free-text
// field. Rows already committed are excluded: nothing may mutate them.
func groupRows(rows []ImportRow, kind MappingKind) []*textGroup {
	byText := make(map[string]*textGroup)
	var ordered []*textGroup

	for i := range rows {
		r := &rows[i]
		if r.Status == RowCreated {
			continue
		}

		var text string
		var confirmed bool
		var confirmedID string
		switch kind {
		case MappingLocation:
			text = r.LocationText
			confirmed, confirmedID = r.LocationConfirmed, r.LocationID
		case MappingCategory:
			text = r.CategoryText
			confirmed, confirmedID = r.CategoryConfirmed, r.CategoryID
		}

		normalized := NormalizeText(text)
		if normalized == "" {
			continue
		}

		g, ok := byText[normalized]
		if !ok {
			g = &textGroup{text: text, normalized: normalized}
			byText[normalized] = g
			ordered = append(ordered, g)
		}
		g.rowPos = append(g.rowPos, i)
		if confirmed && confirmedID != "" {
			g.confirmedID = confirmedID
		}
	}

	return ordered
}

// scoreGroups ranks candidates for every unconfirmed group, in parallel.
// Confirmed groups keep their operator-assigned id and are not re-scored.
func scoreGroups(ctx context.Context, groups []*textGroup, m *matcher, workers int) error {
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, grp := range groups {
		if grp.confirmedID != "" {
			grp.resolvedID = grp.confirmedID
			continue
		}
		grp := grp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			grp.resolvedID, grp.candidates = m.Resolve(grp.normalized)
			return nil
		})
	}

	return g.Wait()
}

// mappingsFromGroups converts scored groups into the operator-facing
// FieldMapping slice, sorted by descending row count then text.
func mappingsFromGroups(groups []*textGroup, kind MappingKind) []FieldMapping {
	mappings := make([]FieldMapping, 0, len(groups))
	for _, g := range groups {
		mappings = append(mappings, FieldMapping{
			Kind:           kind,
			Text:           g.text,
			NormalizedText: g.normalized,
			ResolvedID:     g.resolvedID,
			Confirmed:      g.confirmedID != "",
			RowCount:       len(g.rowPos),
			Candidates:     g.candidates,
		})
	}
	sort.Slice(mappings, func(i, j int) bool {
		if mappings[i].RowCount != mappings[j].RowCount {
			return mappings[i].RowCount > mappings[j].RowCount
		}
		return mappings[i].NormalizedText < mappings[j].NormalizedText
	})
	return mappings
}

// normalizeRows runs the full normalization pass over a batch's rows,
// mutating them in place: parsed money, resolved ids, recomputed statuses.
// Duplicate flags are applied afterwards by detectDuplicates. The pass is
// idempotent: re-running with no new confirmations yields identical
// resolutions. Returns the fresh location and category mappings.
func normalizeRows(ctx context.Context, rows []ImportRow, locations, categories *matcher, workers int) ([]FieldMapping, []FieldMapping, error) {
	locGroups := groupRows(rows, MappingLocation)
	catGroups := groupRows(rows, MappingCategory)

	if err := scoreGroups(ctx, locGroups, locations, workers); err != nil {
		return nil, nil, fmt.Errorf("score locations: %w", err)
	}
	if err := scoreGroups(ctx, catGroups, categories, workers); err != nil {
		return nil, nil, fmt.Errorf("score categories: %w", err)
	}

	// Index resolutions by row position for the apply pass.
	locByPos := make(map[int]*textGroup)
	for _, g := range locGroups {
		for _, pos := range g.rowPos {
			locByPos[pos] = g
		}
	}
	catByPos := make(map[int]*textGroup)
	for _, g := range catGroups {
		for _, pos := range g.rowPos {
			catByPos[pos] = g
		}
	}

	for i := range rows {
		r := &rows[i]
		if r.Status == RowCreated {
			continue
		}

		// Parse monetary value. Unparseable resolves to absent, not zero.
		if v, ok := ParseMoney(r.RawValue); ok {
			value := v
			r.Value = &value
		} else {
			r.Value = nil
		}

		// Apply resolutions; operator-confirmed ids are never overwritten.
		if !r.LocationConfirmed {
			if g := locByPos[i]; g != nil {
				r.LocationID = g.resolvedID
			} else {
				r.LocationID = ""
			}
		}
		if !r.CategoryConfirmed {
			if g := catByPos[i]; g != nil {
				r.CategoryID = g.resolvedID
			} else {
				r.CategoryID = ""
			}
		}

		evaluateRow(r)
	}

	return mappingsFromGroups(locGroups, MappingLocation),
		mappingsFromGroups(catGroups, MappingCategory), nil
}

// evaluateRow recomputes a pre-commit row's status from its current fields.
// Duplicate flags are applied separately; this never emits RowDuplicate.
func evaluateRow(r *ImportRow) {
	if r.Status == RowCreated {
		return
	}

	if missing := missingRequired(r); missing != "" {
		transitionRow(r, RowError, fmt.Sprintf("required field missing: %s", missing))
		return
	}

	if r.LocationID != "" && r.CategoryID != "" {
		transitionRow(r, RowReady, "")
		return
	}
	transitionRow(r, RowPending, "")
}

// missingRequired names the first irrecoverably missing required field.
func missingRequired(r *ImportRow) string {
	if NormalizeKey(r.PatrimonyNumber) == "" {
		return "patrimony number"
	}
	if NormalizeText(r.Description) == "" {
		return "description"
	}
	return ""
}

// buildMappings computes the mapping suggestions for a batch without
// mutating any row. Used by the review summary.
func buildMappings(ctx context.Context, rows []ImportRow, locations, categories *matcher, workers int) ([]FieldMapping, []FieldMapping, error) {
	locGroups := groupRows(rows, MappingLocation)
	catGroups := groupRows(rows, MappingCategory)

	if err := scoreGroups(ctx, locGroups, locations, workers); err != nil {
		return nil, nil, fmt.Errorf("score locations: %w", err)
	}
	if err := scoreGroups(ctx, catGroups, categories, workers); err != nil {
		return nil, nil, fmt.Errorf("score categories: %w", err)
	}

	return mappingsFromGroups(locGroups, MappingLocation),
		mappingsFromGroups(catGroups, MappingCategory), nil
}
