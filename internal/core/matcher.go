package core

// matcher.go implements the fuzzy-matching engine used to propose canonical
// locations and categories for free-text values. Similarity is a Levenshtein
// ratio over normalized text; candidates are ranked score-descending and
// capped at a small fixed number per distinct value.

import "sort"

// DefaultMatchThreshold is the minimum score for auto-resolving a match.
// Below it the candidate list is surfaced to the operator instead. The
// policy is deliberately false-negative biased: asking the operator is
// acceptable, silently assigning a wrong canonical id is not.
const DefaultMatchThreshold = 0.85

// DefaultMaxCandidates is how many ranked candidates to keep per value.
const DefaultMaxCandidates = 5

// registryEntry is one canonical record prepared for matching.
type registryEntry struct {
	ID         string
	Name       string
	Normalized string
}

// matcher scores free text against a prepared canonical registry.
type matcher struct {
	entries       []registryEntry
	threshold     float64
	maxCandidates int
}

// newMatcher prepares a matcher over canonical (id, name) pairs.
// Names are normalized once so repeated scoring amortizes the cost.
func newMatcher(ids, names []string, threshold float64, maxCandidates int) *matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	entries := make([]registryEntry, 0, len(ids))
	for i := range ids {
		entries = append(entries, registryEntry{
			ID:         ids[i],
			Name:       names[i],
			Normalized: NormalizeText(names[i]),
		})
	}

	return &matcher{
		entries:       entries,
		threshold:     threshold,
		maxCandidates: maxCandidates,
	}
}

// Candidates returns the ranked candidate list for normalized free text.
// Order is score-descending with name ascending as the deterministic
// tie-break, truncated to the configured cap.
func (m *matcher) Candidates(normalized string) []MappingCandidate {
	if normalized == "" || len(m.entries) == 0 {
		return nil
	}

	candidates := make([]MappingCandidate, 0, len(m.entries))
	for _, e := range m.entries {
		score := Similarity(normalized, e.Normalized)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, MappingCandidate{
			ID:    e.ID,
			Name:  e.Name,
			Score: score,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Name < candidates[j].Name
	})

	if len(candidates) > m.maxCandidates {
		candidates = candidates[:m.maxCandidates]
	}
	return candidates
}

// Resolve returns the canonical id for normalized text when the best
// candidate crosses the acceptance threshold, along with the ranked list.
func (m *matcher) Resolve(normalized string) (string, []MappingCandidate) {
	candidates := m.Candidates(normalized)
	if len(candidates) > 0 && candidates[0].Score >= m.threshold {
		return candidates[0].ID, candidates
	}
	return "", candidates
}

// Similarity computes a Levenshtein-based similarity ratio in [0, 1] between
// two already-normalized strings. Identical strings score 1.0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes the edit distance using a single-column rolling
// buffer, O(len(a)) space.
func levenshtein(a, b []rune) int {
	column := make([]int, len(a)+1)
	for y := 1; y <= len(a); y++ {
		column[y] = y
	}

	for x := 1; x <= len(b); x++ {
		column[0] = x
		lastDiag := x - 1
		for y := 1; y <= len(a); y++ {
			oldDiag := column[y]
			cost := 0
			if a[y-1] != b[x-1] {
				cost = 1
			}
			column[y] = min3(column[y]+1, column[y-1]+1, lastDiag+cost)
			lastDiag = oldDiag
		}
	}

	return column[len(a)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
