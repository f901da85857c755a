package scoring

import (
	"sort"

	"reposummarizer/internal/types"
)

// Rank scores every blob in entries, drops the zero scores and orders the
// rest by score (descending), then by path length (ascending). Entries that
// tie on both keys keep their tree order.
func (s *Scorer) Rank(entries []types.TreeEntry) []types.ScoredEntry {
	var scored []types.ScoredEntry
	for _, e := range entries {
		if !e.IsBlob() {
			continue
		}
		score := s.Score(e.Path, e.Size)
		if score <= 0 {
			continue
		}
		scored = append(scored, types.ScoredEntry{TreeEntry: e, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return len(scored[i].Path) < len(scored[j].Path)
	})
	return scored
}

// Top returns at most n entries from the head of ranked.
func Top(ranked []types.ScoredEntry, n int) []types.ScoredEntry {
	if n < 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
