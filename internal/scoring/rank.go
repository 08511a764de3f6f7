package scoring

import (
	"sort"

	"MomentumRotator/internal/model"
)

// Rank orders rows by score descending. Rows with a nil score follow all
// scored rows in their original order. The leader is the best scored row
// whose asset is not excluded; ok is false when no row qualifies.
func Rank(rows []model.ScoreRow, excluded map[string]bool) (ranked []model.ScoreRow, leader model.ScoreRow, ok bool) {
	ranked = append([]model.ScoreRow(nil), rows...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Score, ranked[j].Score
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	for _, r := range ranked {
		if !r.Rankable() || excluded[r.Asset] {
			continue
		}
		return ranked, r, true
	}
	return ranked, model.ScoreRow{}, false
}
