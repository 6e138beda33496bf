// Package matching ranks overflow-referral candidates. The directory
// query does the filtering; this stage orders by rating and picks the
// top match.
package matching

import (
	"sort"

	"github.com/trgnexus/platform/services/network-service/internal/model"
)

// Rank orders candidates by rating descending. The sort is stable:
// equal ratings keep the input order, which the directory query pins
// to registration order.
func Rank(candidates []model.Therapist) []model.Therapist {
	ranked := make([]model.Therapist, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rating > ranked[j].Rating
	})
	return ranked
}

// TopMatch returns the best candidate, or false when there are none.
func TopMatch(candidates []model.Therapist) (model.Therapist, bool) {
	ranked := Rank(candidates)
	if len(ranked) == 0 {
		return model.Therapist{}, false
	}
	return ranked[0], true
}
