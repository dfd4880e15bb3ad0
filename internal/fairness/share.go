package fairness

import (
	"math"
	"slices"

	"github.com/dukerupert/fairshare/internal/model"
)

// Shares returns each partner's percentage of the total load, rounded. All
// shares are zero when nobody has completed anything.
func Shares(partners []model.Partner, loads map[string]int) map[string]int {
	total := 0
	for _, p := range partners {
		total += loads[p.ID]
	}
	shares := make(map[string]int, len(partners))
	for _, p := range partners {
		if total == 0 {
			shares[p.ID] = 0
			continue
		}
		shares[p.ID] = int(math.Round(float64(loads[p.ID]) / float64(total) * 100))
	}
	return shares
}

// Annotate returns a copy of the roster with Share and ConditionScore set.
func Annotate(partners []model.Partner, loads map[string]int, scoreOf func(model.Partner) int) []model.Partner {
	shares := Shares(partners, loads)
	out := slices.Clone(partners)
	for i := range out {
		score := scoreOf(out[i])
		out[i].ConditionScore = &score
		out[i].Share = shares[out[i].ID]
	}
	return out
}
