package fairness

import (
	"cmp"
	"slices"

	"github.com/dukerupert/fairshare/internal/model"
)

type Intensity string

const (
	IntensityHigh   Intensity = "high"
	IntensityMedium Intensity = "medium"
	IntensityLow    Intensity = "low"
)

func IntensityFor(points int) Intensity {
	switch {
	case points >= 60:
		return IntensityHigh
	case points >= 40:
		return IntensityMedium
	}
	return IntensityLow
}

// MinCondition is the lowest condition score a partner needs to be offered a
// chore of the given intensity.
func MinCondition(i Intensity) int {
	switch i {
	case IntensityHigh:
		return 7
	case IntensityMedium:
		return 5
	}
	return 3
}

type candidate struct {
	partnerID string
	load      int
	score     int
}

// Assign picks the partner to offer rec to. Partners whose condition meets
// the intensity floor are preferred; among them the lowest rolling load wins
// and ties go to the better condition. When nobody meets the floor the whole
// roster is ranked the same way. An empty roster leaves rec unchanged.
func Assign(rec model.Recommendation, partners []model.Partner, loads map[string]int, scoreOf func(model.Partner) int) model.Recommendation {
	if len(partners) == 0 {
		return rec
	}
	floor := MinCondition(IntensityFor(rec.Points))

	all := make([]candidate, 0, len(partners))
	var eligible []candidate
	for _, p := range partners {
		c := candidate{partnerID: p.ID, load: loads[p.ID], score: scoreOf(p)}
		all = append(all, c)
		if c.score >= floor {
			eligible = append(eligible, c)
		}
	}

	pool := eligible
	if len(pool) == 0 {
		pool = all
	}
	slices.SortStableFunc(pool, func(a, b candidate) int {
		return cmp.Or(cmp.Compare(a.load, b.load), cmp.Compare(b.score, a.score))
	})

	rec.AssignedPartnerID = pool[0].partnerID
	return rec
}

// AssignAll assigns every recommendation against the same roster and loads.
func AssignAll(recs []model.Recommendation, partners []model.Partner, loads map[string]int, scoreOf func(model.Partner) int) []model.Recommendation {
	out := make([]model.Recommendation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Assign(rec, partners, loads, scoreOf))
	}
	return out
}
