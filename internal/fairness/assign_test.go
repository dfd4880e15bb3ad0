package fairness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/fairshare/internal/model"
)

func scores(m map[string]int) func(model.Partner) int {
	return func(p model.Partner) int { return m[p.ID] }
}

func roster(ids ...string) []model.Partner {
	partners := make([]model.Partner, 0, len(ids))
	for _, id := range ids {
		partners = append(partners, model.Partner{ID: id, Name: id})
	}
	return partners
}

func TestIntensityAndFloor(t *testing.T) {
	tests := []struct {
		points int
		want   Intensity
		floor  int
	}{
		{80, IntensityHigh, 7},
		{60, IntensityHigh, 7},
		{59, IntensityMedium, 5},
		{40, IntensityMedium, 5},
		{39, IntensityLow, 3},
		{0, IntensityLow, 3},
	}
	for _, tt := range tests {
		got := IntensityFor(tt.points)
		assert.Equal(t, tt.want, got, "IntensityFor(%d)", tt.points)
		assert.Equal(t, tt.floor, MinCondition(got), "MinCondition(%s)", got)
	}
}

func TestAssignHighIntensityRespectsFloor(t *testing.T) {
	rec := model.Recommendation{ID: "r", Points: 60}
	loads := map[string]int{"tired": 0, "fit": 500}

	got := Assign(rec, roster("tired", "fit"), loads, scores(map[string]int{"tired": 6, "fit": 7}))
	assert.Equal(t, "fit", got.AssignedPartnerID)
}

func TestAssignPrefersLowerLoad(t *testing.T) {
	rec := model.Recommendation{ID: "r", Points: 30}
	loads := map[string]int{"a": 120, "b": 80}

	got := Assign(rec, roster("a", "b"), loads, scores(map[string]int{"a": 6, "b": 6}))
	assert.Equal(t, "b", got.AssignedPartnerID)
}

func TestAssignTieBreaksOnCondition(t *testing.T) {
	rec := model.Recommendation{ID: "r", Points: 40}
	got := Assign(rec, roster("a", "b"), nil, scores(map[string]int{"a": 6, "b": 9}))
	assert.Equal(t, "b", got.AssignedPartnerID)
}

func TestAssignKeepsRosterOrderOnFullTie(t *testing.T) {
	rec := model.Recommendation{ID: "r", Points: 10}
	got := Assign(rec, roster("a", "b"), nil, scores(map[string]int{"a": 5, "b": 5}))
	assert.Equal(t, "a", got.AssignedPartnerID)
}

func TestAssignFallsBackWhenNobodyEligible(t *testing.T) {
	rec := model.Recommendation{ID: "r", Points: 80}
	loads := map[string]int{"a": 50, "b": 10}

	got := Assign(rec, roster("a", "b"), loads, scores(map[string]int{"a": 6, "b": 2}))
	assert.Equal(t, "b", got.AssignedPartnerID, "lowest load wins even with a poor condition")
}

func TestAssignEmptyRosterKeepsExisting(t *testing.T) {
	rec := model.Recommendation{ID: "r", Points: 80, AssignedPartnerID: "p1"}
	got := Assign(rec, nil, nil, scores(nil))
	assert.Equal(t, "p1", got.AssignedPartnerID)
}

func TestAssignNeverGivesHighToLowConditionWhenFitPartnerExists(t *testing.T) {
	for fitLoad := 0; fitLoad <= 300; fitLoad += 50 {
		for lowScore := 0; lowScore < 7; lowScore++ {
			partners := roster("low", "fit", "mid")
			loads := map[string]int{"low": 0, "fit": fitLoad, "mid": 10}
			sc := scores(map[string]int{"low": lowScore, "fit": 7, "mid": 6})

			got := Assign(model.Recommendation{Points: 75}, partners, loads, sc)
			assert.Equal(t, "fit", got.AssignedPartnerID, "fitLoad=%d lowScore=%d", fitLoad, lowScore)
		}
	}
}

func TestAssignAll(t *testing.T) {
	loads := map[string]int{"a": 0, "b": 30}
	sc := scores(map[string]int{"a": 3, "b": 8})

	got := AssignAll(DefaultCatalog(), roster("a", "b"), loads, sc)
	assert.Len(t, got, 4)
	for _, rec := range got {
		switch IntensityFor(rec.Points) {
		case IntensityLow:
			assert.Equal(t, "a", rec.AssignedPartnerID, rec.Title)
		default:
			assert.Equal(t, "b", rec.AssignedPartnerID, rec.Title)
		}
	}
}
