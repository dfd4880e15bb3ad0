// Package fairness computes condition scores, rolling point loads and
// contribution shares, and assigns recommended chores to the partner who
// should be offered them.
package fairness

import (
	"strings"

	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
)

const (
	MinScore     = 0
	MaxScore     = 10
	NeutralScore = 5
)

type keywordGroup struct {
	keywords []string
	score    int
}

// conditionKeywords is checked in order; the first group with a match wins,
// so "매우 좋" must come before "좋".
var conditionKeywords = []keywordGroup{
	{keywords: []string{"최고", "매우 좋", "최상", "excellent", "great"}, score: 9},
	{keywords: []string{"좋", "양호", "쾌적", "good"}, score: 7},
	{keywords: []string{"보통", "무난", "괜찮", "okay", "normal"}, score: 5},
	{keywords: []string{"피곤", "지침", "힘들", "낮", "tired", "exhausted"}, score: 3},
	{keywords: []string{"휴식", "아픔", "못 함", "못함", "나쁨", "sick", "unwell"}, score: 2},
}

// TextScore maps a free-text condition description to a score.
func TextScore(text string) int {
	normalized := strings.ToLower(text)
	for _, group := range conditionKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(normalized, kw) {
				return group.score
			}
		}
	}
	return NeutralScore
}

// EntryScore is the rounded mean of the morning and pre-chore scores, or the
// morning score alone when the pre-chore score is disabled or missing.
func EntryScore(e model.ConditionEntry) int {
	morning := clampScore(e.MorningScore)
	if e.PreChoreDisabled || e.PreChoreScore == nil {
		return morning
	}
	pre := clampScore(*e.PreChoreScore)
	return (morning + pre + 1) / 2
}

// LatestEntry returns the partner's entry for today, or failing that the most
// recent one dated before today. Entries dated after today are ignored, and a
// zero today accepts any date.
func LatestEntry(partnerID string, entries []model.ConditionEntry, today calendar.Date) (model.ConditionEntry, bool) {
	var (
		best  model.ConditionEntry
		found bool
	)
	for _, e := range entries {
		if e.PartnerID != partnerID || e.Date.IsZero() {
			continue
		}
		if !today.IsZero() && e.Date.After(today) {
			continue
		}
		if !found || e.Date.After(best.Date) {
			best, found = e, true
		}
	}
	return best, found
}

// ScoreFor resolves a partner's condition score. A structured entry wins;
// otherwise a roster-supplied score, then the roster's free-text condition.
func ScoreFor(p model.Partner, entries []model.ConditionEntry, today calendar.Date) int {
	if e, ok := LatestEntry(p.ID, entries, today); ok {
		return EntryScore(e)
	}
	if p.ConditionScore != nil {
		return clampScore(*p.ConditionScore)
	}
	return TextScore(p.Condition)
}

// Scorer binds entries and today into a function suitable for Assign.
func Scorer(entries []model.ConditionEntry, today calendar.Date) func(model.Partner) int {
	return func(p model.Partner) int {
		return ScoreFor(p, entries, today)
	}
}

func clampScore(v int) int {
	return min(max(v, MinScore), MaxScore)
}
