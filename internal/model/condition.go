package model

import (
	"time"

	"github.com/dukerupert/fairshare/internal/calendar"
)

// ConditionEntry is a partner's self-reported condition for one day. There is
// at most one entry per (partner, date).
type ConditionEntry struct {
	ID               string        `json:"id"`
	PartnerID        string        `json:"partner_id"`
	Date             calendar.Date `json:"date"`
	MorningScore     int           `json:"morning_score"`
	PreChoreScore    *int          `json:"pre_chore_score"`
	PreChoreDisabled bool          `json:"pre_chore_disabled"`
	Note             string        `json:"note"`
	UpdatedAt        time.Time     `json:"updated_at"`
}
