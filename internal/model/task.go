package model

import (
	"time"

	"github.com/dukerupert/fairshare/internal/calendar"
)

type Task struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	PartnerID string        `json:"partner_id"`
	Room      string        `json:"room"`
	Date      calendar.Date `json:"date"`
	Repeat    string        `json:"repeat"`
	Points    int           `json:"points"`
	Order     int           `json:"order"`
	IsDone    bool          `json:"is_done"`
	Tip       string        `json:"tip"`
	Memo      string        `json:"memo"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewTask is the payload for creating one task, or one per occurrence when
// Repeat holds a rule. Points of zero are estimated from Duration and Effort.
type NewTask struct {
	Title     string        `json:"title"`
	PartnerID string        `json:"partner_id"`
	Room      string        `json:"room"`
	Date      calendar.Date `json:"date"`
	EndDate   calendar.Date `json:"end_date"`
	Repeat    string        `json:"repeat"`
	Points    int           `json:"points"`
	Duration  string        `json:"duration"`
	Effort    string        `json:"effort"`
	Tip       string        `json:"tip"`
	Memo      string        `json:"memo"`
}

// TaskPatch is a partial update. Nil fields are left unchanged. Points is
// accepted on the wire only so it can be refused: point values change through
// adjustment requests.
type TaskPatch struct {
	Title     *string        `json:"title,omitempty"`
	PartnerID *string        `json:"partner_id,omitempty"`
	Room      *string        `json:"room,omitempty"`
	Date      *calendar.Date `json:"date,omitempty"`
	Order     *int           `json:"order,omitempty"`
	Tip       *string        `json:"tip,omitempty"`
	Memo      *string        `json:"memo,omitempty"`
	Points    *int           `json:"points,omitempty"`
}

// ApplyTo returns t with the patch applied.
func (p TaskPatch) ApplyTo(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.PartnerID != nil {
		t.PartnerID = *p.PartnerID
	}
	if p.Room != nil {
		t.Room = *p.Room
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Tip != nil {
		t.Tip = *p.Tip
	}
	if p.Memo != nil {
		t.Memo = *p.Memo
	}
	return t
}
