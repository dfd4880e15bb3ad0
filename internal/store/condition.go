package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
)

type ConditionStore struct {
	db *sql.DB
}

func NewConditionStore(db *sql.DB) *ConditionStore {
	return &ConditionStore{db: db}
}

const conditionCols = "id, partner_id, date, morning_score, pre_chore_score, pre_chore_disabled, note, updated_at"

func scanCondition(sc scanner) (*model.ConditionEntry, error) {
	var e model.ConditionEntry
	var pre sql.NullInt64
	if err := sc.Scan(&e.ID, &e.PartnerID, &e.Date, &e.MorningScore, &pre, &e.PreChoreDisabled, &e.Note, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if pre.Valid {
		v := int(pre.Int64)
		e.PreChoreScore = &v
	}
	return &e, nil
}

func scanConditions(rows *sql.Rows) ([]model.ConditionEntry, error) {
	var entries []model.ConditionEntry
	for rows.Next() {
		e, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Upsert writes e as the partner's only entry for e.Date.
func (s *ConditionStore) Upsert(e model.ConditionEntry, now time.Time) (*model.ConditionEntry, error) {
	var pre any
	if e.PreChoreScore != nil {
		pre = *e.PreChoreScore
	}
	_, err := s.db.Exec(
		`INSERT INTO conditions (id, partner_id, date, morning_score, pre_chore_score, pre_chore_disabled, note, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(partner_id, date) DO UPDATE SET
		   morning_score = excluded.morning_score, pre_chore_score = excluded.pre_chore_score,
		   pre_chore_disabled = excluded.pre_chore_disabled, note = excluded.note,
		   updated_at = excluded.updated_at`,
		uuid.NewString(), e.PartnerID, e.Date, e.MorningScore, pre, e.PreChoreDisabled, e.Note, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert condition: %w", err)
	}
	got, err := scanCondition(s.db.QueryRow(
		"SELECT "+conditionCols+" FROM conditions WHERE partner_id = ? AND date = ?", e.PartnerID, e.Date,
	))
	if err != nil {
		return nil, fmt.Errorf("query condition: %w", err)
	}
	return got, nil
}

func (s *ConditionStore) GetByID(id string) (*model.ConditionEntry, error) {
	e, err := scanCondition(s.db.QueryRow("SELECT "+conditionCols+" FROM conditions WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query condition: %w", err)
	}
	return e, nil
}

// ListByPartner returns the partner's entries within [from, to], oldest
// first. Zero bounds are open.
func (s *ConditionStore) ListByPartner(partnerID string, from, to calendar.Date) ([]model.ConditionEntry, error) {
	query := "SELECT " + conditionCols + " FROM conditions WHERE partner_id = ?"
	args := []any{partnerID}
	if !from.IsZero() {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}
	defer rows.Close()
	return scanConditions(rows)
}

// Latest returns, for every partner, the newest entry dated on or before
// today.
func (s *ConditionStore) Latest(today calendar.Date) ([]model.ConditionEntry, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.partner_id, c.date, c.morning_score, c.pre_chore_score, c.pre_chore_disabled, c.note, c.updated_at
		 FROM conditions c
		 JOIN (SELECT partner_id, MAX(date) AS date FROM conditions WHERE date <= ? GROUP BY partner_id) latest
		   ON latest.partner_id = c.partner_id AND latest.date = c.date
		 ORDER BY c.partner_id`,
		today,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest conditions: %w", err)
	}
	defer rows.Close()
	return scanConditions(rows)
}

// Delete removes one of the partner's entries and reports whether it existed.
func (s *ConditionStore) Delete(id, partnerID string) (bool, error) {
	result, err := s.db.Exec("DELETE FROM conditions WHERE id = ? AND partner_id = ?", id, partnerID)
	if err != nil {
		return false, fmt.Errorf("delete condition: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
