package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = "id, title, partner_id, room, date, repeat, points, sort_order, is_done, tip, memo, created_at, updated_at"

func scanTask(sc scanner) (*model.Task, error) {
	var t model.Task
	if err := sc.Scan(&t.ID, &t.Title, &t.PartnerID, &t.Room, &t.Date, &t.Repeat, &t.Points, &t.Order, &t.IsDone, &t.Tip, &t.Memo, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Create inserts tasks in one transaction. Each gets a fresh id and is placed
// after the tasks already on its date.
func (s *TaskStore) Create(tasks []model.Task, now time.Time) ([]model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin create tasks: %w", err)
	}
	defer tx.Rollback()

	created := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		order, err := nextOrder(tx, t.Date)
		if err != nil {
			return nil, err
		}
		t.ID = uuid.NewString()
		t.Order = order
		t.CreatedAt = now.UTC().Truncate(time.Second)
		t.UpdatedAt = t.CreatedAt
		_, err = tx.Exec(
			`INSERT INTO tasks (id, title, partner_id, room, date, repeat, points, sort_order, is_done, tip, memo, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.PartnerID, t.Room, t.Date, t.Repeat, t.Points, t.Order, t.IsDone, t.Tip, t.Memo,
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		)
		if err != nil {
			return nil, fmt.Errorf("insert task: %w", err)
		}
		created = append(created, t)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create tasks: %w", err)
	}
	return created, nil
}

func nextOrder(q queryer, date calendar.Date) (int, error) {
	var maxOrder int
	err := q.QueryRow("SELECT COALESCE(MAX(sort_order), -1) FROM tasks WHERE date = ?", date).Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("query max sort_order: %w", err)
	}
	return maxOrder + 1, nil
}

// NextOrder returns one past the highest ordinal on date.
func (s *TaskStore) NextOrder(date calendar.Date) (int, error) {
	return nextOrder(s.db, date)
}

func (s *TaskStore) GetByID(id string) (*model.Task, error) {
	return getTask(s.db, id)
}

func getTask(q queryer, id string) (*model.Task, error) {
	t, err := scanTask(q.QueryRow("SELECT "+taskCols+" FROM tasks WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

// ListRange returns tasks dated within [from, to] ordered by date, ordinal and
// title. Zero bounds are open.
func (s *TaskStore) ListRange(from, to calendar.Date) ([]model.Task, error) {
	query := "SELECT " + taskCols + " FROM tasks WHERE 1=1"
	var args []any
	if !from.IsZero() {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date, sort_order, title"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// Update writes the fields a patch may change. Points and completion are not
// written: points only move through approved requests and completion through
// Toggle, so a stale copy of t cannot undo either.
func (s *TaskStore) Update(t model.Task, now time.Time) (*model.Task, error) {
	result, err := s.db.Exec(
		`UPDATE tasks SET title = ?, partner_id = ?, room = ?, date = ?, sort_order = ?,
		 tip = ?, memo = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.PartnerID, t.Room, t.Date, t.Order, t.Tip, t.Memo, formatTime(now), t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("task", t.ID)
	}
	return s.mustGet(s.db, t.ID)
}

// Toggle flips completion of the task in one transaction. check sees the row
// as stored and can refuse the change.
func (s *TaskStore) Toggle(id string, now time.Time, check func(model.Task) error) (*model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin toggle task: %w", err)
	}
	defer tx.Rollback()

	t, err := s.mustGet(tx, id)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(*t); err != nil {
			return nil, err
		}
	}
	if _, err := tx.Exec("UPDATE tasks SET is_done = NOT is_done, updated_at = ? WHERE id = ?", formatTime(now), id); err != nil {
		return nil, fmt.Errorf("toggle task: %w", err)
	}
	if t, err = s.mustGet(tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit toggle task: %w", err)
	}
	return t, nil
}

// mustGet is getTask with a missing row reported as NotFound.
func (s *TaskStore) mustGet(q queryer, id string) (*model.Task, error) {
	t, err := getTask(q, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("task", id)
	}
	return t, nil
}

// Delete reports whether a task was removed.
func (s *TaskStore) Delete(id string) (bool, error) {
	result, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
