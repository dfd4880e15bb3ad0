package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/approval"
	"github.com/dukerupert/fairshare/internal/model"
)

type RequestStore struct {
	db *sql.DB
}

func NewRequestStore(db *sql.DB) *RequestStore {
	return &RequestStore{db: db}
}

const requestCols = "id, requester_id, task_id, task_title, task_date, delta, direction, status, created_at, resolved_at"

func scanRequest(sc scanner) (*model.AdjustmentRequest, error) {
	var r model.AdjustmentRequest
	var resolvedAt sql.NullTime
	if err := sc.Scan(&r.ID, &r.RequesterID, &r.TaskID, &r.TaskTitle, &r.TaskDate, &r.Delta, &r.Direction, &r.Status, &r.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		r.ResolvedAt = &t
	}
	return &r, nil
}

// Create inserts a pending request and one vote row per approver.
func (s *RequestStore) Create(req model.AdjustmentRequest) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO adjustment_requests (id, requester_id, task_id, task_title, task_date, delta, direction, status, created_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.RequesterID, req.TaskID, req.TaskTitle, req.TaskDate, req.Delta, req.Direction, req.Status,
		formatTime(req.CreatedAt), nullTime(req.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	if err := writeApprovals(tx, req); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

func writeApprovals(q queryer, req model.AdjustmentRequest) error {
	for partnerID, status := range req.Approvals {
		_, err := q.Exec(
			`INSERT INTO request_approvals (request_id, partner_id, status) VALUES (?, ?, ?)
			 ON CONFLICT(request_id, partner_id) DO UPDATE SET status = excluded.status`,
			req.ID, partnerID, status,
		)
		if err != nil {
			return fmt.Errorf("write approval: %w", err)
		}
	}
	return nil
}

func loadApprovals(q queryer, req *model.AdjustmentRequest) error {
	rows, err := q.Query("SELECT partner_id, status FROM request_approvals WHERE request_id = ?", req.ID)
	if err != nil {
		return fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	req.Approvals = make(map[string]model.RequestStatus)
	for rows.Next() {
		var partnerID string
		var status model.RequestStatus
		if err := rows.Scan(&partnerID, &status); err != nil {
			return fmt.Errorf("scan approval: %w", err)
		}
		req.Approvals[partnerID] = status
	}
	return rows.Err()
}

func getRequest(q queryer, id string) (*model.AdjustmentRequest, error) {
	req, err := scanRequest(q.QueryRow("SELECT "+requestCols+" FROM adjustment_requests WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	if err := loadApprovals(q, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestStore) GetByID(id string) (*model.AdjustmentRequest, error) {
	return getRequest(s.db, id)
}

// List returns requests oldest first. An empty status lists every request.
func (s *RequestStore) List(status model.RequestStatus) ([]model.AdjustmentRequest, error) {
	query := "SELECT " + requestCols + " FROM adjustment_requests"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at, rowid"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	var reqs []model.AdjustmentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reqs {
		if err := loadApprovals(s.db, &reqs[i]); err != nil {
			return nil, err
		}
	}
	return reqs, nil
}

// Decide records partnerID's vote in one transaction. When the vote approves
// the request, the task's points are adjusted in the same transaction and
// the updated task is returned; it is nil if the task no longer exists.
func (s *RequestStore) Decide(id, partnerID string, d model.Decision, now time.Time) (approval.Outcome, *model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return approval.Outcome{}, nil, fmt.Errorf("begin decide: %w", err)
	}
	defer tx.Rollback()

	req, err := getRequest(tx, id)
	if err != nil {
		return approval.Outcome{}, nil, err
	}
	if req == nil {
		return approval.Outcome{}, nil, apperr.NotFound("request", id)
	}

	out, err := approval.Decide(*req, partnerID, d, now)
	if err != nil {
		return approval.Outcome{}, nil, err
	}

	_, err = tx.Exec(
		"UPDATE adjustment_requests SET status = ?, resolved_at = ? WHERE id = ?",
		out.Request.Status, nullTime(out.Request.ResolvedAt), id,
	)
	if err != nil {
		return approval.Outcome{}, nil, fmt.Errorf("update request: %w", err)
	}
	if err := writeApprovals(tx, out.Request); err != nil {
		return approval.Outcome{}, nil, err
	}

	var updated *model.Task
	if out.Approved() {
		task, err := getTask(tx, req.TaskID)
		if err != nil {
			return approval.Outcome{}, nil, err
		}
		if task != nil {
			points := approval.AdjustPoints(task.Points, req.Delta, req.Direction)
			_, err = tx.Exec("UPDATE tasks SET points = ?, updated_at = ? WHERE id = ?", points, formatTime(now), task.ID)
			if err != nil {
				return approval.Outcome{}, nil, fmt.Errorf("adjust task points: %w", err)
			}
			if updated, err = getTask(tx, task.ID); err != nil {
				return approval.Outcome{}, nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return approval.Outcome{}, nil, fmt.Errorf("commit decide: %w", err)
	}
	return out, updated, nil
}

// Prune deletes resolved requests that were resolved before the cutoff.
func (s *RequestStore) Prune(before time.Time) (int64, error) {
	result, err := s.db.Exec(
		"DELETE FROM adjustment_requests WHERE status != 'pending' AND resolved_at < ?",
		formatTime(before),
	)
	if err != nil {
		return 0, fmt.Errorf("prune requests: %w", err)
	}
	return result.RowsAffected()
}
