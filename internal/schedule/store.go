// Package schedule holds tasks in per-day buckets. Each bucket is ordered by
// ordinal and then title, and a task id lives in at most one bucket.
package schedule

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
)

type Store struct {
	mu     sync.RWMutex
	byDate map[calendar.Date][]model.Task
	dateOf map[string]calendar.Date
}

func NewStore() *Store {
	return &Store{
		byDate: make(map[calendar.Date][]model.Task),
		dateOf: make(map[string]calendar.Date),
	}
}

// Apply inserts task under its date or replaces the stored copy. When the
// task is held under another day, whether that is previousDate or the day the
// store last saw it on, it is moved rather than copied.
func (s *Store) Apply(task model.Task, previousDate calendar.Date) error {
	if task.ID == "" {
		return apperr.Validation("task id is required")
	}
	if task.Date.IsZero() {
		return apperr.Validation("task %s has no date", task.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !previousDate.IsZero() && previousDate != task.Date {
		s.removeLocked(previousDate, task.ID)
	}
	if known, ok := s.dateOf[task.ID]; ok && known != task.Date {
		s.removeLocked(known, task.ID)
	}

	bucket := s.byDate[task.Date]
	if i := indexOf(bucket, task.ID); i >= 0 {
		bucket[i] = task
	} else {
		bucket = append(bucket, task)
	}
	sortBucket(bucket)
	s.byDate[task.Date] = bucket
	s.dateOf[task.ID] = task.Date
	return nil
}

// Remove deletes the task from one day's bucket. It reports whether the task
// was there.
func (s *Store) Remove(date calendar.Date, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(date, id)
}

// Delete removes the task from whichever day holds it.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	date, ok := s.dateOf[id]
	if !ok {
		return false
	}
	return s.removeLocked(date, id)
}

func (s *Store) removeLocked(date calendar.Date, id string) bool {
	bucket := s.byDate[date]
	i := indexOf(bucket, id)
	if i < 0 {
		return false
	}
	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) == 0 {
		delete(s.byDate, date)
	} else {
		s.byDate[date] = bucket
	}
	if s.dateOf[id] == date {
		delete(s.dateOf, id)
	}
	return true
}

// ListByDate returns a copy of the day's bucket in display order.
func (s *Store) ListByDate(date calendar.Date) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.byDate[date])
}

// ListAll returns every task, ordered by day and then by bucket order.
func (s *Store) ListAll() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]model.Task, 0, len(s.dateOf))
	for _, d := range s.datesLocked() {
		all = append(all, s.byDate[d]...)
	}
	return all
}

// ListRange returns the tasks dated within [start, end]. A zero bound is
// open.
func (s *Store) ListRange(start, end calendar.Date) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Task
	for _, d := range s.datesLocked() {
		if (!start.IsZero() && d.Before(start)) || (!end.IsZero() && d.After(end)) {
			continue
		}
		out = append(out, s.byDate[d]...)
	}
	return out
}

func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	date, ok := s.dateOf[id]
	if !ok {
		return model.Task{}, false
	}
	bucket := s.byDate[date]
	return bucket[indexOf(bucket, id)], true
}

// SetPoints overwrites a task's point value in place. Date and ordinal are
// untouched.
func (s *Store) SetPoints(id string, points int) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	date, ok := s.dateOf[id]
	if !ok {
		return model.Task{}, false
	}
	bucket := s.byDate[date]
	i := indexOf(bucket, id)
	bucket[i].Points = points
	return bucket[i], true
}

// NextOrder returns one past the highest ordinal on date.
func (s *Store) NextOrder(date calendar.Date) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 0
	for _, t := range s.byDate[date] {
		next = max(next, t.Order+1)
	}
	return next
}

// Replace discards the current contents and loads tasks. Tasks without an id
// or a date are skipped.
func (s *Store) Replace(tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDate = make(map[calendar.Date][]model.Task)
	s.dateOf = make(map[string]calendar.Date)
	for _, t := range tasks {
		if t.ID == "" || t.Date.IsZero() {
			continue
		}
		if prev, ok := s.dateOf[t.ID]; ok {
			s.removeLocked(prev, t.ID)
		}
		s.byDate[t.Date] = append(s.byDate[t.Date], t)
		s.dateOf[t.ID] = t.Date
	}
	for _, bucket := range s.byDate {
		sortBucket(bucket)
	}
}

// Dates returns the days that hold at least one task, ascending.
func (s *Store) Dates() []calendar.Date {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datesLocked()
}

func (s *Store) datesLocked() []calendar.Date {
	dates := make([]calendar.Date, 0, len(s.byDate))
	for d := range s.byDate {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, calendar.Date.Compare)
	return dates
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dateOf)
}

func indexOf(bucket []model.Task, id string) int {
	return slices.IndexFunc(bucket, func(t model.Task) bool { return t.ID == id })
}

func sortBucket(bucket []model.Task) {
	slices.SortStableFunc(bucket, func(a, b model.Task) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), strings.Compare(a.Title, b.Title))
	})
}
