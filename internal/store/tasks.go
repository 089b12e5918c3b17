package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/jobtracker/internal/model"
)

const taskCols = `id, owner, title, description, category, priority, completed, points, created_at, completed_at`

func (s *Store) CreateTask(ctx context.Context, task model.Task) error {
	var completedAt any
	if task.CompletedAt != nil {
		completedAt = millis(*task.CompletedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Owner, task.Title, nullable(task.Description),
		task.Category, task.Priority, task.Completed, task.Points,
		millis(task.CreatedAt), completedAt,
	)
	return err
}

func (s *Store) GetTask(ctx context.Context, owner, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE owner = ? AND id = ?`, owner, id)
	return scanTask(row)
}

func (s *Store) ListTasks(ctx context.Context, owner string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE owner = ? ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// SaveTask writes back every mutable task field. Completion bookkeeping
// (points, streak, achievements) happens in the gamify layer before the save.
func (s *Store) SaveTask(ctx context.Context, task model.Task) error {
	var completedAt any
	if task.CompletedAt != nil {
		completedAt = millis(*task.CompletedAt)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks
         SET title = ?, description = ?, category = ?, priority = ?,
             completed = ?, points = ?, completed_at = ?
         WHERE owner = ? AND id = ?`,
		task.Title, nullable(task.Description), task.Category, task.Priority,
		task.Completed, task.Points, completedAt,
		task.Owner, task.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteTask(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// TaskCounts aggregates the owner's tasks for the stats endpoint and for
// achievement checks. Today is compared in UTC, matching the streak logic.
type TaskCounts struct {
	Total          int
	Completed      int
	Pending        int
	CompletedToday int
}

func (s *Store) CountTasks(ctx context.Context, owner string, now time.Time) (TaskCounts, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var c TaskCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
                COALESCE(SUM(completed), 0),
                COALESCE(SUM(CASE WHEN completed AND completed_at >= ? THEN 1 ELSE 0 END), 0)
         FROM tasks WHERE owner = ?`,
		dayStart.UnixMilli(), owner,
	).Scan(&c.Total, &c.Completed, &c.CompletedToday)
	if err != nil {
		return TaskCounts{}, err
	}
	c.Pending = c.Total - c.Completed
	return c, nil
}

func scanTask(row scanner) (model.Task, error) {
	var (
		task        model.Task
		description sql.NullString
		createdMs   int64
		completedMs sql.NullInt64
	)
	err := row.Scan(&task.ID, &task.Owner, &task.Title, &description,
		&task.Category, &task.Priority, &task.Completed, &task.Points,
		&createdMs, &completedMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, model.ErrNotFound
		}
		return model.Task{}, err
	}
	task.Description = fromNull(description)
	task.CreatedAt = time.UnixMilli(createdMs)
	if completedMs.Valid {
		t := time.UnixMilli(completedMs.Int64)
		task.CompletedAt = &t
	}
	return task, nil
}
