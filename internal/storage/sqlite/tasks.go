package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"deskboard/internal/models"
)

const taskColumns = `id, project_id, title, status, priority, due_date, position, description, assignees, comments, timeline, created_at, updated_at`

// listTasks returns a project's tasks ordered by lane, then position.
func (s *Store) listTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY status, position, created_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task: %w", ErrNotFound)
	}
	if err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// CreateTask inserts a new task at the tail of its lane.
func (s *Store) CreateTask(ctx context.Context, projectID string, t models.Task) (models.Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return models.Task{}, fmt.Errorf("task title must not be empty")
	}
	if _, ok := models.ValidPriorities[t.Priority]; !ok {
		t.Priority = models.PriorityMedium
	}
	if t.ID == "" {
		t.ID = newID()
	}
	t.ProjectID = projectID

	pos, err := s.nextPosition(ctx, projectID, t.Status)
	if err != nil {
		return models.Task{}, err
	}

	description, assignees, comments, timeline, err := taskJSON(t)
	if err != nil {
		return models.Task{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks(id, project_id, title, status, priority, due_date, position, description, assignees, comments, timeline)
         VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, projectID, strings.TrimSpace(t.Title), t.Status, t.Priority, nullTime(t.DueDate), pos, description, assignees, comments, timeline)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, t.ID)
}

// UpdateTask replaces a task row with the patched state. A status change
// re-slots the task at the tail of its new lane.
func (s *Store) UpdateTask(ctx context.Context, projectID string, t models.Task) error {
	current, err := s.GetTask(ctx, t.ID)
	if err != nil {
		return err
	}
	if current.ProjectID != projectID {
		return fmt.Errorf("task %s does not belong to project %s", t.ID, projectID)
	}

	var position int64
	if err := s.db.QueryRowContext(ctx, `SELECT position FROM tasks WHERE id = ?`, t.ID).Scan(&position); err != nil {
		return fmt.Errorf("task position: %w", err)
	}
	if t.Status != current.Status {
		pos, err := s.nextPosition(ctx, projectID, t.Status)
		if err != nil {
			return err
		}
		position = pos
	}

	description, assignees, comments, timeline, err := taskJSON(t)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, status = ?, priority = ?, due_date = ?, position = ?, description = ?, assignees = ?, comments = ?, timeline = ?, updated_at = CURRENT_TIMESTAMP
         WHERE id = ?`,
		strings.TrimSpace(t.Title), t.Status, t.Priority, nullTime(t.DueDate), position, description, assignees, comments, timeline, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask removes a task by id within its owning project.
func (s *Store) DeleteTask(ctx context.Context, projectID, taskID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireAffected(res, "task")
}

// ReorderLane rewrites the canonical positions of a lane to match the given
// ID list. IDs belonging to other projects or lanes are ignored.
func (s *Store) ReorderLane(ctx context.Context, projectID, lane string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET position = ? WHERE id = ? AND project_id = ? AND status = ?`, i, id, projectID, lane); err != nil {
			return fmt.Errorf("reorder task %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) nextPosition(ctx context.Context, projectID, status string) (int64, error) {
	var position sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE project_id = ? AND status = ?`, projectID, status).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return position.Int64 + 1, nil
	}
	return 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t           models.Task
		due         sql.NullTime
		position    int64
		description string
		assignees   string
		comments    string
		timeline    string
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &due, &position, &description, &assignees, &comments, &timeline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if err := unmarshalJSON(description, &t.Description); err != nil {
		return models.Task{}, err
	}
	if err := unmarshalJSON(assignees, &t.Assignees); err != nil {
		return models.Task{}, err
	}
	if err := unmarshalJSON(comments, &t.Comments); err != nil {
		return models.Task{}, err
	}
	if err := unmarshalJSON(timeline, &t.Timeline); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func taskJSON(t models.Task) (description, assignees, comments, timeline string, err error) {
	if description, err = marshalJSON(orEmpty(t.Description)); err != nil {
		return
	}
	if assignees, err = marshalJSON(orEmpty(t.Assignees)); err != nil {
		return
	}
	if comments, err = marshalJSON(orEmpty(t.Comments)); err != nil {
		return
	}
	timeline, err = marshalJSON(orEmpty(t.Timeline))
	return
}

// orEmpty keeps JSON columns as arrays rather than nulls.
func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
