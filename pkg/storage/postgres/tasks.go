package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/storage"
)

const taskColumns = "id, title, description, project_id, assignee, reporter, status, priority, dependencies, due_date, created_at, updated_at"

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var status, priority string
	var deps pq.StringArray
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Project, &t.Assignee, &t.Reporter, &status, &priority,
		&deps, &due, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	t.Priority = models.Priority(priority)
	t.Dependencies = []string(deps)
	if t.Dependencies == nil {
		t.Dependencies = []string{}
	}
	t.DueDate = timePtr(due)
	t.Comments = []models.Comment{}
	return &t, nil
}

// loadComments fills the comments of the given tasks in one query
func (s *Store) loadComments(ctx context.Context, db *sql.DB, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[string]*models.Task, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, task_id, author, body, created_at
		FROM task_comments
		WHERE task_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load task comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comment
		var taskID string
		if err := rows.Scan(&c.ID, &taskID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan task comment: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Comments = append(t.Comments, c)
		}
	}
	return rows.Err()
}

func dependencies(t *models.Task) interface{} {
	deps := t.Dependencies
	if deps == nil {
		deps = []string{}
	}
	return pq.Array(deps)
}

// CreateTask inserts a task; an unknown project is reported as not found
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	_, err := s.conn.Primary().ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, project_id, assignee, reporter, status, priority, dependencies, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, task.ID, task.Title, task.Description, task.Project, task.Assignee, task.Reporter, string(task.Status),
		string(task.Priority), dependencies(task), nullableTime(task.DueDate), task.CreatedAt, task.UpdatedAt)
	return mapError(err, "task "+task.ID)
}

// GetTask loads a task with its comments from the primary
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	db := s.conn.Primary()
	t, err := scanTask(db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "task "+id)
	}
	if err := s.loadComments(ctx, db, []*models.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// FindTasks returns one page of tasks matching cond and the total match count
func (s *Store) FindTasks(ctx context.Context, cond query.Cond, page query.Page) ([]*models.Task, int, error) {
	if cond.IsNone() {
		return []*models.Task{}, 0, nil
	}
	pageSQL, countSQL, args, err := listQuery(tasksTable, taskColumns, cond, page)
	if err != nil {
		return nil, 0, err
	}

	db := s.conn.Primary()
	var total int
	if err := db.QueryRowContext(ctx, countSQL, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	rows, err := db.QueryContext(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	if err := s.loadComments(ctx, db, tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// CountTasks counts tasks matching cond
func (s *Store) CountTasks(ctx context.Context, cond query.Cond) (int, error) {
	return s.count(ctx, tasksTable, cond)
}

// UpdateTask writes the set fields of patch. Unset columns keep their
// stored value; project, reporter and comments are never written here.
func (s *Store) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) error {
	var deps interface{}
	if patch.Dependencies != nil {
		deps = dependencies(&models.Task{Dependencies: *patch.Dependencies})
	}
	result, err := s.conn.Primary().ExecContext(ctx, `
		UPDATE tasks
		SET title = COALESCE($2, title), description = COALESCE($3, description),
			assignee = COALESCE($4, assignee), status = COALESCE($5, status),
			priority = COALESCE($6, priority), dependencies = COALESCE($7, dependencies),
			due_date = COALESCE($8, due_date), updated_at = $9
		WHERE id = $1
	`, id, nullableString(patch.Title), nullableString(patch.Description), nullableString(patch.Assignee),
		nullableString((*string)(patch.Status)), nullableString((*string)(patch.Priority)), deps,
		nullableTime(patch.DueDate), patch.UpdatedAt)
	if err != nil {
		return mapError(err, "task "+id)
	}
	return expectRows(result, "task "+id)
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// DeleteTask removes a task and its comments
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.conn.Primary().ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return expectRows(result, "task "+id)
}

// AddComment appends a comment to a task
func (s *Store) AddComment(ctx context.Context, taskID string, comment models.Comment) error {
	_, err := s.conn.Primary().ExecContext(ctx, `
		INSERT INTO task_comments (id, task_id, author, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, taskID, comment.Author, comment.Body, comment.CreatedAt)
	return mapError(err, "task "+taskID)
}

// DeleteTasksByProject removes every task of a project
func (s *Store) DeleteTasksByProject(ctx context.Context, projectID string) (int64, error) {
	result, err := s.conn.Primary().ExecContext(ctx, "DELETE FROM tasks WHERE project_id = $1", projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	return result.RowsAffected()
}

// ClearAssignee unassigns every task assigned to the user
func (s *Store) ClearAssignee(ctx context.Context, userID string) (int64, error) {
	result, err := s.conn.Primary().ExecContext(ctx,
		"UPDATE tasks SET assignee = '', updated_at = $2 WHERE assignee = $1", userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clear assignee: %w", err)
	}
	return result.RowsAffected()
}

// ReassignReporter moves every task reported by one user to another
func (s *Store) ReassignReporter(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	result, err := s.conn.Primary().ExecContext(ctx,
		"UPDATE tasks SET reporter = $2, updated_at = $3 WHERE reporter = $1", fromUserID, toUserID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reassign reporter: %w", err)
	}
	return result.RowsAffected()
}
