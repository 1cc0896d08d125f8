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

const projectColumns = "id, name, description, owner, created_by, project_lead, organization_id, status, visibility, created_at, updated_at"

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var status, visibility string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Owner, &p.CreatedBy, &p.ProjectLead, &p.OrganizationID,
		&status, &visibility, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	p.Visibility = models.Visibility(visibility)
	p.Members = []models.Member{}
	return &p, nil
}

// loadMembers fills the member lists of the given projects in one query
func (s *Store) loadMembers(ctx context.Context, db *sql.DB, projects []*models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	byID := make(map[string]*models.Project, len(projects))
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT project_id, user_id, role, joined_at
		FROM project_members
		WHERE project_id = ANY($1)
		ORDER BY joined_at ASC, user_id ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load project members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID, role string
		var m models.Member
		if err := rows.Scan(&projectID, &m.UserID, &role, &m.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan project member: %w", err)
		}
		m.Role = models.ProjectRole(role)
		if p, ok := byID[projectID]; ok {
			p.Members = append(p.Members, m)
		}
	}
	return rows.Err()
}

// CreateProject inserts a project and its initial member list in one transaction
func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	tx, err := s.conn.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, owner, created_by, project_lead, organization_id, status, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, project.ID, project.Name, project.Description, project.Owner, project.CreatedBy, project.ProjectLead,
		project.OrganizationID, string(project.Status), string(project.Visibility), project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return mapError(err, "project "+project.ID)
	}

	for _, m := range project.Members {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO project_members (project_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
		`, project.ID, m.UserID, string(m.Role), m.JoinedAt)
		if err != nil {
			return mapError(err, "project member "+m.UserID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project: %w", err)
	}
	return nil
}

// GetProject loads a project with its members from the primary
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	db := s.conn.Primary()
	p, err := scanProject(db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "project "+id)
	}
	if err := s.loadMembers(ctx, db, []*models.Project{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// FindProjects returns one page of projects matching cond and the total match count
func (s *Store) FindProjects(ctx context.Context, cond query.Cond, page query.Page) ([]*models.Project, int, error) {
	if cond.IsNone() {
		return []*models.Project{}, 0, nil
	}
	pageSQL, countSQL, args, err := listQuery(projectsTable, projectColumns, cond, page)
	if err != nil {
		return nil, 0, err
	}

	db := s.conn.Primary()
	var total int
	if err := db.QueryRowContext(ctx, countSQL, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	rows, err := db.QueryContext(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	projects := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate projects: %w", err)
	}

	if err := s.loadMembers(ctx, db, projects); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// CountProjects counts projects matching cond
func (s *Store) CountProjects(ctx context.Context, cond query.Cond) (int, error) {
	return s.count(ctx, projectsTable, cond)
}

// ProjectIDs resolves the ids of all projects matching cond
func (s *Store) ProjectIDs(ctx context.Context, cond query.Cond) ([]string, error) {
	if cond.IsNone() {
		return []string{}, nil
	}
	clause, args, err := where(projectsTable, cond)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.Primary().QueryContext(ctx, "SELECT id FROM projects WHERE "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateProject overwrites a project's mutable attributes. Owner, creator,
// organization and members are not touched.
func (s *Store) UpdateProject(ctx context.Context, project *models.Project) error {
	result, err := s.conn.Primary().ExecContext(ctx, `
		UPDATE projects
		SET name = $2, description = $3, project_lead = $4, status = $5, visibility = $6, updated_at = $7
		WHERE id = $1
	`, project.ID, project.Name, project.Description, project.ProjectLead, string(project.Status),
		string(project.Visibility), project.UpdatedAt)
	if err != nil {
		return mapError(err, "project "+project.ID)
	}
	return expectRows(result, "project "+project.ID)
}

// DeleteProject removes a project. Its tasks must already be gone; the
// foreign key rejects the delete otherwise.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	result, err := s.conn.Primary().ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return expectRows(result, "project "+id)
}

// UpsertMember atomically adds a member or updates an existing member's sub-role
func (s *Store) UpsertMember(ctx context.Context, projectID string, member models.Member) error {
	joinedAt := member.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	_, err := s.conn.Primary().ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, projectID, member.UserID, string(member.Role), joinedAt)
	return mapError(err, "project "+projectID)
}

// PullMember atomically removes a user from one project's member list
func (s *Store) PullMember(ctx context.Context, projectID, userID string) error {
	db := s.conn.Primary()
	result, err := db.ExecContext(ctx, "DELETE FROM project_members WHERE project_id = $1 AND user_id = $2", projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)", projectID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return fmt.Errorf("project %s: %w", projectID, storage.ErrNotFound)
	}
	return nil
}

// PullMemberEverywhere removes a user from every project's member list
func (s *Store) PullMemberEverywhere(ctx context.Context, userID string) (int64, error) {
	result, err := s.conn.Primary().ExecContext(ctx, "DELETE FROM project_members WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove memberships: %w", err)
	}
	return result.RowsAffected()
}
