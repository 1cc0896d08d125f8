package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/taskboard/pkg/models"
	"github.com/platinummonkey/taskboard/pkg/query"
)

const userColumns = "id, name, email, role, organization_id, is_active, is_approved, approved_by, approved_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role string
	var approvedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &u.OrganizationID, &u.IsActive, &u.IsApproved,
		&u.ApprovedBy, &approvedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.ApprovedAt = timePtr(approvedAt)
	return &u, nil
}

// nullableTime converts an optional timestamp for a nullable column
func nullableTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// timePtr converts a nullable column back into an optional timestamp
func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// CreateUser inserts a user
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.conn.Primary().ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, organization_id, is_active, is_approved, approved_by, approved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, user.ID, user.Name, user.Email, string(user.Role), user.OrganizationID, user.IsActive, user.IsApproved,
		user.ApprovedBy, nullableTime(user.ApprovedAt), user.CreatedAt, user.UpdatedAt)
	return mapError(err, "user "+user.Email)
}

// GetUser loads a user by id
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.conn.Primary().QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "user "+id)
	}
	return u, nil
}

// GetUserByEmail loads a user by case-insensitive email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.conn.Primary().QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER($1)", email)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "user "+email)
	}
	return u, nil
}

// FindUsers returns one page of users matching cond and the total match count
func (s *Store) FindUsers(ctx context.Context, cond query.Cond, page query.Page) ([]*models.User, int, error) {
	if cond.IsNone() {
		return []*models.User{}, 0, nil
	}
	pageSQL, countSQL, args, err := listQuery(usersTable, userColumns, cond, page)
	if err != nil {
		return nil, 0, err
	}

	db := s.conn.Primary()
	var total int
	if err := db.QueryRowContext(ctx, countSQL, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := db.QueryContext(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, total, nil
}

// CountUsers counts users matching cond
func (s *Store) CountUsers(ctx context.Context, cond query.Cond) (int, error) {
	return s.count(ctx, usersTable, cond)
}

// UpdateUser overwrites a user's mutable fields
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	result, err := s.conn.Primary().ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, role = $4, is_active = $5, is_approved = $6, approved_by = $7, approved_at = $8, updated_at = $9
		WHERE id = $1
	`, user.ID, user.Name, user.Email, string(user.Role), user.IsActive, user.IsApproved, user.ApprovedBy,
		nullableTime(user.ApprovedAt), user.UpdatedAt)
	if err != nil {
		return mapError(err, "user "+user.ID)
	}
	return expectRows(result, "user "+user.ID)
}

// DeleteUser removes a user record
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.conn.Primary().ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return mapError(err, "user "+id)
	}
	return expectRows(result, "user "+id)
}
