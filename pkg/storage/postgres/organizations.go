package postgres

import (
	"context"

	"github.com/platinummonkey/taskboard/pkg/models"
)

const organizationColumns = "id, name, code, admin_id, is_active, created_at, updated_at"

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Code, &o.AdminID, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrganization inserts an organization; a taken code is a conflict
func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	_, err := s.conn.Primary().ExecContext(ctx, `
		INSERT INTO organizations (id, name, code, admin_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, org.ID, org.Name, org.Code, org.AdminID, org.IsActive, org.CreatedAt, org.UpdatedAt)
	return mapError(err, "organization "+org.Code)
}

// GetOrganization loads an organization by id
func (s *Store) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	row := s.conn.Primary().QueryRowContext(ctx, "SELECT "+organizationColumns+" FROM organizations WHERE id = $1", id)
	o, err := scanOrganization(row)
	if err != nil {
		return nil, mapError(err, "organization "+id)
	}
	return o, nil
}

// GetOrganizationByCode loads an organization by its join code
func (s *Store) GetOrganizationByCode(ctx context.Context, code string) (*models.Organization, error) {
	row := s.conn.Primary().QueryRowContext(ctx, "SELECT "+organizationColumns+" FROM organizations WHERE code = $1", code)
	o, err := scanOrganization(row)
	if err != nil {
		return nil, mapError(err, "organization "+code)
	}
	return o, nil
}

// UpdateOrganization overwrites an organization's mutable fields
func (s *Store) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	result, err := s.conn.Primary().ExecContext(ctx, `
		UPDATE organizations
		SET name = $2, admin_id = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`, org.ID, org.Name, org.AdminID, org.IsActive, org.UpdatedAt)
	if err != nil {
		return mapError(err, "organization "+org.ID)
	}
	return expectRows(result, "organization "+org.ID)
}
