package models

import (
	"strconv"
	"time"
)

// Organization fields usable in filters
const (
	OrganizationFieldID       = "id"
	OrganizationFieldCode     = "code"
	OrganizationFieldIsActive = "is_active"
)

// Organization is the tenancy boundary every user and project belongs to
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	AdminID   string    `json:"admin_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldValues implements query.Document
func (o *Organization) FieldValues(field string) []string {
	switch field {
	case OrganizationFieldID:
		return []string{o.ID}
	case OrganizationFieldCode:
		return []string{o.Code}
	case OrganizationFieldIsActive:
		return []string{strconv.FormatBool(o.IsActive)}
	}
	return nil
}

// Clone returns a copy of the organization
func (o *Organization) Clone() *Organization {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}
