package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is the scoping root for tables, roles and flows.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        Slug      `json:"name"`
	DisplayName string    `json:"display_name"`
	OwnerEmail  Email     `json:"owner_email"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProject creates a project with a validated slug name and owner email.
func NewProject(name, displayName, ownerEmail string) (*Project, error) {
	slug, err := NewSlug(name)
	if err != nil {
		return nil, err
	}
	email, err := NewEmail(ownerEmail)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = name
	}

	now := time.Now().UTC()
	return &Project{
		ID:          uuid.New(),
		Name:        slug,
		DisplayName: displayName,
		OwnerEmail:  email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Equal reports identity-based equality.
func (p *Project) Equal(other *Project) bool {
	return other != nil && p.ID == other.ID
}
