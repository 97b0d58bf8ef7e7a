// Package repositories provides data access for tracelens-engine entities.
//
// Every lookup-by-id returns (nil, nil) when the row is absent: callers decide
// whether absence is an error. Uniqueness violations surface as
// apperrors.ErrAlreadyExists.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/database"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// wrapUnique maps unique constraint violations to apperrors.ErrAlreadyExists.
func wrapUnique(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, apperrors.ErrAlreadyExists)
	}
	return fmt.Errorf("failed to save %s: %w", what, err)
}

// ProjectRepository provides data access for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetByName(ctx context.Context, name models.Slug) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *database.DB) ProjectRepository {
	return &projectRepository{db: db}
}

var _ ProjectRepository = (*projectRepository)(nil)

const projectColumns = `id, name, display_name, owner_email, created_at, updated_at`

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO engine_projects (id, name, display_name, owner_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		project.ID, project.Name.String(), project.DisplayName,
		project.OwnerEmail.String(), project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return wrapUnique(err, "project")
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM engine_projects WHERE id = $1`
	return scanProject(r.db.QueryRow(ctx, query, id))
}

func (r *projectRepository) GetByName(ctx context.Context, name models.Slug) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM engine_projects WHERE name = $1`
	return scanProject(r.db.QueryRow(ctx, query, name.String()))
}

func (r *projectRepository) List(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM engine_projects ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return result, nil
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM engine_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	var name, email string

	err := row.Scan(&p.ID, &name, &p.DisplayName, &email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	p.Name = models.Slug(name)
	p.OwnerEmail = models.Email(email)
	return &p, nil
}
