package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
	"github.com/tracelens-io/tracelens-engine/pkg/repositories"
)

// CatalogService manages projects and the table/column catalog.
type CatalogService struct {
	projectRepo repositories.ProjectRepository
	tableRepo   repositories.TableRepository
	columnRepo  repositories.ColumnRepository
	logger      *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	projectRepo repositories.ProjectRepository,
	tableRepo repositories.TableRepository,
	columnRepo repositories.ColumnRepository,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		projectRepo: projectRepo,
		tableRepo:   tableRepo,
		columnRepo:  columnRepo,
		logger:      logger.Named("catalog-service"),
	}
}

// CreateProject creates a project.
func (s *CatalogService) CreateProject(ctx context.Context, name, displayName, ownerEmail string) (*models.Project, error) {
	project, err := models.NewProject(name, displayName, ownerEmail)
	if err != nil {
		return nil, err
	}

	existing, err := s.projectRepo.GetByName(ctx, project.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check project name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("project %q: %w", name, apperrors.ErrAlreadyExists)
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("created project",
		zap.String("project_id", project.ID.String()),
		zap.String("name", project.Name.String()))
	return project, nil
}

// GetProject fetches one project.
func (s *CatalogService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", id, apperrors.ErrNotFound)
	}
	return project, nil
}

// ListProjects returns all projects.
func (s *CatalogService) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return s.projectRepo.List(ctx)
}

// DeleteProject removes a project and, via cascade, everything under it.
func (s *CatalogService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted project", zap.String("project_id", id.String()))
	return nil
}

// CreateTable adds a table to the catalog.
func (s *CatalogService) CreateTable(ctx context.Context, projectID uuid.UUID, name, displayName, description string, tags []string) (*models.Table, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	existing, err := s.tableRepo.GetByName(ctx, projectID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check table name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("table %q: %w", name, apperrors.ErrAlreadyExists)
	}

	table, err := models.NewTable(projectID, name, displayName, description, tags)
	if err != nil {
		return nil, err
	}
	if err := s.tableRepo.Create(ctx, table); err != nil {
		return nil, err
	}

	s.logger.Info("created table",
		zap.String("project_id", projectID.String()),
		zap.String("table_id", table.ID.String()),
		zap.String("name", table.Name))
	return table, nil
}

// GetTable fetches one table.
func (s *CatalogService) GetTable(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	table, err := s.tableRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, fmt.Errorf("table %s: %w", id, apperrors.ErrNotFound)
	}
	return table, nil
}

// ListTables returns the project's tables in name order.
func (s *CatalogService) ListTables(ctx context.Context, projectID uuid.UUID) ([]*models.Table, error) {
	return s.tableRepo.ListByProject(ctx, projectID)
}

// TableUpdate carries the optional fields of a table update. nil leaves the
// field unchanged.
type TableUpdate struct {
	Name        *string
	DisplayName *string
	Description *string
	Tags        []string
}

// UpdateTable applies a partial update.
func (s *CatalogService) UpdateTable(ctx context.Context, id uuid.UUID, update TableUpdate) (*models.Table, error) {
	table, err := s.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil && *update.Name != table.Name {
		existing, err := s.tableRepo.GetByName(ctx, table.ProjectID, *update.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check table name: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("table %q: %w", *update.Name, apperrors.ErrAlreadyExists)
		}
		if err := table.Rename(*update.Name); err != nil {
			return nil, err
		}
	}
	if update.DisplayName != nil {
		table.SetDisplayName(*update.DisplayName)
	}
	if update.Description != nil {
		table.SetDescription(*update.Description)
	}
	if update.Tags != nil {
		table.SetTags(update.Tags)
	}

	if err := s.tableRepo.Update(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

// DeleteTable removes a table and its columns. Traceability facts over those
// columns are left dangling.
func (s *CatalogService) DeleteTable(ctx context.Context, id uuid.UUID) error {
	table, err := s.GetTable(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tableRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted table",
		zap.String("project_id", table.ProjectID.String()),
		zap.String("table_id", id.String()),
		zap.String("name", table.Name))
	return nil
}

// ColumnInput describes a column to add or update.
type ColumnInput struct {
	Name             string
	DisplayName      string
	DataType         models.DataType
	IsPrimaryKey     bool
	IsNullable       *bool // nil keeps the model default (nullable)
	IsUnique         bool
	DefaultValue     *string
	ForeignKeyTable  string
	ForeignKeyColumn string
}

// AddColumn appends a column to a table.
func (s *CatalogService) AddColumn(ctx context.Context, tableID uuid.UUID, input ColumnInput) (*models.Column, error) {
	if _, err := s.GetTable(ctx, tableID); err != nil {
		return nil, err
	}

	existing, err := s.columnRepo.GetByName(ctx, tableID, input.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check column name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("column %q: %w", input.Name, apperrors.ErrAlreadyExists)
	}

	siblings, err := s.columnRepo.ListByTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}

	column, err := models.NewColumn(tableID, input.Name, input.DataType, len(siblings))
	if err != nil {
		return nil, err
	}
	if err := applyColumnInput(column, input); err != nil {
		return nil, err
	}
	if err := column.Validate(); err != nil {
		return nil, err
	}

	if err := s.columnRepo.Create(ctx, column); err != nil {
		return nil, err
	}
	return column, nil
}

// GetColumn fetches one column.
func (s *CatalogService) GetColumn(ctx context.Context, id uuid.UUID) (*models.Column, error) {
	column, err := s.columnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if column == nil {
		return nil, fmt.Errorf("column %s: %w", id, apperrors.ErrNotFound)
	}
	return column, nil
}

// ListColumns returns the table's columns in ordinal order.
func (s *CatalogService) ListColumns(ctx context.Context, tableID uuid.UUID) ([]*models.Column, error) {
	return s.columnRepo.ListByTable(ctx, tableID)
}

// UpdateColumn replaces a column's attributes with the given input. The name
// may change but must stay unique within the table.
func (s *CatalogService) UpdateColumn(ctx context.Context, id uuid.UUID, input ColumnInput) (*models.Column, error) {
	column, err := s.GetColumn(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" && input.Name != column.Name {
		existing, err := s.columnRepo.GetByName(ctx, column.TableID, input.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check column name: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("column %q: %w", input.Name, apperrors.ErrAlreadyExists)
		}
		column.Name = input.Name
	}
	if input.DataType != "" {
		dt, err := models.ParseDataType(string(input.DataType))
		if err != nil {
			return nil, err
		}
		column.DataType = dt
	}
	if err := applyColumnInput(column, input); err != nil {
		return nil, err
	}
	if err := column.Validate(); err != nil {
		return nil, err
	}

	if err := s.columnRepo.Update(ctx, column); err != nil {
		return nil, err
	}
	return column, nil
}

// DeleteColumn removes a column. Facts over it dangle.
func (s *CatalogService) DeleteColumn(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetColumn(ctx, id); err != nil {
		return err
	}
	return s.columnRepo.Delete(ctx, id)
}

func applyColumnInput(column *models.Column, input ColumnInput) error {
	column.SetDisplayName(input.DisplayName)
	column.SetPrimaryKey(input.IsPrimaryKey)
	if input.IsNullable != nil {
		if err := column.SetNullable(*input.IsNullable); err != nil {
			return err
		}
	}
	column.SetUnique(input.IsUnique)
	column.SetDefaultValue(input.DefaultValue)

	switch {
	case input.ForeignKeyTable == "" && input.ForeignKeyColumn == "":
		column.ClearForeignKey()
	default:
		if err := column.SetForeignKey(input.ForeignKeyTable, input.ForeignKeyColumn); err != nil {
			return err
		}
	}
	return nil
}
