package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
	"github.com/tracelens-io/tracelens-engine/pkg/models"
)

// csvImportHeader is the required first row of a catalog CSV. Order matters.
var csvImportHeader = []string{
	"table_name", "column_name", "data_type", "display_name",
	"primary_key", "nullable", "unique",
	"default_value", "foreign_key_table", "foreign_key_column",
}

// ImportRowError records why one CSV row was skipped.
type ImportRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportResult summarizes a catalog CSV import.
type ImportResult struct {
	TablesCreated  int              `json:"tables_created"`
	ColumnsCreated int              `json:"columns_created"`
	Skipped        []ImportRowError `json:"skipped,omitempty"`
}

// ImportCatalogCSV bulk-loads tables and columns from a CSV stream. Tables
// are created on first mention; each row adds one column. Rows are applied
// one at a time, not in a transaction: a bad row is recorded in the result
// and skipped, everything before and after it still lands. Re-importing a
// file skips rows whose column already exists.
func (s *CatalogService) ImportCatalogCSV(ctx context.Context, projectID uuid.UUID, r io.Reader) (*ImportResult, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewValidation("csv", "missing header row")
	}
	if err := validateImportHeader(header); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	tables := make(map[string]uuid.UUID)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Line: line, Message: err.Error()})
			continue
		}

		if err := s.importRow(ctx, projectID, record, tables, result); err != nil {
			result.Skipped = append(result.Skipped, ImportRowError{Line: line, Message: err.Error()})
		}
	}

	s.logger.Info("imported catalog csv",
		zap.String("project_id", projectID.String()),
		zap.Int("tables_created", result.TablesCreated),
		zap.Int("columns_created", result.ColumnsCreated),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (s *CatalogService) importRow(ctx context.Context, projectID uuid.UUID, record []string, tables map[string]uuid.UUID, result *ImportResult) error {
	if len(record) != len(csvImportHeader) {
		return fmt.Errorf("expected %d fields, got %d", len(csvImportHeader), len(record))
	}

	tableName := strings.TrimSpace(record[0])
	columnName := strings.TrimSpace(record[1])

	dataType, err := models.ParseDataType(strings.ToUpper(strings.TrimSpace(record[2])))
	if err != nil {
		return err
	}

	tableID, ok := tables[tableName]
	if !ok {
		id, created, err := s.resolveImportTable(ctx, projectID, tableName)
		if err != nil {
			return err
		}
		if created {
			result.TablesCreated++
		}
		tables[tableName] = id
		tableID = id
	}

	existing, err := s.columnRepo.GetByName(ctx, tableID, columnName)
	if err != nil {
		return fmt.Errorf("failed to check column name: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("column %q already exists", columnName)
	}

	input := ColumnInput{
		Name:             columnName,
		DisplayName:      strings.TrimSpace(record[3]),
		DataType:         dataType,
		IsPrimaryKey:     parseBool(record[4]),
		IsUnique:         parseBool(record[6]),
		ForeignKeyTable:  strings.TrimSpace(record[8]),
		ForeignKeyColumn: strings.TrimSpace(record[9]),
	}
	if v := strings.TrimSpace(record[5]); v != "" {
		nullable := parseBool(v)
		input.IsNullable = &nullable
	}
	if v := strings.TrimSpace(record[7]); v != "" {
		input.DefaultValue = &v
	}

	if _, err := s.AddColumn(ctx, tableID, input); err != nil {
		return err
	}
	result.ColumnsCreated++
	return nil
}

// resolveImportTable finds or creates the named table, reporting whether it
// was created.
func (s *CatalogService) resolveImportTable(ctx context.Context, projectID uuid.UUID, name string) (uuid.UUID, bool, error) {
	existing, err := s.tableRepo.GetByName(ctx, projectID, name)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to check table name: %w", err)
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	table, err := models.NewTable(projectID, name, "", "", nil)
	if err != nil {
		return uuid.Nil, false, err
	}
	if err := s.tableRepo.Create(ctx, table); err != nil {
		return uuid.Nil, false, err
	}
	return table.ID, true, nil
}

func validateImportHeader(header []string) error {
	if len(header) != len(csvImportHeader) {
		return apperrors.NewValidation("csv",
			fmt.Sprintf("expected %d header fields, got %d", len(csvImportHeader), len(header)))
	}
	for i, want := range csvImportHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return apperrors.NewValidation("csv",
				fmt.Sprintf("header field %d must be %q", i+1, want))
		}
	}
	return nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
