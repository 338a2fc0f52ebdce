// Package repository persists custom-field schemas, values and the org replica
// in PostgreSQL. Every method runs on the transaction carried by ctx, if any.
package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/database"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
)

const schemaColumns = `id, name, entity_type, structure, ui_hints, company_id, is_system,
	version, parent_schema_id, remark, created_at, updated_at`

// SchemaRepository handles schema persistence
type SchemaRepository struct {
	db *database.DB
}

// NewSchemaRepository creates a new schema repository
func NewSchemaRepository(db *database.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// Create inserts a schema and fills its id and timestamps
func (r *SchemaRepository) Create(ctx context.Context, s *domain.Schema) error {
	query := `
		INSERT INTO json_schemas (
			name, entity_type, structure, ui_hints, company_id, is_system,
			version, parent_schema_id, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	return r.db.Executor(ctx).QueryRowxContext(ctx, query,
		s.Name, string(s.EntityType), s.Structure, s.UIHints, s.CompanyID, s.IsSystem,
		s.Version, s.ParentSchemaID, s.Remark,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID gets a schema by ID
func (r *SchemaRepository) GetByID(ctx context.Context, id int64) (*domain.Schema, error) {
	var s domain.Schema
	query := `SELECT ` + schemaColumns + ` FROM json_schemas WHERE id = $1`

	if err := r.db.Executor(ctx).GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("schema")
		}
		return nil, err
	}
	return &s, nil
}

// Update rewrites the cosmetic columns in place and refreshes updated_at.
// Structure and version are never updated; structural edits fork a new row.
func (r *SchemaRepository) Update(ctx context.Context, s *domain.Schema) error {
	query := `
		UPDATE json_schemas SET
			name = $2, ui_hints = $3, remark = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Executor(ctx).QueryRowxContext(ctx, query, s.ID, s.Name, s.UIHints, s.Remark).Scan(&s.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("schema")
	}
	return err
}

// Delete removes a schema
func (r *SchemaRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM json_schemas WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("schema")
	}
	return nil
}

// List returns one page of schemas, newest update first, and the total count.
func (r *SchemaRepository) List(ctx context.Context, q domain.SchemaQuery) ([]domain.Schema, int64, error) {
	where := `
		WHERE ($1 = '' OR entity_type = $1)
		  AND ($4 OR company_id = ANY($2) OR ($3 AND (is_system OR company_id IS NULL)))
	`
	companies := pq.Array(q.CompanyIDs)
	if q.CompanyIDs == nil {
		companies = pq.Array([]int64{})
	}

	exec := r.db.Executor(ctx)

	var total int64
	countQuery := `SELECT COUNT(*) FROM json_schemas` + where
	if err := exec.GetContext(ctx, &total, countQuery,
		string(q.EntityType), companies, q.IncludeShared, q.AllCompanies,
	); err != nil {
		return nil, 0, err
	}

	schemas := []domain.Schema{}
	query := `SELECT ` + schemaColumns + ` FROM json_schemas` + where + `
		ORDER BY updated_at DESC, id DESC
		LIMIT $5 OFFSET $6
	`
	if err := exec.SelectContext(ctx, &schemas, query,
		string(q.EntityType), companies, q.IncludeShared, q.AllCompanies, q.Limit, q.Offset,
	); err != nil {
		return nil, 0, err
	}

	return schemas, total, nil
}
