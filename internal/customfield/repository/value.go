package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/database"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
)

const valueColumns = `id, schema_id, entity_type, entity_id, document, remark, created_at, updated_at`

const scopedValueColumns = `v.id, v.schema_id, v.entity_type, v.entity_id, v.document, v.remark,
	v.created_at, v.updated_at, s.company_id AS schema_company_id, s.is_system AS schema_is_system`

// ValueRepository handles value persistence
type ValueRepository struct {
	db *database.DB
}

// NewValueRepository creates a new value repository
func NewValueRepository(db *database.DB) *ValueRepository {
	return &ValueRepository{db: db}
}

// Create inserts a value and fills its id and timestamps
func (r *ValueRepository) Create(ctx context.Context, v *domain.Value) error {
	query := `
		INSERT INTO json_schema_values (schema_id, entity_type, entity_id, document, remark)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	return r.db.Executor(ctx).QueryRowxContext(ctx, query,
		v.SchemaID, v.EntityType, v.EntityID, v.Document, v.Remark,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// GetByID gets a value by ID
func (r *ValueRepository) GetByID(ctx context.Context, id int64) (*domain.Value, error) {
	var v domain.Value
	query := `SELECT ` + valueColumns + ` FROM json_schema_values WHERE id = $1`

	if err := r.db.Executor(ctx).GetContext(ctx, &v, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("value")
		}
		return nil, err
	}
	return &v, nil
}

// Update replaces document and remark
func (r *ValueRepository) Update(ctx context.Context, v *domain.Value) error {
	query := `
		UPDATE json_schema_values SET document = $2, remark = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Executor(ctx).QueryRowxContext(ctx, query, v.ID, v.Document, v.Remark).Scan(&v.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("value")
	}
	return err
}

// Delete removes a value
func (r *ValueRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM json_schema_values WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("value")
	}
	return nil
}

// CountBySchema counts values referencing a schema
func (r *ValueRepository) CountBySchema(ctx context.Context, schemaID int64) (int64, error) {
	var n int64
	err := r.db.Executor(ctx).GetContext(ctx, &n,
		`SELECT COUNT(*) FROM json_schema_values WHERE schema_id = $1`, schemaID)
	return n, err
}

// ListBySchema returns every value of a schema in id order
func (r *ValueRepository) ListBySchema(ctx context.Context, schemaID int64) ([]domain.Value, error) {
	values := []domain.Value{}
	query := `SELECT ` + valueColumns + ` FROM json_schema_values WHERE schema_id = $1 ORDER BY id`
	if err := r.db.Executor(ctx).SelectContext(ctx, &values, query, schemaID); err != nil {
		return nil, err
	}
	return values, nil
}

// ListForEntities returns the values of the given entities together with
// their schema's ownership, ordered by entity then id.
func (r *ValueRepository) ListForEntities(ctx context.Context, q domain.ValueQuery) ([]domain.ScopedValue, error) {
	query := `
		SELECT ` + scopedValueColumns + `
		FROM json_schema_values v
		JOIN json_schemas s ON s.id = v.schema_id
		WHERE lower(v.entity_type) = lower($1)
		  AND v.entity_id = ANY($2)
		  AND ($3::BIGINT IS NULL OR v.schema_id = $3)
		ORDER BY v.entity_id, v.id
	`

	values := []domain.ScopedValue{}
	if err := r.db.Executor(ctx).SelectContext(ctx, &values, query,
		q.EntityType, pq.Array(q.EntityIDs), q.SchemaID,
	); err != nil {
		return nil, err
	}
	return values, nil
}

// ListInScope returns the values a search may read: values of entity type
// whose schema belongs to one of the scope's companies or is a system schema.
func (r *ValueRepository) ListInScope(ctx context.Context, scope domain.SearchScope) ([]domain.ScopedValue, error) {
	query := `
		SELECT ` + scopedValueColumns + `
		FROM json_schema_values v
		JOIN json_schemas s ON s.id = v.schema_id
		WHERE lower(v.entity_type) = lower($1)
		  AND ($2::BIGINT IS NULL OR v.schema_id = $2)
		  AND (s.company_id = ANY($3) OR s.is_system)
		ORDER BY v.entity_id, v.id
	`

	values := []domain.ScopedValue{}
	if err := r.db.Executor(ctx).SelectContext(ctx, &values, query,
		scope.EntityType, scope.SchemaID, pq.Array(scope.CompanyIDs),
	); err != nil {
		return nil, err
	}
	return values, nil
}
