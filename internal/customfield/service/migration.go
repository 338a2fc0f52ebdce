package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/pathquery"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/permission"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/validation"
	"github.com/peoplebase/peoplebase-backend/pkg/database"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
)

// MigrationEngine rewrites the values of one schema into another through a
// field path mapping.
type MigrationEngine struct {
	tx      TxRunner
	schemas SchemaRepository
	values  ValueRepository
	engine  *validation.Engine
	remark  string
	logger  *logger.Logger
}

// NewMigrationEngine creates a new migration engine. remark is a fmt pattern
// receiving the source schema id; it is stored on every migrated value.
func NewMigrationEngine(tx TxRunner, schemas SchemaRepository, values ValueRepository, engine *validation.Engine, remark string, log *logger.Logger) *MigrationEngine {
	return &MigrationEngine{
		tx:      tx,
		schemas: schemas,
		values:  values,
		engine:  engine,
		remark:  remark,
		logger:  log.WithComponent("schema-migration"),
	}
}

// Migrate creates, for every value of the old schema, a value of the new
// schema built from the mapping. Rows whose new document does not validate
// are reported in FailedEntityIDs and the batch goes on. The old values are
// left in place, so a migration can be re-run.
func (m *MigrationEngine) Migrate(ctx context.Context, o *permission.Oracle, req domain.MigrationRequest) (*domain.MigrationResult, error) {
	oldSchema, err := m.visibleSchema(ctx, o, req.OldSchemaID)
	if err != nil {
		return nil, err
	}
	newSchema, err := m.visibleSchema(ctx, o, req.NewSchemaID)
	if err != nil {
		return nil, err
	}
	if !o.CanWriteValues(oldSchema) || !o.CanWriteValues(newSchema) {
		m.logger.Warn().
			Int64("account_id", o.ActorID()).
			Str("action", "migrate").
			Int64("old_schema_id", oldSchema.ID).
			Int64("new_schema_id", newSchema.ID).
			Msg("permission denied")
		return nil, errors.Forbidden("you must manage both schemas to migrate values")
	}
	if oldSchema.EntityType != newSchema.EntityType {
		return nil, errors.IncompatibleMigration(fmt.Sprintf(
			"cannot migrate %s values to a %s schema", oldSchema.EntityType, newSchema.EntityType))
	}

	compiled, err := m.engine.Compile(newSchema.Structure)
	if err != nil {
		return nil, err
	}

	sources, err := m.values.ListBySchema(ctx, oldSchema.ID)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(req.FieldMapping))
	for from := range req.FieldMapping {
		paths = append(paths, from)
	}
	sort.Strings(paths)

	remark := fmt.Sprintf(m.remark, oldSchema.ID)
	result := &domain.MigrationResult{FailedEntityIDs: []int64{}}

	err = m.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, src := range sources {
			doc := remap(src.Document, paths, req.FieldMapping)

			violations, err := compiled.Validate(map[string]any(doc))
			if err != nil {
				return err
			}
			if len(violations) > 0 {
				m.logger.Debug().
					Int64("entity_id", src.EntityID).
					Int64("value_id", src.ID).
					Int("violations", len(violations)).
					Msg("value does not fit the new schema")
				result.FailedEntityIDs = append(result.FailedEntityIDs, src.EntityID)
				continue
			}

			note := remark
			if err := m.values.Create(ctx, &domain.Value{
				SchemaID:   newSchema.ID,
				EntityType: src.EntityType,
				EntityID:   src.EntityID,
				Document:   doc,
				Remark:     &note,
			}); err != nil {
				return err
			}
			result.SuccessCount++
		}
		return nil
	})
	if err != nil {
		if database.MapPQError(err) == nil {
			return nil, err
		}
		m.logger.Error().Err(err).
			Int64("old_schema_id", oldSchema.ID).
			Int64("new_schema_id", newSchema.ID).
			Msg("migration rolled back")
		failed := make([]int64, 0, len(sources))
		for _, src := range sources {
			failed = append(failed, src.EntityID)
		}
		result = &domain.MigrationResult{FailedEntityIDs: failed}
	}
	result.FailedCount = len(result.FailedEntityIDs)

	m.logger.Info().
		Int64("old_schema_id", oldSchema.ID).
		Int64("new_schema_id", newSchema.ID).
		Int("migrated", result.SuccessCount).
		Int("failed", result.FailedCount).
		Msg("schema migration finished")

	return result, nil
}

// remap builds a new document holding, at each target path, the value found
// at the mapped source path. Absent and null source values are skipped.
func remap(src domain.Document, paths []string, mapping map[string]string) domain.Document {
	out := domain.Document{}
	for _, from := range paths {
		v, ok := pathquery.Resolve(map[string]any(src), from)
		if !ok || v == nil {
			continue
		}
		pathquery.Set(out, mapping[from], v)
	}
	return out
}

func (m *MigrationEngine) visibleSchema(ctx context.Context, o *permission.Oracle, id int64) (*domain.Schema, error) {
	s, err := m.schemas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.CanViewSchema(s) {
		return nil, errors.NotFound("schema")
	}
	return s, nil
}
