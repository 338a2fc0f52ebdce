package service

import (
	"context"
	"strings"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/permission"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/validation"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
)

// ValueStore attaches validated documents to entities.
type ValueStore struct {
	tx      TxRunner
	schemas SchemaRepository
	values  ValueRepository
	engine  *validation.Engine
	logger  *logger.Logger
}

// NewValueStore creates a new value store
func NewValueStore(tx TxRunner, schemas SchemaRepository, values ValueRepository, engine *validation.Engine, log *logger.Logger) *ValueStore {
	return &ValueStore{
		tx:      tx,
		schemas: schemas,
		values:  values,
		engine:  engine,
		logger:  log.WithComponent("value-store"),
	}
}

// Create validates spec.Document against its schema and stores it.
func (s *ValueStore) Create(ctx context.Context, o *permission.Oracle, spec domain.ValueSpec) (*domain.Value, error) {
	schema, err := s.visibleSchema(ctx, o, spec.SchemaID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.EntityType) == "" || !schema.EntityType.Accepts(spec.EntityType) {
		return nil, errors.Validation(map[string]string{
			"entity_type": "does not match schema entity type " + string(schema.EntityType),
		})
	}
	if !o.CanWriteValues(schema) {
		return nil, s.deny(o, "create", spec.SchemaID, "you cannot write values for this schema")
	}

	doc := spec.Document
	if doc == nil {
		doc = domain.Document{}
	}
	if err := s.engine.ValidateOrFail(schema.Structure, map[string]any(doc)); err != nil {
		return nil, err
	}

	v := &domain.Value{
		SchemaID:   schema.ID,
		EntityType: strings.TrimSpace(spec.EntityType),
		EntityID:   spec.EntityID,
		Document:   doc,
		Remark:     spec.Remark,
	}
	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.values.Create(ctx, v)
	}); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("value_id", v.ID).
		Int64("schema_id", v.SchemaID).
		Int64("entity_id", v.EntityID).
		Msg("value created")
	return v, nil
}

// Update replaces the document and, when given, the remark. The new document
// is validated against the value's schema before anything is written.
func (s *ValueStore) Update(ctx context.Context, o *permission.Oracle, id int64, patch domain.ValuePatch) (*domain.Value, error) {
	v, schema, err := s.writable(ctx, o, id, "update")
	if err != nil {
		return nil, err
	}

	if patch.Document != nil {
		if err := s.engine.ValidateOrFail(schema.Structure, map[string]any(patch.Document)); err != nil {
			return nil, err
		}
		v.Document = patch.Document
	}
	if patch.Remark != nil {
		v.Remark = patch.Remark
	}

	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.values.Update(ctx, v)
	}); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("value_id", v.ID).Msg("value updated")
	return v, nil
}

// Delete removes a value. A value the actor cannot see is NotFound.
func (s *ValueStore) Delete(ctx context.Context, o *permission.Oracle, id int64) (*domain.Value, error) {
	v, _, err := s.writable(ctx, o, id, "delete")
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.values.Delete(ctx, id)
	}); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("value_id", id).Msg("value deleted")
	return v, nil
}

// ListForEntity returns the readable values of one entity, optionally
// restricted to a schema.
func (s *ValueStore) ListForEntity(ctx context.Context, o *permission.Oracle, entityType string, entityID int64, schemaID *int64) ([]domain.Value, error) {
	byEntity, err := s.ListForEntities(ctx, o, domain.ValueQuery{
		EntityType: entityType,
		EntityIDs:  []int64{entityID},
		SchemaID:   schemaID,
	})
	if err != nil {
		return nil, err
	}
	if out := byEntity[entityID]; out != nil {
		return out, nil
	}
	return []domain.Value{}, nil
}

// ListForEntities returns the readable values of many entities, keyed by
// entity id. Entities without readable values are absent from the map.
func (s *ValueStore) ListForEntities(ctx context.Context, o *permission.Oracle, q domain.ValueQuery) (map[int64][]domain.Value, error) {
	out := map[int64][]domain.Value{}
	if len(q.EntityIDs) == 0 {
		return out, nil
	}

	rows, err := s.values.ListForEntities(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if !o.CanReadValue(row.SchemaCompanyID) {
			continue
		}
		out[row.EntityID] = append(out[row.EntityID], row.Value)
	}
	return out, nil
}

// writable loads a value and its schema and checks the actor may write it.
func (s *ValueStore) writable(ctx context.Context, o *permission.Oracle, id int64, action string) (*domain.Value, *domain.Schema, error) {
	v, err := s.values.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	schema, err := s.schemas.GetByID(ctx, v.SchemaID)
	if err != nil {
		return nil, nil, err
	}
	if !o.CanViewSchema(schema) || !o.CanReadValue(schema.CompanyID) {
		return nil, nil, errors.NotFound("value")
	}
	if !o.CanWriteValues(schema) {
		return nil, nil, s.deny(o, action, schema.ID, "you cannot write values for this schema")
	}
	return v, schema, nil
}

func (s *ValueStore) visibleSchema(ctx context.Context, o *permission.Oracle, id int64) (*domain.Schema, error) {
	schema, err := s.schemas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.CanViewSchema(schema) {
		return nil, errors.NotFound("schema")
	}
	return schema, nil
}

func (s *ValueStore) deny(o *permission.Oracle, action string, schemaID int64, msg string) error {
	s.logger.Warn().
		Int64("account_id", o.ActorID()).
		Str("action", action).
		Int64("schema_id", schemaID).
		Msg("permission denied")
	return errors.Forbidden(msg)
}
