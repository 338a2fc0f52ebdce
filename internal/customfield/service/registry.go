package service

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"reflect"
	"strings"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/permission"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/validation"
	"github.com/peoplebase/peoplebase-backend/pkg/database"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
)

var errSchemaReferenced = stderrors.New("schema is referenced by values")

// SchemaRegistry owns the versioned schemas.
type SchemaRegistry struct {
	tx      TxRunner
	schemas SchemaRepository
	values  ValueRepository
	engine  *validation.Engine
	paging  Paging
	logger  *logger.Logger
}

// NewSchemaRegistry creates a new schema registry
func NewSchemaRegistry(
	tx TxRunner,
	schemas SchemaRepository,
	values ValueRepository,
	engine *validation.Engine,
	paging Paging,
	log *logger.Logger,
) *SchemaRegistry {
	return &SchemaRegistry{
		tx:      tx,
		schemas: schemas,
		values:  values,
		engine:  engine,
		paging:  paging,
		logger:  log.WithComponent("schema-registry"),
	}
}

// IsStructuralChange reports whether replacing current with next changes what
// documents validate. Structures are compared by their canonical JSON, so
// key order and numeric representation do not count as changes.
func IsStructuralChange(current, next domain.Document) bool {
	a, errA := json.Marshal(map[string]any(current))
	b, errB := json.Marshal(map[string]any(next))
	if errA != nil || errB != nil {
		return !reflect.DeepEqual(current, next)
	}
	return !bytes.Equal(a, b)
}

// Create persists a new schema at version 1.
func (r *SchemaRegistry) Create(ctx context.Context, o *permission.Oracle, spec domain.SchemaSpec) (*domain.Schema, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.Validation(map[string]string{"name": "must not be blank"})
	}
	entityType, err := domain.ParseEntityType(string(spec.EntityType))
	if err != nil {
		return nil, errors.Validation(map[string]string{"entity_type": err.Error()})
	}
	spec.EntityType = entityType
	if err := r.engine.CheckStructure(spec.Structure); err != nil {
		return nil, err
	}
	if !o.CanCreateSchema(&spec) {
		return nil, r.deny(o, "create", 0, "you cannot create schemas in this company")
	}

	s := &domain.Schema{
		Name:       strings.TrimSpace(spec.Name),
		EntityType: spec.EntityType,
		Structure:  spec.Structure.Clone(),
		UIHints:    spec.UIHints,
		CompanyID:  spec.CompanyID,
		IsSystem:   spec.IsSystem,
		Version:    1,
		Remark:     spec.Remark,
	}

	if err := r.tx.WithTx(ctx, func(ctx context.Context) error {
		return r.schemas.Create(ctx, s)
	}); err != nil {
		return nil, err
	}

	r.logger.Info().
		Int64("schema_id", s.ID).
		Interface("company_id", s.CompanyID).
		Str("entity_type", string(s.EntityType)).
		Msg("schema created")

	return s, nil
}

// Get returns a schema the actor can see. Invisible schemas are NotFound.
func (r *SchemaRegistry) Get(ctx context.Context, o *permission.Oracle, id int64) (*domain.Schema, error) {
	s, err := r.schemas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.CanViewSchema(s) {
		return nil, errors.NotFound("schema")
	}
	return s, nil
}

// Update applies patch. A structural change forks a new version and returns
// it with forked=true; the target row is left untouched. Otherwise name,
// ui_hints and remark are changed in place and the version is kept.
func (r *SchemaRegistry) Update(ctx context.Context, o *permission.Oracle, id int64, patch domain.SchemaPatch) (*domain.Schema, bool, error) {
	target, err := r.Get(ctx, o, id)
	if err != nil {
		return nil, false, err
	}
	if !o.CanMutateSchema(target) {
		return nil, false, r.deny(o, "update", id, "you cannot modify this schema")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, false, errors.Validation(map[string]string{"name": "must not be blank"})
	}

	if patch.Structure != nil && IsStructuralChange(target.Structure, patch.Structure) {
		if err := r.engine.CheckStructure(patch.Structure); err != nil {
			return nil, false, err
		}
		fork := forkOf(target, patch)
		if err := r.tx.WithTx(ctx, func(ctx context.Context) error {
			return r.schemas.Create(ctx, fork)
		}); err != nil {
			return nil, false, err
		}

		r.logger.Info().
			Int64("schema_id", fork.ID).
			Int64("parent_schema_id", target.ID).
			Int("version", fork.Version).
			Msg("schema forked")
		return fork, true, nil
	}

	if patch.Name != nil {
		target.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.UIHints != nil {
		target.UIHints = patch.UIHints
	}
	if patch.Remark != nil {
		target.Remark = patch.Remark
	}

	if err := r.tx.WithTx(ctx, func(ctx context.Context) error {
		return r.schemas.Update(ctx, target)
	}); err != nil {
		return nil, false, err
	}

	r.logger.Info().Int64("schema_id", target.ID).Msg("schema updated")
	return target, false, nil
}

// forkOf builds the next version of target; unspecified fields are copied.
func forkOf(target *domain.Schema, patch domain.SchemaPatch) *domain.Schema {
	parentID := target.ID
	fork := &domain.Schema{
		Name:           target.Name,
		EntityType:     target.EntityType,
		Structure:      patch.Structure.Clone(),
		UIHints:        target.UIHints,
		CompanyID:      target.CompanyID,
		IsSystem:       target.IsSystem,
		Version:        target.Version + 1,
		ParentSchemaID: &parentID,
		Remark:         target.Remark,
	}
	if patch.Name != nil {
		fork.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.UIHints != nil {
		fork.UIHints = patch.UIHints
	}
	if patch.Remark != nil {
		fork.Remark = patch.Remark
	}
	return fork
}

// Clone copies a visible schema into another company as an independent,
// non-system schema at version 1.
func (r *SchemaRegistry) Clone(ctx context.Context, o *permission.Oracle, req domain.CloneRequest) (*domain.Schema, error) {
	source, err := r.Get(ctx, o, req.SourceSchemaID)
	if err != nil {
		return nil, err
	}
	if !o.CanManage(req.TargetCompanyID) {
		return nil, r.deny(o, "clone", source.ID, "you cannot create schemas in the target company")
	}

	name := source.Name
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}
	target := req.TargetCompanyID

	clone := &domain.Schema{
		Name:       name,
		EntityType: source.EntityType,
		Structure:  source.Structure.Clone(),
		UIHints:    append(domain.RawJSON(nil), source.UIHints...),
		CompanyID:  &target,
		IsSystem:   false,
		Version:    1,
		Remark:     source.Remark,
	}

	if err := r.tx.WithTx(ctx, func(ctx context.Context) error {
		return r.schemas.Create(ctx, clone)
	}); err != nil {
		return nil, err
	}

	r.logger.Info().
		Int64("schema_id", clone.ID).
		Int64("source_schema_id", source.ID).
		Int64("company_id", target).
		Msg("schema cloned")

	return clone, nil
}

// Delete removes a schema and returns it. deleted is false, without error,
// while any value still references the schema.
func (r *SchemaRegistry) Delete(ctx context.Context, o *permission.Oracle, id int64) (*domain.Schema, bool, error) {
	target, err := r.Get(ctx, o, id)
	if err != nil {
		return nil, false, err
	}
	if !o.CanMutateSchema(target) {
		return nil, false, r.deny(o, "delete", id, "you cannot delete this schema")
	}

	err = r.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := r.values.CountBySchema(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return errSchemaReferenced
		}
		if err := r.schemas.Delete(ctx, id); err != nil {
			if database.IsForeignKeyViolation(err) {
				return errSchemaReferenced
			}
			return err
		}
		return nil
	})
	if stderrors.Is(err, errSchemaReferenced) {
		r.logger.Info().Int64("schema_id", id).Msg("schema still referenced by values, not deleted")
		return target, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	r.logger.Info().Int64("schema_id", id).Msg("schema deleted")
	return target, true, nil
}

// List returns one page of schemas, newest update first.
//
// With a company the actor must be able to view it; without one the listing
// covers every company the actor can view. IncludeSystem adds system schemas
// and company-less templates.
func (r *SchemaRegistry) List(ctx context.Context, o *permission.Oracle, f domain.SchemaFilter) (*domain.SchemaPage, error) {
	page, size := r.paging.Normalize(f.Page, f.PageSize)
	q := domain.SchemaQuery{
		EntityType:    f.EntityType,
		IncludeShared: f.IncludeSystem,
		Limit:         size,
		Offset:        Offset(page, size),
	}

	switch {
	case f.CompanyID != nil:
		if !o.CanView(*f.CompanyID) {
			return nil, r.deny(o, "list", 0, "you cannot view this company's schemas")
		}
		q.CompanyIDs = []int64{*f.CompanyID}
	case o.IsSystem():
		q.AllCompanies = true
	default:
		q.CompanyIDs = o.ViewableCompanies()
	}

	items, total, err := r.schemas.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &domain.SchemaPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// Lineage returns the chain of versions ending at id, root first.
func (r *SchemaRegistry) Lineage(ctx context.Context, o *permission.Oracle, id int64) ([]domain.Schema, error) {
	current, err := r.Get(ctx, o, id)
	if err != nil {
		return nil, err
	}

	chain := []domain.Schema{*current}
	seen := map[int64]bool{current.ID: true}
	for current.ParentSchemaID != nil && !seen[*current.ParentSchemaID] {
		parent, err := r.schemas.GetByID(ctx, *current.ParentSchemaID)
		if errors.Is(err, errors.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if !o.CanViewSchema(parent) {
			break
		}
		seen[parent.ID] = true
		chain = append(chain, *parent)
		current = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (r *SchemaRegistry) deny(o *permission.Oracle, action string, schemaID int64, msg string) error {
	r.logger.Warn().
		Int64("account_id", o.ActorID()).
		Str("action", action).
		Int64("schema_id", schemaID).
		Msg("permission denied")
	return errors.Forbidden(msg)
}
