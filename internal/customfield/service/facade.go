package service

import (
	"context"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/events"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/permission"
	"github.com/peoplebase/peoplebase-backend/pkg/actor"
	"github.com/peoplebase/peoplebase-backend/pkg/database"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
)

// Facade is the single entry point of the custom-field core. It resolves the
// caller's permissions, delegates to the components, publishes change events
// after commit and turns every failure into an *errors.AppError.
type Facade struct {
	org       OrgRepository
	registry  *SchemaRegistry
	store     *ValueStore
	search    *SearchEngine
	migration *MigrationEngine
	events    *events.CustomFieldEventPublisher
	logger    *logger.Logger
}

// NewFacade creates a new facade
func NewFacade(
	org OrgRepository,
	registry *SchemaRegistry,
	store *ValueStore,
	search *SearchEngine,
	migration *MigrationEngine,
	publisher *events.CustomFieldEventPublisher,
	log *logger.Logger,
) *Facade {
	return &Facade{
		org:       org,
		registry:  registry,
		store:     store,
		search:    search,
		migration: migration,
		events:    publisher,
		logger:    log.WithComponent("customfield"),
	}
}

// oracle builds the caller's permissions from the actor in ctx.
func (f *Facade) oracle(ctx context.Context) (*permission.Oracle, error) {
	a := actor.FromContext(ctx)
	if a == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	o, err := permission.NewOracle(ctx, f.org, a)
	if err != nil {
		return nil, f.mapError(ctx, "load permissions", err)
	}
	return o, nil
}

// mapError maps any failure to an AppError. Unknown failures are logged and
// reported as internal errors without their cause.
func (f *Facade) mapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if mapped := database.MapPQError(err); mapped != nil {
		return mapped
	}
	log := f.logger
	if a := actor.FromContext(ctx); a != nil {
		log = log.WithAccountID(a.ID)
	}
	log.Error().Err(err).
		Str("operation", op).
		Msg("custom-field operation failed")
	return errors.Internal("an unexpected error occurred")
}

// CreateSchema creates a schema at version 1.
func (f *Facade) CreateSchema(ctx context.Context, spec domain.SchemaSpec) (*domain.Schema, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	s, err := f.registry.Create(ctx, o, spec)
	if err != nil {
		return nil, f.mapError(ctx, "create schema", err)
	}
	f.events.PublishSchemaCreated(ctx, s, o.ActorID())
	return s, nil
}

// GetSchema returns a visible schema.
func (f *Facade) GetSchema(ctx context.Context, id int64) (*domain.Schema, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	s, err := f.registry.Get(ctx, o, id)
	if err != nil {
		return nil, f.mapError(ctx, "get schema", err)
	}
	return s, nil
}

// UpdateSchema updates a schema in place or, for a structural change, forks
// a new version. forked tells which one happened.
func (f *Facade) UpdateSchema(ctx context.Context, id int64, patch domain.SchemaPatch) (*domain.Schema, bool, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, false, err
	}
	s, forked, err := f.registry.Update(ctx, o, id, patch)
	if err != nil {
		return nil, false, f.mapError(ctx, "update schema", err)
	}
	if forked {
		f.events.PublishSchemaForked(ctx, s, o.ActorID())
	} else {
		f.events.PublishSchemaUpdated(ctx, s, o.ActorID())
	}
	return s, forked, nil
}

// CloneSchema copies a schema into another company.
func (f *Facade) CloneSchema(ctx context.Context, req domain.CloneRequest) (*domain.Schema, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	s, err := f.registry.Clone(ctx, o, req)
	if err != nil {
		return nil, f.mapError(ctx, "clone schema", err)
	}
	f.events.PublishSchemaCloned(ctx, s, req.SourceSchemaID, o.ActorID())
	return s, nil
}

// DeleteSchema deletes an unreferenced schema. It returns false while values
// still reference it.
func (f *Facade) DeleteSchema(ctx context.Context, id int64) (bool, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return false, err
	}
	s, deleted, err := f.registry.Delete(ctx, o, id)
	if err != nil {
		return false, f.mapError(ctx, "delete schema", err)
	}
	if deleted {
		f.events.PublishSchemaDeleted(ctx, s, o.ActorID())
	}
	return deleted, nil
}

// ListSchemas returns one page of visible schemas.
func (f *Facade) ListSchemas(ctx context.Context, filter domain.SchemaFilter) (*domain.SchemaPage, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	page, err := f.registry.List(ctx, o, filter)
	if err != nil {
		return nil, f.mapError(ctx, "list schemas", err)
	}
	return page, nil
}

// SchemaLineage returns the version chain ending at id, root first.
func (f *Facade) SchemaLineage(ctx context.Context, id int64) ([]domain.Schema, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := f.registry.Lineage(ctx, o, id)
	if err != nil {
		return nil, f.mapError(ctx, "schema lineage", err)
	}
	return chain, nil
}

// CreateValue attaches a validated document to an entity.
func (f *Facade) CreateValue(ctx context.Context, spec domain.ValueSpec) (*domain.Value, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	v, err := f.store.Create(ctx, o, spec)
	if err != nil {
		return nil, f.mapError(ctx, "create value", err)
	}
	f.events.PublishValueCreated(ctx, v, o.ActorID())
	return v, nil
}

// UpdateValue replaces a value's document and, when given, its remark.
func (f *Facade) UpdateValue(ctx context.Context, id int64, patch domain.ValuePatch) (*domain.Value, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	v, err := f.store.Update(ctx, o, id, patch)
	if err != nil {
		return nil, f.mapError(ctx, "update value", err)
	}
	f.events.PublishValueUpdated(ctx, v, o.ActorID())
	return v, nil
}

// DeleteValue hard-deletes a value.
func (f *Facade) DeleteValue(ctx context.Context, id int64) (bool, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return false, err
	}
	v, err := f.store.Delete(ctx, o, id)
	if err != nil {
		return false, f.mapError(ctx, "delete value", err)
	}
	f.events.PublishValueDeleted(ctx, v, o.ActorID())
	return true, nil
}

// ListEntityValues returns the readable values of one entity.
func (f *Facade) ListEntityValues(ctx context.Context, entityType string, entityID int64, schemaID *int64) ([]domain.Value, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	values, err := f.store.ListForEntity(ctx, o, entityType, entityID, schemaID)
	if err != nil {
		return nil, f.mapError(ctx, "list entity values", err)
	}
	return values, nil
}

// BatchValues returns the readable values of many entities, keyed by entity id.
func (f *Facade) BatchValues(ctx context.Context, q domain.ValueQuery) (map[int64][]domain.Value, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	values, err := f.store.ListForEntities(ctx, o, q)
	if err != nil {
		return nil, f.mapError(ctx, "batch values", err)
	}
	return values, nil
}

// Search finds entities whose values match every condition.
func (f *Facade) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	res, err := f.search.Search(ctx, o, req)
	if err != nil {
		return nil, f.mapError(ctx, "search", err)
	}
	return res, nil
}

// Migrate moves the values of one schema to another.
func (f *Facade) Migrate(ctx context.Context, req domain.MigrationRequest) (*domain.MigrationResult, error) {
	o, err := f.oracle(ctx)
	if err != nil {
		return nil, err
	}
	res, err := f.migration.Migrate(ctx, o, req)
	if err != nil {
		return nil, f.mapError(ctx, "migrate", err)
	}
	f.events.PublishSchemaMigrated(ctx, req, res, o.ActorID())
	return res, nil
}
