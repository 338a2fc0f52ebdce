// Package events publishes custom-field change events to RabbitMQ.
package events

import (
	"context"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/config"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
	"github.com/peoplebase/peoplebase-backend/pkg/messaging"
)

// CustomFieldEventPublisher publishes custom-field events. Failures are
// logged and swallowed: events follow a committed change and must not fail it.
type CustomFieldEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewCustomFieldEventPublisher creates a publisher on the customfield.events exchange
func NewCustomFieldEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*CustomFieldEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeCustomFieldEvents, config.ServiceName, log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps any EventPublisher; tests pass a recorder, and a
// service running without a broker passes messaging.NopPublisher.
func NewWithPublisher(p messaging.EventPublisher, log *logger.Logger) *CustomFieldEventPublisher {
	return &CustomFieldEventPublisher{
		publisher: p,
		logger:    log,
	}
}

// PublishSchemaCreated publishes a schema created event
func (p *CustomFieldEventPublisher) PublishSchemaCreated(ctx context.Context, s *domain.Schema, actorID int64) {
	p.publishSchema(ctx, messaging.EventSchemaCreated, s, nil, actorID)
}

// PublishSchemaUpdated publishes an in-place (cosmetic) schema update
func (p *CustomFieldEventPublisher) PublishSchemaUpdated(ctx context.Context, s *domain.Schema, actorID int64) {
	p.publishSchema(ctx, messaging.EventSchemaUpdated, s, nil, actorID)
}

// PublishSchemaForked publishes the new version created by a structural edit
func (p *CustomFieldEventPublisher) PublishSchemaForked(ctx context.Context, fork *domain.Schema, actorID int64) {
	p.publishSchema(ctx, messaging.EventSchemaForked, fork, fork.ParentSchemaID, actorID)
}

// PublishSchemaCloned publishes a clone and the schema it was copied from
func (p *CustomFieldEventPublisher) PublishSchemaCloned(ctx context.Context, clone *domain.Schema, sourceID, actorID int64) {
	p.publishSchema(ctx, messaging.EventSchemaCloned, clone, &sourceID, actorID)
}

// PublishSchemaDeleted publishes a schema deleted event
func (p *CustomFieldEventPublisher) PublishSchemaDeleted(ctx context.Context, s *domain.Schema, actorID int64) {
	p.publishSchema(ctx, messaging.EventSchemaDeleted, s, nil, actorID)
}

// PublishSchemaMigrated publishes the summary of a migration
func (p *CustomFieldEventPublisher) PublishSchemaMigrated(ctx context.Context, req domain.MigrationRequest, res *domain.MigrationResult, actorID int64) {
	data := messaging.SchemaMigratedEvent{
		SourceSchemaID: req.OldSchemaID,
		TargetSchemaID: req.NewSchemaID,
		Migrated:       res.SuccessCount,
		Failed:         res.FailedEntityIDs,
		ActorID:        actorID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventSchemaMigrated, data); err != nil {
		p.logger.Error().Err(err).
			Int64("source_schema_id", req.OldSchemaID).
			Int64("target_schema_id", req.NewSchemaID).
			Msg("failed to publish schema migrated event")
	}
}

// PublishValueCreated publishes a value created event
func (p *CustomFieldEventPublisher) PublishValueCreated(ctx context.Context, v *domain.Value, actorID int64) {
	p.publishValue(ctx, messaging.EventValueCreated, v, actorID)
}

// PublishValueUpdated publishes a value updated event
func (p *CustomFieldEventPublisher) PublishValueUpdated(ctx context.Context, v *domain.Value, actorID int64) {
	p.publishValue(ctx, messaging.EventValueUpdated, v, actorID)
}

// PublishValueDeleted publishes a value deleted event
func (p *CustomFieldEventPublisher) PublishValueDeleted(ctx context.Context, v *domain.Value, actorID int64) {
	p.publishValue(ctx, messaging.EventValueDeleted, v, actorID)
}

func (p *CustomFieldEventPublisher) publishSchema(ctx context.Context, eventType string, s *domain.Schema, sourceID *int64, actorID int64) {
	data := messaging.SchemaEvent{
		SchemaID:   s.ID,
		SourceID:   sourceID,
		CompanyID:  s.CompanyID,
		EntityType: string(s.EntityType),
		Name:       s.Name,
		ActorID:    actorID,
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event", eventType).Int64("schema_id", s.ID).Msg("failed to publish schema event")
	}
}

func (p *CustomFieldEventPublisher) publishValue(ctx context.Context, eventType string, v *domain.Value, actorID int64) {
	data := messaging.ValueEvent{
		ValueID:    v.ID,
		SchemaID:   v.SchemaID,
		EntityID:   v.EntityID,
		EntityType: v.EntityType,
		ActorID:    actorID,
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event", eventType).Int64("value_id", v.ID).Msg("failed to publish value event")
	}
}
