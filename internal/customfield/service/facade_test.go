package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/lib/pq"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacade_EmergencyContactLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := as(ownerID)

	schema, err := h.facade.CreateSchema(ctx, domain.SchemaSpec{
		Name:       "Emergency Contact",
		EntityType: domain.EntityEmployee,
		Structure:  contactStructure(),
		CompanyID:  ptr(acme),
	})
	require.NoError(t, err)

	value, err := h.facade.CreateValue(ctx, domain.ValueSpec{
		SchemaID: schema.ID, EntityType: "employee", EntityID: 42,
		Document: domain.Document{"contact_name": "Jane Doe", "phone": "+1 555 0100"},
	})
	require.NoError(t, err)

	res, err := h.facade.Search(as(userID), domain.SearchRequest{
		EntityType: "employee",
		CompanyID:  acme,
		Conditions: []domain.Condition{{SchemaID: schema.ID, Path: "contact_name", Operator: domain.OpLike, Value: "jane"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, res.EntityIDs)

	next := contactStructure()
	next["properties"].(map[string]any)["relation"] = map[string]any{"type": "string"}
	fork, forked, err := h.facade.UpdateSchema(ctx, schema.ID, domain.SchemaPatch{Structure: next})
	require.NoError(t, err)
	require.True(t, forked)

	migrated, err := h.facade.Migrate(ctx, domain.MigrationRequest{
		OldSchemaID:  schema.ID,
		NewSchemaID:  fork.ID,
		FieldMapping: map[string]string{"contact_name": "contact_name", "phone": "phone"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, migrated.SuccessCount)

	deleted, err := h.facade.DeleteSchema(ctx, schema.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	ok, err := h.facade.DeleteValue(ctx, value.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err = h.facade.DeleteSchema(ctx, schema.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	values, err := h.facade.ListEntityValues(ctx, "employee", 42, nil)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, fork.ID, values[0].SchemaID)

	for _, ev := range []string{
		messaging.EventSchemaCreated,
		messaging.EventValueCreated,
		messaging.EventSchemaForked,
		messaging.EventSchemaMigrated,
		messaging.EventValueDeleted,
		messaging.EventSchemaDeleted,
	} {
		h.events.AssertEventPublished(t, ev)
	}
	assert.Len(t, h.events.Events(messaging.EventSchemaDeleted), 1)
}

func TestFacade_RequiresActor(t *testing.T) {
	h := newHarness(t)

	_, err := h.facade.GetSchema(context.Background(), 1)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestFacade_FailedOperationsPublishNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.facade.CreateSchema(as(userID), domain.SchemaSpec{
		Name: "X", EntityType: domain.EntityEmployee, Structure: contactStructure(), CompanyID: ptr(acme),
	})
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	h.events.AssertNoEventsPublished(t)
}

func TestFacade_ErrorMapping(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	notFound := errors.NotFound("schema")
	assert.Same(t, notFound, h.facade.mapError(ctx, "op", notFound))

	mapped := h.facade.mapError(ctx, "op", &pq.Error{Code: "23505", Constraint: "x"})
	assert.True(t, errors.Is(mapped, errors.ErrConflict))

	internal := h.facade.mapError(ctx, "op", stderrors.New("connection reset"))
	var appErr *errors.AppError
	require.True(t, errors.As(internal, &appErr))
	assert.Equal(t, errors.ErrInternal, appErr.Err)
	assert.NotContains(t, appErr.Message, "connection reset")
}
