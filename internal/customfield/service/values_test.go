package service

import (
	"context"
	"testing"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueStore_CreateValidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.oracle(t, ownerID)
	s := h.contactSchema(t, acme)

	v, err := h.store.Create(ctx, o, domain.ValueSpec{
		SchemaID: s.ID, EntityType: "Employee", EntityID: 42,
		Document: domain.Document{"contact_name": "Jane", "phone": "555"},
	})
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "Employee", v.EntityType)

	_, err = h.store.Create(ctx, o, domain.ValueSpec{
		SchemaID: s.ID, EntityType: "employee", EntityID: 43,
		Document: domain.Document{"phone": 555},
	})
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errors.ErrSchemaValidation, appErr.Err)
	assert.Len(t, appErr.Violations, 2)
	assert.Len(t, h.db.values, 1)
}

func TestValueStore_CreateChecksEntityType(t *testing.T) {
	h := newHarness(t)
	s := h.contactSchema(t, acme)

	_, err := h.store.Create(context.Background(), h.oracle(t, ownerID), domain.ValueSpec{
		SchemaID: s.ID, EntityType: "candidate", EntityID: 1,
		Document: domain.Document{"contact_name": "Jane"},
	})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestValueStore_Permissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.contactSchema(t, acme)
	spec := domain.ValueSpec{
		SchemaID: s.ID, EntityType: "employee", EntityID: 42,
		Document: domain.Document{"contact_name": "Jane"},
	}

	_, err := h.store.Create(ctx, h.oracle(t, userID), spec)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = h.store.Create(ctx, h.oracle(t, outsiderID), spec)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	v, err := h.store.Create(ctx, h.oracle(t, ownerID), spec)
	require.NoError(t, err)

	values, err := h.store.ListForEntity(ctx, h.oracle(t, userID), "employee", 42, nil)
	require.NoError(t, err)
	assert.Len(t, values, 1)

	values, err = h.store.ListForEntity(ctx, h.oracle(t, outsiderID), "employee", 42, nil)
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = h.store.Update(ctx, h.oracle(t, userID), v.ID, domain.ValuePatch{Remark: str("x")})
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = h.store.Delete(ctx, h.oracle(t, outsiderID), v.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestValueStore_Update(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.oracle(t, ownerID)
	s := h.contactSchema(t, acme)

	v, err := h.store.Create(ctx, o, domain.ValueSpec{
		SchemaID: s.ID, EntityType: "employee", EntityID: 42,
		Document: domain.Document{"contact_name": "Jane"}, Remark: str("first"),
	})
	require.NoError(t, err)

	updated, err := h.store.Update(ctx, o, v.ID, domain.ValuePatch{Document: domain.Document{"contact_name": "John"}})
	require.NoError(t, err)
	assert.Equal(t, "John", updated.Document["contact_name"])
	assert.Equal(t, "first", *updated.Remark)

	_, err = h.store.Update(ctx, o, v.ID, domain.ValuePatch{Document: domain.Document{"phone": "1"}})
	assert.True(t, errors.Is(err, errors.ErrSchemaValidation))
	assert.Equal(t, "John", h.db.values[v.ID].Document["contact_name"])

	_, err = h.store.Update(ctx, o, 999, domain.ValuePatch{})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestValueStore_ListForEntities(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	o := h.oracle(t, ownerID)
	s := h.contactSchema(t, acme)

	for _, id := range []int64{1, 2, 3} {
		_, err := h.store.Create(ctx, o, domain.ValueSpec{
			SchemaID: s.ID, EntityType: "employee", EntityID: id,
			Document: domain.Document{"contact_name": "n"},
		})
		require.NoError(t, err)
	}

	byEntity, err := h.store.ListForEntities(ctx, o, domain.ValueQuery{EntityType: "employee", EntityIDs: []int64{1, 3, 4}})
	require.NoError(t, err)
	assert.Len(t, byEntity, 2)
	assert.Len(t, byEntity[1], 1)
	assert.Len(t, byEntity[3], 1)
	assert.NotContains(t, byEntity, int64(4))

	empty, err := h.store.ListForEntities(ctx, o, domain.ValueQuery{EntityType: "employee"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
