package service

import (
	"context"
	"sort"
	"testing"

	"github.com/lib/pq"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) schemaWith(t *testing.T, company int64, et domain.EntityType, structure domain.Document) *domain.Schema {
	t.Helper()
	s, err := h.registry.Create(context.Background(), h.oracle(t, ownerID), domain.SchemaSpec{
		Name: "S", EntityType: et, Structure: structure, CompanyID: &company,
	})
	require.NoError(t, err)
	return s
}

func (h *harness) value(t *testing.T, schemaID, entityID int64, doc domain.Document) {
	t.Helper()
	_, err := h.store.Create(context.Background(), h.oracle(t, ownerID), domain.ValueSpec{
		SchemaID: schemaID, EntityType: "employee", EntityID: entityID, Document: doc,
	})
	require.NoError(t, err)
}

var (
	nestedOld = domain.Document{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "object", "properties": map[string]any{"b": map[string]any{"type": "integer"}}},
		},
	}
	nestedNew = domain.Document{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{
				"type":       "object",
				"properties": map[string]any{"y": map[string]any{"type": "integer"}},
				"required":   []any{"y"},
			},
		},
		"required": []any{"x"},
	}
)

func TestMigrationEngine_Migrate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	oldSchema := h.schemaWith(t, acme, domain.EntityEmployee, nestedOld.Clone())
	newSchema := h.schemaWith(t, acme, domain.EntityEmployee, nestedNew.Clone())
	h.value(t, oldSchema.ID, 1, domain.Document{"a": map[string]any{"b": 5}})
	h.value(t, oldSchema.ID, 2, domain.Document{})

	res, err := h.migration.Migrate(ctx, h.oracle(t, ownerID), domain.MigrationRequest{
		OldSchemaID:  oldSchema.ID,
		NewSchemaID:  newSchema.ID,
		FieldMapping: map[string]string{"a.b": "x.y"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, []int64{2}, res.FailedEntityIDs)

	migrated, err := h.store.ListForEntity(ctx, h.oracle(t, ownerID), "employee", 1, &newSchema.ID)
	require.NoError(t, err)
	require.Len(t, migrated, 1)
	assert.Equal(t, domain.Document{"x": map[string]any{"y": 5}}, migrated[0].Document)
	require.NotNil(t, migrated[0].Remark)
	assert.Contains(t, *migrated[0].Remark, "migrated from schema")

	old, err := h.store.ListForEntity(ctx, h.oracle(t, ownerID), "employee", 1, &oldSchema.ID)
	require.NoError(t, err)
	assert.Len(t, old, 1)
}

func TestMigrationEngine_NothingToMigrate(t *testing.T) {
	h := newHarness(t)
	oldSchema := h.schemaWith(t, acme, domain.EntityEmployee, nestedOld.Clone())
	newSchema := h.schemaWith(t, acme, domain.EntityEmployee, nestedNew.Clone())

	res, err := h.migration.Migrate(context.Background(), h.oracle(t, ownerID), domain.MigrationRequest{
		OldSchemaID: oldSchema.ID, NewSchemaID: newSchema.ID,
	})
	require.NoError(t, err)
	assert.Zero(t, res.SuccessCount)
	assert.NotNil(t, res.FailedEntityIDs)
	assert.Empty(t, res.FailedEntityIDs)
}

func TestMigrationEngine_Preconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	oldSchema := h.schemaWith(t, acme, domain.EntityEmployee, nestedOld.Clone())
	candidate := h.schemaWith(t, acme, domain.EntityCandidate, nestedNew.Clone())
	newSchema := h.schemaWith(t, acme, domain.EntityEmployee, nestedNew.Clone())

	_, err := h.migration.Migrate(ctx, h.oracle(t, ownerID), domain.MigrationRequest{
		OldSchemaID: oldSchema.ID, NewSchemaID: candidate.ID,
	})
	assert.True(t, errors.Is(err, errors.ErrIncompatibleMigration))

	_, err = h.migration.Migrate(ctx, h.oracle(t, userID), domain.MigrationRequest{
		OldSchemaID: oldSchema.ID, NewSchemaID: newSchema.ID,
	})
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = h.migration.Migrate(ctx, h.oracle(t, ownerID), domain.MigrationRequest{
		OldSchemaID: oldSchema.ID, NewSchemaID: 999,
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMigrationEngine_StorageConflictFailsEveryEntity(t *testing.T) {
	h := newHarness(t)
	oldSchema := h.schemaWith(t, acme, domain.EntityEmployee, nestedOld.Clone())
	newSchema := h.schemaWith(t, acme, domain.EntityEmployee, nestedNew.Clone())
	h.value(t, oldSchema.ID, 1, domain.Document{"a": map[string]any{"b": 1}})
	h.value(t, oldSchema.ID, 2, domain.Document{"a": map[string]any{"b": 2}})

	h.db.failValueCreate = &pq.Error{Code: "23505", Constraint: "json_schema_values_pkey"}
	h.db.failValueCreateAt = h.db.valueCreates + 2

	res, err := h.migration.Migrate(context.Background(), h.oracle(t, ownerID), domain.MigrationRequest{
		OldSchemaID:  oldSchema.ID,
		NewSchemaID:  newSchema.ID,
		FieldMapping: map[string]string{"a.b": "x.y"},
	})
	require.NoError(t, err)
	assert.Zero(t, res.SuccessCount)
	assert.Equal(t, []int64{1, 2}, res.FailedEntityIDs)

	n, err := memValues{h.db}.CountBySchema(context.Background(), newSchema.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type remapInput struct {
	src     domain.Document
	mapping map[string]string
}

func TestRemap(t *testing.T) {
	run := func(in remapInput) (domain.Document, error) {
		paths := make([]string, 0, len(in.mapping))
		for from := range in.mapping {
			paths = append(paths, from)
		}
		sort.Strings(paths)
		return remap(in.src, paths, in.mapping), nil
	}

	testutil.RunTestCases(t, []testutil.TestCase[remapInput, domain.Document]{
		{
			Name: "nested to nested",
			Input: remapInput{
				src:     domain.Document{"a": map[string]any{"b": 5}},
				mapping: map[string]string{"a.b": "x.y"},
			},
			Expected: domain.Document{"x": map[string]any{"y": 5}},
		},
		{
			Name: "absent and null sources are skipped",
			Input: remapInput{
				src:     domain.Document{"a": map[string]any{"b": 5, "c": nil}, "name": "Jane"},
				mapping: map[string]string{"a.b": "x.y", "a.c": "x.z", "missing": "m", "name": "profile.name"},
			},
			Expected: domain.Document{
				"x":       map[string]any{"y": 5},
				"profile": map[string]any{"name": "Jane"},
			},
		},
		{
			Name:     "empty source",
			Input:    remapInput{src: domain.Document{}, mapping: map[string]string{"a.b": "x.y"}},
			Expected: domain.Document{},
		},
		{
			Name: "objects are carried whole",
			Input: remapInput{
				src:     domain.Document{"office": map[string]any{"city": "Berlin"}},
				mapping: map[string]string{"office": "location"},
			},
			Expected: domain.Document{"location": map[string]any{"city": "Berlin"}},
		},
	}, run)
}
