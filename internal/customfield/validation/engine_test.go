package validation

import (
	"testing"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emergencyContact() domain.Document {
	return domain.Document{
		"type": "object",
		"properties": map[string]any{
			"contact_name": map[string]any{"type": "string"},
		},
		"required": []any{"contact_name"},
	}
}

func TestCheckStructure(t *testing.T) {
	e := NewEngine()

	assert.NoError(t, e.CheckStructure(emergencyContact()))
	assert.NoError(t, e.CheckStructure(domain.Document{"properties": map[string]any{}}))

	tests := []struct {
		name      string
		structure domain.Document
	}{
		{"nil", nil},
		{"missing properties", domain.Document{"type": "object"}},
		{"properties not an object", domain.Document{"properties": []any{"a"}}},
		{"bad keyword value", domain.Document{"properties": map[string]any{"a": map[string]any{"type": "strnig"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CheckStructure(tt.structure)
			assert.ErrorIs(t, err, errors.ErrMalformedSchema)
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	violations, err := NewEngine().Validate(emergencyContact(), domain.Document{"contact_name": "Alice"})
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidate_MissingRequired(t *testing.T) {
	violations, err := NewEngine().Validate(emergencyContact(), domain.Document{})
	require.NoError(t, err)

	require.Len(t, violations, 1)
	assert.Equal(t, "root", violations[0].Path)
	assert.Equal(t, "'contact_name' is a required property", violations[0].Message)
	assert.Equal(t, "required", violations[0].SchemaPath)
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	structure := domain.Document{
		"type": "object",
		"properties": map[string]any{
			"age":    map[string]any{"type": "integer"},
			"name":   map[string]any{"type": "string"},
			"status": map[string]any{"enum": []any{"active", "inactive"}},
		},
	}
	doc := domain.Document{"age": "old", "name": 12, "status": "retired"}

	violations, err := NewEngine().Validate(structure, doc)
	require.NoError(t, err)

	require.Len(t, violations, 3)
	assert.Equal(t, "age", violations[0].Path)
	assert.Equal(t, "name", violations[1].Path)
	assert.Equal(t, "status", violations[2].Path)
}

func TestValidate_RequiredSplitsPerProperty(t *testing.T) {
	structure := domain.Document{
		"type": "object",
		"properties": map[string]any{
			"address": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string"},
					"zip":  map[string]any{"type": "string"},
				},
				"required": []any{"city", "zip"},
			},
		},
	}

	violations, err := NewEngine().Validate(structure, domain.Document{"address": map[string]any{}})
	require.NoError(t, err)

	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.Equal(t, "address", v.Path)
	}
	assert.Equal(t, "'city' is a required property", violations[0].Message)
	assert.Equal(t, "'zip' is a required property", violations[1].Message)
}

func TestValidate_NestedAndArrayPaths(t *testing.T) {
	structure := domain.Document{
		"type": "object",
		"properties": map[string]any{
			"phones": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}

	violations, err := NewEngine().Validate(structure, map[string]any{"phones": []any{"ok", 5}})
	require.NoError(t, err)

	require.Len(t, violations, 1)
	assert.Equal(t, "phones.1", violations[0].Path)
	assert.Equal(t, "properties.phones.items.type", violations[0].SchemaPath)
}

func TestValidate_ArrayIndicesInTraversalOrder(t *testing.T) {
	structure := domain.Document{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}

	tags := make([]any, 12)
	for i := range tags {
		tags[i] = "ok"
	}
	tags[2] = 1
	tags[10] = 2

	violations, err := NewEngine().Validate(structure, map[string]any{"tags": tags})
	require.NoError(t, err)

	require.Len(t, violations, 2)
	assert.Equal(t, "tags.2", violations[0].Path)
	assert.Equal(t, "tags.10", violations[1].Path)
}

func TestValidate_IntegerAcceptsGoInts(t *testing.T) {
	structure := domain.Document{
		"properties": map[string]any{
			"x": map[string]any{
				"type":       "object",
				"properties": map[string]any{"y": map[string]any{"type": "integer"}},
				"required":   []any{"y"},
			},
		},
		"required": []any{"x"},
	}

	violations, err := NewEngine().Validate(structure, map[string]any{"x": map[string]any{"y": 5}})
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateOrFail(t *testing.T) {
	e := NewEngine()

	assert.NoError(t, e.ValidateOrFail(emergencyContact(), domain.Document{"contact_name": "Bob"}))

	err := e.ValidateOrFail(emergencyContact(), domain.Document{})
	require.ErrorIs(t, err, errors.ErrSchemaValidation)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Len(t, appErr.Violations, 1)

	err = e.ValidateOrFail(domain.Document{"type": "object"}, domain.Document{})
	assert.ErrorIs(t, err, errors.ErrMalformedSchema)
}

func TestCompiled_Reuse(t *testing.T) {
	compiled, err := NewEngine().Compile(emergencyContact())
	require.NoError(t, err)

	assert.NoError(t, compiled.ValidateOrFail(domain.Document{"contact_name": "a"}))
	assert.ErrorIs(t, compiled.ValidateOrFail(domain.Document{"contact_name": 1}), errors.ErrSchemaValidation)
}

func TestPointerLess(t *testing.T) {
	assert.True(t, pointerLess("/tags/2", "/tags/10"))
	assert.False(t, pointerLess("/tags/10", "/tags/2"))
	assert.True(t, pointerLess("/a", "/b"))
	assert.True(t, pointerLess("/a", "/a/b"))
	assert.True(t, pointerLess("", "/a"))
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "root", pointerToPath(""))
	assert.Equal(t, "a.b", pointerToPath("/a/b"))
	assert.Equal(t, "a/b.c~d", pointerToPath("/a~1b/c~0d"))
}
