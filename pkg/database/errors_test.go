package database

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantNil    bool
		wantStatus int
		wantDetail string
	}{
		{name: "not a pq error", err: fmt.Errorf("boom"), wantNil: true},
		{name: "unknown code", err: &pq.Error{Code: "40001"}, wantNil: true},
		{
			name:       "entity type check",
			err:        &pq.Error{Code: "23514", Constraint: "json_schemas_entity_type_valid"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "entity_type",
		},
		{
			name:       "unique",
			err:        &pq.Error{Code: "23505", Constraint: "org_memberships_pkey"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "schema still referenced",
			err:        &pq.Error{Code: "23503", Constraint: "json_schema_values_schema_id_fkey"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "not null",
			err:        &pq.Error{Code: "23502", Column: "name"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "name",
		},
		{
			name:       "wrapped",
			err:        fmt.Errorf("insert: %w", &pq.Error{Code: "23503", Constraint: "fk_company"}),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapPQError(tt.err)
			if tt.wantNil {
				assert.Nil(t, appErr)
				return
			}
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantStatus, appErr.StatusCode)
			if tt.wantDetail != "" {
				assert.Contains(t, appErr.Details, tt.wantDetail)
			}
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("wrap: %w", &pq.Error{Code: "23503"})))
	assert.False(t, IsForeignKeyViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(errors.ErrNotFound))
}
