// Package handler exposes the custom-field facade over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/httputil"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
)

func init() {
	if err := httputil.RegisterCustomValidation("entity_type", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseEntityType(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
}

// CustomFields is the facade surface the handlers call
type CustomFields interface {
	CreateSchema(ctx context.Context, spec domain.SchemaSpec) (*domain.Schema, error)
	GetSchema(ctx context.Context, id int64) (*domain.Schema, error)
	UpdateSchema(ctx context.Context, id int64, patch domain.SchemaPatch) (*domain.Schema, bool, error)
	CloneSchema(ctx context.Context, req domain.CloneRequest) (*domain.Schema, error)
	DeleteSchema(ctx context.Context, id int64) (bool, error)
	ListSchemas(ctx context.Context, filter domain.SchemaFilter) (*domain.SchemaPage, error)
	SchemaLineage(ctx context.Context, id int64) ([]domain.Schema, error)
	CreateValue(ctx context.Context, spec domain.ValueSpec) (*domain.Value, error)
	UpdateValue(ctx context.Context, id int64, patch domain.ValuePatch) (*domain.Value, error)
	DeleteValue(ctx context.Context, id int64) (bool, error)
	ListEntityValues(ctx context.Context, entityType string, entityID int64, schemaID *int64) ([]domain.Value, error)
	BatchValues(ctx context.Context, q domain.ValueQuery) (map[int64][]domain.Value, error)
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
	Migrate(ctx context.Context, req domain.MigrationRequest) (*domain.MigrationResult, error)
}

// Handler serves the custom-field endpoints
type Handler struct {
	svc    CustomFields
	logger *logger.Logger
}

// New creates a new custom-field handler
func New(svc CustomFields, log *logger.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: log,
	}
}

// Routes mounts every endpoint on r
func (h *Handler) Routes(r chi.Router) {
	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", h.ListSchemas)
		r.Post("/", h.CreateSchema)
		r.Post("/clone", h.CloneSchema)
		r.Post("/migrate", h.Migrate)
		r.Get("/{id}", h.GetSchema)
		r.Patch("/{id}", h.UpdateSchema)
		r.Delete("/{id}", h.DeleteSchema)
		r.Get("/{id}/lineage", h.SchemaLineage)
	})

	r.Route("/values", func(r chi.Router) {
		r.Post("/", h.CreateValue)
		r.Post("/batch", h.BatchValues)
		r.Get("/entity/{entityType}/{entityID}", h.ListEntityValues)
		r.Put("/{id}", h.UpdateValue)
		r.Delete("/{id}", h.DeleteValue)
	})

	r.Post("/search", h.Search)
}

// decode reads and validates a JSON body, writing the error response on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := httputil.DecodeJSONLocalized(r, v); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return false
	}
	if err := httputil.Validate(v); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return false
	}
	return true
}

func pathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation(map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}
