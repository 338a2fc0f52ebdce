package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/httputil"
)

// ============================================================================
// VALUES
// ============================================================================

// CreateValue attaches a document to an entity
func (h *Handler) CreateValue(w http.ResponseWriter, r *http.Request) {
	var req CreateValueRequest
	if !decode(w, r, &req) {
		return
	}

	v, err := h.svc.CreateValue(r.Context(), domain.ValueSpec{
		SchemaID:   req.SchemaID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Document:   req.Document,
		Remark:     req.Remark,
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, v)
}

// UpdateValue replaces a value's document
func (h *Handler) UpdateValue(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	var req UpdateValueRequest
	if !decode(w, r, &req) {
		return
	}

	v, err := h.svc.UpdateValue(r.Context(), id, domain.ValuePatch{
		Document: req.Document,
		Remark:   req.Remark,
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, v)
}

// DeleteValue hard-deletes a value
func (h *Handler) DeleteValue(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	deleted, err := h.svc.DeleteValue(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// ListEntityValues lists the values attached to one entity
func (h *Handler) ListEntityValues(w http.ResponseWriter, r *http.Request) {
	entityID, err := pathInt64(r, "entityID")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	var schemaID *int64
	id, ok, err := httputil.QueryInt64(r, "schema_id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if ok {
		schemaID = &id
	}

	values, err := h.svc.ListEntityValues(r.Context(), chi.URLParam(r, "entityType"), entityID, schemaID)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, values)
}

// BatchValues lists the values of many entities at once, keyed by entity id
func (h *Handler) BatchValues(w http.ResponseWriter, r *http.Request) {
	var req BatchValuesRequest
	if !decode(w, r, &req) {
		return
	}

	values, err := h.svc.BatchValues(r.Context(), domain.ValueQuery{
		EntityType: req.EntityType,
		EntityIDs:  req.EntityIDs,
		SchemaID:   req.SchemaID,
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, values)
}

// ============================================================================
// SEARCH
// ============================================================================

// Search finds entity ids by custom-field content
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Search(r.Context(), domain.SearchRequest{
		EntityType:          req.EntityType,
		CompanyID:           req.CompanyID,
		Conditions:          req.Conditions,
		IncludeSubsidiaries: req.IncludeSubsidiaries,
		Page:                req.Page,
		PageSize:            req.PageSize,
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, res)
}
