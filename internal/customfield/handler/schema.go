package handler

import (
	"net/http"
	"strconv"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/httputil"
)

// ============================================================================
// SCHEMAS
// ============================================================================

// ListSchemas lists visible schemas
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	var filter domain.SchemaFilter

	if raw := r.URL.Query().Get("entity_type"); raw != "" {
		et, err := domain.ParseEntityType(raw)
		if err != nil {
			httputil.ErrorLocalized(w, r, errors.Validation(map[string]string{"entity_type": err.Error()}))
			return
		}
		filter.EntityType = et
	}

	companyID, ok, err := httputil.QueryInt64(r, "company_id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if ok {
		filter.CompanyID = &companyID
	}

	if raw := r.URL.Query().Get("include_system"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.ErrorLocalized(w, r, errors.Validation(map[string]string{"include_system": "must be a boolean"}))
			return
		}
		filter.IncludeSystem = include
	}

	if filter.Page, err = httputil.QueryInt(r, "page", 1); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	if filter.PageSize, err = httputil.QueryInt(r, "page_size", 0); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	page, err := h.svc.ListSchemas(r.Context(), filter)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, page.Items, httputil.NewMeta(page.Page, page.PageSize, page.Total))
}

// CreateSchema creates a schema at version 1
func (h *Handler) CreateSchema(w http.ResponseWriter, r *http.Request) {
	var req CreateSchemaRequest
	if !decode(w, r, &req) {
		return
	}

	et, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		httputil.ErrorLocalized(w, r, errors.Validation(map[string]string{"entity_type": err.Error()}))
		return
	}

	s, err := h.svc.CreateSchema(r.Context(), domain.SchemaSpec{
		Name:       req.Name,
		EntityType: et,
		Structure:  req.Structure,
		UIHints:    req.UIHints,
		CompanyID:  req.CompanyID,
		IsSystem:   req.IsSystem,
		Remark:     req.Remark,
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, s)
}

// GetSchema gets a schema by ID
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	s, err := h.svc.GetSchema(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, s)
}

// UpdateSchema patches a schema. A structural change answers 201 with the new version.
func (h *Handler) UpdateSchema(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	var req UpdateSchemaRequest
	if !decode(w, r, &req) {
		return
	}

	s, forked, err := h.svc.UpdateSchema(r.Context(), id, domain.SchemaPatch{
		Name:      req.Name,
		Structure: req.Structure,
		UIHints:   req.UIHints,
		Remark:    req.Remark,
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	status := http.StatusOK
	if forked {
		status = http.StatusCreated
	}
	httputil.JSON(w, status, UpdateSchemaResponse{Schema: s, Forked: forked})
}

// CloneSchema copies a schema into another company
func (h *Handler) CloneSchema(w http.ResponseWriter, r *http.Request) {
	var req CloneSchemaRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := h.svc.CloneSchema(r.Context(), domain.CloneRequest{
		SourceSchemaID:  req.SourceSchemaID,
		TargetCompanyID: req.TargetCompanyID,
		Name:            req.Name,
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, s)
}

// DeleteSchema deletes a schema; deleted is false while values reference it
func (h *Handler) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	deleted, err := h.svc.DeleteSchema(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// SchemaLineage lists the versions leading to a schema, oldest first
func (h *Handler) SchemaLineage(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	chain, err := h.svc.SchemaLineage(r.Context(), id)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, chain)
}

// Migrate moves the values of one schema to another
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	var req MigrateRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Migrate(r.Context(), domain.MigrationRequest{
		OldSchemaID:  req.OldSchemaID,
		NewSchemaID:  req.NewSchemaID,
		FieldMapping: req.FieldMapping,
	})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, res)
}
