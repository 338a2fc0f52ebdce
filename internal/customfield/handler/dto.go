package handler

import (
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
)

// CreateSchemaRequest is the body of POST /schemas
type CreateSchemaRequest struct {
	Name       string          `json:"name" validate:"required,max=100"`
	EntityType string          `json:"entity_type" validate:"required,entity_type"`
	Structure  domain.Document `json:"structure" validate:"required"`
	UIHints    domain.RawJSON  `json:"ui_hints"`
	CompanyID  *int64          `json:"company_id" validate:"omitempty,gt=0"`
	IsSystem   bool            `json:"is_system"`
	Remark     *string         `json:"remark" validate:"omitempty,max=255"`
}

// UpdateSchemaRequest is a partial patch; absent fields are left untouched
type UpdateSchemaRequest struct {
	Name      *string         `json:"name" validate:"omitempty,max=100"`
	Structure domain.Document `json:"structure"`
	UIHints   domain.RawJSON  `json:"ui_hints"`
	Remark    *string         `json:"remark" validate:"omitempty,max=255"`
}

// UpdateSchemaResponse tells whether the update forked a new version
type UpdateSchemaResponse struct {
	Schema *domain.Schema `json:"schema"`
	Forked bool           `json:"forked"`
}

// CloneSchemaRequest is the body of POST /schemas/clone
type CloneSchemaRequest struct {
	SourceSchemaID  int64   `json:"source_schema_id" validate:"required,gt=0"`
	TargetCompanyID int64   `json:"target_company_id" validate:"required,gt=0"`
	Name            *string `json:"name" validate:"omitempty,max=100"`
}

// MigrateRequest is the body of POST /schemas/migrate
type MigrateRequest struct {
	OldSchemaID  int64             `json:"old_schema_id" validate:"required,gt=0"`
	NewSchemaID  int64             `json:"new_schema_id" validate:"required,gt=0"`
	FieldMapping map[string]string `json:"field_mapping" validate:"required"`
}

// CreateValueRequest is the body of POST /values
type CreateValueRequest struct {
	SchemaID   int64           `json:"schema_id" validate:"required,gt=0"`
	EntityType string          `json:"entity_type" validate:"required,max=50"`
	EntityID   int64           `json:"entity_id" validate:"required,gt=0"`
	Document   domain.Document `json:"document"`
	Remark     *string         `json:"remark" validate:"omitempty,max=255"`
}

// UpdateValueRequest replaces the document and, when present, the remark
type UpdateValueRequest struct {
	Document domain.Document `json:"document"`
	Remark   *string         `json:"remark" validate:"omitempty,max=255"`
}

// BatchValuesRequest is the body of POST /values/batch
type BatchValuesRequest struct {
	EntityType string  `json:"entity_type" validate:"required"`
	EntityIDs  []int64 `json:"entity_ids" validate:"required,max=1000,dive,gt=0"`
	SchemaID   *int64  `json:"schema_id" validate:"omitempty,gt=0"`
}

// SearchRequest is the body of POST /search
type SearchRequest struct {
	EntityType          string             `json:"entity_type" validate:"required"`
	CompanyID           int64              `json:"company_id" validate:"required,gt=0"`
	Conditions          []domain.Condition `json:"conditions" validate:"dive"`
	IncludeSubsidiaries bool               `json:"include_subsidiaries"`
	Page                int                `json:"page" validate:"omitempty,min=1,max=1000000"`
	PageSize            int                `json:"page_size" validate:"omitempty,gte=1"`
}

// DeleteResponse reports whether a delete removed anything
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}
