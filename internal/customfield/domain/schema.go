// Package domain holds the custom-field model shared by every layer:
// schemas, values, the org replica and the request shapes the facade accepts.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType is the kind of entity a schema decorates.
type EntityType string

const (
	EntityEmployee   EntityType = "EMPLOYEE"
	EntityCandidate  EntityType = "CANDIDATE"
	EntityCompany    EntityType = "COMPANY"
	EntityDepartment EntityType = "DEPARTMENT"
	EntityPosition   EntityType = "POSITION"
	EntityGeneral    EntityType = "GENERAL"
)

var entityTypes = []EntityType{
	EntityEmployee, EntityCandidate, EntityCompany, EntityDepartment, EntityPosition, EntityGeneral,
}

// ParseEntityType accepts any casing ("Employee", "employee", "EMPLOYEE").
func ParseEntityType(s string) (EntityType, error) {
	upper := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	for _, et := range entityTypes {
		if et == upper {
			return et, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Accepts reports whether a value tagged with valueEntityType may attach to a
// schema of this type. Value entity types are free strings, compared
// case-insensitively; GENERAL schemas accept any entity.
func (e EntityType) Accepts(valueEntityType string) bool {
	if e == EntityGeneral {
		return true
	}
	return strings.EqualFold(string(e), strings.TrimSpace(valueEntityType))
}

// Schema is a versioned template describing the shape of a custom-field document.
type Schema struct {
	ID             int64      `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	EntityType     EntityType `db:"entity_type" json:"entity_type"`
	Structure      Document   `db:"structure" json:"structure"`
	UIHints        RawJSON    `db:"ui_hints" json:"ui_hints"`
	CompanyID      *int64     `db:"company_id" json:"company_id"`
	IsSystem       bool       `db:"is_system" json:"is_system"`
	Version        int        `db:"version" json:"version"`
	ParentSchemaID *int64     `db:"parent_schema_id" json:"parent_schema_id"`
	Remark         *string    `db:"remark" json:"remark,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTemplate reports whether the schema belongs to no company.
func (s *Schema) IsTemplate() bool {
	return s.CompanyID == nil
}

// SchemaSpec is the input to schema creation.
type SchemaSpec struct {
	Name       string
	EntityType EntityType
	Structure  Document
	UIHints    RawJSON
	CompanyID  *int64
	IsSystem   bool
	Remark     *string
}

// SchemaPatch is a partial update. Nil fields are left untouched.
type SchemaPatch struct {
	Name      *string
	Structure Document
	UIHints   RawJSON
	Remark    *string
}

// SchemaFilter selects schemas for listing.
type SchemaFilter struct {
	// EntityType empty means every entity type
	EntityType    EntityType
	CompanyID     *int64
	IncludeSystem bool
	Page          int
	PageSize      int
}

// SchemaQuery is the storage-level form of a listing: the permission layer has
// already resolved which companies are in scope.
type SchemaQuery struct {
	EntityType EntityType
	// AllCompanies lifts the company filter; used for the system actor
	AllCompanies bool
	CompanyIDs   []int64
	// IncludeShared adds system schemas and company-less templates
	IncludeShared bool
	Limit         int
	Offset        int
}

// SchemaPage is one page of a schema listing.
type SchemaPage struct {
	Items    []Schema
	Total    int64
	Page     int
	PageSize int
}

// CloneRequest copies a schema into another company.
type CloneRequest struct {
	SourceSchemaID  int64
	TargetCompanyID int64
	// Name defaults to the source name
	Name *string
}
