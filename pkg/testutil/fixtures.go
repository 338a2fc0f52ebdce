package testutil

import (
	"fmt"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/permissions"
)

// SchemaColumns is the column list the schema repository selects
var SchemaColumns = []string{
	"id", "name", "entity_type", "structure", "ui_hints", "company_id", "is_system",
	"version", "parent_schema_id", "remark", "created_at", "updated_at",
}

// ValueColumns is the column list the value repository selects
var ValueColumns = []string{
	"id", "schema_id", "entity_type", "entity_id", "document", "remark", "created_at", "updated_at",
}

// ScopedValueColumns adds the owning schema's ownership columns to ValueColumns
var ScopedValueColumns = append(append([]string{}, ValueColumns...), "schema_company_id", "schema_is_system")

// OrgFixture is a slice of the org replica to seed
type OrgFixture struct {
	Companies   []domain.Company
	Accounts    []domain.Account
	Memberships []domain.Membership
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// ContactStructure is a small schema structure with one required string field
func ContactStructure() domain.Document {
	return domain.Document{
		"type": "object",
		"properties": map[string]any{
			"contact_name": map[string]any{"type": "string"},
			"phone":        map[string]any{"type": "string"},
		},
		"required": []any{"contact_name"},
	}
}

// Schema creates a company schema fixture with defaults
func (f *FixtureFactory) Schema(opts ...func(*domain.Schema)) *domain.Schema {
	seq := f.nextSeq()
	companyID := int64(1)
	now := time.Now().UTC()

	s := &domain.Schema{
		ID:         int64(seq),
		Name:       fmt.Sprintf("Schema %d", seq),
		EntityType: domain.EntityEmployee,
		Structure:  ContactStructure(),
		CompanyID:  &companyID,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithSchemaCompany sets the owning company; nil makes a template
func WithSchemaCompany(companyID *int64) func(*domain.Schema) {
	return func(s *domain.Schema) {
		s.CompanyID = companyID
	}
}

// WithSystem marks the schema as platform-provided
func WithSystem() func(*domain.Schema) {
	return func(s *domain.Schema) {
		s.IsSystem = true
	}
}

// Value creates a value fixture attached to schemaID
func (f *FixtureFactory) Value(schemaID, entityID int64, document domain.Document) *domain.Value {
	seq := f.nextSeq()
	now := time.Now().UTC()
	return &domain.Value{
		ID:         int64(seq),
		SchemaID:   schemaID,
		EntityType: "employee",
		EntityID:   entityID,
		Document:   document,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// DefaultOrg is two companies (2 is a subsidiary of 1), an owner of company 1,
// a plain user of company 1 and an outsider with no membership.
func DefaultOrg() OrgFixture {
	parent := int64(1)
	return OrgFixture{
		Companies: []domain.Company{
			{ID: 1, Name: "Holding"},
			{ID: 2, ParentID: &parent, Name: "Subsidiary"},
		},
		Accounts: []domain.Account{
			{ID: 10, Username: "owner", IsActive: true},
			{ID: 11, Username: "user", IsActive: true},
			{ID: 12, Username: "outsider", IsActive: true},
		},
		Memberships: []domain.Membership{
			{AccountID: 10, CompanyID: 1, Role: permissions.RoleOwner},
			{AccountID: 11, CompanyID: 1, Role: permissions.RoleUser},
		},
	}
}

// SchemaRows renders schemas as sqlmock rows in SchemaColumns order
func SchemaRows(schemas ...*domain.Schema) *sqlmock.Rows {
	rows := sqlmock.NewRows(SchemaColumns)
	for _, s := range schemas {
		rows.AddRow(
			s.ID, s.Name, string(s.EntityType), MustJSON(s.Structure), nullableJSON(s.UIHints),
			nullableInt(s.CompanyID), s.IsSystem, s.Version, nullableInt(s.ParentSchemaID), nullableString(s.Remark),
			s.CreatedAt, s.UpdatedAt,
		)
	}
	return rows
}

// ValueRows renders values as sqlmock rows in ValueColumns order
func ValueRows(values ...*domain.Value) *sqlmock.Rows {
	rows := sqlmock.NewRows(ValueColumns)
	for _, v := range values {
		rows.AddRow(
			v.ID, v.SchemaID, v.EntityType, v.EntityID, MustJSON(v.Document), nullableString(v.Remark), v.CreatedAt, v.UpdatedAt,
		)
	}
	return rows
}

func nullableJSON(raw domain.RawJSON) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
