package domain

import "time"

// Value attaches one validated document to an external entity.
//
// EntityType is a free string ("employee", "candidate"). The storage layer does
// not require it to match the schema's EntityType; the facade checks the match
// on write with EntityType.Accepts.
type Value struct {
	ID         int64     `db:"id" json:"id"`
	SchemaID   int64     `db:"schema_id" json:"schema_id"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   int64     `db:"entity_id" json:"entity_id"`
	Document   Document  `db:"document" json:"document"`
	Remark     *string   `db:"remark" json:"remark,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ValueSpec is the input to value creation.
type ValueSpec struct {
	SchemaID   int64
	EntityType string
	EntityID   int64
	Document   Document
	Remark     *string
}

// ValuePatch replaces the document and/or remark of a value.
type ValuePatch struct {
	Document Document
	Remark   *string
}

// ValueQuery selects values attached to entities.
type ValueQuery struct {
	EntityType string
	EntityIDs  []int64
	SchemaID   *int64
}

// ScopedValue is a value joined with the ownership columns of its schema.
type ScopedValue struct {
	Value
	SchemaCompanyID *int64 `db:"schema_company_id"`
	SchemaIsSystem  bool   `db:"schema_is_system"`
}
