package domain

// Operator is a comparison used by search conditions.
type Operator string

const (
	OpEq   Operator = "eq"
	OpNeq  Operator = "neq"
	OpGt   Operator = "gt"
	OpGte  Operator = "gte"
	OpLt   Operator = "lt"
	OpLte  Operator = "lte"
	OpLike Operator = "like"
	OpIn   Operator = "in"
)

// Valid reports whether op is a supported operator
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn:
		return true
	}
	return false
}

// Condition matches entities whose value under SchemaID satisfies Path Operator Value.
type Condition struct {
	SchemaID int64    `json:"schema_id" validate:"required,gt=0"`
	Path     string   `json:"path" validate:"required"`
	Operator Operator `json:"operator" validate:"required,oneof=eq neq gt gte lt lte like in"`
	Value    any      `json:"value"`
}

// SearchRequest finds entity ids by custom-field content. Conditions are ANDed.
type SearchRequest struct {
	EntityType          string
	CompanyID           int64
	Conditions          []Condition
	IncludeSubsidiaries bool
	Page                int
	PageSize            int
}

// SearchResult is one page of matching entity ids, ascending.
type SearchResult struct {
	EntityIDs []int64 `json:"entity_ids"`
	Total     int     `json:"total"`
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
	TotalPage int     `json:"total_page"`
}

// SearchScope limits which values a search may read.
type SearchScope struct {
	EntityType string
	SchemaID   *int64
	CompanyIDs []int64
}

// MigrationRequest copies documents from one schema to another through a path mapping.
type MigrationRequest struct {
	OldSchemaID  int64
	NewSchemaID  int64
	FieldMapping map[string]string
}

// MigrationResult reports per-entity outcomes of a migration.
type MigrationResult struct {
	SuccessCount    int     `json:"success_count"`
	FailedCount     int     `json:"failed_count"`
	FailedEntityIDs []int64 `json:"failed_entity_ids"`
}
