package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Custom-field events, published by customfield-service
const (
	EventSchemaCreated  = "customfield.schema.created"
	EventSchemaUpdated  = "customfield.schema.updated"
	EventSchemaForked   = "customfield.schema.forked"
	EventSchemaCloned   = "customfield.schema.cloned"
	EventSchemaDeleted  = "customfield.schema.deleted"
	EventSchemaMigrated = "customfield.schema.migrated"
	EventValueCreated   = "customfield.value.created"
	EventValueUpdated   = "customfield.value.updated"
	EventValueDeleted   = "customfield.value.deleted"
)

// Organisation events, published by the org service and replicated locally
const (
	EventCompanyUpserted   = "org.company.upserted"
	EventCompanyDeleted    = "org.company.deleted"
	EventAccountUpserted   = "org.account.upserted"
	EventMembershipGranted = "org.membership.granted"
	EventMembershipRevoked = "org.membership.revoked"
)

// Exchange names
const (
	ExchangeCustomFieldEvents = "customfield.events"
	ExchangeOrgEvents         = "org.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Custom-field payloads

// SchemaEvent is published for every schema lifecycle change.
// For forks and clones SourceID is the schema the new one came from.
type SchemaEvent struct {
	SchemaID   int64  `json:"schema_id"`
	SourceID   *int64 `json:"source_id,omitempty"`
	CompanyID  *int64 `json:"company_id,omitempty"`
	EntityType string `json:"entity_type"`
	Name       string `json:"name"`
	ActorID    int64  `json:"actor_id"`
}

// ValueEvent is published when a stored document changes
type ValueEvent struct {
	ValueID    int64  `json:"value_id"`
	SchemaID   int64  `json:"schema_id"`
	EntityID   int64  `json:"entity_id"`
	EntityType string `json:"entity_type"`
	ActorID    int64  `json:"actor_id"`
}

// SchemaMigratedEvent summarises a schema-to-schema migration
type SchemaMigratedEvent struct {
	SourceSchemaID int64   `json:"source_schema_id"`
	TargetSchemaID int64   `json:"target_schema_id"`
	Migrated       int     `json:"migrated"`
	Failed         []int64 `json:"failed"`
	ActorID        int64   `json:"actor_id"`
}

// Organisation payloads

// CompanyUpsertedEvent carries a company and its place in the hierarchy
type CompanyUpsertedEvent struct {
	CompanyID int64  `json:"company_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	Name      string `json:"name"`
}

// CompanyDeletedEvent is published when a company is removed
type CompanyDeletedEvent struct {
	CompanyID int64 `json:"company_id"`
}

// AccountUpsertedEvent carries an account's identity and active flag
type AccountUpsertedEvent struct {
	AccountID int64  `json:"account_id"`
	Username  string `json:"username"`
	IsActive  bool   `json:"is_active"`
}

// MembershipGrantedEvent grants or changes an account's role in a company
type MembershipGrantedEvent struct {
	AccountID int64  `json:"account_id"`
	CompanyID int64  `json:"company_id"`
	Role      string `json:"role"`
}

// MembershipRevokedEvent revokes an account's membership
type MembershipRevokedEvent struct {
	AccountID int64 `json:"account_id"`
	CompanyID int64 `json:"company_id"`
}
