package service

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/events"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/validation"
	"github.com/peoplebase/peoplebase-backend/pkg/actor"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
	"github.com/peoplebase/peoplebase-backend/pkg/permissions"
	"github.com/peoplebase/peoplebase-backend/pkg/testutil"
)

// memDB is an in-memory stand-in for the repositories. WithTx snapshots the
// tables and restores them when fn fails.
type memDB struct {
	schemas     map[int64]domain.Schema
	values      map[int64]domain.Value
	companies   []domain.Company
	accounts    map[int64]*domain.Account
	memberships []domain.Membership
	nextID      int64

	// failValueCreate is returned by the n-th value insert (1-based)
	failValueCreate   error
	failValueCreateAt int
	valueCreates      int
}

func newMemDB() *memDB {
	return &memDB{
		schemas:  map[int64]domain.Schema{},
		values:   map[int64]domain.Value{},
		accounts: map[int64]*domain.Account{},
	}
}

func (m *memDB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	schemas := make(map[int64]domain.Schema, len(m.schemas))
	for k, v := range m.schemas {
		schemas[k] = v
	}
	values := make(map[int64]domain.Value, len(m.values))
	for k, v := range m.values {
		values[k] = v
	}
	if err := fn(ctx); err != nil {
		m.schemas, m.values = schemas, values
		return err
	}
	return nil
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

type memSchemas struct{ db *memDB }

func (r memSchemas) Create(_ context.Context, s *domain.Schema) error {
	s.ID = r.db.id()
	r.db.schemas[s.ID] = *s
	return nil
}

func (r memSchemas) GetByID(_ context.Context, id int64) (*domain.Schema, error) {
	s, ok := r.db.schemas[id]
	if !ok {
		return nil, errors.NotFound("schema")
	}
	s.Structure = s.Structure.Clone()
	return &s, nil
}

func (r memSchemas) Update(_ context.Context, s *domain.Schema) error {
	if _, ok := r.db.schemas[s.ID]; !ok {
		return errors.NotFound("schema")
	}
	r.db.schemas[s.ID] = *s
	return nil
}

func (r memSchemas) Delete(_ context.Context, id int64) error {
	if _, ok := r.db.schemas[id]; !ok {
		return errors.NotFound("schema")
	}
	for _, v := range r.db.values {
		if v.SchemaID == id {
			return &pq.Error{Code: "23503", Constraint: "json_schema_values_schema_id_fkey"}
		}
	}
	delete(r.db.schemas, id)
	return nil
}

func (r memSchemas) List(_ context.Context, q domain.SchemaQuery) ([]domain.Schema, int64, error) {
	in := map[int64]bool{}
	for _, c := range q.CompanyIDs {
		in[c] = true
	}
	var all []domain.Schema
	for _, s := range r.db.schemas {
		if q.EntityType != "" && s.EntityType != q.EntityType {
			continue
		}
		owned := s.CompanyID != nil && in[*s.CompanyID]
		shared := q.IncludeShared && (s.IsSystem || s.CompanyID == nil)
		if q.AllCompanies || owned || shared {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := min(q.Offset, len(all))
	end := min(start+q.Limit, len(all))
	return all[start:end], total, nil
}

type memValues struct{ db *memDB }

func (r memValues) Create(_ context.Context, v *domain.Value) error {
	r.db.valueCreates++
	if r.db.failValueCreate != nil && r.db.valueCreates == r.db.failValueCreateAt {
		return r.db.failValueCreate
	}
	v.ID = r.db.id()
	r.db.values[v.ID] = *v
	return nil
}

func (r memValues) GetByID(_ context.Context, id int64) (*domain.Value, error) {
	v, ok := r.db.values[id]
	if !ok {
		return nil, errors.NotFound("value")
	}
	return &v, nil
}

func (r memValues) Update(_ context.Context, v *domain.Value) error {
	if _, ok := r.db.values[v.ID]; !ok {
		return errors.NotFound("value")
	}
	r.db.values[v.ID] = *v
	return nil
}

func (r memValues) Delete(_ context.Context, id int64) error {
	if _, ok := r.db.values[id]; !ok {
		return errors.NotFound("value")
	}
	delete(r.db.values, id)
	return nil
}

func (r memValues) CountBySchema(_ context.Context, schemaID int64) (int64, error) {
	var n int64
	for _, v := range r.db.values {
		if v.SchemaID == schemaID {
			n++
		}
	}
	return n, nil
}

func (r memValues) ListBySchema(_ context.Context, schemaID int64) ([]domain.Value, error) {
	var out []domain.Value
	for _, v := range r.db.sortedValues() {
		if v.SchemaID == schemaID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r memValues) ListForEntities(_ context.Context, q domain.ValueQuery) ([]domain.ScopedValue, error) {
	ids := map[int64]bool{}
	for _, id := range q.EntityIDs {
		ids[id] = true
	}
	var out []domain.ScopedValue
	for _, v := range r.db.sortedValues() {
		if !strings.EqualFold(v.EntityType, q.EntityType) || !ids[v.EntityID] {
			continue
		}
		if q.SchemaID != nil && v.SchemaID != *q.SchemaID {
			continue
		}
		out = append(out, r.db.scoped(v))
	}
	return out, nil
}

func (r memValues) ListInScope(_ context.Context, scope domain.SearchScope) ([]domain.ScopedValue, error) {
	in := map[int64]bool{}
	for _, c := range scope.CompanyIDs {
		in[c] = true
	}
	var out []domain.ScopedValue
	for _, v := range r.db.sortedValues() {
		if !strings.EqualFold(v.EntityType, scope.EntityType) {
			continue
		}
		if scope.SchemaID != nil && v.SchemaID != *scope.SchemaID {
			continue
		}
		sv := r.db.scoped(v)
		if sv.SchemaIsSystem || (sv.SchemaCompanyID != nil && in[*sv.SchemaCompanyID]) {
			out = append(out, sv)
		}
	}
	return out, nil
}

func (m *memDB) sortedValues() []domain.Value {
	out := make([]domain.Value, 0, len(m.values))
	for _, v := range m.values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memDB) scoped(v domain.Value) domain.ScopedValue {
	s := m.schemas[v.SchemaID]
	return domain.ScopedValue{Value: v, SchemaCompanyID: s.CompanyID, SchemaIsSystem: s.IsSystem}
}

type memOrg struct{ db *memDB }

func (r memOrg) Account(_ context.Context, id int64) (*domain.Account, error) {
	return r.db.accounts[id], nil
}

func (r memOrg) MembershipsForAccount(_ context.Context, accountID int64) ([]domain.Membership, error) {
	var out []domain.Membership
	for _, m := range r.db.memberships {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memOrg) Companies(context.Context) ([]domain.Company, error) {
	return r.db.companies, nil
}

// Accounts used across the service tests.
const (
	ownerID    int64 = 10
	userID     int64 = 11
	outsiderID int64 = 12

	acme       int64 = 1
	acmeEurope int64 = 2
	globex     int64 = 3
)

// harness wires every component over one memDB.
type harness struct {
	db        *memDB
	registry  *SchemaRegistry
	store     *ValueStore
	search    *SearchEngine
	migration *MigrationEngine
	facade    *Facade
	events    *testutil.MockPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := newMemDB()
	db.companies = []domain.Company{
		{ID: acme, Name: "Acme"},
		{ID: acmeEurope, ParentID: ptr(acme), Name: "Acme Europe"},
		{ID: globex, Name: "Globex"},
	}
	for _, id := range []int64{ownerID, userID, outsiderID} {
		db.accounts[id] = &domain.Account{ID: id, IsActive: true}
	}
	db.memberships = []domain.Membership{
		{AccountID: ownerID, CompanyID: acme, Role: permissions.RoleOwner},
		{AccountID: ownerID, CompanyID: acmeEurope, Role: permissions.RoleOwner},
		{AccountID: userID, CompanyID: acme, Role: permissions.RoleUser},
		{AccountID: outsiderID, CompanyID: globex, Role: permissions.RoleOwner},
	}

	log := logger.Nop()
	engine := validation.NewEngine()
	paging := Paging{DefaultSize: 10, MaxSize: 100}
	schemas, values, org := memSchemas{db}, memValues{db}, memOrg{db}

	h := &harness{db: db, events: testutil.NewMockPublisher()}
	h.registry = NewSchemaRegistry(db, schemas, values, engine, paging, log)
	h.store = NewValueStore(db, schemas, values, engine, log)
	h.search = NewSearchEngine(values, org, paging, log)
	h.migration = NewMigrationEngine(db, schemas, values, engine, "migrated from schema %d", log)
	h.facade = NewFacade(org, h.registry, h.store, h.search, h.migration,
		events.NewWithPublisher(h.events, log), log)
	return h
}

// as returns a context carrying the given account as actor.
func as(id int64) context.Context {
	return actor.WithActor(context.Background(), &actor.Actor{ID: id, IsActive: true})
}

func ptr(v int64) *int64 { return &v }

func str(s string) *string { return &s }
