//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/repository"
	"github.com/peoplebase/peoplebase-backend/pkg/database"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}
	code := m.Run()
	testutil.TerminateContainer(ctx)

	os.Exit(code)
}

func createSchema(t *testing.T, ctx context.Context, repo *repository.SchemaRepository, companyID *int64) *domain.Schema {
	t.Helper()
	s := &domain.Schema{
		Name:       "Emergency Contact",
		EntityType: domain.EntityEmployee,
		Structure:  testutil.ContactStructure(),
		CompanyID:  companyID,
		Version:    1,
	}
	require.NoError(t, repo.Create(ctx, s))
	return s
}

func TestIntegration_SchemaRoundTrip(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	suite.Reset(t, ctx)

	repo := repository.NewSchemaRepository(suite.DB)
	created := createSchema(t, ctx, repo, testutil.PtrInt64(1))
	assert.NotZero(t, created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, []any{"contact_name"}, got.Structure["required"])

	got.Name = "Next of Kin"
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Next of Kin", reloaded.Name)
}

func TestIntegration_StructureWithoutPropertiesRejectedByDatabase(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	suite.Reset(t, ctx)

	repo := repository.NewSchemaRepository(suite.DB)
	err := repo.Create(ctx, &domain.Schema{
		Name:       "Broken",
		EntityType: domain.EntityEmployee,
		Structure:  domain.Document{"type": "object"},
		Version:    1,
	})
	require.Error(t, err)
	mapped := database.MapPQError(err)
	require.NotNil(t, mapped)
	assert.True(t, errors.Is(mapped, errors.ErrMalformedSchema))
}

func TestIntegration_ReferencedSchemaCannotBeDeleted(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	suite.Reset(t, ctx)

	schemas := repository.NewSchemaRepository(suite.DB)
	values := repository.NewValueRepository(suite.DB)
	s := createSchema(t, ctx, schemas, testutil.PtrInt64(1))

	require.NoError(t, values.Create(ctx, &domain.Value{
		SchemaID:   s.ID,
		EntityType: "employee",
		EntityID:   42,
		Document:   domain.Document{"contact_name": "Alice"},
	}))

	err := schemas.Delete(ctx, s.ID)
	require.Error(t, err)
	assert.True(t, database.IsForeignKeyViolation(err))

	mapped := database.MapPQError(err)
	require.NotNil(t, mapped)
	assert.True(t, errors.Is(mapped, errors.ErrConflict))
}

func TestIntegration_ValueScopes(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	suite.Reset(t, ctx)

	schemas := repository.NewSchemaRepository(suite.DB)
	values := repository.NewValueRepository(suite.DB)
	own := createSchema(t, ctx, schemas, testutil.PtrInt64(1))
	other := createSchema(t, ctx, schemas, testutil.PtrInt64(2))

	for _, v := range []*domain.Value{
		{SchemaID: own.ID, EntityType: "employee", EntityID: 42, Document: domain.Document{"contact_name": "Alice"}},
		{SchemaID: other.ID, EntityType: "employee", EntityID: 43, Document: domain.Document{"contact_name": "Bob"}},
	} {
		require.NoError(t, values.Create(ctx, v))
	}

	scoped, err := values.ListInScope(ctx, domain.SearchScope{EntityType: "EMPLOYEE", CompanyIDs: []int64{1}})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, int64(42), scoped[0].EntityID)

	batch, err := values.ListForEntities(ctx, domain.ValueQuery{EntityType: "employee", EntityIDs: []int64{42, 43}})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestIntegration_OrgReplica(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	suite.Reset(t, ctx)
	suite.SeedOrg(t, ctx, testutil.DefaultOrg())

	org := repository.NewOrgRepository(suite.DB)

	acct, err := org.Account(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.True(t, acct.IsActive)

	require.NoError(t, org.DeleteCompany(ctx, 1))
	memberships, err := org.MembershipsForAccount(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, memberships)

	companies, err := org.Companies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, int64(2), companies[0].ID)
}
