package repository

import (
	"context"
	"database/sql"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/database"
)

// OrgRepository reads and maintains the local replica of companies, accounts
// and memberships published by the org service.
type OrgRepository struct {
	db *database.DB
}

// NewOrgRepository creates a new org replica repository
func NewOrgRepository(db *database.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// Account returns the replicated account, or nil if it is unknown
func (r *OrgRepository) Account(ctx context.Context, id int64) (*domain.Account, error) {
	var a domain.Account
	err := r.db.Executor(ctx).GetContext(ctx, &a,
		`SELECT id, username, is_active FROM org_accounts WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MembershipsForAccount lists the companies an account belongs to
func (r *OrgRepository) MembershipsForAccount(ctx context.Context, accountID int64) ([]domain.Membership, error) {
	memberships := []domain.Membership{}
	err := r.db.Executor(ctx).SelectContext(ctx, &memberships,
		`SELECT account_id, company_id, role FROM org_memberships WHERE account_id = $1 ORDER BY company_id`,
		accountID)
	return memberships, err
}

// Companies returns the whole company replica for hierarchy walks
func (r *OrgRepository) Companies(ctx context.Context) ([]domain.Company, error) {
	companies := []domain.Company{}
	err := r.db.Executor(ctx).SelectContext(ctx, &companies,
		`SELECT id, parent_id, name FROM org_companies ORDER BY id`)
	return companies, err
}

// UpsertCompany inserts or replaces a company
func (r *OrgRepository) UpsertCompany(ctx context.Context, c domain.Company) error {
	query := `
		INSERT INTO org_companies (id, parent_id, name, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			name = EXCLUDED.name,
			updated_at = NOW()
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query, c.ID, c.ParentID, c.Name)
	return err
}

// DeleteCompany removes a company and the memberships that pointed at it.
// Children keep their parent_id; walks over the replica tolerate dangling parents.
func (r *OrgRepository) DeleteCompany(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		exec := r.db.Executor(ctx)
		if _, err := exec.ExecContext(ctx, `DELETE FROM org_memberships WHERE company_id = $1`, id); err != nil {
			return err
		}
		_, err := exec.ExecContext(ctx, `DELETE FROM org_companies WHERE id = $1`, id)
		return err
	})
}

// UpsertAccount inserts or replaces an account
func (r *OrgRepository) UpsertAccount(ctx context.Context, a domain.Account) error {
	query := `
		INSERT INTO org_accounts (id, username, is_active, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query, a.ID, a.Username, a.IsActive)
	return err
}

// UpsertMembership grants or changes a role
func (r *OrgRepository) UpsertMembership(ctx context.Context, m domain.Membership) error {
	query := `
		INSERT INTO org_memberships (account_id, company_id, role, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_id, company_id) DO UPDATE SET
			role = EXCLUDED.role,
			updated_at = NOW()
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query, m.AccountID, m.CompanyID, m.Role)
	return err
}

// DeleteMembership revokes a membership; revoking an unknown one is not an error
func (r *OrgRepository) DeleteMembership(ctx context.Context, accountID, companyID int64) error {
	_, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM org_memberships WHERE account_id = $1 AND company_id = $2`, accountID, companyID)
	return err
}
