// Package permission answers what an actor may do to a company's custom-field data.
//
// An Oracle is built per request from the actor and its memberships, so every
// predicate is a pure read with no ambient user state.
package permission

import (
	"context"
	"fmt"
	"sort"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/pkg/actor"
	"github.com/peoplebase/peoplebase-backend/pkg/permissions"
)

// OrgReader is the read side of the org replica the oracle depends on.
type OrgReader interface {
	// Account returns nil when the account is not replicated yet
	Account(ctx context.Context, id int64) (*domain.Account, error)
	MembershipsForAccount(ctx context.Context, accountID int64) ([]domain.Membership, error)
}

// Oracle holds one actor's roles, keyed by company.
type Oracle struct {
	actor  *actor.Actor
	active bool
	roles  map[int64]string
}

// NewOracle loads the actor's memberships. The replicated account's active
// flag wins over the one carried by the token.
func NewOracle(ctx context.Context, org OrgReader, a *actor.Actor) (*Oracle, error) {
	if a == nil {
		return &Oracle{roles: map[int64]string{}}, nil
	}
	if a.IsSystem() {
		return &Oracle{actor: a, active: true, roles: map[int64]string{}}, nil
	}

	o := &Oracle{actor: a, active: a.IsActive, roles: map[int64]string{}}

	acct, err := org.Account(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", a.ID, err)
	}
	if acct != nil {
		o.active = acct.IsActive
	}

	memberships, err := org.MembershipsForAccount(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load memberships for account %d: %w", a.ID, err)
	}
	for _, m := range memberships {
		o.roles[m.CompanyID] = m.Role
	}
	return o, nil
}

// New builds an oracle from already-known roles.
func New(a *actor.Actor, roles map[int64]string) *Oracle {
	o := &Oracle{actor: a, roles: map[int64]string{}}
	if a != nil {
		o.active = a.IsActive || a.IsSystem()
	}
	for company, role := range roles {
		o.roles[company] = role
	}
	return o
}

// Actor returns the actor the oracle was built for
func (o *Oracle) Actor() *actor.Actor {
	return o.actor
}

// ActorID returns the actor's account id, 0 for anonymous and system callers
func (o *Oracle) ActorID() int64 {
	if o.actor == nil {
		return 0
	}
	return o.actor.ID
}

// IsSystem reports whether the oracle speaks for the system actor
func (o *Oracle) IsSystem() bool {
	return o.actor.IsSystem()
}

// CanView is true when the actor holds any role in the company.
func (o *Oracle) CanView(companyID int64) bool {
	if o.IsSystem() {
		return true
	}
	return permissions.RoleHas(o.roles[companyID], permissions.CustomFieldRead)
}

// CanManage is true for owners and admins of the company.
func (o *Oracle) CanManage(companyID int64) bool {
	if o.IsSystem() {
		return true
	}
	return permissions.RoleHas(o.roles[companyID], permissions.CustomFieldManage)
}

// CanCreateTenantResource is true when the actor's account is active.
func (o *Oracle) CanCreateTenantResource() bool {
	return o.IsSystem() || (o.actor != nil && o.active)
}

// IsElevated gates system-schema mutation. Elevation is always company scoped.
func (o *Oracle) IsElevated(companyID int64) bool {
	return o.CanManage(companyID)
}

// CanViewSubsidiaryTree gates reads across a parent company's descendants.
func (o *Oracle) CanViewSubsidiaryTree(parentCompanyID int64) bool {
	if o.IsSystem() {
		return true
	}
	return permissions.RoleHas(o.roles[parentCompanyID], permissions.CustomFieldSubsidiaries)
}

// ViewableCompanies lists the companies the actor can view, ascending.
// For the system actor the list is nil and callers must not use it as a scope.
func (o *Oracle) ViewableCompanies() []int64 {
	if o.IsSystem() {
		return nil
	}
	out := make([]int64, 0, len(o.roles))
	for company := range o.roles {
		if o.CanView(company) {
			out = append(out, company)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
