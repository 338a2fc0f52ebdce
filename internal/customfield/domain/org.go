package domain

import "sort"

// Company is the replicated view of an organisation unit.
type Company struct {
	ID       int64  `db:"id" json:"id"`
	ParentID *int64 `db:"parent_id" json:"parent_id"`
	Name     string `db:"name" json:"name"`
}

// Account is the replicated view of a login account.
type Account struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// Membership grants an account a role in a company.
type Membership struct {
	AccountID int64  `db:"account_id" json:"account_id"`
	CompanyID int64  `db:"company_id" json:"company_id"`
	Role      string `db:"role" json:"role"`
}

// CompanyTree is the company hierarchy indexed by parent.
// Traversals keep a visited set, so a corrupt cyclic parent chain terminates.
type CompanyTree struct {
	children map[int64][]int64
}

// NewCompanyTree indexes companies by parent.
func NewCompanyTree(companies []Company) *CompanyTree {
	t := &CompanyTree{
		children: make(map[int64][]int64),
	}
	for _, c := range companies {
		if c.ParentID != nil {
			t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
		}
	}
	return t
}

// Subtree returns root and all of its descendants, ascending.
func (t *CompanyTree) Subtree(root int64) []int64 {
	seen := map[int64]bool{root: true}
	queue := []int64{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range t.children[id] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
