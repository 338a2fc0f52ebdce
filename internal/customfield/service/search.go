package service

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/pathquery"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/permission"
	"github.com/peoplebase/peoplebase-backend/pkg/errors"
	"github.com/peoplebase/peoplebase-backend/pkg/logger"
)

// SearchEngine finds entities by the content of their custom-field values.
// Conditions are evaluated in process over the values in scope.
type SearchEngine struct {
	values ValueRepository
	org    OrgRepository
	paging Paging
	logger *logger.Logger
}

// NewSearchEngine creates a new search engine
func NewSearchEngine(values ValueRepository, org OrgRepository, paging Paging, log *logger.Logger) *SearchEngine {
	return &SearchEngine{
		values: values,
		org:    org,
		paging: paging,
		logger: log.WithComponent("search"),
	}
}

// Search returns one page of the ascending entity ids matching every
// condition. Values are read from schemas owned by the scope's companies and
// from system schemas.
func (e *SearchEngine) Search(ctx context.Context, o *permission.Oracle, req domain.SearchRequest) (*domain.SearchResult, error) {
	if strings.TrimSpace(req.EntityType) == "" {
		return nil, errors.Validation(map[string]string{"entity_type": "is required"})
	}
	for i, c := range req.Conditions {
		if !c.Operator.Valid() {
			return nil, errors.Validation(map[string]string{
				conditionField(i, "operator"): "unsupported operator " + string(c.Operator),
			})
		}
		if strings.TrimSpace(c.Path) == "" {
			return nil, errors.Validation(map[string]string{conditionField(i, "path"): "is required"})
		}
	}
	if !o.CanView(req.CompanyID) {
		return nil, e.deny(o, req.CompanyID, "you cannot view this company")
	}

	companies, err := e.scope(ctx, o, req)
	if err != nil {
		return nil, err
	}

	var matched map[int64]bool
	if len(req.Conditions) == 0 {
		matched, err = e.entitiesInScope(ctx, req.EntityType, companies)
		if err != nil {
			return nil, err
		}
	}
	for _, c := range req.Conditions {
		ids, err := e.matchCondition(ctx, req.EntityType, companies, c)
		if err != nil {
			return nil, err
		}
		matched = intersect(matched, ids)
		if len(matched) == 0 {
			break
		}
	}

	all := make([]int64, 0, len(matched))
	for id := range matched {
		all = append(all, id)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	page, size := e.paging.Normalize(req.Page, req.PageSize)
	start := Offset(page, size)
	if start > len(all) {
		start = len(all)
	}
	end := start + min(size, len(all)-start)
	if end > len(all) {
		end = len(all)
	}

	e.logger.WithCompanyID(req.CompanyID).Debug().
		Int("conditions", len(req.Conditions)).
		Int("total", len(all)).
		Msg("search evaluated")

	return &domain.SearchResult{
		EntityIDs: append([]int64{}, all[start:end]...),
		Total:     len(all),
		Page:      page,
		PageSize:  size,
		TotalPage: TotalPages(int64(len(all)), size),
	}, nil
}

// scope is the company itself, or its whole subtree when subsidiaries are requested.
func (e *SearchEngine) scope(ctx context.Context, o *permission.Oracle, req domain.SearchRequest) ([]int64, error) {
	if !req.IncludeSubsidiaries {
		return []int64{req.CompanyID}, nil
	}
	if !o.CanViewSubsidiaryTree(req.CompanyID) {
		return nil, e.deny(o, req.CompanyID, "you cannot view subsidiary data of this company")
	}
	companies, err := e.org.Companies(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewCompanyTree(companies).Subtree(req.CompanyID), nil
}

func (e *SearchEngine) entitiesInScope(ctx context.Context, entityType string, companies []int64) (map[int64]bool, error) {
	rows, err := e.values.ListInScope(ctx, domain.SearchScope{EntityType: entityType, CompanyIDs: companies})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(rows))
	for _, row := range rows {
		out[row.EntityID] = true
	}
	return out, nil
}

func (e *SearchEngine) matchCondition(ctx context.Context, entityType string, companies []int64, c domain.Condition) (map[int64]bool, error) {
	schemaID := c.SchemaID
	rows, err := e.values.ListInScope(ctx, domain.SearchScope{
		EntityType: entityType,
		SchemaID:   &schemaID,
		CompanyIDs: companies,
	})
	if err != nil {
		return nil, err
	}

	out := map[int64]bool{}
	for _, row := range rows {
		field, found := pathquery.Resolve(map[string]any(row.Document), c.Path)
		if !found {
			field = nil
		}
		if pathquery.Compare(field, c.Operator, c.Value) {
			out[row.EntityID] = true
		}
	}
	return out, nil
}

// intersect returns b when acc is nil (first condition), else the ids in
// both acc and b.
func intersect(acc, b map[int64]bool) map[int64]bool {
	if acc == nil {
		return b
	}
	out := map[int64]bool{}
	for id := range acc {
		if b[id] {
			out[id] = true
		}
	}
	return out
}

func conditionField(i int, name string) string {
	return "conditions[" + strconv.Itoa(i) + "]." + name
}

func (e *SearchEngine) deny(o *permission.Oracle, companyID int64, msg string) error {
	e.logger.Warn().
		Int64("account_id", o.ActorID()).
		Str("action", "search").
		Int64("company_id", companyID).
		Msg("permission denied")
	return errors.Forbidden(msg)
}
