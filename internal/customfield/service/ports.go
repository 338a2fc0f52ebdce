// Package service implements the custom-field core: the schema registry, the
// value store, entity search, schema migration and the facade that fronts them.
//
// Components take a per-request *permission.Oracle instead of reading the
// caller from ambient state; the Facade builds that oracle from the context.
package service

import (
	"context"
	"math"

	"github.com/peoplebase/peoplebase-backend/internal/customfield/domain"
	"github.com/peoplebase/peoplebase-backend/internal/customfield/permission"
)

// TxRunner runs fn in one storage transaction carried by the context
type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// SchemaRepository persists schemas
type SchemaRepository interface {
	Create(ctx context.Context, s *domain.Schema) error
	GetByID(ctx context.Context, id int64) (*domain.Schema, error)
	Update(ctx context.Context, s *domain.Schema) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q domain.SchemaQuery) ([]domain.Schema, int64, error)
}

// ValueRepository persists values
type ValueRepository interface {
	Create(ctx context.Context, v *domain.Value) error
	GetByID(ctx context.Context, id int64) (*domain.Value, error)
	Update(ctx context.Context, v *domain.Value) error
	Delete(ctx context.Context, id int64) error
	CountBySchema(ctx context.Context, schemaID int64) (int64, error)
	ListBySchema(ctx context.Context, schemaID int64) ([]domain.Value, error)
	ListForEntities(ctx context.Context, q domain.ValueQuery) ([]domain.ScopedValue, error)
	ListInScope(ctx context.Context, scope domain.SearchScope) ([]domain.ScopedValue, error)
}

// OrgRepository is the read side of the org replica
type OrgRepository interface {
	permission.OrgReader
	Companies(ctx context.Context) ([]domain.Company, error)
}

// MaxPage bounds requested page numbers so offsets cannot overflow.
const MaxPage = 1_000_000

// Paging clamps page numbers and sizes
type Paging struct {
	DefaultSize int
	MaxSize     int
}

// Normalize returns a page in [1, MaxPage] and a size in [1, MaxSize],
// defaulting to DefaultSize.
func (p Paging) Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = p.DefaultSize
	}
	if p.MaxSize > 0 && size > p.MaxSize {
		size = p.MaxSize
	}
	return page, size
}

// Offset is the number of rows before page, capped at math.MaxInt32.
func Offset(page, size int) int {
	off := (int64(page) - 1) * int64(size)
	if off < 0 {
		return 0
	}
	if off > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(off)
}

// TotalPages is ceil(total / size)
func TotalPages(total int64, size int) int {
	if size < 1 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
