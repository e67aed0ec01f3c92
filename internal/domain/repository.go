package domain

import (
	"context"

	"github.com/purbeurre/backend/internal/jsonnode"
)

// PageKind distinguishes cached list pages from cached single elements
type PageKind string

const (
	PageList    PageKind = "list"
	PageElement PageKind = "element"
)

// ListPage is one fetched page of a list endpoint
type ListPage struct {
	Records []jsonnode.Node
	// Raw is the collection array as received, used as the cached payload
	Raw []byte
	// Last is set when the source signals there are no pages after this one
	Last bool
}

// Element is one fetched detail record
type Element struct {
	Record jsonnode.Node
	Raw    []byte
}

// CatalogSource defines the interface for fetching raw catalog data from the external service
type CatalogSource interface {
	FetchList(ctx context.Context, spec EntitySpec, page int) (*ListPage, error)
	FetchElement(ctx context.Context, spec EntitySpec, id string) (*Element, error)
}

// PageCache defines the interface for persisting raw fetched payloads.
// An empty suffix addresses the unsuffixed file of an entity.
type PageCache interface {
	Read(entity string, kind PageKind, suffix string) ([]byte, error)
	Write(entity string, kind PageKind, suffix string, payload []byte) (string, error)
}

// RecoveryStateStore persists the next page to fetch between sync runs
type RecoveryStateStore interface {
	Get(ctx context.Context) (int, error)
	Set(ctx context.Context, page int) error
	Reset(ctx context.Context) error
}

// CatalogRepository defines the read/write contract against the relational catalog store
type CatalogRepository interface {
	// Upsert creates the entity or overwrites the given fields of the existing one
	Upsert(ctx context.Context, entity, pk string, fields map[string]any) (created bool, err error)
	// AddRelation adds memberID to a many-to-many field; existing members are kept
	AddRelation(ctx context.Context, entity, relation, pk, memberID string) error

	GetProduct(ctx context.Context, code string) (*Product, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	Count(ctx context.Context, entity string) (int, error)
	// FindProductsByName returns complete products whose name contains every term, ordered by code
	FindProductsByName(ctx context.Context, terms []string) ([]Product, error)

	AddFavorite(ctx context.Context, userID, code string) error

	DeleteUnfavoritedProducts(ctx context.Context) (int64, error)
	DeleteOrphanCategories(ctx context.Context) (int64, error)
	DeleteProductsWithEmptyGrade(ctx context.Context) (int64, error)
	DeleteProductsMissingFields(ctx context.Context, fields []string) (int64, error)
	DeleteSparseCategories(ctx context.Context, maxProducts int) (int64, error)
	DeleteUncategorizedProducts(ctx context.Context) (int64, error)
}
