// Package memory is an in-process implementation of the catalog store.
// It enforces the same keys, foreign keys and cascades as the SQL store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/purbeurre/backend/internal/domain"
)

type row map[string]any

type set map[string]struct{}

// Store is a thread-safe in-memory catalog
type Store struct {
	mu         sync.RWMutex
	products   map[string]row
	categories map[string]row
	users      set
	// product code -> category ids
	productCategories map[string]set
	// product code -> user ids
	favorites map[string]set
	now       func() time.Time
}

// NewStore creates an empty catalog
func NewStore() *Store {
	return &Store{
		products:          make(map[string]row),
		categories:        make(map[string]row),
		users:             make(set),
		productCategories: make(map[string]set),
		favorites:         make(map[string]set),
		now:               time.Now,
	}
}

func (s *Store) table(entity string) (map[string]row, []domain.FieldSpec, error) {
	switch entity {
	case domain.EntityProduct:
		return s.products, domain.ProductColumns(), nil
	case domain.EntityCategory:
		return s.categories, domain.CategoryColumns(), nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnknownEntity, entity)
	}
}

// Upsert creates the entity or overwrites the given fields of the existing one
func (s *Store) Upsert(ctx context.Context, entity, pk string, fields map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, columns, err := s.table(entity)
	if err != nil {
		return false, err
	}
	if pk == "" {
		return false, fmt.Errorf("%w: empty primary key", domain.ErrInvalidRequest)
	}
	for name := range fields {
		if !hasColumn(columns, name) {
			return false, fmt.Errorf("%w: %s.%s", domain.ErrUnknownField, entity, name)
		}
	}

	r, exists := table[pk]
	if !exists {
		r = make(row, len(columns)+1)
		for _, col := range columns {
			if col.Kind == domain.FieldText {
				r[col.Name] = ""
			}
		}
	}
	for name, value := range fields {
		r[name] = value
	}
	r[columns[0].Name] = pk
	if entity == domain.EntityProduct {
		r[domain.FieldLastUpdated] = s.now().UTC()
	}
	table[pk] = r
	return !exists, nil
}

// AddRelation adds a category to a product; adding an existing member is a no-op
func (s *Store) AddRelation(ctx context.Context, entity, relation, pk, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entity != domain.EntityProduct || relation != domain.FieldCategoriesTags {
		return fmt.Errorf("%w: %s.%s", domain.ErrUnknownField, entity, relation)
	}
	if _, ok := s.products[pk]; !ok {
		return fmt.Errorf("%w: product %s does not exist", domain.ErrRelationAdd, pk)
	}
	if _, ok := s.categories[memberID]; !ok {
		return fmt.Errorf("%w: category %s does not exist", domain.ErrRelationAdd, memberID)
	}
	members, ok := s.productCategories[pk]
	if !ok {
		members = make(set)
		s.productCategories[pk] = members
	}
	members[memberID] = struct{}{}
	return nil
}

// GetProduct returns a product with its category ids
func (s *Store) GetProduct(ctx context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.products[code]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, code)
	}
	p := domain.ProductFromFields(r)
	p.Categories = sortedKeys(s.productCategories[code])
	return &p, nil
}

// GetCategory returns a category by id
func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("%w: category %s", domain.ErrNotFound, id)
	}
	c := domain.CategoryFromFields(r)
	return &c, nil
}

// Count returns the number of stored entities of a type
func (s *Store) Count(ctx context.Context, entity string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entity == domain.EntityUser {
		return len(s.users), nil
	}
	table, _, err := s.table(entity)
	if err != nil {
		return 0, err
	}
	return len(table), nil
}

// FindProductsByName returns complete products whose name contains every term, case-insensitively
func (s *Store) FindProductsByName(ctx context.Context, terms []string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	var out []domain.Product
	for _, code := range sortedRowKeys(s.products) {
		p := domain.ProductFromFields(s.products[code])
		if !p.Complete() {
			continue
		}
		name := strings.ToLower(p.Name)
		matched := true
		for _, t := range lowered {
			if !strings.Contains(name, t) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddFavorite records userID as favoriting a product, creating the user when needed
func (s *Store) AddFavorite(ctx context.Context, userID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[code]; !ok {
		return fmt.Errorf("%w: product %s", domain.ErrNotFound, code)
	}
	s.users[userID] = struct{}{}
	users, ok := s.favorites[code]
	if !ok {
		users = make(set)
		s.favorites[code] = users
	}
	users[userID] = struct{}{}
	return nil
}

// DeleteUnfavoritedProducts deletes every product no user has favorited
func (s *Store) DeleteUnfavoritedProducts(ctx context.Context) (int64, error) {
	return s.deleteProducts(func(code string, _ row) bool {
		return len(s.favorites[code]) == 0
	}), nil
}

// DeleteOrphanCategories deletes categories without any product
func (s *Store) DeleteOrphanCategories(ctx context.Context) (int64, error) {
	return s.DeleteSparseCategories(ctx, 0)
}

// DeleteProductsWithEmptyGrade deletes products lacking a nutrition grade
func (s *Store) DeleteProductsWithEmptyGrade(ctx context.Context) (int64, error) {
	return s.DeleteProductsMissingFields(ctx, []string{domain.FieldNutritionGrade})
}

// DeleteProductsMissingFields deletes products where any of fields is unset or empty
func (s *Store) DeleteProductsMissingFields(ctx context.Context, fields []string) (int64, error) {
	columns := domain.ProductColumns()
	for _, f := range fields {
		if !hasColumn(columns, f) {
			return 0, fmt.Errorf("%w: product.%s", domain.ErrUnknownField, f)
		}
	}
	return s.deleteProducts(func(_ string, r row) bool {
		for _, f := range fields {
			switch v := r[f].(type) {
			case nil:
				return true
			case string:
				if v == "" {
					return true
				}
			}
		}
		return false
	}), nil
}

// DeleteSparseCategories deletes categories associated with at most maxProducts products
func (s *Store) DeleteSparseCategories(ctx context.Context, maxProducts int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(s.categories))
	for _, members := range s.productCategories {
		for id := range members {
			counts[id]++
		}
	}

	var deleted int64
	for id := range s.categories {
		if counts[id] > maxProducts {
			continue
		}
		delete(s.categories, id)
		for _, members := range s.productCategories {
			delete(members, id)
		}
		deleted++
	}
	return deleted, nil
}

// DeleteUncategorizedProducts deletes products without any category
func (s *Store) DeleteUncategorizedProducts(ctx context.Context) (int64, error) {
	return s.deleteProducts(func(code string, _ row) bool {
		return len(s.productCategories[code]) == 0
	}), nil
}

// deleteProducts removes matching products and cascades to their relations
func (s *Store) deleteProducts(match func(code string, r row) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for code, r := range s.products {
		if !match(code, r) {
			continue
		}
		delete(s.products, code)
		delete(s.productCategories, code)
		delete(s.favorites, code)
		deleted++
	}
	return deleted
}

func hasColumn(columns []domain.FieldSpec, name string) bool {
	for _, c := range columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func sortedKeys(m set) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRowKeys(m map[string]row) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
