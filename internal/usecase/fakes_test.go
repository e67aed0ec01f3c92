package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/purbeurre/backend/internal/domain"
	"github.com/purbeurre/backend/internal/infrastructure/openfoodfacts"
	"github.com/purbeurre/backend/internal/jsonnode"
)

var (
	testProductSpec  = openfoodfacts.ProductSpec("http://off.test")
	testCategorySpec = openfoodfacts.CategorySpec("http://off.test")
)

func parseRecords(t *testing.T, docs ...string) []jsonnode.Node {
	t.Helper()
	records := make([]jsonnode.Node, 0, len(docs))
	for _, doc := range docs {
		n, err := jsonnode.Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse(%s) error = %v", doc, err)
		}
		records = append(records, n)
	}
	return records
}

// productDoc builds a graded product record tagged with the given categories
func productDoc(code, name string, tags ...string) string {
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = fmt.Sprintf("%q", tag)
	}
	return fmt.Sprintf(`{"code":%q,"product_name":%q,"generic_name":"boisson","nutrition_grade_fr":"e","categories_tags":[%s]}`,
		code, name, strings.Join(quoted, ","))
}

func categoryDoc(id string) string {
	return fmt.Sprintf(`{"id":%q,"name":%q,"url":"http://off.test/categorie/%s"}`, id, id, id)
}

// fakeSource serves numbered product pages and a fixed category list
type fakeSource struct {
	productPages map[int][]string
	// lastPage is the page flagged as last; 0 never flags one
	lastPage   int
	categories []string
	elements   map[string]string
	failPage   int
	listCalls  []int
}

func (f *fakeSource) FetchList(ctx context.Context, spec domain.EntitySpec, page int) (*domain.ListPage, error) {
	if spec.Name == domain.EntityCategory {
		return listPage(f.categories, true)
	}
	f.listCalls = append(f.listCalls, page)
	if page == f.failPage {
		return nil, fmt.Errorf("%w: page %d: status 503", domain.ErrFetch, page)
	}
	return listPage(f.productPages[page], f.lastPage > 0 && page >= f.lastPage)
}

func (f *fakeSource) FetchElement(ctx context.Context, spec domain.EntitySpec, id string) (*domain.Element, error) {
	doc, ok := f.elements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, spec.Name, id)
	}
	n, err := jsonnode.Parse([]byte(doc))
	if err != nil {
		return nil, err
	}
	return &domain.Element{Record: n, Raw: []byte(doc)}, nil
}

func listPage(docs []string, last bool) (*domain.ListPage, error) {
	raw := []byte("[" + strings.Join(docs, ",") + "]")
	root, err := jsonnode.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &domain.ListPage{Records: root.Items(), Raw: raw, Last: last}, nil
}

// fakeCache keeps payloads in memory
type fakeCache struct {
	payloads map[string][]byte
	reads    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{payloads: make(map[string][]byte)}
}

func cacheKey(entity string, kind domain.PageKind, suffix string) string {
	return entity + "/" + string(kind) + "/" + suffix
}

func (c *fakeCache) Read(entity string, kind domain.PageKind, suffix string) ([]byte, error) {
	c.reads++
	p, ok := c.payloads[cacheKey(entity, kind, suffix)]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return p, nil
}

func (c *fakeCache) Write(entity string, kind domain.PageKind, suffix string, payload []byte) (string, error) {
	key := cacheKey(entity, kind, suffix)
	c.payloads[key] = payload
	return key, nil
}

// fakeState is a recovery cursor kept in memory
type fakeState struct {
	page int
	sets []int
}

func (s *fakeState) Get(ctx context.Context) (int, error) {
	if s.page < 1 {
		return 1, nil
	}
	return s.page, nil
}

func (s *fakeState) Set(ctx context.Context, page int) error {
	s.page = page
	s.sets = append(s.sets, page)
	return nil
}

func (s *fakeState) Reset(ctx context.Context) error {
	return s.Set(ctx, 1)
}

// fakeFinder returns a fixed product list filtered like the stores do
type fakeFinder struct {
	products []domain.Product
	err      error
	calls    [][]string
}

func (f *fakeFinder) FindProductsByName(ctx context.Context, terms []string) ([]domain.Product, error) {
	f.calls = append(f.calls, terms)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Product
	for _, p := range f.products {
		if p.NutritionGrade == "" {
			continue
		}
		name := strings.ToLower(p.Name)
		matched := true
		for _, term := range terms {
			if !strings.Contains(name, strings.ToLower(term)) {
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
