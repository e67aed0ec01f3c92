package domain

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FieldKind tells the reconciler how to normalise a resolved source value
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
)

// FieldSpec declares one scalar field of an entity
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// RelationSpec declares a many-to-many field and the entity type its members reference
type RelationSpec struct {
	Name   string
	Target string
}

// EntitySpec is the per-entity-type configuration driving fetching, caching and reconciliation.
//
// ListURL may contain a {page} placeholder (paginated entities) and ElementURL an {id}
// placeholder. Renames maps source-side keys onto entity field names.
type EntitySpec struct {
	Name           string
	ListURL        string
	ElementURL     string
	Paginated      bool
	ListKey        string
	ElementKey     string
	PrimaryKey     string
	Fields         []FieldSpec
	Relations      []RelationSpec
	Renames        map[string]string
	StrictRequired []string
}

// ListURLFor returns the list endpoint for a page; the page is ignored for non-paginated entities
func (s EntitySpec) ListURLFor(page int) string {
	if !s.Paginated {
		return s.ListURL
	}
	return strings.ReplaceAll(s.ListURL, "{page}", strconv.Itoa(page))
}

// ElementURLFor returns the detail endpoint for an identifier, or "" when the entity has none
func (s EntitySpec) ElementURLFor(id string) string {
	if s.ElementURL == "" {
		return ""
	}
	return strings.ReplaceAll(s.ElementURL, "{id}", url.PathEscape(id))
}

// Field returns the scalar field spec with the given name
func (s EntitySpec) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// IsRelation reports whether name is a many-to-many field of the entity
func (s EntitySpec) IsRelation(name string) bool {
	for _, r := range s.Relations {
		if r.Name == name {
			return true
		}
	}
	return false
}

// RecognizedFields returns the primary key, the scalar fields and the relation fields, in that order.
func (s EntitySpec) RecognizedFields() []string {
	names := make([]string, 0, 1+len(s.Fields)+len(s.Relations))
	names = append(names, s.PrimaryKey)
	for _, f := range s.Fields {
		if f.Name != s.PrimaryKey {
			names = append(names, f.Name)
		}
	}
	for _, r := range s.Relations {
		names = append(names, r.Name)
	}
	return names
}

// LookupKeys returns the source keys that resolve to field: the field name itself first,
// then its aliases from the rename table in lexical order.
func (s EntitySpec) LookupKeys(field string) []string {
	keys := []string{field}
	var aliases []string
	for source, target := range s.Renames {
		if target == field && source != field {
			aliases = append(aliases, source)
		}
	}
	sort.Strings(aliases)
	return append(keys, aliases...)
}
