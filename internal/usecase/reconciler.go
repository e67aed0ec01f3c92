package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/purbeurre/backend/internal/domain"
	"github.com/purbeurre/backend/internal/jsonnode"
	"go.uber.org/zap"
)

// ReconcileOptions controls how a batch of source records is admitted into the catalog
type ReconcileOptions struct {
	// Strict rejects a record when any of the entity's strict-required fields is missing or empty
	Strict bool
	// Filters maps a field name to its allowed values. Relation fields pass when any member is allowed.
	Filters map[string][]string
}

// ReconcileStats counts the outcome of a reconciled batch
type ReconcileStats struct {
	Created          int `json:"created"`
	Updated          int `json:"updated"`
	Rejected         int `json:"rejected"`
	RelationFailures int `json:"relationFailures"`
}

// Add accumulates other into s
func (s *ReconcileStats) Add(other ReconcileStats) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Rejected += other.Rejected
	s.RelationFailures += other.RelationFailures
}

// Reconciler maps raw source records onto catalog entities
type Reconciler struct {
	repo domain.CatalogRepository
	log  *zap.SugaredLogger
}

// NewReconciler creates a new reconciler writing to repo
func NewReconciler(repo domain.CatalogRepository, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		repo: repo,
		log:  log.Named("reconciler"),
	}
}

// resolvedRecord holds the values found in one source record, keyed by entity field name
type resolvedRecord struct {
	pkName    string
	pk        string
	scalars   map[string]any
	relations map[string][]string
	// raw keeps the resolved nodes for the strict and filter gates
	raw map[string]jsonnode.Node
}

// Upsert creates or partially updates one entity per record.
// Records failing the strict or filter gate are skipped. Relation members are only ever added.
func (r *Reconciler) Upsert(ctx context.Context, spec domain.EntitySpec, records []jsonnode.Node, opts ReconcileOptions) (ReconcileStats, error) {
	var stats ReconcileStats

	for name := range opts.Filters {
		if name != spec.PrimaryKey && !spec.IsRelation(name) {
			if _, ok := spec.Field(name); !ok {
				return stats, fmt.Errorf("%w: cannot filter %s on unknown field %q", domain.ErrInvalidRequest, spec.Name, name)
			}
		}
	}

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec := r.resolve(spec, record)
		if err := admit(spec, rec, opts); err != nil {
			stats.Rejected++
			r.log.Warnw("Record rejected", "entity", spec.Name, "index", i, "pk", rec.pk, "error", err)
			continue
		}

		created, err := r.repo.Upsert(ctx, spec.Name, rec.pk, rec.scalars)
		if err != nil {
			stats.Rejected++
			r.log.Warnw("Failed to store record", "entity", spec.Name, "pk", rec.pk, "error", err)
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}

		for _, rel := range spec.Relations {
			for _, member := range rec.relations[rel.Name] {
				if err := r.repo.AddRelation(ctx, spec.Name, rel.Name, rec.pk, member); err != nil {
					stats.RelationFailures++
					r.log.Warnw("Failed to add relation member",
						"entity", spec.Name, "pk", rec.pk, "relation", rel.Name, "member", member, "error", err)
				}
			}
		}
	}

	return stats, nil
}

// resolve looks up every recognized field of spec in record, first match wins
func (r *Reconciler) resolve(spec domain.EntitySpec, record jsonnode.Node) resolvedRecord {
	rec := resolvedRecord{
		pkName:    spec.PrimaryKey,
		scalars:   make(map[string]any),
		relations: make(map[string][]string),
		raw:       make(map[string]jsonnode.Node),
	}

	for _, name := range spec.RecognizedFields() {
		node, ok := lookup(spec, name, record)
		if !ok {
			continue
		}
		rec.raw[name] = node

		switch {
		case name == spec.PrimaryKey:
			rec.pk, _ = node.Text()
		case spec.IsRelation(name):
			rec.relations[name] = node.Strings()
		default:
			field, _ := spec.Field(name)
			value, ok := normalize(field, node)
			if !ok {
				r.log.Debugw("Ignoring unusable value", "entity", spec.Name, "field", name, "kind", node.Kind().String())
				continue
			}
			rec.scalars[name] = value
		}
	}
	return rec
}

func lookup(spec domain.EntitySpec, field string, record jsonnode.Node) (jsonnode.Node, bool) {
	for _, key := range spec.LookupKeys(field) {
		if node, ok := jsonnode.First(key, record); ok {
			return node, true
		}
	}
	return jsonnode.Node{}, false
}

// normalize converts a resolved node into the stored representation of field.
// Null and empty values clear the field.
func normalize(field domain.FieldSpec, node jsonnode.Node) (any, bool) {
	if field.Kind == domain.FieldNumber {
		if node.Missing() {
			return nil, true
		}
		f, ok := node.Number()
		return f, ok
	}
	if node.Kind() == jsonnode.KindNull {
		return "", true
	}
	return node.Text()
}

// admit applies the primary key, strict and filter gates
func admit(spec domain.EntitySpec, rec resolvedRecord, opts ReconcileOptions) error {
	if rec.pk == "" {
		return fmt.Errorf("%w: missing %s", domain.ErrRecordRejected, spec.PrimaryKey)
	}

	if opts.Strict {
		for _, name := range spec.StrictRequired {
			if rec.missing(name) {
				return fmt.Errorf("%w: strict field %s is empty", domain.ErrRecordRejected, name)
			}
		}
	}

	for name, allowed := range opts.Filters {
		var values []string
		if spec.IsRelation(name) {
			values = rec.relations[name]
		} else if !rec.missing(name) {
			if s, ok := rec.raw[name].Text(); ok {
				values = []string{s}
			}
		}
		if !slices.ContainsFunc(values, func(v string) bool { return slices.Contains(allowed, v) }) {
			return fmt.Errorf("%w: %s not in filter", domain.ErrRecordRejected, name)
		}
	}
	return nil
}

// missing reports whether a field was absent, null, empty or unusable
func (rec resolvedRecord) missing(name string) bool {
	if members, ok := rec.relations[name]; ok {
		return len(members) == 0
	}
	node, ok := rec.raw[name]
	if !ok || node.Missing() {
		return true
	}
	if name == rec.pkName {
		return false
	}
	_, usable := rec.scalars[name]
	return !usable
}
