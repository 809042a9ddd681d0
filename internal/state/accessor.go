package state

import (
	"log/slog"

	"github.com/roach88/jsonapistore/internal/inflect"
	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
)

// Accessor reads entity views and meta out of a State. It never writes.
//
// Lookup misses are not errors: single lookups report false and list
// lookups return an empty, non-nil slice.
type Accessor struct {
	infl   inflect.Inflector
	logger *slog.Logger
}

// NewAccessor creates an Accessor.
func NewAccessor(opts ...Option) *Accessor {
	cfg := newConfig(opts)
	return &Accessor{infl: cfg.inflector, logger: cfg.logger}
}

// GetEntity returns the view of one entity. key may be singular or plural.
func (a *Accessor) GetEntity(s State, key, id string, opts ...ViewOption) (View, bool) {
	pluralKey := a.infl.Plural(key)
	rec, ok := s.lookup(pluralKey, id)
	if !ok {
		return View{}, false
	}
	cfg := newViewConfig(opts)
	return buildView(s, pluralKey, id, rec, cfg.depth, map[entityRef]bool{}), true
}

// GetEntities returns views for a type. A nil ids returns every entity in
// insertion order. Otherwise views follow the order of ids and ids with no
// stored entity are skipped.
func (a *Accessor) GetEntities(s State, key string, ids []string, opts ...ViewOption) []View {
	pluralKey := a.infl.Plural(key)
	views := []View{}

	c, ok := s.collections[pluralKey]
	if !ok {
		return views
	}
	if ids == nil {
		ids = c.ids
	}

	cfg := newViewConfig(opts)
	for _, id := range ids {
		rec, ok := c.byID[id]
		if !ok {
			a.logger.Debug("skipping missing entity", "type", pluralKey, "id", id)
			continue
		}
		views = append(views, buildView(s, pluralKey, id, rec, cfg.depth, map[entityRef]bool{}))
	}
	return views
}

// GetID reads data.id off a raw document. See jsonapi.GetID.
func (a *Accessor) GetID(doc ir.Value) (string, bool) {
	return jsonapi.GetID(doc)
}

// GetIDs reads data[].id off a raw document. See jsonapi.GetIDs.
func (a *Accessor) GetIDs(doc ir.Value) []string {
	return jsonapi.GetIDs(doc)
}

// GetEntitiesMeta returns collection meta. An empty metaKey returns the
// whole meta object. Reports false when the type, its meta or the key is
// missing.
func (a *Accessor) GetEntitiesMeta(s State, typeKey, metaKey string) (ir.Value, bool) {
	c, ok := s.collections[a.infl.Plural(typeKey)]
	if !ok || c.Meta == nil {
		return nil, false
	}
	return metaValue(c.Meta, metaKey)
}

// GetEntityMeta returns per-entity meta with the same rules as
// GetEntitiesMeta.
func (a *Accessor) GetEntityMeta(s State, typeKey, entityID, metaKey string) (ir.Value, bool) {
	rec, ok := s.lookup(a.infl.Plural(typeKey), entityID)
	if !ok {
		return nil, false
	}
	return metaValue(rec.Meta, metaKey)
}

// GetMostRecentlyLoaded resolves the ids stored in the collection meta
// under MostRecentlyLoadedKey.
func (a *Accessor) GetMostRecentlyLoaded(s State, typeKey string, opts ...ViewOption) []View {
	v, ok := a.GetEntitiesMeta(s, typeKey, MostRecentlyLoadedKey)
	if !ok {
		return []View{}
	}
	ids := ir.StringSlice(v)
	if ids == nil {
		return []View{}
	}
	return a.GetEntities(s, typeKey, ids, opts...)
}

// metaValue returns a deep copy, so callers cannot reach the stored meta.
func metaValue(meta ir.Object, metaKey string) (ir.Value, bool) {
	if metaKey == "" {
		return ir.DeepCopy(nonNil(meta)), true
	}
	v, ok := meta[metaKey]
	if !ok {
		return nil, false
	}
	return ir.DeepCopy(v), true
}
