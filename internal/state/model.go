package state

import (
	"slices"

	"github.com/roach88/jsonapistore/internal/ir"
)

// State is an immutable snapshot of normalized entities keyed by plural
// type key. The zero value is an empty state.
//
// A State is never modified after it is returned. Every Normalizer call
// produces a new State that shares unchanged collections and records
// with its input.
type State struct {
	collections map[string]Collection
	keys        []string
}

// Collection holds every entity of one type plus group-level meta.
type Collection struct {
	// Meta is nil until the first group-level meta write.
	Meta ir.Object

	byID map[string]Record
	ids  []string
}

// Record is one stored entity.
type Record struct {
	// Meta is per-entity metadata, independent of Data. Never nil.
	Meta ir.Object

	// Data merges attributes with flattened relationship ids.
	// It never holds the entity's own id or type.
	Data ir.Object

	// Relationships marks which Data keys are relationship ids.
	Relationships map[string]Link
}

// Link describes a relationship field in Record.Data.
type Link struct {
	// Type is the plural type key of the related entities.
	Type string `json:"type"`

	// Many is true for an id array, false for a single id or null.
	Many bool `json:"many"`
}

func newRecord() Record {
	return Record{Meta: ir.Object{}, Data: ir.Object{}}
}

// Keys returns the type keys in first-insertion order.
func (s State) Keys() []string {
	return slices.Clone(s.keys)
}

// Len returns the number of type keys.
func (s State) Len() int {
	return len(s.keys)
}

// Collection returns the collection stored under an exact type key.
// The key is not pluralized; use Accessor for lookups by type name.
func (s State) Collection(key string) (Collection, bool) {
	c, ok := s.collections[key]
	return c, ok
}

// IDs returns the entity ids in first-insertion order.
func (c Collection) IDs() []string {
	return slices.Clone(c.ids)
}

// Len returns the number of stored entities.
func (c Collection) Len() int {
	return len(c.ids)
}

// Record returns the entity stored under id.
func (c Collection) Record(id string) (Record, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// IsLink reports whether key in Data is a relationship field.
func (r Record) IsLink(key string) bool {
	_, ok := r.Relationships[key]
	return ok
}

// withData returns r with attrs merged into Data. Links for keys that
// attrs overwrites are dropped, since those keys now hold attributes.
func (r Record) withData(attrs ir.Object) Record {
	out := Record{Meta: r.Meta, Data: r.Data.Merge(attrs)}
	for key, link := range r.Relationships {
		if _, overwritten := attrs[key]; overwritten {
			continue
		}
		if out.Relationships == nil {
			out.Relationships = make(map[string]Link, len(r.Relationships))
		}
		out.Relationships[key] = link
	}
	return out
}

// withLink returns r with Data[key] set to v and key marked as a link.
func (r Record) withLink(key string, v ir.Value, link Link) Record {
	out := Record{Meta: r.Meta, Data: r.Data.With(key, v)}
	out.Relationships = make(map[string]Link, len(r.Relationships)+1)
	for k, l := range r.Relationships {
		out.Relationships[k] = l
	}
	out.Relationships[key] = link
	return out
}

// withoutField returns r with key removed from Data and Relationships.
func (r Record) withoutField(key string) Record {
	out := Record{Meta: r.Meta, Data: r.Data.Without(key)}
	for k, l := range r.Relationships {
		if k == key {
			continue
		}
		if out.Relationships == nil {
			out.Relationships = make(map[string]Link, len(r.Relationships))
		}
		out.Relationships[k] = l
	}
	return out
}

// txn is a copy-on-write view of a State. Each collection is copied at
// most once per transaction; records are replaced, never mutated.
type txn struct {
	collections map[string]Collection
	keys        []string
	owned       map[string]bool
}

func (s State) begin() *txn {
	t := &txn{
		collections: make(map[string]Collection, len(s.collections)),
		keys:        slices.Clone(s.keys),
		owned:       make(map[string]bool),
	}
	for k, c := range s.collections {
		t.collections[k] = c
	}
	return t
}

func (t *txn) collection(key string) (Collection, bool) {
	c, ok := t.collections[key]
	return c, ok
}

func (t *txn) record(key, id string) (Record, bool) {
	c, ok := t.collections[key]
	if !ok {
		return Record{}, false
	}
	r, ok := c.byID[id]
	return r, ok
}

// own returns a private copy of the collection under key, creating an
// empty one if needed. Writes must be stored back with t.collections[key].
func (t *txn) own(key string) Collection {
	c, ok := t.collections[key]
	switch {
	case !ok:
		c = Collection{byID: make(map[string]Record)}
		t.keys = append(t.keys, key)
	case !t.owned[key]:
		byID := make(map[string]Record, len(c.byID)+1)
		for id, r := range c.byID {
			byID[id] = r
		}
		c = Collection{Meta: c.Meta, byID: byID, ids: slices.Clone(c.ids)}
	}
	t.owned[key] = true
	t.collections[key] = c
	return c
}

func (t *txn) putRecord(key, id string, r Record) {
	c := t.own(key)
	if _, exists := c.byID[id]; !exists {
		c.ids = append(c.ids, id)
	}
	c.byID[id] = r
	t.collections[key] = c
}

// ensureRecord stores an empty record unless one exists.
func (t *txn) ensureRecord(key, id string) {
	if _, ok := t.record(key, id); !ok {
		t.putRecord(key, id, newRecord())
	}
}

func (t *txn) deleteRecord(key, id string) {
	c := t.own(key)
	delete(c.byID, id)
	c.ids = slices.DeleteFunc(c.ids, func(s string) bool { return s == id })
	t.collections[key] = c
}

func (t *txn) setMeta(key string, meta ir.Object) {
	c := t.own(key)
	c.Meta = meta
	t.collections[key] = c
}

func (t *txn) drop(key string) {
	delete(t.collections, key)
	delete(t.owned, key)
	t.keys = slices.DeleteFunc(t.keys, func(s string) bool { return s == key })
}

func (t *txn) commit() State {
	return State{collections: t.collections, keys: t.keys}
}
