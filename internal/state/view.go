package state

import (
	"maps"
	"slices"

	"github.com/roach88/jsonapistore/internal/ir"
)

// View is the denormalized projection of one stored entity. It owns its
// maps and slices; writing to them never changes the State it came from.
type View struct {
	ID            string
	Type          string
	Attributes    ir.Object
	Relationships map[string]RelationshipView
}

// RelationshipView is one relationship field of a View.
type RelationshipView struct {
	// Type is the plural type key of the targets.
	Type string

	// Many is true for to-many fields.
	Many bool

	// IDs lists the related ids in stored order; empty for a null to-one.
	IDs []string

	// Entities holds the related views when the field was expanded.
	// Targets that are not stored are omitted.
	Entities []View

	// Expanded reports whether Entities was populated.
	Expanded bool
}

// Object renders v in the flat view convention:
//
//	{"id": ..., "type": ..., "attributes": {...}, "<relKey>": ids | views}
//
// Unexpanded to-many fields render as an id array, to-one fields as an id
// or null. Expanded fields render the related views instead.
func (v View) Object() ir.Object {
	obj := ir.Object{
		"id":         ir.String(v.ID),
		"type":       ir.String(v.Type),
		"attributes": nonNil(v.Attributes),
	}
	for key, rel := range v.Relationships {
		if _, reserved := obj[key]; reserved {
			continue
		}
		obj[key] = rel.value()
	}
	return obj
}

// MarshalJSON implements json.Marshaler using Object.
func (v View) MarshalJSON() ([]byte, error) {
	return ir.Marshal(v.Object())
}

// RelationshipKeys returns the relationship field names in sorted order.
func (v View) RelationshipKeys() []string {
	return slices.Sorted(maps.Keys(v.Relationships))
}

func (rel RelationshipView) value() ir.Value {
	if rel.Expanded {
		if rel.Many {
			arr := make(ir.Array, len(rel.Entities))
			for i, e := range rel.Entities {
				arr[i] = e.Object()
			}
			return arr
		}
		if len(rel.Entities) == 0 {
			return ir.Null{}
		}
		return rel.Entities[0].Object()
	}
	if rel.Many {
		return ir.Strings(rel.IDs...)
	}
	if len(rel.IDs) == 0 {
		return ir.Null{}
	}
	return ir.String(rel.IDs[0])
}

// ViewOption configures how views are built.
type ViewOption func(*viewConfig)

type viewConfig struct {
	depth int
}

// Expand expands relationships one level deep.
func Expand() ViewOption {
	return ExpandDepth(1)
}

// ExpandDepth expands relationships n levels deep. n <= 0 disables
// expansion.
func ExpandDepth(n int) ViewOption {
	return func(c *viewConfig) {
		c.depth = max(n, 0)
	}
}

func newViewConfig(opts []ViewOption) viewConfig {
	var cfg viewConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

type entityRef struct {
	key string
	id  string
}

// buildView projects rec. path holds the entities being expanded above
// this one; they are rendered again but never re-expanded.
func buildView(s State, key, id string, rec Record, depth int, path map[entityRef]bool) View {
	v := View{ID: id, Type: key, Attributes: ir.Object{}}
	for field, val := range rec.Data {
		if !rec.IsLink(field) {
			v.Attributes[field] = ir.DeepCopy(val)
		}
	}

	if len(rec.Relationships) == 0 {
		return v
	}

	self := entityRef{key: key, id: id}
	path[self] = true
	defer delete(path, self)

	v.Relationships = make(map[string]RelationshipView, len(rec.Relationships))
	for field, link := range rec.Relationships {
		rel := RelationshipView{
			Type: link.Type,
			Many: link.Many,
			IDs:  ir.StringSlice(rec.Data[field]),
		}
		if rel.IDs == nil {
			rel.IDs = []string{}
		}
		if depth > 0 {
			rel.Expanded = true
			rel.Entities = []View{}
			for _, target := range rel.IDs {
				trec, ok := s.lookup(link.Type, target)
				if !ok {
					continue
				}
				next := depth - 1
				if path[entityRef{key: link.Type, id: target}] {
					next = 0
				}
				rel.Entities = append(rel.Entities, buildView(s, link.Type, target, trec, next, path))
			}
		}
		v.Relationships[field] = rel
	}
	return v
}

func (s State) lookup(key, id string) (Record, bool) {
	c, ok := s.collections[key]
	if !ok {
		return Record{}, false
	}
	r, ok := c.byID[id]
	return r, ok
}
