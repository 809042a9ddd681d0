package jsonapi

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/jsonapistore/internal/ir"
)

// Resource is a JSON:API resource object.
// A Resource with only Type and ID set is a resource identifier.
type Resource struct {
	Type          string
	ID            string
	Attributes    ir.Object
	Relationships map[string]Relationship
}

// Ref returns a resource identifier.
func Ref(typ, id string) Resource {
	return Resource{Type: typ, ID: id}
}

// Relationship is one entry of a resource's relationships member.
//
// The three linkage states are:
//   - Present == false: no data member (links or meta only), ignored on ingest
//   - Many == true: to-many linkage, Data may be empty
//   - otherwise: to-one linkage, Data holds one resource or none for null
type Relationship struct {
	Data    []Resource
	Many    bool
	Present bool
}

// ToOne returns a to-one relationship linking r.
func ToOne(r Resource) Relationship {
	return Relationship{Data: []Resource{r}, Present: true}
}

// ToMany returns a to-many relationship linking rs in order.
func ToMany(rs ...Resource) Relationship {
	return Relationship{Data: rs, Many: true, Present: true}
}

// NullRelationship returns an empty to-one relationship (data: null).
func NullRelationship() Relationship {
	return Relationship{Present: true}
}

// IDs returns the linked ids in order.
func (r Relationship) IDs() []string {
	ids := make([]string, 0, len(r.Data))
	for _, res := range r.Data {
		ids = append(ids, res.ID)
	}
	return ids
}

// Validate checks that r and its relationship linkage carry type and id.
// index is reported in the error; pass -1 when it has no meaning.
func (r Resource) Validate(index int) error {
	if r.Type == "" {
		return NewMissingTypeError("type", index)
	}
	if r.ID == "" {
		return NewMissingIDError("id", index)
	}
	for _, key := range sortedRelKeys(r.Relationships) {
		rel := r.Relationships[key]
		for _, linked := range rel.Data {
			if linked.Type == "" {
				return NewMissingTypeError(fmt.Sprintf("relationships.%s.data.type", key), index)
			}
			if linked.ID == "" {
				return NewMissingIDError(fmt.Sprintf("relationships.%s.data.id", key), index)
			}
		}
	}
	return nil
}

// HasBody reports whether r carries attributes or relationships beyond
// its identifier.
func (r Resource) HasBody() bool {
	return len(r.Attributes) > 0 || len(r.Relationships) > 0
}

// Object encodes r back into its JSON:API object form.
// Empty attributes and relationships are omitted.
func (r Resource) Object() ir.Object {
	obj := ir.Object{}
	if r.Type != "" {
		obj["type"] = ir.String(r.Type)
	}
	if r.ID != "" {
		obj["id"] = ir.String(r.ID)
	}
	if len(r.Attributes) > 0 {
		obj["attributes"] = r.Attributes.Clone()
	}
	if len(r.Relationships) > 0 {
		rels := make(ir.Object, len(r.Relationships))
		for key, rel := range r.Relationships {
			rels[key] = rel.Object()
		}
		obj["relationships"] = rels
	}
	return obj
}

// MarshalJSON implements json.Marshaler.
func (r Resource) MarshalJSON() ([]byte, error) {
	return ir.Marshal(r.Object())
}

// Object encodes rel as {"data": ...}. A relationship without data
// encodes as an empty object.
func (rel Relationship) Object() ir.Object {
	if !rel.Present {
		return ir.Object{}
	}
	return ir.Object{"data": linkageValue(rel.Data, rel.Many)}
}

// Document is a top-level JSON:API document.
// Data is nil and Many is false for data: null.
type Document struct {
	Data     []Resource
	Many     bool
	Included []Resource
	Meta     ir.Object
}

// Object encodes d back into its JSON:API object form.
func (d Document) Object() ir.Object {
	obj := ir.Object{"data": linkageValue(d.Data, d.Many)}
	if len(d.Included) > 0 {
		inc := make(ir.Array, len(d.Included))
		for i, r := range d.Included {
			inc[i] = r.Object()
		}
		obj["included"] = inc
	}
	if d.Meta != nil {
		obj["meta"] = d.Meta.Clone()
	}
	return obj
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return ir.Marshal(d.Object())
}

func linkageValue(data []Resource, many bool) ir.Value {
	if many {
		arr := make(ir.Array, len(data))
		for i, r := range data {
			arr[i] = r.Object()
		}
		return arr
	}
	if len(data) == 0 {
		return ir.Null{}
	}
	return data[0].Object()
}

func sortedRelKeys(rels map[string]Relationship) []string {
	return slices.Sorted(maps.Keys(rels))
}
