package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/jsonapistore/internal/ir"
)

// MarshalJSON encodes s as
//
//	{"<type>": {"meta": {...}, "byId": {"<id>": {"meta": {...}, "data": {...}}}}}
//
// Type keys and ids keep insertion order; keys inside meta and data are
// sorted. A collection without meta omits the member, and a record
// carries a "relationships" member only when it has links.
func (s State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, key); err != nil {
			return nil, err
		}
		if err := s.collections[key].writeJSON(&buf); err != nil {
			return nil, fmt.Errorf("collection %q: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c Collection) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	if c.Meta != nil {
		meta, err := ir.Marshal(c.Meta)
		if err != nil {
			return fmt.Errorf("meta: %w", err)
		}
		buf.WriteString(`"meta":`)
		buf.Write(meta)
		buf.WriteByte(',')
	}
	buf.WriteString(`"byId":{`)
	for i, id := range c.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(buf, id); err != nil {
			return err
		}
		rec, err := ir.Marshal(c.byID[id].Value())
		if err != nil {
			return fmt.Errorf("record %q: %w", id, err)
		}
		buf.Write(rec)
	}
	buf.WriteString("}}")
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

// Value returns the record in its persisted object form.
func (r Record) Value() ir.Object {
	obj := ir.Object{
		"meta": nonNil(r.Meta),
		"data": nonNil(r.Data),
	}
	if len(r.Relationships) > 0 {
		links := make(ir.Object, len(r.Relationships))
		for key, l := range r.Relationships {
			links[key] = ir.Object{"type": ir.String(l.Type), "many": ir.Bool(l.Many)}
		}
		obj["relationships"] = links
	}
	return obj
}

// Value returns the whole tree as an ir.Object. Order is lost; use it for
// comparisons and canonical encoding.
func (s State) Value() ir.Object {
	out := make(ir.Object, len(s.keys))
	for _, key := range s.keys {
		c := s.collections[key]
		byID := make(ir.Object, len(c.ids))
		for _, id := range c.ids {
			byID[id] = c.byID[id].Value()
		}
		coll := ir.Object{"byId": byID}
		if c.Meta != nil {
			coll["meta"] = c.Meta
		}
		out[key] = coll
	}
	return out
}

// Canonical returns the sorted-key canonical JSON of s.
func (s State) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.Value())
}

// Hash returns the content hash of s. Insertion order does not affect it.
func (s State) Hash() (string, error) {
	return ir.Hash(ir.DomainState, s.Value())
}

// Equal reports whether s and other hold the same entities in the same
// insertion order.
func (s State) Equal(other State) bool {
	a, errA := s.MarshalJSON()
	b, errB := other.MarshalJSON()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// UnmarshalJSON decodes the MarshalJSON shape, restoring insertion order
// from document order. Unknown members are rejected.
func (s *State) UnmarshalJSON(data []byte) error {
	t := State{}.begin()
	err := decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		if err := decodeCollection(t, key, raw); err != nil {
			return fmt.Errorf("collection %q: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*s = t.commit()
	return nil
}

func decodeCollection(t *txn, key string, data []byte) error {
	t.own(key)
	return decodeOrderedObject(data, func(member string, raw json.RawMessage) error {
		switch member {
		case "meta":
			v, err := ir.Unmarshal(raw)
			if err != nil {
				return fmt.Errorf("meta: %w", err)
			}
			switch meta := v.(type) {
			case ir.Object:
				t.setMeta(key, meta)
			case ir.Null:
			default:
				return fmt.Errorf("meta must be an object, got %T", v)
			}
			return nil
		case "byId":
			return decodeOrderedObject(raw, func(id string, rec json.RawMessage) error {
				r, err := decodeRecord(rec)
				if err != nil {
					return fmt.Errorf("record %q: %w", id, err)
				}
				t.putRecord(key, id, r)
				return nil
			})
		default:
			return fmt.Errorf("unknown member %q", member)
		}
	})
}

func decodeRecord(data []byte) (Record, error) {
	var wire struct {
		Meta          ir.Object       `json:"meta"`
		Data          ir.Object       `json:"data"`
		Relationships map[string]Link `json:"relationships"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return Record{}, err
	}

	r := Record{Meta: nonNil(wire.Meta), Data: nonNil(wire.Data)}
	if len(wire.Relationships) > 0 {
		r.Relationships = wire.Relationships
	}
	return r, nil
}

// decodeOrderedObject calls fn for each member of a JSON object in
// document order.
func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("member %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func nonNil(obj ir.Object) ir.Object {
	if obj == nil {
		return ir.Object{}
	}
	return obj
}
