package jsonapi

import (
	"fmt"
	"strconv"

	"github.com/roach88/jsonapistore/internal/ir"
)

// Parse decodes JSON bytes into a Payload. See PayloadFromValue.
func Parse(data []byte) (Payload, error) {
	v, err := ir.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return PayloadFromValue(v)
}

// PayloadFromValue classifies a decoded value:
//   - String or Int: ID
//   - Array: Many, element by element
//   - Object with a data member: Document
//   - Object with type, id, attributes or relationships: Resource
//   - any other Object: Attributes
func PayloadFromValue(v ir.Value) (Payload, error) {
	switch val := v.(type) {
	case ir.String, ir.Int:
		id, _ := idString(val)
		return ID(id), nil
	case ir.Array:
		many := make(Many, len(val))
		for i, elem := range val {
			p, err := PayloadFromValue(elem)
			if err != nil {
				return nil, fmt.Errorf("payload[%d]: %w", i, err)
			}
			many[i] = p
		}
		return many, nil
	case ir.Object:
		if _, ok := val["data"]; ok {
			return ParseDocument(val)
		}
		for _, key := range []string{"type", "id", "attributes", "relationships"} {
			if _, ok := val[key]; ok {
				return ParseResource(val)
			}
		}
		return Attributes(val.Clone()), nil
	default:
		return nil, NewInvalidPayloadError("", "unsupported payload value %T", v)
	}
}

// UpdatePayloadFromValue classifies the payload of an entity update. An
// object counts as a Resource only when it has an attributes or
// relationships member, or when it is a bare identifier carrying both type
// and id. Any other object is an attribute map, even one with a "type" or
// "id" key. Non-object values classify as in PayloadFromValue.
func UpdatePayloadFromValue(v ir.Value) (Payload, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return PayloadFromValue(v)
	}
	if _, ok := obj["data"]; ok {
		return ParseDocument(obj)
	}
	if isResourceObject(obj) {
		return ParseResource(obj)
	}
	return Attributes(obj.Clone()), nil
}

func isResourceObject(obj ir.Object) bool {
	_, hasAttrs := obj["attributes"]
	_, hasRels := obj["relationships"]
	if hasAttrs || hasRels {
		return true
	}
	_, hasType := obj["type"]
	_, hasID := obj["id"]
	if !hasType || !hasID {
		return false
	}
	for key := range obj {
		switch key {
		case "type", "id", "meta", "links":
		default:
			return false
		}
	}
	return true
}

// ParseDocument decodes a top-level document object.
func ParseDocument(v ir.Value) (Document, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return Document{}, NewInvalidPayloadError("", "document must be an object, got %T", v)
	}

	var doc Document
	switch data := obj["data"].(type) {
	case nil, ir.Null:
	case ir.Object:
		r, err := parseResource(data, "data")
		if err != nil {
			return Document{}, err
		}
		doc.Data = []Resource{r}
	case ir.Array:
		doc.Many = true
		doc.Data = make([]Resource, 0, len(data))
		for i, elem := range data {
			r, err := parseResource(elem, fmt.Sprintf("data[%d]", i))
			if err != nil {
				return Document{}, err
			}
			doc.Data = append(doc.Data, r)
		}
	default:
		return Document{}, NewInvalidPayloadError("data", "data must be an object, array or null, got %T", data)
	}

	switch inc := obj["included"].(type) {
	case nil, ir.Null:
	case ir.Array:
		doc.Included = make([]Resource, 0, len(inc))
		for i, elem := range inc {
			r, err := parseResource(elem, fmt.Sprintf("included[%d]", i))
			if err != nil {
				return Document{}, err
			}
			doc.Included = append(doc.Included, r)
		}
	default:
		return Document{}, NewInvalidPayloadError("included", "included must be an array, got %T", inc)
	}

	switch meta := obj["meta"].(type) {
	case nil, ir.Null:
	case ir.Object:
		doc.Meta = meta.Clone()
	default:
		return Document{}, NewInvalidPayloadError("meta", "meta must be an object, got %T", meta)
	}

	return doc, nil
}

// ParseResource decodes a single resource object.
func ParseResource(v ir.Value) (Resource, error) {
	return parseResource(v, "")
}

func parseResource(v ir.Value, path string) (Resource, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return Resource{}, NewInvalidPayloadError(path, "resource must be an object, got %T", v)
	}

	var r Resource
	var err error
	if r.Type, err = stringMember(obj, "type", path); err != nil {
		return Resource{}, err
	}
	if r.ID, err = idMember(obj, "id", path); err != nil {
		return Resource{}, err
	}

	switch attrs := obj["attributes"].(type) {
	case nil, ir.Null:
	case ir.Object:
		r.Attributes = attrs.Clone()
	default:
		return Resource{}, NewInvalidPayloadError(join(path, "attributes"), "attributes must be an object, got %T", attrs)
	}

	switch rels := obj["relationships"].(type) {
	case nil, ir.Null:
	case ir.Object:
		r.Relationships = make(map[string]Relationship, len(rels))
		for key, entry := range rels {
			rel, err := parseRelationship(entry, join(path, "relationships."+key))
			if err != nil {
				return Resource{}, err
			}
			r.Relationships[key] = rel
		}
	default:
		return Resource{}, NewInvalidPayloadError(join(path, "relationships"), "relationships must be an object, got %T", rels)
	}

	return r, nil
}

func parseRelationship(v ir.Value, path string) (Relationship, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return Relationship{}, NewInvalidPayloadError(path, "relationship must be an object, got %T", v)
	}

	data, present := obj["data"]
	if !present {
		return Relationship{}, nil
	}

	switch d := data.(type) {
	case ir.Null:
		return NullRelationship(), nil
	case ir.Object:
		r, err := parseResource(d, path+".data")
		if err != nil {
			return Relationship{}, err
		}
		return ToOne(r), nil
	case ir.Array:
		rs := make([]Resource, 0, len(d))
		for i, elem := range d {
			r, err := parseResource(elem, fmt.Sprintf("%s.data[%d]", path, i))
			if err != nil {
				return Relationship{}, err
			}
			rs = append(rs, r)
		}
		return ToMany(rs...), nil
	default:
		return Relationship{}, NewInvalidPayloadError(path+".data", "linkage must be an object, array or null, got %T", data)
	}
}

func stringMember(obj ir.Object, key, path string) (string, error) {
	switch v := obj[key].(type) {
	case nil, ir.Null:
		return "", nil
	case ir.String:
		return string(v), nil
	default:
		return "", NewInvalidPayloadError(join(path, key), "%s must be a string, got %T", key, v)
	}
}

func idMember(obj ir.Object, key, path string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", nil
	}
	if _, isNull := v.(ir.Null); isNull {
		return "", nil
	}
	id, ok := idString(v)
	if !ok {
		return "", NewInvalidPayloadError(join(path, key), "%s must be a string or integer, got %T", key, v)
	}
	return id, nil
}

// idString renders a String or Int id. Integers are formatted in decimal.
func idString(v ir.Value) (string, bool) {
	switch id := v.(type) {
	case ir.String:
		return string(id), true
	case ir.Int:
		return strconv.FormatInt(int64(id), 10), true
	default:
		return "", false
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
