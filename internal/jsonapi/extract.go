package jsonapi

import "github.com/roach88/jsonapistore/internal/ir"

// GetID reads data.id off a raw, not yet normalized document.
// Returns false when data is missing, not a single object, or has no id.
func GetID(doc ir.Value) (string, bool) {
	obj, ok := doc.(ir.Object)
	if !ok {
		return "", false
	}
	data, ok := obj["data"].(ir.Object)
	if !ok {
		return "", false
	}
	id, ok := idString(data["id"])
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// GetIDs reads data[].id off a raw document, in document order.
// A single-object data yields one id. Entries without an id are skipped.
// The result is never nil.
func GetIDs(doc ir.Value) []string {
	ids := []string{}
	obj, ok := doc.(ir.Object)
	if !ok {
		return ids
	}

	switch data := obj["data"].(type) {
	case ir.Array:
		for _, elem := range data {
			res, ok := elem.(ir.Object)
			if !ok {
				continue
			}
			if id, ok := idString(res["id"]); ok && id != "" {
				ids = append(ids, id)
			}
		}
	case ir.Object:
		if id, ok := GetID(obj); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
