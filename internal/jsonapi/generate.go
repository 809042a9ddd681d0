package jsonapi

import (
	"github.com/google/uuid"

	"github.com/roach88/jsonapistore/internal/ir"
)

// IDGenerator produces ids for client-created resources.
type IDGenerator interface {
	Generate() string
}

// UUIDv4Generator generates random RFC 4122 version 4 ids.
//
// Format: "550e8400-e29b-41d4-a716-446655440000" (36 characters)
//
// Thread-safety: UUIDv4Generator is stateless and safe for concurrent use.
type UUIDv4Generator struct{}

// Generate returns a new hyphenated UUIDv4.
func (UUIDv4Generator) Generate() string {
	return uuid.NewString()
}

// GenerateEntity builds a resource of type entityKey from attributes.
//
// An "id" attribute (string or integer) becomes the resource id and is
// removed from the attributes; otherwise gen supplies one. A nil gen uses
// UUIDv4Generator. The caller's attribute map is not modified.
func GenerateEntity(entityKey string, attributes ir.Object, gen IDGenerator) Resource {
	if gen == nil {
		gen = UUIDv4Generator{}
	}

	attrs := attributes.Clone()
	id, ok := idString(attrs["id"])
	delete(attrs, "id")
	if !ok || id == "" {
		id = gen.Generate()
	}

	return Resource{
		Type:       entityKey,
		ID:         id,
		Attributes: attrs,
	}
}
