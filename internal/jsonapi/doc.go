// Package jsonapi models the JSON:API documents accepted by the normalizer.
//
// Input arrives in several shapes: a bare id, a single resource object,
// a collection of resources, a full document with data, included and meta,
// or a plain attribute map for partial updates. Instead of probing the shape
// at every call site, callers obtain a Payload (a closed union of Resource,
// Many, ID, Document and Attributes) and hand it to Flatten, which is the
// single place where the shape is resolved into an ordered list of entries.
//
// Parsing is lenient in one direction only: numeric ids are accepted and
// rendered in decimal, so documents written in YAML or CUE round-trip.
// Everything else that does not fit the JSON:API shape is reported as a
// ValidationError with code INVALID_PAYLOAD.
package jsonapi
