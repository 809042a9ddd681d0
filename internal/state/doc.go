// Package state holds the normalized entity tree and the two components
// that work on it.
//
// The tree maps a plural type key to a Collection, and a Collection maps
// an id to a Record:
//
//	{"articles": {"meta": {...}, "byId": {"1": {"meta": {}, "data": {...}}}}}
//
// Normalizer is the ingest path. It folds JSON:API payloads into the tree:
// attributes and relationship ids are merged into Record.Data, to-many
// linkage lands under the pluralized relationship key, and relationship
// targets get an empty record if they are not stored yet.
//
// Accessor is the query path. It projects records into Views, optionally
// expanding relationships, and reads group and entity meta.
//
// State values are immutable. Each Normalizer call copies only the
// collections it touches and returns a new State; the caller's State stays
// valid. Concurrent readers of one State are safe. Writers producing a
// chain of States must be serialized by the caller.
package state
