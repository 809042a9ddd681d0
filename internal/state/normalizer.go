package state

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/jsonapistore/internal/inflect"
	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
)

// MostRecentlyLoadedKey is the conventional collection meta key holding the
// ids of the last loaded page, read by Accessor.GetMostRecentlyLoaded.
const MostRecentlyLoadedKey = "mostRecentlyLoaded"

// Normalizer folds JSON:API payloads into a State. It is the only writer
// of State values.
//
// Every method takes the current State and returns the next one. The input
// is never modified. On error the input State is returned unchanged
// together with the error, so a batch is applied entirely or not at all.
type Normalizer struct {
	infl   inflect.Inflector
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	cfg := newConfig(opts)
	return &Normalizer{infl: cfg.inflector, logger: cfg.logger}
}

// InsertOrUpdateEntities upserts every resource in p.
//
// Primary resources are folded first, then included ones, each merged
// shallowly into any existing record. Top-level meta is merged into the
// collection meta of the first primary resource's type. Bare ids are
// rejected with MISSING_TYPE.
func (n *Normalizer) InsertOrUpdateEntities(s State, p jsonapi.Payload) (State, error) {
	f, err := jsonapi.Flatten(p)
	if err != nil {
		return s, err
	}

	t := s.begin()
	if err := n.ingest(t, f, false); err != nil {
		return s, err
	}
	n.logger.Debug("inserted entities", "count", len(f.Entries)+len(f.Included))
	return t.commit(), nil
}

// AddRelationshipToEntity appends the ids in p to the owner's relationship
// field at relationshipKey.
//
// Resource data in p is upserted first. Ids already present keep their
// position; new ids are appended in payload order. An existing single id is
// promoted to an array. The owner record is created if missing.
func (n *Normalizer) AddRelationshipToEntity(s State, entityKey, entityID, relationshipKey string, p jsonapi.Payload) (State, error) {
	f, err := jsonapi.Flatten(p)
	if err != nil {
		return s, err
	}

	t := s.begin()
	if err := n.ingest(t, f, true); err != nil {
		return s, err
	}

	key := n.infl.Plural(entityKey)
	owner := n.recordOrNew(t, key, entityID)

	ids := ir.StringSlice(owner.Data[relationshipKey])
	for _, id := range f.IDs() {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	link := Link{Type: n.linkType(owner, relationshipKey, f), Many: true}
	t.putRecord(key, entityID, owner.withLink(relationshipKey, ir.Strings(ids...), link))

	n.logger.Debug("added relationship",
		"type", key, "id", entityID, "relationship", relationshipKey, "ids", f.IDs())
	return t.commit(), nil
}

// RemoveRelationshipFromEntity removes one id from the owner's relationship
// field. A single id equal to relationshipID becomes null. Missing owners,
// fields and ids are a no-op.
func (n *Normalizer) RemoveRelationshipFromEntity(s State, entityKey, entityID, relationshipKey, relationshipID string) (State, error) {
	key := n.infl.Plural(entityKey)
	t := s.begin()

	owner, ok := t.record(key, entityID)
	if !ok {
		return s, nil
	}

	var next ir.Value
	switch current := owner.Data[relationshipKey].(type) {
	case ir.Array:
		kept := make(ir.Array, 0, len(current))
		for _, v := range current {
			if id, ok := v.(ir.String); ok && string(id) == relationshipID {
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) == len(current) {
			return s, nil
		}
		next = kept
	case ir.String:
		if string(current) != relationshipID {
			return s, nil
		}
		next = ir.Null{}
	default:
		return s, nil
	}

	updated := Record{Meta: owner.Meta, Data: owner.Data.With(relationshipKey, next), Relationships: owner.Relationships}
	t.putRecord(key, entityID, updated)

	n.logger.Debug("removed relationship",
		"type", key, "id", entityID, "relationship", relationshipKey, "target", relationshipID)
	return t.commit(), nil
}

// SetRelationshipOnEntity replaces the owner's relationship field with
// exactly the ids in p: a single id for a singular payload, an array for a
// collection, null for a document whose data is null.
func (n *Normalizer) SetRelationshipOnEntity(s State, entityKey, entityID, relationshipKey string, p jsonapi.Payload) (State, error) {
	f, err := jsonapi.Flatten(p)
	if err != nil {
		return s, err
	}

	t := s.begin()
	if err := n.ingest(t, f, true); err != nil {
		return s, err
	}

	key := n.infl.Plural(entityKey)
	owner := n.recordOrNew(t, key, entityID)
	ids := f.IDs()

	var v ir.Value
	switch {
	case f.Many:
		v = ir.Strings(ids...)
	case len(ids) == 0:
		v = ir.Null{}
	default:
		v = ir.String(ids[0])
	}

	link := Link{Type: n.linkType(owner, relationshipKey, f), Many: f.Many}
	t.putRecord(key, entityID, owner.withLink(relationshipKey, v, link))

	n.logger.Debug("set relationship",
		"type", key, "id", entityID, "relationship", relationshipKey, "ids", ids)
	return t.commit(), nil
}

// ClearRelationshipOnEntity deletes the relationship field entirely.
// Missing owners and fields are a no-op.
func (n *Normalizer) ClearRelationshipOnEntity(s State, entityKey, entityID, relationshipKey string) (State, error) {
	key := n.infl.Plural(entityKey)
	t := s.begin()

	owner, ok := t.record(key, entityID)
	if !ok {
		return s, nil
	}
	if _, has := owner.Data[relationshipKey]; !has && !owner.IsLink(relationshipKey) {
		return s, nil
	}

	t.putRecord(key, entityID, owner.withoutField(relationshipKey))
	n.logger.Debug("cleared relationship", "type", key, "id", entityID, "relationship", relationshipKey)
	return t.commit(), nil
}

// UpdateEntity applies a partial update to one entity.
//
// Attributes are shallow-merged into the record's data, creating the record
// if missing. A Resource or Document goes through the same upsert path as
// InsertOrUpdateEntities; a Resource without type or id takes entityKey and
// entityID. Other payloads fail with INVALID_PAYLOAD.
func (n *Normalizer) UpdateEntity(s State, entityKey, entityID string, p jsonapi.Payload) (State, error) {
	switch v := p.(type) {
	case jsonapi.Attributes:
		key := n.infl.Plural(entityKey)
		t := s.begin()
		rec := n.recordOrNew(t, key, entityID)
		t.putRecord(key, entityID, rec.withData(stripIdentity(ir.Object(v))))
		n.logger.Debug("updated entity", "type", key, "id", entityID)
		return t.commit(), nil
	case jsonapi.Resource:
		if v.Type == "" {
			v.Type = entityKey
		}
		if v.ID == "" {
			v.ID = entityID
		}
		return n.InsertOrUpdateEntities(s, v)
	case jsonapi.Document:
		return n.InsertOrUpdateEntities(s, v)
	default:
		return s, jsonapi.NewInvalidPayloadError("", "update requires attributes, a resource or a document, got %T", p)
	}
}

// UpdateEntitiesMeta writes collection meta.
//
// A non-empty metaKey sets one key and preserves the others. An empty
// metaKey replaces the whole meta with value, which must be an ir.Object
// (INVALID_META otherwise). A nil value is stored as null.
func (n *Normalizer) UpdateEntitiesMeta(s State, entityKey, metaKey string, value ir.Value) (State, error) {
	key := n.infl.Plural(entityKey)
	t := s.begin()

	var current ir.Object
	if c, ok := t.collection(key); ok {
		current = c.Meta
	}
	meta, err := nextMeta(current, metaKey, value)
	if err != nil {
		return s, err
	}

	t.setMeta(key, meta)
	n.logger.Debug("updated collection meta", "type", key, "meta_key", metaKey)
	return t.commit(), nil
}

// UpdateEntityMeta writes per-entity meta with the same key rules as
// UpdateEntitiesMeta. A missing entity is created with empty data, so meta
// can be attached before the entity is loaded.
func (n *Normalizer) UpdateEntityMeta(s State, entityKey, entityID, metaKey string, value ir.Value) (State, error) {
	key := n.infl.Plural(entityKey)
	t := s.begin()

	rec := n.recordOrNew(t, key, entityID)
	meta, err := nextMeta(rec.Meta, metaKey, value)
	if err != nil {
		return s, err
	}

	rec.Meta = meta
	t.putRecord(key, entityID, rec)
	n.logger.Debug("updated entity meta", "type", key, "id", entityID, "meta_key", metaKey)
	return t.commit(), nil
}

// RemoveEntity deletes one entity. Collection meta, sibling entities and
// relationship ids pointing at the entity are left untouched.
func (n *Normalizer) RemoveEntity(s State, entityKey, entityID string) (State, error) {
	key := n.infl.Plural(entityKey)
	t := s.begin()

	if _, ok := t.record(key, entityID); !ok {
		return s, nil
	}
	t.deleteRecord(key, entityID)
	n.logger.Debug("removed entity", "type", key, "id", entityID)
	return t.commit(), nil
}

// ClearEntityType removes a type key with all its entities and meta.
func (n *Normalizer) ClearEntityType(s State, entityKey string) (State, error) {
	key := n.infl.Plural(entityKey)
	t := s.begin()

	if _, ok := t.collection(key); !ok {
		return s, nil
	}
	t.drop(key)
	n.logger.Debug("cleared entity type", "type", key)
	return t.commit(), nil
}

// ingest upserts the resources of f and merges its meta. Bare ids are
// allowed only when allowBare is set; they create nothing.
func (n *Normalizer) ingest(t *txn, f jsonapi.Flat, allowBare bool) error {
	if !allowBare {
		for i, e := range f.Entries {
			if e.Resource == nil {
				return jsonapi.NewMissingTypeError("type", i)
			}
		}
	}

	for i, r := range f.Resources() {
		if err := n.upsert(t, r, i); err != nil {
			return err
		}
	}

	if f.Meta == nil {
		return nil
	}
	typ, ok := f.PrimaryType()
	if !ok {
		n.logger.Debug("dropping document meta without primary type")
		return nil
	}
	key := n.infl.Plural(typ)
	var current ir.Object
	if c, ok := t.collection(key); ok {
		current = c.Meta
	}
	t.setMeta(key, current.Merge(f.Meta))
	return nil
}

// upsert validates r and merges it into its record. Relationship targets
// that are not stored yet get an empty record; linkage carrying attributes
// or relationships is upserted like any other resource.
func (n *Normalizer) upsert(t *txn, r jsonapi.Resource, index int) error {
	if err := r.Validate(index); err != nil {
		return err
	}

	key := n.infl.Plural(r.Type)
	rec := n.recordOrNew(t, key, r.ID).withData(stripIdentity(r.Attributes))

	relKeys := slices.Sorted(maps.Keys(r.Relationships))
	for _, relKey := range relKeys {
		rel := r.Relationships[relKey]
		if !rel.Present {
			continue
		}
		dataKey, v, link := n.flattenRelationship(rec, relKey, rel)
		rec = rec.withLink(dataKey, v, link)
	}
	t.putRecord(key, r.ID, rec)

	for _, relKey := range relKeys {
		for _, linked := range r.Relationships[relKey].Data {
			if linked.HasBody() {
				if err := n.upsert(t, linked, index); err != nil {
					return err
				}
				continue
			}
			t.ensureRecord(n.infl.Plural(linked.Type), linked.ID)
		}
	}
	return nil
}

// flattenRelationship maps one relationship entry to its data key, id value
// and link. To-many linkage is stored under the pluralized key.
func (n *Normalizer) flattenRelationship(rec Record, relKey string, rel jsonapi.Relationship) (string, ir.Value, Link) {
	if rel.Many {
		dataKey := n.infl.Plural(relKey)
		return dataKey, ir.Strings(rel.IDs()...), Link{Type: n.targetType(rec, dataKey, relKey, rel.Data), Many: true}
	}
	if len(rel.Data) == 0 {
		return relKey, ir.Null{}, Link{Type: n.targetType(rec, relKey, relKey, nil)}
	}
	return relKey, ir.String(rel.Data[0].ID), Link{Type: n.targetType(rec, relKey, relKey, rel.Data)}
}

// targetType picks the plural type key of a relationship's targets: the
// first linked resource's type, else the existing link, else the plural of
// the relationship key.
func (n *Normalizer) targetType(rec Record, dataKey, relKey string, linked []jsonapi.Resource) string {
	for _, r := range linked {
		if r.Type != "" {
			return n.infl.Plural(r.Type)
		}
	}
	if l, ok := rec.Relationships[dataKey]; ok && l.Type != "" {
		return l.Type
	}
	return n.infl.Plural(relKey)
}

func (n *Normalizer) linkType(owner Record, relationshipKey string, f jsonapi.Flat) string {
	var linked []jsonapi.Resource
	for _, e := range f.Entries {
		if e.Resource != nil {
			linked = append(linked, *e.Resource)
		}
	}
	return n.targetType(owner, relationshipKey, relationshipKey, linked)
}

func (n *Normalizer) recordOrNew(t *txn, key, id string) Record {
	if rec, ok := t.record(key, id); ok {
		return rec
	}
	return newRecord()
}

// nextMeta applies a single-key write or a whole replacement.
func nextMeta(current ir.Object, metaKey string, value ir.Value) (ir.Object, error) {
	if value == nil {
		value = ir.Null{}
	}
	if metaKey != "" {
		return current.With(metaKey, value), nil
	}
	obj, ok := value.(ir.Object)
	if !ok {
		return nil, jsonapi.NewInvalidMetaError(value)
	}
	return obj.Clone(), nil
}

// stripIdentity drops id and type, which live in the record's keys.
func stripIdentity(attrs ir.Object) ir.Object {
	_, hasID := attrs["id"]
	_, hasType := attrs["type"]
	if !hasID && !hasType {
		return attrs
	}
	return attrs.Without("id").Without("type")
}
