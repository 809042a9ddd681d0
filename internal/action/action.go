package action

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/jsonapistore/internal/inflect"
	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
)

// Name is the base of an action type string. Creators append entity and
// relationship suffixes to it.
type Name string

const (
	NameLoadJSONAPIEntityData        Name = "LOAD_JSON_API_ENTITY_DATA"
	NameAddRelationshipToEntity      Name = "ADD_RELATIONSHIP_TO_ENTITY"
	NameRemoveRelationshipFromEntity Name = "REMOVE_RELATIONSHIP_FROM_ENTITY"
	NameSetRelationshipOnEntity      Name = "SET_RELATIONSHIP_ON_ENTITY"
	NameClearRelationshipOnEntity    Name = "CLEAR_RELATIONSHIP_ON_ENTITY"
	NameUpdateEntitiesMeta           Name = "UPDATE_ENTITIES_META"
	NameUpdateEntityMeta             Name = "UPDATE_ENTITY_META"
	NameUpdateEntity                 Name = "UPDATE_ENTITY"
	NameRemoveEntity                 Name = "REMOVE_ENTITY"
	NameClearEntityType              Name = "CLEAR_ENTITY_TYPE"
)

// Names lists every base name.
var Names = []Name{
	NameLoadJSONAPIEntityData,
	NameAddRelationshipToEntity,
	NameRemoveRelationshipFromEntity,
	NameSetRelationshipOnEntity,
	NameClearRelationshipOnEntity,
	NameUpdateEntitiesMeta,
	NameUpdateEntityMeta,
	NameUpdateEntity,
	NameRemoveEntity,
	NameClearEntityType,
}

// Action is a request to change a state tree. Only the fields used by the
// action's Name are meaningful.
type Action struct {
	Type            string
	EntityKey       string
	EntityID        string
	RelationshipKey string
	RelationshipID  string
	Payload         jsonapi.Payload

	// MetaKey is empty when Value replaces the whole meta object.
	MetaKey string
	Value   ir.Value
}

var upper = cases.Upper(language.Und)

// suffix renders one type-string segment: upper case, with anything that
// is not a letter or digit turned into an underscore.
func suffix(word string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, upper.String(word))
}

func typeString(name Name, words ...string) string {
	var b strings.Builder
	b.WriteString(string(name))
	for _, w := range words {
		b.WriteByte('_')
		b.WriteString(suffix(w))
	}
	return b.String()
}

func singular(key string) string { return inflect.Default().Singular(key) }
func plural(key string) string   { return inflect.Default().Plural(key) }

// Name returns the base name a routes to. A type string built by this
// package's creators is recognized from a's own keys first, so an entity
// key that starts like another base name's suffix (UPDATE_ENTITY for
// "meta-tags" is UPDATE_ENTITY_META_TAG) still routes to its creator's
// name. Any other type string falls back to Match.
func (a Action) Name() (Name, bool) {
	if a.EntityKey != "" {
		for _, r := range routes {
			if a.Type == a.typeFor(r.name) {
				return r.name, true
			}
		}
	}
	return Match(a.Type)
}

// typeFor is the type string the creator of name would build from a's keys.
func (a Action) typeFor(name Name) string {
	switch name {
	case NameLoadJSONAPIEntityData:
		return string(name)
	case NameAddRelationshipToEntity, NameRemoveRelationshipFromEntity,
		NameSetRelationshipOnEntity, NameClearRelationshipOnEntity:
		return typeString(name, singular(a.EntityKey), plural(a.RelationshipKey))
	case NameUpdateEntitiesMeta, NameClearEntityType:
		return typeString(name, plural(a.EntityKey))
	default:
		return typeString(name, singular(a.EntityKey))
	}
}

// LoadJSONAPIEntityData loads a payload into the state.
func LoadJSONAPIEntityData(p jsonapi.Payload) Action {
	return Action{Type: string(NameLoadJSONAPIEntityData), Payload: p}
}

// AddRelationshipToEntity appends the ids in p to a relationship field.
func AddRelationshipToEntity(entityKey, entityID, relationshipKey string, p jsonapi.Payload) Action {
	return Action{
		Type:            typeString(NameAddRelationshipToEntity, singular(entityKey), plural(relationshipKey)),
		EntityKey:       entityKey,
		EntityID:        entityID,
		RelationshipKey: relationshipKey,
		Payload:         p,
	}
}

// RemoveRelationshipFromEntity removes one id from a relationship field.
func RemoveRelationshipFromEntity(entityKey, entityID, relationshipKey, relationshipID string) Action {
	return Action{
		Type:            typeString(NameRemoveRelationshipFromEntity, singular(entityKey), plural(relationshipKey)),
		EntityKey:       entityKey,
		EntityID:        entityID,
		RelationshipKey: relationshipKey,
		RelationshipID:  relationshipID,
	}
}

// SetRelationshipOnEntity replaces a relationship field with the ids in p.
func SetRelationshipOnEntity(entityKey, entityID, relationshipKey string, p jsonapi.Payload) Action {
	return Action{
		Type:            typeString(NameSetRelationshipOnEntity, singular(entityKey), plural(relationshipKey)),
		EntityKey:       entityKey,
		EntityID:        entityID,
		RelationshipKey: relationshipKey,
		Payload:         p,
	}
}

// ClearRelationshipOnEntity deletes a relationship field.
func ClearRelationshipOnEntity(entityKey, entityID, relationshipKey string) Action {
	return Action{
		Type:            typeString(NameClearRelationshipOnEntity, singular(entityKey), plural(relationshipKey)),
		EntityKey:       entityKey,
		EntityID:        entityID,
		RelationshipKey: relationshipKey,
	}
}

// UpdateEntity merges p into one entity.
func UpdateEntity(entityKey, entityID string, p jsonapi.Payload) Action {
	return Action{
		Type:      typeString(NameUpdateEntity, singular(entityKey)),
		EntityKey: entityKey,
		EntityID:  entityID,
		Payload:   p,
	}
}

// UpdateEntitiesMeta sets a key of a type's group meta. An empty metaKey
// replaces the whole meta with value.
func UpdateEntitiesMeta(entityKey, metaKey string, value ir.Value) Action {
	return Action{
		Type:      typeString(NameUpdateEntitiesMeta, plural(entityKey)),
		EntityKey: entityKey,
		MetaKey:   metaKey,
		Value:     value,
	}
}

// UpdateEntityMeta sets a key of one entity's meta. An empty metaKey
// replaces the whole meta with value.
func UpdateEntityMeta(entityKey, entityID, metaKey string, value ir.Value) Action {
	return Action{
		Type:      typeString(NameUpdateEntityMeta, singular(entityKey)),
		EntityKey: entityKey,
		EntityID:  entityID,
		MetaKey:   metaKey,
		Value:     value,
	}
}

// RemoveEntity deletes one entity.
func RemoveEntity(entityKey, entityID string) Action {
	return Action{
		Type:      typeString(NameRemoveEntity, singular(entityKey)),
		EntityKey: entityKey,
		EntityID:  entityID,
	}
}

// ClearEntityType deletes a whole type.
func ClearEntityType(entityKey string) Action {
	return Action{
		Type:      typeString(NameClearEntityType, plural(entityKey)),
		EntityKey: entityKey,
	}
}
