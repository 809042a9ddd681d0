package action

import (
	"fmt"
	"strconv"

	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
)

// Wire member names. They follow the plain-object action shape:
//
//	{"type": "UPDATE_ENTITY_ARTICLE", "entityKey": "articles", "entityId": "1", "data": {...}}
const (
	fieldType               = "type"
	fieldEntityKey          = "entityKey"
	fieldEntityID           = "entityId"
	fieldRelationshipKey    = "relationshipKey"
	fieldRelationshipID     = "relationshipId"
	fieldData               = "data"
	fieldRelationshipObject = "relationshipObject"
	fieldMetaKey            = "metaKey"
	fieldValue              = "value"
)

// Decode reads an action from its object form. "data" and
// "relationshipObject" both carry the payload; a null or missing metaKey
// means the value replaces the whole meta. UPDATE_ENTITY payloads are
// classified with jsonapi.UpdatePayloadFromValue, so an attribute map with
// an "id" or "type" key stays an attribute map.
func Decode(v ir.Value) (Action, error) {
	obj, ok := v.(ir.Object)
	if !ok {
		return Action{}, fmt.Errorf("action must be an object, got %T", v)
	}

	var (
		a          Action
		payload    ir.Value
		payloadKey string
	)
	for _, key := range obj.SortedKeys() {
		val := obj[key]
		var err error
		switch key {
		case fieldType:
			a.Type, err = stringField(key, val)
		case fieldEntityKey:
			a.EntityKey, err = stringField(key, val)
		case fieldEntityID:
			a.EntityID, err = stringField(key, val)
		case fieldRelationshipKey:
			a.RelationshipKey, err = stringField(key, val)
		case fieldRelationshipID:
			a.RelationshipID, err = stringField(key, val)
		case fieldMetaKey:
			if _, isNull := val.(ir.Null); !isNull {
				a.MetaKey, err = stringField(key, val)
			}
		case fieldValue:
			a.Value = val
		case fieldData, fieldRelationshipObject:
			if payload != nil {
				return Action{}, fmt.Errorf("action has both %q and %q", fieldData, fieldRelationshipObject)
			}
			payload, payloadKey = val, key
		default:
			return Action{}, fmt.Errorf("unknown action member %q", key)
		}
		if err != nil {
			return Action{}, fmt.Errorf("action %s: %w", key, err)
		}
	}

	if a.Type == "" {
		return Action{}, fmt.Errorf("action is missing %q", fieldType)
	}
	if payload != nil {
		parse := jsonapi.PayloadFromValue
		if name, ok := a.Name(); ok && name == NameUpdateEntity {
			parse = jsonapi.UpdatePayloadFromValue
		}
		var err error
		if a.Payload, err = parse(payload); err != nil {
			return Action{}, fmt.Errorf("action %s: %w", payloadKey, err)
		}
	}
	return a, nil
}

// DecodeAll reads an array of actions.
func DecodeAll(v ir.Value) ([]Action, error) {
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, fmt.Errorf("actions must be an array, got %T", v)
	}
	actions := make([]Action, len(arr))
	for i, elem := range arr {
		a, err := Decode(elem)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		actions[i] = a
	}
	return actions, nil
}

// Object renders a in its object form. Empty fields are omitted, except
// that a meta action with a Value always carries metaKey.
func (a Action) Object() ir.Object {
	obj := ir.Object{fieldType: ir.String(a.Type)}
	set := func(key, val string) {
		if val != "" {
			obj[key] = ir.String(val)
		}
	}
	set(fieldEntityKey, a.EntityKey)
	set(fieldEntityID, a.EntityID)
	set(fieldRelationshipKey, a.RelationshipKey)
	set(fieldRelationshipID, a.RelationshipID)

	if a.Payload != nil {
		key := fieldData
		if a.RelationshipKey != "" {
			key = fieldRelationshipObject
		}
		obj[key] = PayloadValue(a.Payload)
	}
	if a.Value != nil {
		obj[fieldValue] = a.Value
		if a.MetaKey == "" {
			obj[fieldMetaKey] = ir.Null{}
		}
	}
	set(fieldMetaKey, a.MetaKey)
	return obj
}

// MarshalJSON implements json.Marshaler using Object.
func (a Action) MarshalJSON() ([]byte, error) {
	return ir.Marshal(a.Object())
}

// PayloadValue renders a payload back into the value it would be parsed
// from.
func PayloadValue(p jsonapi.Payload) ir.Value {
	switch p := p.(type) {
	case jsonapi.ID:
		return ir.String(string(p))
	case jsonapi.Resource:
		return p.Object()
	case jsonapi.Document:
		return p.Object()
	case jsonapi.Attributes:
		return ir.Object(p).Clone()
	case jsonapi.Many:
		arr := make(ir.Array, len(p))
		for i, elem := range p {
			arr[i] = PayloadValue(elem)
		}
		return arr
	default:
		return ir.Null{}
	}
}

func stringField(key string, v ir.Value) (string, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return strconv.FormatInt(int64(val), 10), nil
	default:
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
}
