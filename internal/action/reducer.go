package action

import (
	"cmp"
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/roach88/jsonapistore/internal/state"
)

type handler func(n *state.Normalizer, s state.State, a Action) (state.State, error)

var handlers = map[Name]handler{
	NameLoadJSONAPIEntityData: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.InsertOrUpdateEntities(s, a.Payload)
	},
	NameAddRelationshipToEntity: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.AddRelationshipToEntity(s, a.EntityKey, a.EntityID, a.RelationshipKey, a.Payload)
	},
	NameRemoveRelationshipFromEntity: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.RemoveRelationshipFromEntity(s, a.EntityKey, a.EntityID, a.RelationshipKey, a.RelationshipID)
	},
	NameSetRelationshipOnEntity: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.SetRelationshipOnEntity(s, a.EntityKey, a.EntityID, a.RelationshipKey, a.Payload)
	},
	NameClearRelationshipOnEntity: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.ClearRelationshipOnEntity(s, a.EntityKey, a.EntityID, a.RelationshipKey)
	},
	NameUpdateEntitiesMeta: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.UpdateEntitiesMeta(s, a.EntityKey, a.MetaKey, a.Value)
	},
	NameUpdateEntityMeta: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.UpdateEntityMeta(s, a.EntityKey, a.EntityID, a.MetaKey, a.Value)
	},
	NameUpdateEntity: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.UpdateEntity(s, a.EntityKey, a.EntityID, a.Payload)
	},
	NameRemoveEntity: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.RemoveEntity(s, a.EntityKey, a.EntityID)
	},
	NameClearEntityType: func(n *state.Normalizer, s state.State, a Action) (state.State, error) {
		return n.ClearEntityType(s, a.EntityKey)
	},
}

type route struct {
	name    Name
	pattern *regexp.Regexp
}

// routes are tried longest name first, so UPDATE_ENTITY_META_ARTICLE is
// never taken for UPDATE_ENTITY with a META_ARTICLE suffix.
var routes = func() []route {
	names := slices.Clone(Names)
	slices.SortStableFunc(names, func(a, b Name) int {
		return cmp.Compare(len(b), len(a))
	})
	rs := make([]route, len(names))
	for i, name := range names {
		rs[i] = route{
			name:    name,
			pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(string(name)) + `(_[_A-Z0-9]+)?$`),
		}
	}
	return rs
}()

// Match returns the base name a type string routes to, trying the longest
// base name first. The type string alone is ambiguous when an entity key
// begins with a longer name's suffix: UPDATE_ENTITY_META_TAG matches
// UPDATE_ENTITY_META. Action.Name resolves such types from the action's
// keys and is what the Reducer uses.
func Match(typ string) (Name, bool) {
	for _, r := range routes {
		if r.pattern.MatchString(typ) {
			return r.name, true
		}
	}
	return "", false
}

// Reducer applies actions to state trees through a Normalizer.
type Reducer struct {
	normalizer *state.Normalizer
	logger     *slog.Logger
}

// NewReducer creates a Reducer. The options configure the underlying
// Normalizer.
func NewReducer(opts ...state.Option) *Reducer {
	r := &Reducer{normalizer: state.NewNormalizer(opts...), logger: slog.Default()}
	return r
}

// NewReducerWithNormalizer creates a Reducer around an existing
// Normalizer.
func NewReducerWithNormalizer(n *state.Normalizer, logger *slog.Logger) *Reducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{normalizer: n, logger: logger}
}

// Reduce applies a to s. Unknown action types return s unchanged. On
// error s is returned unchanged along with the error.
func (r *Reducer) Reduce(s state.State, a Action) (state.State, error) {
	name, ok := a.Name()
	if !ok {
		r.logger.Debug("ignoring unknown action", "type", a.Type)
		return s, nil
	}

	next, err := handlers[name](r.normalizer, s, a)
	if err != nil {
		return s, fmt.Errorf("%s: %w", a.Type, err)
	}
	r.logger.Debug("reduced action", "type", a.Type, "name", name)
	return next, nil
}

// ReduceAll applies actions in order and stops at the first error,
// returning the state reached before it and the index of the failing
// action.
func (r *Reducer) ReduceAll(s state.State, actions []Action) (state.State, int, error) {
	for i, a := range actions {
		next, err := r.Reduce(s, a)
		if err != nil {
			return s, i, err
		}
		s = next
	}
	return s, -1, nil
}
