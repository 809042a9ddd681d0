// Package harness runs YAML scenarios against the reducer and checks the
// resulting trace and state.
//
// # Scenario Format
//
//	name: comment_flow
//	description: "What this scenario validates"
//	id_prefix: c            # create steps generate c-1, c-2, ...
//	setup:
//	  - document: documents/article.yaml
//	steps:
//	  - action:
//	      type: ADD_RELATIONSHIP_TO_ENTITY_ARTICLE_COMMENTS
//	      entityKey: article
//	      entityId: "1"
//	      relationshipKey: comments
//	      data: {type: comments, id: "5"}
//	  - create:
//	      entity: comments
//	      attributes: {body: "Second"}
//	  - action: {type: LOAD_JSON_API_ENTITY_DATA, data: {type: articles}}
//	    expect: {error: MISSING_ID}
//	assertions:
//	  - type: entity
//	    key: articles
//	    id: "1"
//	    expand: 1
//	    expect: {attributes: {title: "Hello"}}
//	  - type: trace_count
//	    action: LOAD_JSON_API_ENTITY_DATA
//	    count: 2
//
// Each step sets exactly one of action (the wire form read by
// action.Decode), document (a JSON or YAML document file) or create
// (jsonapi.GenerateEntity with a sequential id generator).
//
// # Assertion Types
//
//   - trace_contains, trace_order, trace_count: applied steps, matched by
//     full type string or base action name
//   - entity: subset match against the entity view, or absent
//   - entities, recently_loaded: ordered id lists
//   - entities_meta, entity_meta: meta values, or absent
//   - type_keys: type keys in insertion order
//
// # Determinism
//
// Every run uses a fresh in-memory store and a resettable id generator.
// Applied actions are logged to the store and replayed after the run; a
// replay that disagrees with the live run fails the scenario, as does a
// final snapshot that does not round-trip.
package harness
