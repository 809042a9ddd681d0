// Package action turns plain action objects into Normalizer calls.
//
// An action's type string is a base Name optionally followed by
// upper-case suffixes naming the entity and relationship it touches, for
// example ADD_RELATIONSHIP_TO_ENTITY_ARTICLE_COMMENTS. The suffixes exist
// for hosts that filter actions by type; routing only looks at the base
// name. Match tries names longest first against
//
//	^NAME(_[_A-Z0-9]+)?$
//
// and a type string that matches nothing leaves the state unchanged.
//
// Reducer is the synchronous entry point. Dispatcher wraps a Reducer in a
// single-writer loop for hosts that receive actions from several
// goroutines.
package action
