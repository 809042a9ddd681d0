// Package inflect derives collection type keys from resource type names.
//
// Type keys in a state tree are always the plural form of a resource's
// type. The rule set is isolated behind the Inflector interface so that
// irregular and uncountable words can be swapped per deployment or test
// without touching normalization logic.
//
// The default implementation wraps github.com/gertd/go-pluralize, a port
// of the English rule set used by most JSON:API client libraries.
// Inflectors must be pure: the same input yields the same output on every
// call, and Plural of an already plural word returns it unchanged.
package inflect
