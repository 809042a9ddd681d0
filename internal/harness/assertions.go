package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/state"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Type, event.Outcome)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	acc := state.NewAccessor()
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(acc, result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(acc *state.Accessor, result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertEntity:
		return assertEntity(acc, result, a)
	case AssertEntities:
		return assertEntities(acc, result, a)
	case AssertRecentlyLoaded:
		return assertRecentlyLoaded(acc, result, a)
	case AssertEntitiesMeta:
		v, ok := acc.GetEntitiesMeta(result.State, a.Key, a.MetaKey)
		return assertMeta(result, a, v, ok)
	case AssertEntityMeta:
		v, ok := acc.GetEntityMeta(result.State, a.Key, a.ID, a.MetaKey)
		return assertMeta(result, a, v, ok)
	case AssertTypeKeys:
		return assertTypeKeys(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// matches reports whether an applied event is the named action, by full
// type string or base name.
func matches(event TraceEvent, action string) bool {
	return event.Applied() && (event.Type == action || event.Name == action)
}

// assertTraceContains checks that an applied step matches the action.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if matches(event, assertion.Action) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s", assertion.Action),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected action, 1-indexed
	positions := make(map[string]int)
	for i, event := range trace {
		for _, expected := range assertion.Actions {
			if matches(event, expected) && positions[expected] == 0 {
				positions[expected] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action was applied exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if matches(event, assertion.Action) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertEntity checks the view of one entity against a subset of its
// object form.
func assertEntity(acc *state.Accessor, result *Result, a Assertion) error {
	view, ok := acc.GetEntity(result.State, a.Key, a.ID, state.ExpandDepth(a.Expand))
	label := fmt.Sprintf("%s/%s", a.Key, a.ID)

	if a.Absent {
		if ok {
			return &AssertionError{
				Type:     AssertEntity,
				Expected: fmt.Sprintf("%s absent", label),
				Actual:   render(view.Object()),
				Trace:    result.Trace,
			}
		}
		return nil
	}
	if !ok {
		return &AssertionError{
			Type:     AssertEntity,
			Expected: fmt.Sprintf("%s present", label),
			Actual:   "not found",
			Trace:    result.Trace,
		}
	}

	expected, err := ir.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	actual := view.Object()
	if !subsetMatch(expected, actual) {
		return &AssertionError{
			Type:     AssertEntity,
			Expected: fmt.Sprintf("%s matching %s", label, render(expected)),
			Actual:   render(actual),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertEntities checks the ordered ids returned by GetEntities.
func assertEntities(acc *state.Accessor, result *Result, a Assertion) error {
	views := acc.GetEntities(result.State, a.Key, a.IDs)
	return compareIDs(AssertEntities, result, expectedList(a.Expect), viewIDs(views))
}

// assertRecentlyLoaded checks the ids returned by GetMostRecentlyLoaded.
func assertRecentlyLoaded(acc *state.Accessor, result *Result, a Assertion) error {
	views := acc.GetMostRecentlyLoaded(result.State, a.Key)
	return compareIDs(AssertRecentlyLoaded, result, expectedList(a.Expect), viewIDs(views))
}

func assertMeta(result *Result, a Assertion, v ir.Value, ok bool) error {
	label := a.Key
	if a.ID != "" {
		label += "/" + a.ID
	}
	label += "." + a.MetaKey

	if a.Absent {
		if ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s absent", label),
				Actual:   render(v),
				Trace:    result.Trace,
			}
		}
		return nil
	}

	expected, err := ir.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	if !ok || !ir.Equal(expected, v) {
		actual := "absent"
		if ok {
			actual = render(v)
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", label, render(expected)),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertTypeKeys(result *Result, a Assertion) error {
	return compareIDs(AssertTypeKeys, result, expectedList(a.Expect), result.State.Keys())
}

func compareIDs(typ string, result *Result, expected, actual []string) error {
	if slices.Equal(expected, actual) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%v", expected),
		Actual:   fmt.Sprintf("%v", actual),
		Trace:    result.Trace,
	}
}

// subsetMatch compares objects by the expected keys only, recursively.
// Arrays must have equal length and match element-wise; scalars must be
// equal.
func subsetMatch(expected, actual ir.Value) bool {
	switch exp := expected.(type) {
	case ir.Object:
		act, ok := actual.(ir.Object)
		if !ok {
			return false
		}
		for key, ev := range exp {
			av, ok := act[key]
			if !ok || !subsetMatch(ev, av) {
				return false
			}
		}
		return true
	case ir.Array:
		act, ok := actual.(ir.Array)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !subsetMatch(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return ir.Equal(expected, actual)
	}
}

// expectedList renders a YAML list of ids or keys as strings; numeric ids
// use their decimal form.
func expectedList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprint(item)
	}
	return out
}

func viewIDs(views []state.View) []string {
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func render(v ir.Value) string {
	b, err := ir.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
