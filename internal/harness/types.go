package harness

import "github.com/roach88/jsonapistore/internal/state"

// Step outcomes recorded in the trace.
const (
	OutcomeOK    = "ok"
	OutcomeError = "ERROR"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	// Seq is the 1-based position across setup and steps.
	Seq int64 `json:"seq"`

	// Type is the full action type string.
	Type string `json:"type"`

	// Name is the routed base action name; empty for unknown types.
	Name string `json:"name,omitempty"`

	// Outcome is OutcomeOK, a validation error code, or OutcomeError.
	Outcome string `json:"outcome"`
}

// Applied reports whether the step changed the running state.
func (e TraceEvent) Applied() bool {
	return e.Outcome == OutcomeOK
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state after all steps.
	State state.State `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(typ, name, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     int64(len(r.Trace) + 1),
		Type:    typ,
		Name:    name,
		Outcome: outcome,
	})
}
