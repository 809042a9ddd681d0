package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/jsonapi"
	"github.com/roach88/jsonapistore/internal/state"
	"github.com/roach88/jsonapistore/internal/store"
	"github.com/roach88/jsonapistore/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against a private in-memory store with a
// deterministic id generator.
type Harness struct {
	store   *store.Store
	reducer *action.Reducer
	ids     *testutil.SequenceIDGenerator
	logger  *slog.Logger
	name    string
	current state.State
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Execute setup steps (any failure aborts the run)
// 3. Execute steps, checking expect clauses and logging applied actions
// 4. Replay the log and snapshot the final state, checking both agree
// 5. Evaluate assertions against the trace and final state
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context for store calls.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	prefix := scenario.IDPrefix
	if prefix == "" {
		prefix = "id"
	}

	// Suppress logs in tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		store:   st,
		reducer: action.NewReducer(state.WithLogger(logger)),
		ids:     testutil.NewSequenceIDGenerator(prefix),
		logger:  logger,
		name:    scenario.Name,
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}
	result.State = h.current

	if err := h.verifyPersistence(ctx, result); err != nil {
		return nil, err
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeSetup applies setup steps. Setup is assumed to succeed; a failing
// step aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		where := fmt.Sprintf("setup[%d]", i)
		a, err := h.buildAction(step)
		if err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		name, _ := a.Name()
		if err := h.apply(ctx, a); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		result.addTrace(a.Type, string(name), OutcomeOK)
	}
	return nil
}

// executeSteps applies the main flow, validating each expect clause.
// Failed steps are traced but neither logged nor applied.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		where := fmt.Sprintf("steps[%d]", i)

		a, err := h.buildAction(step)
		if err != nil {
			if !jsonapi.IsValidationError(err) {
				return fmt.Errorf("%s: %w", where, err)
			}
			h.checkFailure(where, step, rawType(step), err, result)
			continue
		}

		name, _ := a.Name()
		if err := h.apply(ctx, a); err != nil {
			if !jsonapi.IsValidationError(err) {
				return fmt.Errorf("%s: %w", where, err)
			}
			h.checkFailure(where, step, a.Type, err, result)
			continue
		}

		result.addTrace(a.Type, string(name), OutcomeOK)
		if step.Expect != nil {
			result.AddError(fmt.Sprintf("%s: expected error %s, step succeeded", where, step.Expect.Error))
		}
	}
	return nil
}

// checkFailure traces a failed step and compares it to the expect clause.
func (h *Harness) checkFailure(where string, step Step, typ string, err error, result *Result) {
	name, _ := action.Match(typ)
	code := errorCode(err)
	result.addTrace(typ, string(name), code)

	h.logger.Debug("step failed", "step", where, "type", typ, "code", code, "error", err)

	switch {
	case step.Expect == nil:
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", where, err))
	case step.Expect.Error != code:
		result.AddError(fmt.Sprintf("%s: expected error %s, got %s", where, step.Expect.Error, code))
	}
}

// apply reduces a into the running state and appends it to the log.
// Only reducer validation errors leave the state untouched without
// failing the run.
func (h *Harness) apply(ctx context.Context, a action.Action) error {
	next, err := h.reducer.Reduce(h.current, a)
	if err != nil {
		return err
	}
	if _, err := h.store.AppendAction(ctx, h.name, a, next); err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}
	h.current = next
	return nil
}

// buildAction converts a step into an action.
func (h *Harness) buildAction(step Step) (action.Action, error) {
	switch {
	case step.Action != nil:
		v, err := ir.FromAny(step.Action)
		if err != nil {
			return action.Action{}, fmt.Errorf("action: %w", err)
		}
		return action.Decode(v)

	case step.Document != "":
		data, err := os.ReadFile(step.Document)
		if err != nil {
			return action.Action{}, fmt.Errorf("failed to read document: %w", err)
		}
		// JSON documents are valid YAML.
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return action.Action{}, fmt.Errorf("failed to parse document %s: %w", step.Document, err)
		}
		v, err := ir.FromAny(raw)
		if err != nil {
			return action.Action{}, fmt.Errorf("document %s: %w", step.Document, err)
		}
		p, err := jsonapi.PayloadFromValue(v)
		if err != nil {
			return action.Action{}, err
		}
		return action.LoadJSONAPIEntityData(p), nil

	case step.Create != nil:
		v, err := ir.FromAny(step.Create.Attributes)
		if err != nil {
			return action.Action{}, fmt.Errorf("create: %w", err)
		}
		attrs, _ := v.(ir.Object)
		r := jsonapi.GenerateEntity(step.Create.Entity, attrs, h.ids)
		return action.LoadJSONAPIEntityData(r), nil
	}
	return action.Action{}, fmt.Errorf("empty step")
}

// verifyPersistence replays the scenario's action log and round-trips the
// final state through a snapshot. Disagreements are recorded as errors.
func (h *Harness) verifyPersistence(ctx context.Context, result *Result) error {
	replay, err := h.store.Replay(ctx, h.name, action.NewReducer(state.WithLogger(h.logger)))
	if err != nil {
		result.AddError(fmt.Sprintf("replay: %v", err))
	} else {
		for _, m := range replay.Mismatches {
			result.AddError(fmt.Sprintf("replay: seq %d (%s) produced hash %s, logged %s",
				m.Seq, m.Type, m.Actual, m.Expected))
		}
		if !replay.State.Equal(h.current) {
			result.AddError("replay: final state differs from the live run")
		}
	}

	snap, _, err := h.store.SaveSnapshot(ctx, h.name, h.current)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	loaded, _, err := h.store.LoadSnapshot(ctx, h.name, snap.Hash)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !loaded.Equal(h.current) {
		result.AddError("snapshot: reloaded state differs from the live run")
	}
	return nil
}

func errorCode(err error) string {
	var ve *jsonapi.ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	return OutcomeError
}

// rawType is the type member of an action step that failed to decode.
func rawType(step Step) string {
	if typ, ok := step.Action["type"].(string); ok {
		return typ
	}
	return string(action.NameLoadJSONAPIEntityData)
}
