package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/state"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	StoreOptions
	Atomic bool // reject the whole file on the first failing action
}

// ActionFailure describes one action that did not apply.
type ActionFailure struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ApplyResult is the outcome of an apply run.
type ApplyResult struct {
	CommitResult
	Failures []ActionFailure `json:"failures,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "apply <actions-file>",
		Short: "Apply entity actions to a stored state",
		Long: `Apply the actions in a file to the latest state saved under --name.

The file holds one action object or an array of them, in JSON, YAML or CUE:

  {"type": "UPDATE_ENTITY_ARTICLE", "entityKey": "articles", "entityId": "1",
   "data": {"type": "articles", "id": "1", "attributes": {"title": "New"}}}

By default a failing action is reported and skipped, and the remaining
actions still apply. With --atomic the first failure rejects the whole file
and nothing is written. Actions with unknown types leave the state unchanged.

Exit codes:
  0 - All actions applied
  1 - One or more actions failed
  2 - Command error (unreadable file, database error, etc.)

Examples:
  jsonapistore apply --db ./store.db actions.json
  jsonapistore apply --db ./store.db --atomic actions.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, args[0], cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().BoolVar(&opts.Atomic, "atomic", false, "reject all actions if any fails")

	return cmd
}

// LoadActions reads an action file holding one action or an array.
func LoadActions(path string) ([]action.Action, error) {
	v, err := LoadValue(path)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(ir.Array); ok {
		actions, err := action.DecodeAll(v)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", path, err)}
		}
		return actions, nil
	}
	a, err := action.Decode(v)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return []action.Action{a}, nil
}

func runApply(ctx context.Context, opts *ApplyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	actions, err := LoadActions(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, errorCode(err), err.Error(), nil)
	}
	formatter.VerboseLog("Loaded %d action(s) from %s", len(actions), path)

	st, err := openStore(&opts.StoreOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	current, err := loadLatest(ctx, st, opts.Name)
	if err != nil {
		return err
	}

	reducer := action.NewReducer()

	if opts.Atomic {
		final, idx, err := reducer.ReduceAll(current, actions)
		if err != nil {
			failure := newActionFailure(idx, actions[idx], err)
			return formatter.Fail(ExitFailure, failure.Code,
				fmt.Sprintf("action %d (%s): %v", idx, failure.Type, err), failure)
		}
		// Re-run for the per-step states the log records.
		s := current
		for _, a := range actions {
			s, _ = reducer.Reduce(s, a)
			if _, err := st.AppendAction(ctx, opts.Name, a, s); err != nil {
				return WrapExitError(ExitCommandError, "failed to log action", err)
			}
		}
		commitResult, err := commit(ctx, st, opts.Name, final, len(actions))
		if err != nil {
			return err
		}
		result := ApplyResult{CommitResult: commitResult}
		return formatter.Emit(result, func(w io.Writer) { writeApplyText(w, result) })
	}

	var (
		failures []ActionFailure
		logErr   error
		position int
	)
	d := action.NewDispatcher(reducer,
		action.WithInitialState(current),
		action.WithDispatchLogger(slog.Default()),
		action.WithErrorHandler(func(a action.Action, err error) {
			failures = append(failures, newActionFailure(position, a, err))
			position++
		}),
		action.WithApplyHook(func(a action.Action, s state.State) {
			position++
			if logErr != nil {
				return
			}
			if _, err := st.AppendAction(ctx, opts.Name, a, s); err != nil {
				logErr = err
			}
		}),
	)
	for _, a := range actions {
		d.Dispatch(a)
	}
	d.Stop()
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "dispatcher failed", err)
	}
	if logErr != nil {
		return WrapExitError(ExitCommandError, "failed to log action", logErr)
	}

	commitResult, err := commit(ctx, st, opts.Name, d.State(), int(d.Seq()))
	if err != nil {
		return err
	}
	result := ApplyResult{CommitResult: commitResult, Failures: failures}

	if len(failures) == 0 {
		return formatter.Emit(result, func(w io.Writer) { writeApplyText(w, result) })
	}

	message := fmt.Sprintf("%d of %d action(s) failed", len(failures), len(actions))
	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeActionFailed, message, result); err != nil {
			return err
		}
	} else {
		writeApplyText(formatter.Writer, result)
	}
	return NewExitError(ExitFailure, message)
}

func newActionFailure(index int, a action.Action, err error) ActionFailure {
	code := ErrCodeActionFailed
	if mapped := MapValidationCode(err); mapped != ErrCodeGeneric {
		code = mapped
	}
	return ActionFailure{Index: index, Type: a.Type, Code: code, Message: err.Error()}
}

func writeApplyText(w io.Writer, r ApplyResult) {
	writeCommitText(w, r.CommitResult)
	if len(r.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "✗ %d action(s) failed\n", len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  [%d] %s %s: %s\n", f.Index, f.Type, f.Code, f.Message)
	}
}
