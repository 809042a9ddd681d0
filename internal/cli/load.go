package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/state"
	"github.com/roach88/jsonapistore/internal/store"
)

// TypeCount is the number of stored entities of one type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// CommitResult describes a state written to the store.
type CommitResult struct {
	Name    string      `json:"name"`
	Hash    string      `json:"hash"`
	Seq     int64       `json:"seq"`
	Applied int         `json:"applied"`
	Created bool        `json:"created"`
	Types   []TypeCount `json:"types"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <document>...",
		Short: "Normalize JSON:API documents into a stored state",
		Long: `Load one or more JSON:API documents into the latest state saved under
--name, then save the result as a new snapshot.

Each document is logged as a LOAD_JSON_API_ENTITY_DATA action. Documents are
applied in order and the batch is all-or-nothing: if any document fails to
load, nothing is written.

Exit codes:
  0 - All documents loaded
  1 - A document failed validation
  2 - Command error (unreadable file, database error, etc.)

Examples:
  jsonapistore load --db ./store.db articles.json
  jsonapistore load --db ./store.db --name feed page1.yaml page2.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), opts, args, cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runLoad(ctx context.Context, opts *StoreOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	actions := make([]action.Action, 0, len(paths))
	for _, path := range paths {
		p, _, err := LoadDocument(path)
		if err != nil {
			return documentError(formatter, err)
		}
		formatter.VerboseLog("Loaded %s", path)
		actions = append(actions, action.LoadJSONAPIEntityData(p))
	}

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	current, err := loadLatest(ctx, st, opts.Name)
	if err != nil {
		return err
	}

	reducer := action.NewReducer()
	states := make([]state.State, len(actions))
	for i, a := range actions {
		next, err := reducer.Reduce(current, a)
		if err != nil {
			return formatter.Fail(ExitFailure, MapValidationCode(err),
				fmt.Sprintf("%s: %v", paths[i], err), map[string]string{"file": paths[i]})
		}
		current = next
		states[i] = next
	}

	for i, a := range actions {
		if _, err := st.AppendAction(ctx, opts.Name, a, states[i]); err != nil {
			return WrapExitError(ExitCommandError, "failed to log action", err)
		}
	}

	result, err := commit(ctx, st, opts.Name, current, len(actions))
	if err != nil {
		return err
	}
	return formatter.Emit(result, func(w io.Writer) { writeCommitText(w, result) })
}

// documentError reports a document that could not be read or parsed.
// Validation failures exit 1; unreadable files are command errors.
func documentError(formatter *OutputFormatter, err error) error {
	code := errorCode(err)
	exit := ExitCommandError
	if MapValidationCode(err) != ErrCodeGeneric {
		exit = ExitFailure
	}
	return formatter.Fail(exit, code, err.Error(), nil)
}

// commit saves s as a snapshot of name and summarizes it.
func commit(ctx context.Context, st *store.Store, name string, s state.State, applied int) (CommitResult, error) {
	snap, created, err := st.SaveSnapshot(ctx, name, s)
	if err != nil {
		return CommitResult{}, WrapExitError(ExitCommandError, "failed to save snapshot", err)
	}
	return CommitResult{
		Name:    snap.Name,
		Hash:    snap.Hash,
		Seq:     snap.Seq,
		Applied: applied,
		Created: created,
		Types:   typeCounts(s),
	}, nil
}

func typeCounts(s state.State) []TypeCount {
	counts := make([]TypeCount, 0, s.Len())
	for _, key := range s.Keys() {
		c, _ := s.Collection(key)
		counts = append(counts, TypeCount{Type: key, Count: c.Len()})
	}
	return counts
}

func writeCommitText(w io.Writer, r CommitResult) {
	status := "saved"
	if !r.Created {
		status = "unchanged"
	}
	fmt.Fprintf(w, "✓ %s: applied %d action(s), snapshot %d %s\n", r.Name, r.Applied, r.Seq, status)
	fmt.Fprintf(w, "  hash: %s\n", r.Hash)
	for _, tc := range r.Types {
		fmt.Fprintf(w, "  %s: %d\n", tc.Type, tc.Count)
	}
}
