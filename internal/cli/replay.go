package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonapistore/internal/action"
	"github.com/roach88/jsonapistore/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Name     string // optional - specific state only
}

// ReplayNameResult holds the replay result for a single state name.
type ReplayNameResult struct {
	Name          string                 `json:"name"`
	Steps         int                    `json:"steps"`
	LastSeq       int64                  `json:"last_seq"`
	Hash          string                 `json:"hash"`
	MatchesLatest bool                   `json:"matches_latest"`
	Deterministic bool                   `json:"deterministic"`
	Mismatches    []store.ReplayMismatch `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Names            []ReplayNameResult `json:"names"`
	Total            int                `json:"total"`
	AllDeterministic bool               `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay action logs and verify determinism",
		Long: `Replay the action log of each state name from an empty state and verify
that every step reproduces the state hash recorded when it was applied.

The replayed state is also compared with the latest saved snapshot.

Exit codes:
  0 - All logs replay deterministically
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  jsonapistore replay --db ./store.db
  jsonapistore replay --db ./store.db --name feed
  jsonapistore replay --db ./store.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Name, "name", "", "replay specific state name only")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var names []string
	if opts.Name != "" {
		names = []string{opts.Name}
	} else {
		names, err = st.Names(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list state names", err)
		}
	}

	if len(names) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{
				Names:            []ReplayNameResult{},
				AllDeterministic: true,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No action logs found in database.")
		return nil
	}

	result := ReplayResult{
		Names:            make([]ReplayNameResult, 0, len(names)),
		Total:            len(names),
		AllDeterministic: true,
	}

	reducer := action.NewReducer()
	for _, name := range names {
		nameResult, err := replayAndVerify(ctx, st, reducer, name)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay %s", name), err)
		}

		result.Names = append(result.Names, nameResult)
		if !nameResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerify replays one name's log and compares the outcome with the
// latest snapshot when there is one.
func replayAndVerify(ctx context.Context, st *store.Store, reducer *action.Reducer, name string) (ReplayNameResult, error) {
	replayed, err := st.Replay(ctx, name, reducer)
	if err != nil {
		return ReplayNameResult{}, err
	}

	hash, err := replayed.State.Hash()
	if err != nil {
		return ReplayNameResult{}, err
	}

	latest, err := loadLatest(ctx, st, name)
	if err != nil {
		return ReplayNameResult{}, err
	}

	matches := latest.Equal(replayed.State)
	return ReplayNameResult{
		Name:          name,
		Steps:         replayed.Steps,
		LastSeq:       replayed.LastSeq,
		Hash:          hash,
		MatchesLatest: matches,
		Deterministic: replayed.Deterministic() && matches,
		Mismatches:    replayed.Mismatches,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeNondeterministic,
			Message: "determinism verification failed",
		}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.Respond(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d state(s)\n", result.Total)
	fmt.Fprintln(w)

	for _, r := range result.Names {
		status := "✓"
		if !r.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s State: %s\n", status, r.Name)
		fmt.Fprintf(w, "  Actions: %d (last seq %d)\n", r.Steps, r.LastSeq)
		if verbose {
			fmt.Fprintf(w, "  Hash: %s\n", r.Hash)
		}

		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "  Mismatch at seq %d (%s): logged %s, replayed %s\n", m.Seq, m.Type, m.Expected, m.Actual)
		}
		if !r.MatchesLatest {
			fmt.Fprintln(w, "  Warning: replayed state differs from the latest snapshot!")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All action logs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
