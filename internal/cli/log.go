package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonapistore/internal/ir"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	StoreOptions
	Action string // filter by full type string or base name
}

// LogEntry is one logged action.
type LogEntry struct {
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"`
	Name      string    `json:"name,omitempty"`
	StateHash string    `json:"state_hash"`
	Action    ir.Object `json:"action"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the action log of a state",
		Long: `Show the actions applied to a state name, in order, with the hash of the
state each one produced.

--action keeps entries whose type string or base name matches, e.g.
UPDATE_ENTITY matches UPDATE_ENTITY_ARTICLE.

Examples:
  jsonapistore log --db ./store.db
  jsonapistore log --db ./store.db --name feed --action LOAD_JSON_API_ENTITY_DATA
  jsonapistore log --db ./store.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd.Context(), opts, cmd)
		},
	}

	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter by action type or base name")

	return cmd
}

func runLog(ctx context.Context, opts *LogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(&opts.StoreOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ReadActions(ctx, opts.Name)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read action log", err)
	}

	entries := []LogEntry{}
	for _, rec := range records {
		name, _ := rec.Action.Name()
		if opts.Action != "" && rec.Action.Type != opts.Action && string(name) != opts.Action {
			continue
		}
		entries = append(entries, LogEntry{
			Seq:       rec.Seq,
			Type:      rec.Action.Type,
			Name:      string(name),
			StateHash: rec.StateHash,
			Action:    rec.Action.Object(),
		})
	}

	return formatter.Emit(entries, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintf(w, "No actions logged for %s.\n", opts.Name)
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "[%d] %s %s\n", e.Seq, e.Type, shortHash(e.StateHash))
			if opts.Verbose {
				writeJSONText(w, e.Action)
			}
		}
	})
}

// shortHash trims a hex state hash for display.
func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
