package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonapistore/internal/ir"
	"github.com/roach88/jsonapistore/internal/state"
)

// QueryOptions holds flags for commands that read a stored state.
type QueryOptions struct {
	StoreOptions
	Hash   string // read this snapshot instead of the latest
	Expand int    // relationship expansion depth
	Key    string // meta key; empty for the whole meta object
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	addStoreFlags(cmd, &opts.StoreOptions)
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "read the snapshot with this state hash")
}

// readState returns the snapshot selected by --hash, or the latest one.
func readState(ctx context.Context, opts *QueryOptions, formatter *OutputFormatter) (state.State, error) {
	st, err := openStore(&opts.StoreOptions)
	if err != nil {
		return state.State{}, err
	}
	defer st.Close()

	if opts.Hash == "" {
		return loadLatest(ctx, st, opts.Name)
	}
	s, _, err := st.LoadSnapshot(ctx, opts.Name, opts.Hash)
	if errors.Is(err, sql.ErrNoRows) {
		return state.State{}, formatter.Fail(ExitFailure, ErrCodeNoState,
			fmt.Sprintf("no snapshot %s for %q", opts.Hash, opts.Name), nil)
	}
	if err != nil {
		return state.State{}, WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}
	return s, nil
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "get <type> [id...]",
		Short: "Print denormalized entity views",
		Long: `Print views of stored entities. The type may be singular or plural.

With no ids every entity of the type is printed in insertion order. With ids
the views follow the order given and ids that are not stored are skipped.
A single id that is not stored is an error.

--expand replaces relationship ids with the related views, to the given depth.

Examples:
  jsonapistore get --db ./store.db articles
  jsonapistore get --db ./store.db article 1 --expand 1
  jsonapistore get --db ./store.db comments 12 5 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), opts, args[0], args[1:], cmd)
		},
	}

	addQueryFlags(cmd, opts)
	cmd.Flags().IntVar(&opts.Expand, "expand", 0, "relationship expansion depth")

	return cmd
}

func runGet(ctx context.Context, opts *QueryOptions, key string, ids []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Expand < 0 {
		return NewExitError(ExitCommandError, "--expand must be non-negative")
	}

	s, err := readState(ctx, opts, formatter)
	if err != nil {
		return err
	}

	acc := state.NewAccessor()
	expand := state.ExpandDepth(opts.Expand)

	if len(ids) == 1 {
		view, ok := acc.GetEntity(s, key, ids[0], expand)
		if !ok {
			return formatter.Fail(ExitFailure, ErrCodeNoEntity,
				fmt.Sprintf("entity %s/%s not found", key, ids[0]), nil)
		}
		return formatter.Emit(view, func(w io.Writer) { writeJSONText(w, view) })
	}

	var selected []string
	if len(ids) > 0 {
		selected = ids
	}
	views := acc.GetEntities(s, key, selected, expand)
	return formatter.Emit(views, func(w io.Writer) {
		for _, v := range views {
			writeJSONText(w, v)
		}
	})
}

// MetaResult is the output of the meta command.
type MetaResult struct {
	Type  string   `json:"type"`
	ID    string   `json:"id,omitempty"`
	Key   string   `json:"key,omitempty"`
	Value ir.Value `json:"value"`
}

// NewMetaCommand creates the meta command.
func NewMetaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "meta <type> [id]",
		Short: "Print collection or entity meta",
		Long: `Print the meta stored on a collection or, with an id, on one entity.

--key selects one meta key; without it the whole meta object is printed.
A missing type, entity or key is an error.

Examples:
  jsonapistore meta --db ./store.db comments --key mostRecentlyLoaded
  jsonapistore meta --db ./store.db articles 1 --key isSaving`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runMeta(cmd.Context(), opts, args[0], id, cmd)
		},
	}

	addQueryFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Key, "key", "", "meta key (default: whole meta object)")

	return cmd
}

func runMeta(ctx context.Context, opts *QueryOptions, key, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := readState(ctx, opts, formatter)
	if err != nil {
		return err
	}

	acc := state.NewAccessor()
	var (
		value ir.Value
		ok    bool
		label = key
	)
	if id == "" {
		value, ok = acc.GetEntitiesMeta(s, key, opts.Key)
	} else {
		value, ok = acc.GetEntityMeta(s, key, id, opts.Key)
		label += "/" + id
	}
	if opts.Key != "" {
		label += "." + opts.Key
	}
	if !ok {
		return formatter.Fail(ExitFailure, ErrCodeNoEntity, fmt.Sprintf("no meta at %s", label), nil)
	}

	result := MetaResult{Type: key, ID: id, Key: opts.Key, Value: value}
	return formatter.Emit(result, func(w io.Writer) { writeJSONText(w, value) })
}

// NewIDsCommand creates the ids command.
func NewIDsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ids <document>",
		Short: "Print the primary resource ids of a document",
		Long: `Print data.id, or each data[].id, of a JSON:API document without
normalizing it. Resources without an id are skipped.

Examples:
  jsonapistore ids response.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIDs(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runIDs(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	doc, err := LoadValue(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, errorCode(err), err.Error(), nil)
	}

	ids := state.NewAccessor().GetIDs(doc)
	return formatter.Emit(map[string][]string{"ids": ids}, func(w io.Writer) {
		for _, id := range ids {
			fmt.Fprintln(w, id)
		}
	})
}

// writeJSONText prints v as indented JSON for text output.
func writeJSONText(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%v\n", v)
		return
	}
	fmt.Fprintln(w, string(data))
}
