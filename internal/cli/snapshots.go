package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonapistore/internal/store"
)

// SnapshotInfo describes one saved snapshot.
type SnapshotInfo struct {
	Name          string `json:"name"`
	Hash          string `json:"hash"`
	Seq           int64  `json:"seq"`
	FormatVersion string `json:"format_version"`
	ToolVersion   string `json:"tool_version"`
}

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List the snapshots saved for a state",
		Long: `List the snapshots saved under --name, oldest first. Use a listed hash
with --hash on get, meta or state to read an earlier snapshot.

Examples:
  jsonapistore snapshots --db ./store.db
  jsonapistore snapshots --db ./store.db --name feed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshots(cmd.Context(), opts, cmd)
		},
	}

	addStoreFlags(cmd, opts)

	return cmd
}

func runSnapshots(ctx context.Context, opts *StoreOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.List(ctx, opts.Name)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list snapshots", err)
	}

	infos := make([]SnapshotInfo, len(snaps))
	for i, s := range snaps {
		infos[i] = snapshotInfo(s)
	}

	return formatter.Emit(infos, func(w io.Writer) {
		if len(infos) == 0 {
			fmt.Fprintf(w, "No snapshots saved for %s.\n", opts.Name)
			return
		}
		for _, s := range infos {
			fmt.Fprintf(w, "%d %s (format %s)\n", s.Seq, s.Hash, s.FormatVersion)
		}
	})
}

func snapshotInfo(s store.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		Name:          s.Name,
		Hash:          s.Hash,
		Seq:           s.Seq,
		FormatVersion: s.FormatVersion,
		ToolVersion:   s.ToolVersion,
	}
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{StoreOptions: StoreOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print a stored state tree",
		Long: `Print the normalized state tree saved under --name, with types and ids in
insertion order. Without --hash the latest snapshot is printed.

Examples:
  jsonapistore state --db ./store.db
  jsonapistore state --db ./store.db --hash <hash> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd.Context(), opts, cmd)
		},
	}

	addQueryFlags(cmd, opts)

	return cmd
}

func runState(ctx context.Context, opts *QueryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := readState(ctx, opts, formatter)
	if err != nil {
		return err
	}

	// State.MarshalJSON keeps insertion order.
	return formatter.Emit(s, func(w io.Writer) { writeJSONText(w, s) })
}
