package cli

import (
	"context"
	"database/sql"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonapistore/internal/state"
	"github.com/roach88/jsonapistore/internal/store"
)

// DefaultStateName is the snapshot name used when --name is not given.
const DefaultStateName = "default"

// StoreOptions holds the flags shared by commands that read or write the
// snapshot store.
type StoreOptions struct {
	*RootOptions
	Database string
	Name     string
}

func addStoreFlags(cmd *cobra.Command, opts *StoreOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Name, "name", DefaultStateName, "state name within the database")
}

func openStore(opts *StoreOptions) (*store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadLatest returns the newest snapshot for name, or an empty state when
// nothing has been saved yet.
func loadLatest(ctx context.Context, st *store.Store, name string) (state.State, error) {
	s, _, err := st.LoadLatest(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return state.State{}, nil
	}
	if err != nil {
		return state.State{}, WrapExitError(ExitCommandError, "failed to load state", err)
	}
	return s, nil
}
