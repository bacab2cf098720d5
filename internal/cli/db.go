package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/store"
)

// commandContext returns cmd's context, or Background when the command
// was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore opens the database at path. Read-only commands pass
// mustExist so a typo does not silently create an empty database.
func openStore(path string, mustExist bool) (*store.Store, error) {
	if mustExist {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// storeOptions persists runs to st with a clock resuming after the last
// stored seq.
func storeOptions(ctx context.Context, st *store.Store) ([]engine.Option, error) {
	last, err := st.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	return []engine.Option{
		engine.WithStore(st),
		engine.WithClock(engine.NewClockAt(last)),
	}, nil
}
