package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/abhisek/elmath/internal/app"
	"github.com/abhisek/elmath/internal/store"
	"github.com/spf13/cobra"
)

// runApp opens the store, builds the controller, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	logger, closeLog, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	kv, err := openKV(cmd, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Storage unavailable:", err)
		fmt.Fprintln(os.Stderr, "Your name, settings and history will not be saved.")
	}
	defer kv.Close()

	ctrl := app.NewController(kv, app.ConfigFromEnv(), app.WithLogger(logger))
	return app.Run(ctrl)
}

// openKV opens the configured database. On failure the returned KV is
// memory-backed and the error says why.
// Saved quiz settings may be evicted to make room for history.
func openKV(cmd *cobra.Command, logger *slog.Logger) (*store.KV, error) {
	volatile := store.WithVolatile(app.SettingsKey)
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return store.NewKV(store.NewMemoryBackend(0), store.WithLogger(logger), volatile),
			fmt.Errorf("resolve DB path: %w", err)
	}
	return store.OpenKV(dbPath, logger, volatile)
}

// newLogger writes JSON logs to the file named by ELMATH_LOG. Without it,
// logs are discarded since the terminal belongs to the TUI.
func newLogger() (*slog.Logger, func(), error) {
	path := os.Getenv("ELMATH_LOG")
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { f.Close() }, nil
}
