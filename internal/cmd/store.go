package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/d-kuro/todo-mcp/internal/config"
	"github.com/d-kuro/todo-mcp/internal/logging"
	"github.com/d-kuro/todo-mcp/internal/storage"
	"github.com/d-kuro/todo-mcp/internal/todo"
)

// ConfigFlag names the persistent flag holding an explicit config file.
const ConfigFlag = "config"

// RegisterPersistentFlags adds the store and config flags shared by every command.
func RegisterPersistentFlags(fs *pflag.FlagSet) {
	config.RegisterFlags(fs)
	fs.String(ConfigFlag, "", "Config file (default todo-mcp.{yaml,json,toml} in . or ~/.config/todo-mcp)")
}

// LoadConfig resolves the configuration from the flags of cmd, the
// environment and the config file.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString(ConfigFlag)

	return config.Load(config.LoadOptions{
		Flags:       cmd.Flags(),
		ConfigFile:  configFile,
		ConfigPaths: config.DefaultConfigPaths(),
	})
}

// Store bundles an opened database and the todo repository over it.
type Store struct {
	DB         *storage.DB
	Repository *todo.Repository
}

// OpenStore opens the backend selected by cfg. Autosave runs at
// cfg.AutosaveInterval when autosave is set.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logging.Logger, autosave bool) (*Store, error) {
	backend, err := storage.NewBackend(cfg.Driver, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store at %s: %w", cfg.Driver, cfg.DB, err)
	}

	opts := &storage.Options{Logger: logger}
	if autosave {
		opts.AutosaveInterval = cfg.AutosaveInterval
	}

	db, err := storage.Open(ctx, backend, opts)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	repo, err := todo.Open(ctx, db)
	if err != nil {
		_ = db.Close(ctx)
		return nil, err
	}

	logger.Debug("Store opened",
		slog.String("driver", cfg.Driver),
		slog.String("path", cfg.DB),
		slog.Int("todos", repo.Count()))

	return &Store{DB: db, Repository: repo}, nil
}

// Close flushes pending changes and closes the database.
func (s *Store) Close(ctx context.Context) error {
	return s.DB.Close(ctx)
}

// withStore loads the configuration for cmd, opens the store without
// autosave, runs fn and closes the store.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, repo *todo.Repository) error) (err error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := OpenStore(ctx, cfg, cfg.Logger(), false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(ctx, store.Repository)
}
