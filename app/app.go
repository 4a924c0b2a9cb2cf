package app

import (
	"os"
	"path/filepath"

	"cosmossdk.io/log"

	pqcclient "pqsig/x/pqc/client"
	"pqsig/x/pqc/provider"
	"pqsig/x/pqc/types"
)

const (
	Name = "pqsig"
)

var DefaultNodeHome string

type App struct {
	logger  log.Logger
	config  Config
	factory *provider.Factory
}

func init() {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	DefaultNodeHome = filepath.Join(userHomeDir, "."+Name)
}

// New wires the provider factory for cfg. One App owns one factory, so every
// command in a process shares the same adapter cache.
func New(logger log.Logger, cfg Config) (*App, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory, err := provider.NewFactory(
		provider.WithLogger(logger),
		provider.WithParams(cfg.Params()),
	)
	if err != nil {
		return nil, err
	}

	logger.With(log.ModuleKey, types.ModuleName).Debug("provider factory ready",
		"allowed", cfg.Params().AllowedAlgorithms,
		"cache_identity", string(cfg.Params().CacheIdentity),
	)

	return &App{
		logger:  logger,
		config:  cfg,
		factory: factory,
	}, nil
}

func (app *App) Logger() log.Logger         { return app.logger }
func (app *App) Config() Config             { return app.config }
func (app *App) Factory() *provider.Factory { return app.factory }

// ClientContext returns the context handed to the pqc commands.
func (app *App) ClientContext() pqcclient.Context {
	return pqcclient.Context{
		HomeDir:     app.config.HomeDir,
		KeystoreDir: app.config.KeystoreDir(),
		Logger:      app.logger,
		Factory:     app.factory,
		Input:       os.Stdin,
	}
}

// Close drops every cached adapter.
func (app *App) Close() error {
	purged := app.factory.Purge()
	app.logger.Debug("provider cache purged", "adapters", purged)
	return nil
}
