// Package app provides the application context and dependency management
// for the patchpilot CLI. It centralizes configuration, logging and the
// clients commands share.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/patchpilot/internal/appcontext"
	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/dmg"
	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/jamf"
	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/reconcile"
	"github.com/agentstation/patchpilot/pkg/template"
)

// App represents the patchpilot application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Management API client (lazy-initialized, singleton)
	mu  sync.RWMutex
	api reconcile.API
}

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger
	logging.SetDefault(logger)

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Settings returns the endpoint settings.
func (a *App) Settings() appcontext.Settings {
	return appcontext.Settings{
		ServerURL:       a.config.ServerURL,
		SMTPAddr:        a.config.SMTPAddr,
		MailFrom:        a.config.MailFrom,
		MailTo:          a.config.MailTo,
		TeamsWebhookURL: a.config.TeamsWebhookURL,
	}
}

// ManagementAPI returns the management API client, creating it lazily.
func (a *App) ManagementAPI() (reconcile.API, error) {
	a.mu.RLock()
	if a.api != nil {
		api := a.api
		a.mu.RUnlock()
		return api, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.api != nil {
		return a.api, nil
	}

	if a.config.ServerURL == "" {
		return nil, errors.NewConfigError("jss_url", "JSS_URL is not set", nil)
	}
	if a.config.APIUsername == "" || a.config.APIPassword == "" {
		return nil, errors.NewConfigError("credentials", "API_USERNAME and API_PASSWORD are required", nil)
	}

	a.api = jamf.NewClient(a.config.ServerURL, jamf.Credentials{
		Username: a.config.APIUsername,
		Password: a.config.APIPassword,
	})
	return a.api, nil
}

// Templates returns the template locator over the override directories and
// the recipe search directories.
func (a *App) Templates() *template.Locator {
	return template.NewLocator(template.Roots(
		a.config.RecipeOverrideDirs,
		a.config.RecipeSearchDirs,
		constants.PostProcessorsDir,
	)...)
}

// DiskImages returns the disk image converter.
func (a *App) DiskImages() *dmg.Converter {
	return dmg.NewConverter()
}

// Shutdown performs cleanup after a command. Nothing runs in the
// background, so there is only the final log line to write.
func (a *App) Shutdown(_ context.Context) error {
	a.logger.Debug().Msg("Shutting down")
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithManagementAPI sets a custom management API (useful for testing).
func WithManagementAPI(api reconcile.API) Option {
	return func(a *App) error {
		a.api = api
		return nil
	}
}
