// Package appcontext provides the shared application context interface
// used by all commands. Commands accept this interface rather than the
// concrete App so they can be tested against a Mock.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/patchpilot/pkg/dmg"
	"github.com/agentstation/patchpilot/pkg/reconcile"
	"github.com/agentstation/patchpilot/pkg/template"
)

// Settings are the resolved endpoint settings commands fall back to when a
// flag is not given.
type Settings struct {
	// ServerURL is the management server (JSS_URL).
	ServerURL string

	SMTPAddr string
	MailFrom string
	MailTo   []string

	TeamsWebhookURL string
}

// Interface defines the application context interface that commands need.
type Interface interface {
	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table).
	OutputFormat() string

	// Settings returns endpoint settings from config file and environment.
	Settings() Settings

	// ManagementAPI returns a client for the management server.
	ManagementAPI() (reconcile.API, error)

	// Templates returns the template locator built from the recipe
	// override and search directories.
	Templates() *template.Locator

	// DiskImages returns the disk image converter.
	DiskImages() *dmg.Converter

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
