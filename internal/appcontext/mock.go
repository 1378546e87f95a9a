package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/patchpilot/pkg/dmg"
	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/reconcile"
	"github.com/agentstation/patchpilot/pkg/template"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	mock := &appcontext.Mock{
//	    ManagementAPIFunc: func() (reconcile.API, error) {
//	        return fakeAPI, nil
//	    },
//	}
//	cmd := reconcilecmd.NewCommand(mock)
type Mock struct {
	LoggerFunc        func() *zerolog.Logger
	OutputFormatFunc  func() string
	SettingsFunc      func() Settings
	ManagementAPIFunc func() (reconcile.API, error)
	TemplatesFunc     func() *template.Locator
	DiskImagesFunc    func() *dmg.Converter
	VersionFunc       func() string
	CommitFunc        func() string
	DateFunc          func() string
	BuiltByFunc       func() string
}

var _ Interface = (*Mock)(nil)

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	return logging.NewNopLogger()
}

// OutputFormat returns the output format using the mock function or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Settings returns settings using the mock function or zero settings.
func (m *Mock) Settings() Settings {
	if m.SettingsFunc != nil {
		return m.SettingsFunc()
	}
	return Settings{}
}

// ManagementAPI returns an API using the mock function or nil.
func (m *Mock) ManagementAPI() (reconcile.API, error) {
	if m.ManagementAPIFunc != nil {
		return m.ManagementAPIFunc()
	}
	return nil, nil
}

// Templates returns a locator using the mock function or the embedded
// defaults.
func (m *Mock) Templates() *template.Locator {
	if m.TemplatesFunc != nil {
		return m.TemplatesFunc()
	}
	return template.NewLocator()
}

// DiskImages returns a converter using the mock function or the default.
func (m *Mock) DiskImages() *dmg.Converter {
	if m.DiskImagesFunc != nil {
		return m.DiskImagesFunc()
	}
	return dmg.NewConverter()
}

// Version returns the version using the mock function or "test".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "test"
}

// Commit returns the commit using the mock function or "test".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "test"
}

// Date returns the date using the mock function or "test".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "test"
}

// BuiltBy returns the builder using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}
