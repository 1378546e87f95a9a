package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/jamf"
	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/reconcile"
)

func testApp(t *testing.T, config *Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithConfig(config), WithLogger(logging.NewNopLogger())}, opts...)
	app, err := New("1.0.0", "abc123", "2024-01-01", "test", opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_ManagementAPI_Singleton verifies that ManagementAPI() returns the same client.
func TestApp_ManagementAPI_Singleton(t *testing.T) {
	app := testApp(t, &Config{ServerURL: "https://jamf.example.com", APIUsername: "api", APIPassword: "secret"})

	api1, err := app.ManagementAPI()
	if err != nil {
		t.Fatalf("ManagementAPI() failed: %v", err)
	}
	api2, err := app.ManagementAPI()
	if err != nil {
		t.Fatalf("ManagementAPI() failed on second call: %v", err)
	}

	if api1 != api2 {
		t.Error("ManagementAPI() returned different instances, expected singleton")
	}
	client, ok := api1.(*jamf.Client)
	if !ok {
		t.Fatalf("ManagementAPI() = %T, want *jamf.Client", api1)
	}
	if client.BaseURL() != "https://jamf.example.com" {
		t.Errorf("BaseURL() = %s", client.BaseURL())
	}
}

// TestApp_ManagementAPI_ThreadSafe verifies concurrent ManagementAPI() calls are safe.
func TestApp_ManagementAPI_ThreadSafe(t *testing.T) {
	app := testApp(t, &Config{ServerURL: "https://jamf.example.com", APIUsername: "api", APIPassword: "secret"})

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]reconcile.API, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], _ = app.ManagementAPI()
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different client", i)
		}
	}
}

// TestApp_ManagementAPI_Config verifies missing settings are reported.
func TestApp_ManagementAPI_Config(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "no server", config: &Config{APIUsername: "api", APIPassword: "secret"}},
		{name: "no credentials", config: &Config{ServerURL: "https://jamf.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testApp(t, tt.config).ManagementAPI()
			var ce *errors.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("ManagementAPI() error = %v, want ConfigError", err)
			}
		})
	}
}

// TestApp_Settings verifies settings mirror the config.
func TestApp_Settings(t *testing.T) {
	app := testApp(t, &Config{
		ServerURL:       "https://jamf.example.com",
		SMTPAddr:        "smtp.example.com",
		MailFrom:        "jamf@example.com",
		MailTo:          []string{"it@example.com"},
		TeamsWebhookURL: "https://example.webhook.office.com/hook",
	})

	s := app.Settings()
	if s.ServerURL != "https://jamf.example.com" || s.SMTPAddr != "smtp.example.com" || s.MailFrom != "jamf@example.com" {
		t.Errorf("Settings() = %+v", s)
	}
	if len(s.MailTo) != 1 || s.TeamsWebhookURL == "" {
		t.Errorf("Settings() = %+v", s)
	}
}

// TestApp_Templates verifies the embedded templates are always found.
func TestApp_Templates(t *testing.T) {
	app := testApp(t, &Config{RecipeSearchDirs: []string{t.TempDir()}})

	data, err := app.Templates().Load("PatchPolicy.xml")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !strings.Contains(string(data), "%VERSION%") {
		t.Error("embedded policy template has no %VERSION% placeholder")
	}
}

// TestApp_Execute_Version verifies the root command wiring.
func TestApp_Execute_Version(t *testing.T) {
	app := testApp(t, &Config{LogFormat: "json", LogOutput: "discard"})

	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "-v"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !strings.Contains(out.String(), "patchpilot 1.0.0") {
		t.Errorf("version output = %q", out.String())
	}
	if !strings.Contains(out.String(), "abc123") {
		t.Errorf("verbose version output lacks commit: %q", out.String())
	}
}

// TestApp_Execute_Commands verifies all subcommands are registered.
func TestApp_Execute_Commands(t *testing.T) {
	root := testApp(t, &Config{}).createRootCommand()

	for _, name := range []string{"reconcile", "notify", "dmg", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

// TestApp_Shutdown verifies Shutdown is safe to call.
func TestApp_Shutdown(t *testing.T) {
	if err := testApp(t, &Config{}).Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}
