package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/patchpilot/pkg/constants"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Management server
	ServerURL   string
	APIUsername string
	APIPassword string

	// Template lookup
	RecipeSearchDirs   []string
	RecipeOverrideDirs []string

	// Notification endpoints
	SMTPAddr        string
	MailFrom        string
	MailTo          []string
	TeamsWebhookURL string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
	LogFields string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.patchpilot.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configFile := v.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)
	}

	// A missing default config file is fine; an explicit one must be readable.
	if err := v.ReadInConfig(); err != nil && configFile != "" {
		return nil, err
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		ServerURL:   strings.TrimRight(v.GetString("jss_url"), "/"),
		APIUsername: v.GetString("api_username"),
		APIPassword: v.GetString("api_password"),

		RecipeSearchDirs:   pathList(v, "recipe_search_dirs"),
		RecipeOverrideDirs: pathList(v, "recipe_override_dirs"),

		SMTPAddr:        v.GetString("smtp_addr"),
		MailFrom:        v.GetString("mail_from"),
		MailTo:          addressList(v, "mail_to"),
		TeamsWebhookURL: v.GetString("teams_webhook_url"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: getOrDefault(v, "log_format", "auto"),
		LogOutput: getOrDefault(v, "log_output", "stderr"),
		LogFields: v.GetString("log_fields"),
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local is loaded first so its values win; godotenv never overrides
// variables that are already set.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// pathList reads a directory list that may be a YAML sequence in the config
// file or an os.PathListSeparator separated string in the environment.
func pathList(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return nonEmpty(strings.Split(raw, string(filepath.ListSeparator)))
	}
	return nonEmpty(v.GetStringSlice(key))
}

// addressList reads a recipient list that may be a YAML sequence in the
// config file or a comma separated string in the environment.
func addressList(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return nonEmpty(strings.Split(raw, ","))
	}
	return nonEmpty(v.GetStringSlice(key))
}

func nonEmpty(parts []string) []string {
	var out []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getOrDefault returns the configured value or the default if not set.
func getOrDefault(v *viper.Viper, key, defaultValue string) string {
	if value := v.GetString(key); value != "" {
		return value
	}
	return defaultValue
}
