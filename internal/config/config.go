// Package config loads pane-relay configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (PANE_RELAY_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .pane-relay.yaml in current directory
//  2. ~/.config/pane-relay/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pane-relay configuration.
type Config struct {
	// Assistant launcher settings
	Launcher     string `yaml:"launcher"`      // assistant launcher command, e.g. "claude"
	WindowName   string `yaml:"window_name"`   // canonical window name for assistant windows
	ContinueArgs string `yaml:"continue_args"` // launch args for "continue previous conversation"

	// Routing settings
	CaptureLines int    `yaml:"capture_lines"` // rendered rows inspected per probe
	PasteRetries int    `yaml:"paste_retries"` // bounded paste attempts
	RetryDelay   string `yaml:"retry_delay"`   // Go duration string, base of the linear backoff
	StartupDelay string `yaml:"startup_delay"` // wait after provisioning a new window
	GraceDelay   string `yaml:"grace_delay"`   // extra wait before delivering to a new instance
	AutoFocus    bool   `yaml:"auto_focus"`    // switch to the target pane after delivery
	Remember     bool   `yaml:"remember"`      // persist root→pane bindings
	BindingPath  string `yaml:"binding_path"`  // binding file override (default: user cache dir)

	// Summary LLM settings (empty provider disables summaries)
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	MaxTokens      int64  `yaml:"max_tokens"`
	SummaryTimeout string `yaml:"summary_timeout"` // Go duration string, hard cap per call

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	RetryDelayDuration     time.Duration `yaml:"-"`
	StartupDelayDuration   time.Duration `yaml:"-"`
	GraceDelayDuration     time.Duration `yaml:"-"`
	SummaryTimeoutDuration time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Launcher:       "claude",
		WindowName:     "claude",
		ContinueArgs:   "--continue",
		CaptureLines:   40,
		PasteRetries:   3,
		RetryDelay:     "250ms",
		StartupDelay:   "1s",
		GraceDelay:     "2s",
		AutoFocus:      true,
		Remember:       true,
		Model:          "claude-haiku-4-5",
		MaxTokens:      256,
		SummaryTimeout: "5s",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	// Try to load config file
	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	// Environment variables override everything
	mergeEnv(cfg)

	// Parse durations
	for _, d := range []struct {
		name     string
		raw      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"retry_delay", cfg.RetryDelay, 250 * time.Millisecond, &cfg.RetryDelayDuration},
		{"startup_delay", cfg.StartupDelay, time.Second, &cfg.StartupDelayDuration},
		{"grace_delay", cfg.GraceDelay, 2 * time.Second, &cfg.GraceDelayDuration},
		{"summary_timeout", cfg.SummaryTimeout, 5 * time.Second, &cfg.SummaryTimeoutDuration},
	} {
		parsed, err := parseDurationOrDisable(d.raw, d.fallback)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = parsed
	}

	return cfg, nil
}

// LaunchArgs returns the launcher arguments for one invocation.
// continuePrevious selects the configured continuation args.
func (c *Config) LaunchArgs(continuePrevious bool) []string {
	if !continuePrevious || c.ContinueArgs == "" {
		return nil
	}
	return strings.Fields(c.ContinueArgs)
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".pane-relay.yaml"); err == nil {
		return ".pane-relay.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "pane-relay", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Launcher != "" {
		cfg.Launcher = file.Launcher
	}
	if file.WindowName != "" {
		cfg.WindowName = file.WindowName
	}
	if file.ContinueArgs != "" {
		cfg.ContinueArgs = file.ContinueArgs
	}
	if file.CaptureLines > 0 {
		cfg.CaptureLines = file.CaptureLines
	}
	if file.PasteRetries > 0 {
		cfg.PasteRetries = file.PasteRetries
	}
	if file.RetryDelay != "" {
		cfg.RetryDelay = file.RetryDelay
	}
	if file.StartupDelay != "" {
		cfg.StartupDelay = file.StartupDelay
	}
	if file.GraceDelay != "" {
		cfg.GraceDelay = file.GraceDelay
	}
	if file.BindingPath != "" {
		cfg.BindingPath = file.BindingPath
	}
	if file.Provider != "" {
		cfg.Provider = file.Provider
	}
	if file.Model != "" {
		cfg.Model = file.Model
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.APIKey != "" {
		cfg.APIKey = file.APIKey
	}
	if file.MaxTokens > 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.SummaryTimeout != "" {
		cfg.SummaryTimeout = file.SummaryTimeout
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("PANE_RELAY_LAUNCHER"); v != "" {
		cfg.Launcher = v
	}
	if v := os.Getenv("PANE_RELAY_WINDOW_NAME"); v != "" {
		cfg.WindowName = v
	}
	if v := os.Getenv("PANE_RELAY_CONTINUE_ARGS"); v != "" {
		cfg.ContinueArgs = v
	}
	if v := os.Getenv("PANE_RELAY_RETRY_DELAY"); v != "" {
		cfg.RetryDelay = v
	}
	if v := os.Getenv("PANE_RELAY_STARTUP_DELAY"); v != "" {
		cfg.StartupDelay = v
	}
	if v := os.Getenv("PANE_RELAY_GRACE_DELAY"); v != "" {
		cfg.GraceDelay = v
	}
	if v := os.Getenv("PANE_RELAY_AUTO_FOCUS"); v == "false" || v == "0" {
		cfg.AutoFocus = false
	}
	if v := os.Getenv("PANE_RELAY_REMEMBER"); v == "false" || v == "0" {
		cfg.Remember = false
	}
	if v := os.Getenv("PANE_RELAY_BINDING_PATH"); v != "" {
		cfg.BindingPath = v
	}
	if v := os.Getenv("PANE_RELAY_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("PANE_RELAY_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("PANE_RELAY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("PANE_RELAY_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("PANE_RELAY_SUMMARY_TIMEOUT"); v != "" {
		cfg.SummaryTimeout = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}

	// API key fallbacks
	if cfg.APIKey == "" {
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}
	if cfg.APIKey == "" {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.APIKey = v
		}
	}
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
