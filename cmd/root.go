package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/binding"
	"github.com/timvw/pane-relay/internal/choose"
	"github.com/timvw/pane-relay/internal/config"
	"github.com/timvw/pane-relay/internal/gitroot"
	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
	telem "github.com/timvw/pane-relay/internal/otel"
	"github.com/timvw/pane-relay/internal/route"
	"github.com/timvw/pane-relay/internal/summary"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

var (
	// Global flags.
	flagMux      string
	flagRoot     string
	flagProvider string
	flagModel    string
	flagBaseURL  string
	flagAPIKey   string
)

var rootCmd = &cobra.Command{
	Use:   "pane-relay",
	Short: "Route editor context to an AI assistant running in a multiplexer pane",
	Long: `pane-relay finds the AI-assistant instance that belongs to the current
repository among your terminal multiplexer panes and pastes a payload at
its prompt.

Discovery is heuristic: pane working directories, process trees, and
rendered prompt content are all inspected. When exactly one instance
matches it is remembered per repository; when several match you pick
one; when none match a fresh instance is launched in a new window.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", envOrDefault("PANE_RELAY_MUX", ""), "terminal multiplexer: tmux (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "repository root (default: derived from the working directory)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "summary LLM provider: anthropic, openai (default: from config; empty disables summaries)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "summary LLM model name")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "override summary LLM API base URL")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "override summary LLM API key")
}

// getMultiplexer returns the configured or auto-detected multiplexer.
func getMultiplexer() (mux.Multiplexer, error) {
	if flagMux != "" {
		return mux.FromName(flagMux)
	}
	return mux.Detect()
}

// loadConfig loads the layered configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	return cfg, nil
}

// repositoryRoot resolves the root for this invocation: the --root flag
// or a parent walk from the working directory.
func repositoryRoot() (string, error) {
	if flagRoot != "" {
		return flagRoot, nil
	}
	return gitroot.FindCwd()
}

// newRouter wires the full routing stack: multiplexer, binding store,
// chooser, optional summarizer, and telemetry-backed metrics.
func newRouter(ctx context.Context) (*route.Router, *telem.Telemetry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	m, err := getMultiplexer()
	if err != nil {
		return nil, nil, &route.Error{Reason: model.ReasonMuxUnavailable, Message: err.Error(), Err: err}
	}

	telem.Version = Version
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		return nil, nil, err
	}

	path := cfg.BindingPath
	if path == "" {
		if path, err = binding.DefaultPath(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: no binding path available: %v\n", err)
		}
	}

	r := route.New(m, binding.Open(path), choose.New(), cfg, tel.Metrics)
	r.Summarizer = newSummarizer(cfg)
	return r, tel, nil
}

// newSummarizer builds the optional chooser summarizer. Summaries are
// disabled without a provider or API key.
func newSummarizer(cfg *config.Config) summary.Summarizer {
	if cfg.Provider == "" || cfg.APIKey == "" {
		return nil
	}
	switch cfg.Provider {
	case "anthropic":
		return summary.NewAnthropicSummarizer(summary.AnthropicConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case "openai":
		return summary.NewOpenAISummarizer(summary.OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	default:
		fmt.Fprintf(os.Stderr, "warning: unknown summary provider %q, summaries disabled\n", cfg.Provider)
		return nil
	}
}

// reportErr converts a tagged routing error into a structured result on
// stdout; anything else propagates as a plain command error.
func reportErr(err error) error {
	var re *route.Error
	if errors.As(err, &re) {
		return printResult(model.Fail(re.Reason, re.Message))
	}
	return err
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
