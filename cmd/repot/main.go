package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/repot-ai/internal/config"
	"github.com/thywilljoshua/repot-ai/internal/logging"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	provider   string
	model      string
}

func main() {
	var g globalFlags
	root := &cobra.Command{
		Use:           "repot",
		Short:         "Fill document templates from source PDFs with an AI model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: text|json (overrides config)")
	root.PersistentFlags().StringVar(&g.provider, "ai", "", "AI provider: off|gemini|openai|anthropic (overrides config)")
	root.PersistentFlags().StringVar(&g.model, "model", "", "model name (overrides config)")

	root.AddCommand(serveCmd(&g))
	root.AddCommand(fillCmd(&g))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load resolves the configuration: file, then environment, then flags.
func (g *globalFlags) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	lookup := os.LookupEnv
	if g.provider != "" {
		cfg.AI.Provider = g.provider
		lookup = func(k string) (string, bool) {
			if k == "REPOT_AI_PROVIDER" {
				return "", false
			}
			return os.LookupEnv(k)
		}
	}
	config.ApplyEnv(cfg, lookup)
	if g.model != "" {
		cfg.AI.Model = g.model
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
