package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mavplan/internal/config"
	"mavplan/internal/llm_client"
	"mavplan/internal/logger"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mavplan",
	Short: "Plan drone missions from natural language",
	Long: `mavplan turns requests like "take off to 30 m and fly 2 miles north" into
MAVLink missions. An LLM proposes tool calls; the planner applies them under
the configured mission rules.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show tool calls and timings")

	rootCmd.AddCommand(chatCmd, planCmd, applyCmd, validateCmd, convertCmd, serveCmd, sessionsCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, source, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if source == "" {
		logger.Log.Printf("[CLI] no config file found, using defaults")
	} else {
		logger.Log.Printf("[CLI] loaded config from %s", source)
	}
	return cfg, nil
}

func newProvider(cfg config.Config) (llm_client.Provider, error) {
	p, err := llm_client.New(llm_client.FromModel(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("could not initialize LLM client: %w", err)
	}
	logger.Log.Printf("[CLI] LLM backend %s, model %s", p.Name(), p.AllowedModelOrDefault(cfg.Model.Name))
	return p, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
