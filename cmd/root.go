package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caveatlab/delegraph/internal/config"
	"caveatlab/delegraph/internal/logger"
	"caveatlab/delegraph/internal/scenario"
	"caveatlab/delegraph/internal/session"
)

var (
	scenarioPath string
	chainID      int64
	logLevel     string
	logFormat    string

	cfg config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "delegraph",
	Short:         "Delegation graph builder and redemption simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("chain") {
			loaded.ChainID = chainID
		}
		if flags.Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			loaded.LogFormat = logFormat
		}
		if !config.Known(loaded.ChainID) {
			fmt.Fprintf(os.Stderr, "warning: unknown chain id %d, using Base Sepolia\n", loaded.ChainID)
		}

		l, err := logger.New(loaded.LogLevel, loaded.LogFormat)
		if err != nil {
			return err
		}
		cfg, log = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "Path to a scenario file (.hcl or .json)")
	rootCmd.PersistentFlags().Int64Var(&chainID, "chain", config.BaseSepoliaChainID, "Chain id for enforcer addresses (8453 or 84532)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format (console or json)")
}

// DiscoverScenario finds the scenario file using priority: env > flag > walk-up.
// An empty path with a nil error means the built-in samples.
func DiscoverScenario() (string, error) {
	// 1. Environment variable
	if cfg.Scenario != "" {
		if _, err := os.Stat(cfg.Scenario); err == nil {
			return cfg.Scenario, nil
		}
	}

	// 2. CLI flag
	if scenarioPath != "" {
		if _, err := os.Stat(scenarioPath); err == nil {
			return scenarioPath, nil
		}
		return "", fmt.Errorf("scenario not found at --scenario path: %s", scenarioPath)
	}

	// 3. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, scenario.DefaultFile)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 4. Built-in samples
	return "", nil
}

// OpenSession discovers the scenario and opens a session on it
func OpenSession() (*session.Session, error) {
	path, err := DiscoverScenario()
	if err != nil {
		return nil, err
	}
	return session.Open(session.Options{
		Chain:    cfg.Chain(),
		Scenario: path,
		Now:      time.Now(),
		Logger:   log,
	})
}
