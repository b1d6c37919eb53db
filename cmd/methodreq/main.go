package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"methodreq/internal/config"
	"methodreq/internal/logging"
)

// Version is set by the build.
var Version = "0.2.0"

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "methodreq",
	Short: "methodreq - required-method contract checker for Go",
	Long: `methodreq validates that types annotated with a //methodreq:require
directive declare a method (or package-level function) matching the declared
signature: name, parameter types, return types and failure types.

Mismatches are reported as compiler-style errors attached to the offending
declaration, and the process exits non-zero, so the check slots into any
build or CI pipeline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the methodreq version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("methodreq %s\n", Version)
	},
}

// loadConfig loads the workspace config and brings up file logging.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultFile
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	ws := workspace
	if ws == "" {
		ws, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}

	if err := logging.Initialize(ws, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
	}); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}

	return cfg, nil
}

// scanRoots defaults to the current directory when no paths are given.
func scanRoots(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose console logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to .methodreq.yaml")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", "", "workspace root (default: current directory)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
