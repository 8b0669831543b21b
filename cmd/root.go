package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revu/internal/config"
	"github.com/joescharf/revu/internal/output"
	"github.com/joescharf/revu/internal/service"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui     *output.UI
	logger *slog.Logger

	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "revu",
	Short: "Concurrent automated code review",
	Long: `revu reviews pull requests and local files by running security,
quality, coverage, AI and documentation analysis in parallel, then routes
the change to auto-approve, documentation review, human review or
critical escalation.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the full review record as JSON")
	rootCmd.PersistentFlags().Bool("offline", false, "Use the deterministic offline reviewer instead of the Anthropic API")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/revu/config.yaml)")
	_ = viper.BindPFlag("review.offline", rootCmd.PersistentFlags().Lookup("offline"))
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	logger = newLogger(viper.GetString("log.level"), verbose)
	slog.SetDefault(logger)
}

// newLogger builds the stderr text logger. verbose forces debug.
func newLogger(level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadConfig resolves and validates configuration for mode.
func loadConfig(mode config.Mode) (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(mode); err != nil {
		return config.Config{}, fmt.Errorf("%w (see 'revu config show')", err)
	}
	return cfg, nil
}

// newService loads configuration for mode and builds the review service.
func newService(ctx context.Context, mode config.Mode) (*service.Service, func() error, error) {
	cfg, err := loadConfig(mode)
	if err != nil {
		return nil, nil, err
	}
	return service.FromConfig(ctx, cfg, logger)
}
