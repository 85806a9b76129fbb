package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/terassyi/dotnetacquire/internal/config"
)

// logLevelFlag implements pflag.Value for slog.Level.
type logLevelFlag struct {
	level slog.Level
}

func (f *logLevelFlag) String() string { return strings.ToLower(f.level.String()) }
func (f *logLevelFlag) Type() string   { return "string" }
func (f *logLevelFlag) Set(s string) error {
	switch strings.ToLower(s) {
	case "debug":
		f.level = slog.LevelDebug
	case "info":
		f.level = slog.LevelInfo
	case "warn":
		f.level = slog.LevelWarn
	case "error":
		f.level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
	return nil
}

func (f *logLevelFlag) Level() slog.Level { return f.level }

var (
	globalLogLevel = &logLevelFlag{level: slog.LevelWarn}
	configDirFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "dotnetacquire",
	Short: "Acquires and tracks .NET SDKs and runtimes",
	Long: `dotnetacquire resolves loose .NET version specs to a concrete
SDK or runtime install, downloading and tracking it under a tool-owned
directory, or validating an existing host against a requirement.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: globalLogLevel.Level()})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Var(globalLogLevel, "log-level", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", config.DefaultConfigDir, "Configuration directory")
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		acquireCmd,
		findCmd,
		listCmd,
		uninstallCmd,
		uninstallAllCmd,
	)
}

func loadConfig() (*config.Config, error) {
	dir, err := expandConfigDir()
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(dir)
}

func expandConfigDir() (string, error) {
	if strings.HasPrefix(configDirFlag, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home + strings.TrimPrefix(configDirFlag, "~"), nil
	}
	return configDirFlag, nil
}
