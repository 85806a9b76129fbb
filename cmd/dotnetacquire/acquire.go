package main

import (
	"github.com/spf13/cobra"

	"github.com/terassyi/dotnetacquire/internal/download"
	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/model"
	"github.com/terassyi/dotnetacquire/internal/ui"
)

var acquireCfg struct {
	mode           string
	architecture   string
	installType    string
	extensionID    string
	timeoutSeconds int
	noColor        bool
}

var acquireCmd = &cobra.Command{
	Use:   "acquire <version>",
	Short: "Resolve and install a .NET SDK or runtime",
	Long: `Resolve a loose version spec ("8", "8.0", "8.0.1xx", "8.0.103")
against the cached release index, install it under the tool-owned
directory if not already present, and print the resulting dotnet host
path.`,
	Args: cobra.ExactArgs(1),
	RunE: runAcquire,
}

func init() {
	acquireCmd.Flags().StringVar(&acquireCfg.mode, "mode", "sdk", "Install mode (sdk, runtime, aspnetcore)")
	acquireCmd.Flags().StringVar(&acquireCfg.architecture, "architecture", "", "Target architecture (x86, x64, arm64); default is the process architecture")
	acquireCmd.Flags().StringVar(&acquireCfg.installType, "install-type", "local", "Install type (local, global)")
	acquireCmd.Flags().StringVar(&acquireCfg.extensionID, "requesting-id", "", "Identifier of the caller requesting this install")
	acquireCmd.Flags().IntVar(&acquireCfg.timeoutSeconds, "timeout-seconds", 0, "Hard ceiling on the install invocation; 0 uses the configured default")
	acquireCmd.Flags().BoolVar(&acquireCfg.noColor, "no-color", false, "Disable colored error output")
}

func runAcquire(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord, _, err := newCoordinator(cfg)
	if err != nil {
		return err
	}

	timeoutSeconds := acquireCfg.timeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = cfg.InstallTimeoutSeconds
	}

	req := model.AcquireRequest{
		Version:               args[0],
		RequestingExtensionID: acquireCfg.extensionID,
		Mode:                  model.Mode(acquireCfg.mode),
		InstallType:           model.InstallType(acquireCfg.installType),
		Architecture:          parseArchitecture(acquireCfg.architecture),
		TimeoutSeconds:        timeoutSeconds,
	}

	progress := ui.NewDownloadProgress(cmd.OutOrStdout(), args[0])
	ctx := download.WithCallback(cmd.Context(), progress.Callback)

	result, err := coord.Acquire(ctx, req)
	progress.Wait()
	if err != nil {
		formatter := errs.NewFormatter(cmd.ErrOrStderr(), acquireCfg.noColor)
		cmd.PrintErr(formatter.Format(err))
		return err
	}

	cmd.Println(result.DotnetPath)
	return nil
}

func parseArchitecture(raw string) model.Architecture {
	if raw == "" {
		return model.ArchUnknown
	}
	return model.ParseArchitecture(raw)
}
