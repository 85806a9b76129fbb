package main

import (
	"github.com/spf13/cobra"

	"github.com/terassyi/dotnetacquire/internal/acquire"
	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/model"
)

var uninstallCfg struct {
	mode         string
	architecture string
	installType  string
	noColor      bool
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <version>",
	Short: "Remove a tool-installed SDK or runtime",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

var uninstallAllCmd = &cobra.Command{
	Use:   "uninstall-all",
	Short: "Remove every tool-installed SDK and runtime and reset tracking state",
	Args:  cobra.NoArgs,
	RunE:  runUninstallAll,
}

func init() {
	uninstallCmd.Flags().StringVar(&uninstallCfg.mode, "mode", "sdk", "Install mode (sdk, runtime, aspnetcore)")
	uninstallCmd.Flags().StringVar(&uninstallCfg.architecture, "architecture", "", "Target architecture (x86, x64, arm64); default is the process architecture")
	uninstallCmd.Flags().StringVar(&uninstallCfg.installType, "install-type", "local", "Install type (local, global)")
	uninstallCmd.Flags().BoolVar(&uninstallCfg.noColor, "no-color", false, "Disable colored error output")

	uninstallAllCmd.Flags().BoolVar(&uninstallCfg.noColor, "no-color", false, "Disable colored error output")
}

func runUninstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord, _, err := newCoordinator(cfg)
	if err != nil {
		return err
	}

	req := acquire.UninstallRequest{
		Version:      args[0],
		Mode:         model.Mode(uninstallCfg.mode),
		Architecture: parseArchitecture(uninstallCfg.architecture),
		InstallType:  model.InstallType(uninstallCfg.installType),
	}

	if err := coord.Uninstall(cmd.Context(), req); err != nil {
		formatter := errs.NewFormatter(cmd.ErrOrStderr(), uninstallCfg.noColor)
		cmd.PrintErr(formatter.Format(err))
		return err
	}
	return nil
}

func runUninstallAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord, _, err := newCoordinator(cfg)
	if err != nil {
		return err
	}

	if err := coord.UninstallAll(cmd.Context()); err != nil {
		formatter := errs.NewFormatter(cmd.ErrOrStderr(), uninstallCfg.noColor)
		cmd.PrintErr(formatter.Format(err))
		return err
	}
	return nil
}
