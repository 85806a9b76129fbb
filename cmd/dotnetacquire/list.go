package main

import (
	"github.com/spf13/cobra"

	"github.com/terassyi/dotnetacquire/internal/enumerate"
	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/model"
)

var listCfg struct {
	mode         string
	architecture string
	hostPath     string
	noColor      bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed SDKs and runtimes under a dotnet host",
	Long: `list enumerates the SDKs and runtimes visible to a dotnet host
directory, defaulting to the tool-owned install root.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listCfg.mode, "mode", "sdk", "Install mode to enumerate (sdk, runtime, aspnetcore)")
	listCmd.Flags().StringVar(&listCfg.architecture, "architecture", "", "Architecture hint for hosts that do not self-report one")
	listCmd.Flags().StringVar(&listCfg.hostPath, "host-path", "", "dotnet host root to enumerate; default is the tool-owned install root")
	listCmd.Flags().BoolVar(&listCfg.noColor, "no-color", false, "Disable colored error output")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, paths, err := newCoordinator(cfg)
	if err != nil {
		return err
	}

	hostPath := listCfg.hostPath
	if hostPath == "" {
		hostPath = paths.InstallRoot()
	}

	records, err := enumerate.List(cmd.Context(), hostPath, model.Mode(listCfg.mode), parseArchitecture(listCfg.architecture))
	if err != nil {
		formatter := errs.NewFormatter(cmd.ErrOrStderr(), listCfg.noColor)
		cmd.PrintErr(formatter.Format(err))
		return err
	}

	for _, record := range records {
		cmd.Printf("%s\t%s\t%s\t%s\n", record.Version, record.Mode, record.Architecture, record.Directory)
	}
	return nil
}
