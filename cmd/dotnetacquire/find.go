package main

import (
	"github.com/spf13/cobra"

	errs "github.com/terassyi/dotnetacquire/internal/errs"
	"github.com/terassyi/dotnetacquire/internal/model"
)

var findCfg struct {
	mode           string
	architecture   string
	requirement    string
	rejectPreviews bool
	noColor        bool
}

var findCmd = &cobra.Command{
	Use:   "find <version>",
	Short: "Find an already-installed or externally configured host satisfying a requirement",
	Long: `find checks tracked installs and any configured existing dotnet
hosts against a version requirement without downloading anything. It
exits non-zero if no host satisfies the requirement.`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringVar(&findCfg.mode, "mode", "sdk", "Install mode (sdk, runtime, aspnetcore)")
	findCmd.Flags().StringVar(&findCfg.architecture, "architecture", "", "Target architecture (x86, x64, arm64); default is the process architecture")
	findCmd.Flags().StringVar(&findCfg.requirement, "requirement", string(model.ReqEqual), "Version requirement (equal, greater_than_or_equal, less_than_or_equal, latest_patch)")
	findCmd.Flags().BoolVar(&findCfg.rejectPreviews, "reject-previews", false, "Reject preview/RC builds as a match")
	findCmd.Flags().BoolVar(&findCfg.noColor, "no-color", false, "Disable colored error output")
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	coord, _, err := newCoordinator(cfg)
	if err != nil {
		return err
	}

	requirement := model.Condition{
		Version:                args[0],
		Mode:                   model.Mode(findCfg.mode),
		Architecture:           parseArchitecture(findCfg.architecture),
		VersionSpecRequirement: model.VersionSpecRequirement(findCfg.requirement),
		RejectPreviews:         findCfg.rejectPreviews,
	}

	path, ok := coord.FindPath(cmd.Context(), requirement)
	if !ok {
		err := errs.New(errs.CategoryDiscovery, "no installed or configured host satisfies the requirement")
		formatter := errs.NewFormatter(cmd.ErrOrStderr(), findCfg.noColor)
		cmd.PrintErr(formatter.Format(err))
		return err
	}

	cmd.Println(path)
	return nil
}
