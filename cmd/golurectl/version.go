package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

var (
	BuildName = "golurectl"
	BuildTag  string
	// BuildCommit is the vcs revision, filled from the build info when empty.
	BuildCommit string
)

var versionCmd = &cobra.Command{
	Use:          "version",
	Long:         "Print actual version",
	Short:        "actual version",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), version())
		return err
	},
}

func init() {
	if info, available := debug.ReadBuildInfo(); available {
		if BuildTag == "" {
			BuildTag = info.Main.Version
		}

		if BuildCommit == "" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
					BuildCommit = setting.Value[:7]
				}
			}
		}
	}

	rootCmd.AddCommand(versionCmd)
}

func version() string {
	tag := strings.TrimPrefix(BuildTag, "v")
	if BuildCommit != "" {
		tag += " (" + BuildCommit + ")"
	}

	return fmt.Sprintf("%s version %s %s %s/%s", BuildName, tag, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
