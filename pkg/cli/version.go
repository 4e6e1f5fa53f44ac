package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// VersionOutput is the version command's JSON result.
type VersionOutput struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

// buildVersion combines the ldflags values with the module build info,
// which fills in whatever ldflags left at its default.
func buildVersion(info *debug.BuildInfo) VersionOutput {
	out := VersionOutput{
		Version: Version,
		Commit:  Commit,
		Date:    BuildDate,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if info == nil {
		return out
	}
	if out.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		out.Version = info.Main.Version
	}

	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "none" {
				out.Commit = s.Value
			}
		case "vcs.time":
			if out.Date == "unknown" {
				out.Date = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && !strings.HasSuffix(out.Commit, "-dirty") {
		out.Commit += "-dirty"
	}
	return out
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show xrmsoap version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, _ := debug.ReadBuildInfo()
		out := buildVersion(info)
		return printResult(cmd, out, func() {
			v := out.Version
			if v != "dev" && !strings.HasPrefix(v, "v") {
				v = "v" + v
			}
			fmt.Fprintf(cmd.OutOrStdout(), "xrmsoap %s\n  commit: %s\n  built:  %s\n  %s %s/%s\n",
				v, out.Commit, out.Date, out.Go, out.OS, out.Arch)
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
