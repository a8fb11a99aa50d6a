package version

import (
	"fmt"
	"runtime"
	"time"

	"github.com/flarebyte/codepen-export/cli"
	"github.com/flarebyte/codepen-export/internal/buildinfo"
	"github.com/spf13/cobra"
)

var (
	flagShort bool
	flagJSON  bool
)

// Cmd prints build information. The host never calls it.
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print the plugin version",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if flagShort || !flagJSON {
			_, err := fmt.Fprintf(out, "codepen-export %s\n", buildinfo.Summary())
			return err
		}

		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "codepen-export version: %s\n", buildinfo.Summary())
		info := map[string]any{
			"version":        buildinfo.Version,
			"script_version": buildinfo.CurrentScriptVersion(),
			"plugin_id":      buildinfo.PluginID,
			"commit":         buildinfo.Commit,
			"date":           buildinfo.Date,
			"date_display":   cli.NiceDate(),
			"built_by":       buildinfo.BuiltBy,
			"go":             runtime.Version(),
			"go_os":          runtime.GOOS,
			"go_arch":        runtime.GOARCH,
			"timestamp":      time.Now().UTC().Format(time.RFC3339Nano),
		}
		return encodeJSON(out, info)
	},
}

func init() {
	Cmd.Flags().BoolVar(&flagShort, "short", false, "Print only the version string")
	Cmd.Flags().BoolVar(&flagJSON, "json", false, "Print detailed JSON version info")
}
