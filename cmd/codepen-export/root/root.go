package root

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/flarebyte/codepen-export/cmd/codepen-export/diagnose"
	"github.com/flarebyte/codepen-export/cmd/codepen-export/version"
	"github.com/flarebyte/codepen-export/internal/browser"
	"github.com/flarebyte/codepen-export/internal/buildinfo"
	"github.com/flarebyte/codepen-export/internal/config"
	"github.com/flarebyte/codepen-export/internal/log"
	"github.com/flarebyte/codepen-export/internal/plugin"
	"github.com/flarebyte/codepen-export/internal/prefs"
	"github.com/flarebyte/codepen-export/internal/result"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

// Env holds the process-level collaborators. Zero fields fall back to the
// real environment.
type Env struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Getenv   func(string) string
	Store    prefs.Store
	HTTP     *http.Client
	Launcher browser.Launcher
	Now      func() time.Time
	// PluginDir overrides the per-plugin config/preferences directory.
	PluginDir string
}

type rootFlags struct {
	req        plugin.Request
	configPath string
	verbose    bool
}

// NewRootCmd creates the root command. The host drives it with flags only;
// exactly one operation runs per invocation.
func NewRootCmd(env Env) *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "codepen-export",
		Short: "Export plugin that opens an HTML5 export as a new CodePen",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fl := cmd.Flags()
			f.req.HasReplaceURL = fl.Changed("replace_url")
			f.req.HasPreload = fl.Changed("should_preload")
			f.req.HasModifyStagingPath = fl.Changed("modify_staging_path")
			name := f.req.OperationName()
			if name == "" {
				return cmd.Help()
			}
			return runOperation(cmd.Context(), name, f, env)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{
			UnknownFlags: true,
		},
	}
	if env.Stdout != nil {
		cmd.SetOut(env.Stdout)
	}
	if env.Stderr != nil {
		cmd.SetErr(env.Stderr)
	}

	fl := cmd.Flags()
	fl.StringVar(&f.req.HypeVersion, "hype_version", "", "Host marketing version")
	fl.StringVar(&f.req.HypeBuild, "hype_build", "", "Host build number")
	fl.StringVar(&f.req.ExportUID, "export_uid", "", "Identifier shared by all calls of one export")

	fl.BoolVar(&f.req.GetOptions, "get_options", false, "Print export capabilities")

	fl.StringVar(&f.req.ReplaceURL, "replace_url", "", "URL the host is about to write")
	fl.StringVar(&f.req.URLType, "url_type", "", "Kind of URL (0-4)")
	fl.StringVar(&f.req.IsReference, "is_reference", "False", "Whether the URL is a reference (True|False)")
	fl.StringVar(&f.req.ShouldPreload, "should_preload", "", "Host preload hint (True|False)")

	fl.StringVar(&f.req.ModifyStagingPath, "modify_staging_path", "", "Directory holding the staged export")
	fl.StringVar(&f.req.DestinationPath, "destination_path", "", "Final path of the exported file")
	fl.StringVar(&f.req.ExportInfoJSONPath, "export_info_json_path", "", "JSON file describing the export")
	fl.StringVar(&f.req.IsPreview, "is_preview", "False", "Whether this is a preview (True|False)")

	fl.BoolVar(&f.req.CheckForUpdates, "check_for_updates", false, "Report a newer plugin version if one exists")

	fl.StringVar(&f.configPath, "config", "", "Path to plugin config (.cue)")
	fl.BoolVar(&f.verbose, "verbose", false, "Log debug diagnostics to stderr")

	cmd.AddCommand(version.Cmd)
	cmd.AddCommand(diagnose.NewCmd(diagnose.Options{
		Getenv:    env.Getenv,
		PluginDir: env.PluginDir,
		Store:     env.Store,
		Now:       env.Now,
	}))
	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	return ExecuteWith(context.Background(), args, Env{})
}

// ExecuteWith runs the root command against a custom environment.
func ExecuteWith(ctx context.Context, args []string, env Env) error {
	cmd := NewRootCmd(env)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func runOperation(ctx context.Context, name string, f rootFlags, env Env) error {
	stdout := env.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := env.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	getenv := env.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	pluginDir := env.PluginDir
	if pluginDir == "" {
		if d, err := prefs.DefaultDir(buildinfo.PluginID); err == nil {
			pluginDir = d
		}
	}
	uid := f.req.ExportUID
	if uid == "" {
		uid = uuid.NewString()
	}

	cfg, cfgErr := config.Load(config.ResolvePath(f.configPath, getenv, pluginDir))
	level := log.ParseLevel(cfg.Log.Level)
	if f.verbose {
		level = zapcore.DebugLevel
	}
	logger := log.NewLoggerWithWriter(log.Context{ExportUID: uid, Operation: name}, level, stderr)
	defer logger.Sync()

	if cfgErr != nil {
		if op, ok := plugin.Lookup(name); ok && op.Policy == plugin.Swallow {
			logger.Debug("config failed; skipping", map[string]any{"error": cfgErr.Error()})
			return nil
		}
		return cfgErr
	}
	logger.Sugar().Debugf("host %s (build %s), config %q", f.req.HypeVersion, f.req.HypeBuild, cfg.Source)

	deps := plugin.Deps{
		Config:   cfg,
		Log:      logger,
		Store:    env.Store,
		HTTP:     env.HTTP,
		Launcher: env.Launcher,
		Now:      env.Now,
	}
	if deps.Store == nil && pluginDir != "" {
		deps.Store = prefs.NewFileStore(pluginDir, buildinfo.PluginID)
	}
	if deps.Launcher == nil {
		deps.Launcher = browser.System{}
	}

	res, err := plugin.Run(ctx, name, f.req, deps)
	if err != nil {
		return err
	}
	if !res.Emit {
		return nil
	}
	return result.Write(stdout, res.Value)
}
