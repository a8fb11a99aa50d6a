package diagnose

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flarebyte/codepen-export/internal/buildinfo"
	"github.com/flarebyte/codepen-export/internal/config"
	"github.com/flarebyte/codepen-export/internal/prefs"
	"github.com/flarebyte/codepen-export/internal/update"
	"github.com/spf13/cobra"
)

// Options carries the collaborators the root command resolved.
type Options struct {
	Getenv    func(string) string
	PluginDir string
	Store     prefs.Store
	Now       func() time.Time
}

type flags struct {
	config      string
	staging     string
	exportInfo  string
	destination string
	dumpOut     string
	pretty      bool
}

// NewCmd implements `codepen-export diagnose`: it reports the resolved
// configuration, the update check state and, with --staging, a dry run of
// the staging transform. The host never calls it.
func NewCmd(opts Options) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "diagnose",
		Short:         "Report resolved settings and dry-run a staging directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.dumpOut != "" && f.staging == "" {
				return errors.New("--dump-out requires --staging")
			}
			rep, doc, err := buildReport(cmd.Context(), f, opts)
			if err != nil {
				return err
			}
			if f.dumpOut != "" {
				if err := writeLoader(f.dumpOut, doc); err != nil {
					return err
				}
			}
			return printReport(cmd.OutOrStdout(), rep, f.pretty)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "Path to plugin config (.cue)")
	fl.StringVar(&f.staging, "staging", "", "Staged export directory to dry-run")
	fl.StringVar(&f.exportInfo, "export-info", "", "Export info JSON (default <staging>/../export_info.json)")
	fl.StringVar(&f.destination, "destination", "index.html", "Destination name used for the pen title")
	fl.StringVar(&f.dumpOut, "dump-out", "", "Write the rendered loader page to this path")
	fl.BoolVar(&f.pretty, "pretty", false, "Pretty JSON")
	return cmd
}

// Report is the diagnose output.
type Report struct {
	PluginID    string         `json:"plugin_id"`
	Version     string         `json:"version"`
	Config      ConfigReport   `json:"config"`
	Preferences PrefsReport    `json:"preferences"`
	Staging     *StagingReport `json:"staging,omitempty"`
}

type ConfigReport struct {
	Source          string `json:"source"`
	PrefillURL      string `json:"prefill_url"`
	RuntimeCDN      string `json:"runtime_cdn"`
	MinHostBuild    string `json:"min_host_build"`
	ScriptFragment  string `json:"script_fragment"`
	Hook            bool   `json:"hook"`
	UpdateEnabled   bool   `json:"update_enabled"`
	VersionInfoURL  string `json:"version_info_url"`
	IntervalSeconds int64  `json:"interval_seconds"`
}

type PrefsReport struct {
	Path      string `json:"path,omitempty"`
	LastCheck string `json:"last_check_timestamp,omitempty"`
	CheckDue  bool   `json:"check_due"`
}

type StagingReport struct {
	HTMLPath    string `json:"html_path"`
	ScriptPath  string `json:"script_path,omitempty"`
	ScriptFound bool   `json:"script_found"`
	Title       string `json:"title"`
	HTMLBytes   int    `json:"html_bytes"`
	JSBytes     int    `json:"js_bytes"`
	LoaderBytes int    `json:"loader_bytes"`
}

func configReport(cfg config.Plugin) ConfigReport {
	src := cfg.Source
	if src == "" {
		src = "defaults"
	}
	return ConfigReport{
		Source:          relativize(src),
		PrefillURL:      cfg.PrefillURL,
		RuntimeCDN:      cfg.RuntimeCDN,
		MinHostBuild:    cfg.MinHostBuild,
		ScriptFragment:  cfg.ScriptFragment,
		Hook:            cfg.Payload.HasInline,
		UpdateEnabled:   cfg.Update.Enabled,
		VersionInfoURL:  cfg.Update.VersionInfoURL,
		IntervalSeconds: cfg.Update.IntervalSeconds,
	}
}

func prefsReport(store prefs.Store, cfg config.Plugin, now time.Time) (PrefsReport, error) {
	var r PrefsReport
	if store == nil {
		return r, nil
	}
	if fs, ok := store.(*prefs.FileStore); ok {
		r.Path = fs.Path()
	}
	last, ok, err := store.Get(update.TimestampKey)
	if err != nil {
		return r, fmt.Errorf("read preferences: %w", err)
	}
	r.LastCheck = last
	interval := time.Duration(cfg.Update.IntervalSeconds) * time.Second
	r.CheckDue = cfg.Update.Enabled && update.Due(last, ok, now, interval)
	return r, nil
}

func defaultStore(opts Options) prefs.Store {
	if opts.Store != nil {
		return opts.Store
	}
	dir := opts.PluginDir
	if dir == "" {
		d, err := prefs.DefaultDir(buildinfo.PluginID)
		if err != nil {
			return nil
		}
		dir = d
	}
	return prefs.NewFileStore(dir, buildinfo.PluginID)
}

// relativize converts an absolute path under the current working directory
// to a relative one for stable output; otherwise returns the input.
func relativize(p string) string {
	if p == "" || !filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(cwd, p)
	if err != nil || rel == "." || (len(rel) >= 2 && rel[:2] == "..") {
		return p
	}
	return filepath.ToSlash(rel)
}
