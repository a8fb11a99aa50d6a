package diagnose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/flarebyte/codepen-export/internal/buildinfo"
	"github.com/flarebyte/codepen-export/internal/config"
	"github.com/flarebyte/codepen-export/internal/luahook"
	"github.com/flarebyte/codepen-export/internal/staging"
)

func buildReport(ctx context.Context, f flags, opts Options) (Report, []byte, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cfg, err := config.Load(config.ResolvePath(f.config, getenv, opts.PluginDir))
	if err != nil {
		return Report{}, nil, err
	}
	pr, err := prefsReport(defaultStore(opts), cfg, now())
	if err != nil {
		return Report{}, nil, err
	}
	rep := Report{
		PluginID:    buildinfo.PluginID,
		Version:     buildinfo.Summary(),
		Config:      configReport(cfg),
		Preferences: pr,
	}
	if f.staging == "" {
		return rep, nil, nil
	}
	info := f.exportInfo
	if info == "" {
		info = filepath.Join(filepath.Dir(filepath.Clean(f.staging)), "export_info.json")
	}
	res, doc, err := staging.Render(ctx, staging.Options{
		StagingDir:     f.staging,
		Destination:    f.destination,
		ExportInfoPath: info,
		ScriptFragment: cfg.ScriptFragment,
		PrefillURL:     cfg.PrefillURL,
		Hook:           cfg.Payload.Inline,
		HookLimits: luahook.Limits{
			TimeoutMs:        cfg.Lua.TimeoutMs,
			InstructionLimit: cfg.Lua.InstructionLimit,
		},
	})
	if err != nil {
		return Report{}, nil, fmt.Errorf("diagnose staging: %w", err)
	}
	rep.Staging = &StagingReport{
		HTMLPath:    relativize(res.HTMLPath),
		ScriptPath:  relativize(res.ScriptPath),
		ScriptFound: res.ScriptPath != "",
		Title:       res.Payload.Title,
		HTMLBytes:   len(res.Payload.HTML),
		JSBytes:     len(res.Payload.JS),
		LoaderBytes: res.Size,
	}
	return rep, doc, nil
}

// writeLoader overwrites a regular file at path but never replaces a
// directory.
func writeLoader(path string, doc []byte) error {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return fmt.Errorf("dump loader: %s is a directory", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("dump loader: %w", err)
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return fmt.Errorf("dump loader: %w", err)
	}
	return nil
}

func printReport(w io.Writer, rep Report, pretty bool) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rep); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
