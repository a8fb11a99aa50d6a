package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cuelang.org/go/cue"
)

// EnvConfigPath names the environment variable that points at a plugin config.
const EnvConfigPath = "CODEPEN_EXPORT_CONFIG"

// DefaultFileName is looked up under the per-plugin config directory.
const DefaultFileName = "config.cue"

// Built-in endpoints and limits used when no config overrides them.
const (
	DefaultPrefillURL      = "https://codepen.io/pen/define"
	DefaultRuntimeCDN      = "https://cdn.jsdelivr.net/gh/tumult/hype-runtime"
	DefaultMinHostBuild    = "574"
	DefaultScriptFragment  = "generated_script.js"
	DefaultVersionInfoURL  = "https://static.tumult.com/hype/export-scripts/CodePen/latest_script_version.txt"
	DefaultDownloadURL     = "https://tumult.com/hype/export-scripts/CodePen/"
	DefaultUserAgent       = "codepen-export"
	DefaultIntervalSeconds = 60 * 60 * 24
	DefaultUpdateTimeoutMs = 10000
	DefaultLuaTimeoutMs    = 1000
	DefaultLuaInstructions = 0
	DefaultLogLevel        = "warn"
)

// Plugin holds the resolved plugin configuration.
type Plugin struct {
	ConfigVersion  string
	PrefillURL     string
	RuntimeCDN     string
	MinHostBuild   string
	ScriptFragment string
	Update         Update
	Payload        Payload
	Lua            LuaSandbox
	Log            Log
	// Source is the file the values came from; empty for built-in defaults.
	Source string
}

// Update holds update-check settings.
type Update struct {
	Enabled         bool
	VersionInfoURL  string
	DownloadURL     string
	UserAgent       string
	IntervalSeconds int64
	TimeoutMs       int
}

// Payload holds the optional Lua hook applied to the outgoing pen payload.
type Payload struct {
	Inline    string
	HasInline bool
}

// LuaSandbox bounds the payload hook.
type LuaSandbox struct {
	TimeoutMs int
	// InstructionLimit is checked against a static estimate before the hook
	// runs: one per statement, trip count times body for a numeric for with
	// literal bounds, and 1e6 for any other loop. Zero disables the check;
	// TimeoutMs is the runtime bound.
	InstructionLimit int
}

// Log holds logging settings.
type Log struct {
	Level string
}

// Defaults returns the built-in configuration.
func Defaults() Plugin {
	return Plugin{
		ConfigVersion:  CurrentConfigVersion,
		PrefillURL:     DefaultPrefillURL,
		RuntimeCDN:     DefaultRuntimeCDN,
		MinHostBuild:   DefaultMinHostBuild,
		ScriptFragment: DefaultScriptFragment,
		Update: Update{
			Enabled:         true,
			VersionInfoURL:  DefaultVersionInfoURL,
			DownloadURL:     DefaultDownloadURL,
			UserAgent:       DefaultUserAgent,
			IntervalSeconds: DefaultIntervalSeconds,
			TimeoutMs:       DefaultUpdateTimeoutMs,
		},
		Lua: LuaSandbox{
			TimeoutMs:        DefaultLuaTimeoutMs,
			InstructionLimit: DefaultLuaInstructions,
		},
		Log: Log{Level: DefaultLogLevel},
	}
}

// ResolvePath picks the config file for this invocation: the explicit flag,
// then the environment, then the per-plugin default file if it exists.
// An empty result means built-in defaults.
func ResolvePath(flagPath string, getenv func(string) string, pluginDir string) string {
	if flagPath != "" {
		return flagPath
	}
	if getenv != nil {
		if p := getenv(EnvConfigPath); p != "" {
			return p
		}
	}
	if pluginDir == "" {
		return ""
	}
	p := filepath.Join(pluginDir, DefaultFileName)
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		return p
	}
	return ""
}

// Load reads the CUE config at path and overlays it on Defaults.
// An empty path returns Defaults unchanged.
func Load(path string) (Plugin, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	v, err := compileCUE(path)
	if err != nil {
		return Plugin{}, err
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Plugin{}, err
	}
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&cfg.ConfigVersion); err != nil {
		return Plugin{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	if err := checkConfigVersion(cfg.ConfigVersion); err != nil {
		return Plugin{}, err
	}
	if err := applyTopLevel(v, &cfg); err != nil {
		return Plugin{}, err
	}
	if err := applyUpdate(v, &cfg.Update); err != nil {
		return Plugin{}, err
	}
	if err := applyPayloadAndLua(v, &cfg); err != nil {
		return Plugin{}, err
	}
	if _, err := optionalString(v, "log.level", &cfg.Log.Level); err != nil {
		return Plugin{}, err
	}
	cfg.Source = path
	return cfg, nil
}

func applyTopLevel(v cue.Value, cfg *Plugin) error {
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"prefillURL", &cfg.PrefillURL},
		{"runtimeCDN", &cfg.RuntimeCDN},
		{"minHostBuild", &cfg.MinHostBuild},
		{"scriptFragment", &cfg.ScriptFragment},
	} {
		if _, err := optionalString(v, f.name, f.dst); err != nil {
			return err
		}
	}
	if _, err := strconv.Atoi(cfg.MinHostBuild); err != nil {
		return fmt.Errorf("invalid value for minHostBuild: %q is not a build number", cfg.MinHostBuild)
	}
	if cfg.ScriptFragment == "" {
		return errors.New("invalid value for scriptFragment: must not be empty")
	}
	return nil
}

func applyUpdate(v cue.Value, u *Update) error {
	if _, err := optionalBool(v, "update.enabled", &u.Enabled); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"update.versionInfoURL", &u.VersionInfoURL},
		{"update.downloadURL", &u.DownloadURL},
		{"update.userAgent", &u.UserAgent},
	} {
		if _, err := optionalString(v, f.name, f.dst); err != nil {
			return err
		}
	}
	if u.UserAgent == "" {
		return errors.New("invalid value for update.userAgent: must not be empty")
	}
	var interval int
	ok, err := optionalInt(v, "update.intervalSeconds", &interval)
	if err != nil {
		return err
	}
	if ok {
		if interval < 0 {
			return errors.New("invalid value for update.intervalSeconds: must be >= 0")
		}
		u.IntervalSeconds = int64(interval)
	}
	if _, err := optionalInt(v, "update.timeoutMs", &u.TimeoutMs); err != nil {
		return err
	}
	return nil
}

func applyPayloadAndLua(v cue.Value, cfg *Plugin) error {
	ok, err := optionalString(v, "payload.inline", &cfg.Payload.Inline)
	if err != nil {
		return err
	}
	cfg.Payload.HasInline = ok && cfg.Payload.Inline != ""
	if _, err := optionalInt(v, "lua.timeoutMs", &cfg.Lua.TimeoutMs); err != nil {
		return err
	}
	if _, err := optionalInt(v, "lua.instructionLimit", &cfg.Lua.InstructionLimit); err != nil {
		return err
	}
	return nil
}
