package buildinfo

import (
	"strconv"
	"strings"

	"github.com/flarebyte/codepen-export/cli"
)

// Package buildinfo exposes version metadata for the plugin. Values can be
// overridden at build time via -ldflags. This package also honors values set in
// the cli package (cli.Version/cli.Date) for compatibility with external build scripts.

// PluginID namespaces everything the plugin persists on the host machine.
const PluginID = "com.tumult.Hype2.hype-export.CodePen"

var (
	// Version is the semantic version or custom string. Defaults to cli.Version or "dev".
	Version = "dev"
	// Commit is the VCS commit hash (optional).
	Commit = ""
	// Date is the build time in RFC3339 or similar (optional). Falls back to cli.Date.
	Date = ""
	// BuiltBy is an optional builder identifier (optional).
	BuiltBy = ""
	// ScriptVersion is the integer release number compared against the
	// published latest version by the update check. Set via ldflags as a string.
	ScriptVersion = "1"
)

// CurrentScriptVersion parses ScriptVersion, falling back to 1.
func CurrentScriptVersion() int {
	n, err := strconv.Atoi(strings.TrimSpace(ScriptVersion))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Summary returns a concise single-line version string.
func Summary() string {
	v := Version
	if v == "" {
		v = cli.Version
	}
	if v == "" {
		v = "dev"
	}

	d := Date
	if d == "" {
		d = cli.Date
	}

	parts := make([]string, 0, 3)
	parts = append(parts, "script="+strconv.Itoa(CurrentScriptVersion()))
	if Commit != "" {
		c := Commit
		if len(c) > 7 {
			c = c[:7]
		}
		parts = append(parts, "commit="+c)
	}
	if d != "" {
		parts = append(parts, "date="+d)
	}
	return v + " (" + strings.Join(parts, ", ") + ")"
}
