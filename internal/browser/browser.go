// Package browser opens a local file in the user's default browser without
// waiting for it.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Launcher opens target in a browser. Implementations must not block on the
// browser process.
type Launcher interface {
	Open(target string) error
}

// CommandFunc builds the launch command for a target.
type CommandFunc func(target string) (*exec.Cmd, error)

// System launches through the platform opener.
type System struct {
	// Command overrides the platform opener; nil uses DefaultCommand.
	Command CommandFunc
}

// DefaultCommand returns the opener for the current platform.
func DefaultCommand(target string) (*exec.Cmd, error) {
	return commandFor(runtime.GOOS, target)
}

func commandFor(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "windows":
		// Empty quoted title; the path must be the last argument.
		return exec.Command("cmd", "/c", "start", `""`, target), nil
	case "darwin":
		return exec.Command("/usr/bin/open", target), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// Open starts the opener and releases it. The child keeps running after the
// plugin exits.
func (s System) Open(target string) error {
	build := s.Command
	if build == nil {
		build = DefaultCommand
	}
	cmd, err := build(target)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", cmd.Path, err)
	}
	return cmd.Process.Release()
}

// Recorder remembers targets instead of opening them.
type Recorder struct {
	Targets []string
	Err     error
}

// Open implements Launcher.
func (r *Recorder) Open(target string) error {
	r.Targets = append(r.Targets, target)
	return r.Err
}
