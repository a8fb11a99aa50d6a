// Package staging turns a staged HTML export into a CodePen loader page.
//
// The host hands over a directory holding the exported markup and a generated
// script. Transform reads both, wraps them in a prefill payload, and writes a
// single self-submitting HTML page to the destination path.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/flarebyte/codepen-export/internal/exportinfo"
	"github.com/flarebyte/codepen-export/internal/luahook"
)

// ErrPreview is returned when the host asks for a preview transform.
// Previews must stay a plain directory the host can serve.
var ErrPreview = errors.New("preview export is not supported")

// ErrInvalidUTF8 is returned when a payload field is not valid UTF-8. JSON
// encoding would otherwise substitute U+FFFD and the pen would not match
// the export.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// Options configures one transform.
type Options struct {
	StagingDir     string
	Destination    string
	ExportInfoPath string
	Preview        bool

	ScriptFragment string
	PrefillURL     string

	// Hook is optional Lua run on the payload fields before encoding.
	Hook       string
	HookLimits luahook.Limits
}

// Result describes what was written.
type Result struct {
	Destination string
	HTMLPath    string
	// ScriptPath is empty when no generated script was found.
	ScriptPath string
	Payload    Payload
	Size       int
}

// Transform runs the staging steps. Any read, parse or write failure is
// returned as is; the destination is only guaranteed to exist on success.
func Transform(ctx context.Context, opts Options) (Result, error) {
	if opts.Preview {
		return Result{}, ErrPreview
	}
	if opts.Destination == "" {
		return Result{}, errors.New("destination path is required")
	}
	res, doc, err := Render(ctx, opts)
	if err != nil {
		return Result{}, err
	}
	if err := WriteDestination(opts.Destination, doc); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Render builds the loader page for opts without touching the destination.
func Render(ctx context.Context, opts Options) (Result, []byte, error) {
	if opts.StagingDir == "" || opts.ExportInfoPath == "" {
		return Result{}, nil, errors.New("staging dir and export info path are required")
	}

	info, err := exportinfo.Load(opts.ExportInfoPath)
	if err != nil {
		return Result{}, nil, err
	}

	htmlPath := filepath.Join(opts.StagingDir, info.HTMLFilename)
	html, err := os.ReadFile(htmlPath)
	if err != nil {
		return Result{}, nil, fmt.Errorf("read html: %w", err)
	}
	if !utf8.Valid(html) {
		return Result{}, nil, fmt.Errorf("read html: %w", ErrInvalidUTF8)
	}

	scriptPath, found, err := FindScript(opts.StagingDir, opts.ScriptFragment)
	if err != nil {
		return Result{}, nil, fmt.Errorf("scan staging dir: %w", err)
	}
	js := ""
	if found {
		b, err := os.ReadFile(scriptPath)
		if err != nil {
			return Result{}, nil, fmt.Errorf("read script: %w", err)
		}
		if !utf8.Valid(b) {
			return Result{}, nil, fmt.Errorf("read script: %w", ErrInvalidUTF8)
		}
		js = string(b)
	}

	fields := luahook.Fields{Title: filepath.Base(opts.Destination), HTML: string(html), JS: js}
	if opts.Hook != "" {
		fields, err = luahook.Apply(ctx, opts.Hook, luahook.Input{
			Fields:            fields,
			Destination:       opts.Destination,
			DocumentArguments: info.DocumentArguments,
		}, opts.HookLimits)
		if err != nil {
			return Result{}, nil, err
		}
	}
	for _, f := range []struct{ name, value string }{
		{"title", fields.Title},
		{"html", fields.HTML},
		{"js", fields.JS},
	} {
		if !utf8.ValidString(f.value) {
			return Result{}, nil, fmt.Errorf("payload %s: %w", f.name, ErrInvalidUTF8)
		}
	}
	payload := NewPayload(fields.Title, fields.HTML, fields.JS)

	encoded, err := EncodeForScript(payload)
	if err != nil {
		return Result{}, nil, fmt.Errorf("encode payload: %w", err)
	}
	doc, err := RenderLoader(encoded, opts.PrefillURL)
	if err != nil {
		return Result{}, nil, fmt.Errorf("render loader: %w", err)
	}
	return Result{
		Destination: opts.Destination,
		HTMLPath:    htmlPath,
		ScriptPath:  scriptPath,
		Payload:     payload,
		Size:        len(doc),
	}, []byte(doc), nil
}

// FindScript walks root in lexical order and returns the last regular file
// whose name contains fragment.
func FindScript(root, fragment string) (string, bool, error) {
	if fragment == "" {
		return "", false, errors.New("script fragment must not be empty")
	}
	var last string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.Contains(d.Name(), fragment) {
			last = p
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return last, last != "", nil
}

// WriteDestination removes whatever is at path, file or directory, and writes
// data as a fresh file. A kill between the two steps leaves path absent.
func WriteDestination(path string, data []byte) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove destination: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create destination dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write destination: %w", err)
	}
	return nil
}
