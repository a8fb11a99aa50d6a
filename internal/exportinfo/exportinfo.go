// Package exportinfo reads the JSON side-file the host writes before asking
// the plugin to finalize a staged export.
package exportinfo

import (
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// Action is one use of an extra action inside the exported document.
type Action struct {
	Function  string `json:"function"`
	Arguments []any  `json:"arguments,omitempty"`
}

// Info is the decoded side-file. Only HTMLFilename is required; the other
// fields are filled when they have the expected shape and left zero
// otherwise.
type Info struct {
	HTMLFilename        string         `json:"html_filename"`
	MainContainerWidth  float64        `json:"main_container_width,omitempty"`
	MainContainerHeight float64        `json:"main_container_height,omitempty"`
	DocumentArguments   map[string]any `json:"document_arguments,omitempty"`
	ExtraActions        []Action       `json:"extra_actions,omitempty"`
}

// Load reads and validates the side-file at path.
func Load(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read export info: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes data. name is only used in error positions.
func Parse(name string, data []byte) (Info, error) {
	expr, err := cuejson.Extract(name, data)
	if err != nil {
		return Info{}, fmt.Errorf("invalid export info: %v", err)
	}
	ctx := cuecontext.New()
	v := ctx.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return Info{}, fmt.Errorf("invalid export info: %v", err)
	}
	if v.Kind() != cue.StructKind {
		return Info{}, fmt.Errorf("invalid export info: expected a JSON object")
	}
	f := v.LookupPath(cue.ParsePath("html_filename"))
	if !f.Exists() {
		return Info{}, fmt.Errorf("missing required field: html_filename")
	}
	if f.Kind() != cue.StringKind {
		return Info{}, fmt.Errorf("invalid type for field: html_filename (expected string)")
	}

	var info Info
	if err := f.Decode(&info.HTMLFilename); err != nil {
		return Info{}, fmt.Errorf("invalid export info: %v", err)
	}
	if w, ok := lookup(v, "main_container_width").(float64); ok {
		info.MainContainerWidth = w
	}
	if h, ok := lookup(v, "main_container_height").(float64); ok {
		info.MainContainerHeight = h
	}
	if args, ok := lookup(v, "document_arguments").(map[string]any); ok {
		info.DocumentArguments = args
	}
	if list, ok := lookup(v, "extra_actions").([]any); ok {
		info.ExtraActions = actions(list)
	}
	return info, nil
}

// lookup returns the plain JSON value of a top-level field, or nil when the
// field is absent or not concrete.
func lookup(v cue.Value, field string) any {
	f := v.LookupPath(cue.MakePath(cue.Str(field)))
	if !f.Exists() {
		return nil
	}
	b, err := f.MarshalJSON()
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

// actions keeps the entries that name a function. Arguments are passed
// through with their JSON types.
func actions(list []any) []Action {
	var out []Action
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fn, ok := m["function"].(string)
		if !ok {
			continue
		}
		a := Action{Function: fn}
		if args, ok := m["arguments"].([]any); ok {
			a.Arguments = args
		}
		out = append(out, a)
	}
	return out
}
