// Package luahook runs an optional user script that can adjust the pen
// payload before it is encoded into the loader page.
//
// The script sees the globals title, html, js, destination and
// document_arguments. It either returns a table, where string values under
// title, html or js replace the originals, or assigns those globals directly.
// Returning nil keeps everything unchanged.
package luahook

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// Fields are the payload values a hook may replace.
type Fields struct {
	Title string
	HTML  string
	JS    string
}

// Input is everything a hook can read.
type Input struct {
	Fields
	Destination       string
	DocumentArguments map[string]any
}

// Apply runs code against in and returns the adjusted fields.
func Apply(ctx context.Context, code string, in Input, lim Limits) (Fields, error) {
	out := in.Fields
	if strings.TrimSpace(code) == "" {
		return out, nil
	}
	code, err := prepareChunk(code)
	if err != nil {
		return Fields{}, fmt.Errorf("payload hook: %w", err)
	}
	args := in.DocumentArguments
	if args == nil {
		args = map[string]any{}
	}
	ret, err := run(ctx, map[string]any{
		"title":              in.Title,
		"html":               in.HTML,
		"js":                 in.JS,
		"destination":        in.Destination,
		"document_arguments": args,
	}, code, lim)
	if err != nil {
		return Fields{}, fmt.Errorf("payload hook: %w", err)
	}
	if ret == nil {
		return out, nil
	}
	m, ok := ret.(map[string]any)
	if !ok {
		return Fields{}, fmt.Errorf("payload hook: expected a table with title, html or js, got %T", ret)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var dst *string
		switch k {
		case "title":
			dst = &out.Title
		case "html":
			dst = &out.HTML
		case "js":
			dst = &out.JS
		default:
			return Fields{}, fmt.Errorf("payload hook: unknown field %q", k)
		}
		s, ok := m[k].(string)
		if !ok {
			return Fields{}, fmt.Errorf("payload hook: field %q must be a string", k)
		}
		*dst = s
	}
	return out, nil
}

const chunkName = "payload hook"

// prepareChunk accepts three forms: a chunk ending in a return statement
// runs as is, a bare expression is returned, and plain statements return the
// title, html and js globals they may have assigned.
func prepareChunk(code string) (string, error) {
	stmts, err := parse.Parse(strings.NewReader(code), chunkName)
	if err != nil {
		expr := "return (" + code + "\n)"
		if _, exprErr := parse.Parse(strings.NewReader(expr), chunkName); exprErr == nil {
			return expr, nil
		}
		return "", err
	}
	if n := len(stmts); n > 0 {
		if _, ok := stmts[n-1].(*ast.ReturnStmt); ok {
			return code, nil
		}
	}
	return code + "\nreturn { title = title, html = html, js = js }", nil
}
