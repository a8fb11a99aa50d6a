// Package plugin maps host operations to handlers and applies each
// operation's error policy.
package plugin

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/flarebyte/codepen-export/internal/browser"
	"github.com/flarebyte/codepen-export/internal/config"
	"github.com/flarebyte/codepen-export/internal/log"
	"github.com/flarebyte/codepen-export/internal/prefs"
)

// Policy decides what happens when a handler fails.
type Policy int

const (
	// Propagate aborts the invocation; no result is written.
	Propagate Policy = iota
	// Swallow logs the failure at debug level and reports nothing.
	Swallow
)

func (p Policy) String() string {
	if p == Swallow {
		return "swallow"
	}
	return "propagate"
}

// Result is a handler's return channel. Emit=false means the host gets no
// result line at all.
type Result struct {
	Value any
	Emit  bool
}

// Value wraps v as an emitted result.
func Value(v any) Result { return Result{Value: v, Emit: true} }

// Nothing is the silent result.
var Nothing = Result{}

// Deps carries the collaborators handlers may use.
type Deps struct {
	Config   config.Plugin
	Log      *log.Logger
	Store    prefs.Store
	HTTP     *http.Client
	Launcher browser.Launcher
	Now      func() time.Time
}

// Handler executes one operation.
type Handler func(ctx context.Context, req Request, deps Deps) (Result, error)

// Operation binds a handler to its error policy.
type Operation struct {
	Handler Handler
	Policy  Policy
}

var registry = map[string]Operation{}

// Register adds an operation.
func Register(name string, op Operation) {
	registry[name] = op
}

// Lookup returns a registered operation.
func Lookup(name string) (Operation, bool) {
	op, ok := registry[name]
	return op, ok
}

// Names lists registered operations in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Run executes a registered operation by name and applies its policy.
func Run(ctx context.Context, name string, req Request, deps Deps) (Result, error) {
	op, ok := registry[name]
	if !ok {
		return Result{}, ErrUnknown{name: name}
	}
	if deps.Log == nil {
		deps.Log = log.Nop()
	}
	res, err := op.Handler(ctx, req, deps)
	if err == nil {
		return res, nil
	}
	if op.Policy == Swallow {
		deps.Log.Debug("operation failed; ignoring", map[string]any{"operation": name, "error": err.Error()})
		return Nothing, nil
	}
	return Result{}, err
}

// ErrUnknown is returned when an operation is not registered.
type ErrUnknown struct{ name string }

func (e ErrUnknown) Error() string { return "unknown operation: " + e.name }
