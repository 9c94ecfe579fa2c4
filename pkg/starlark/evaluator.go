package starlark

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/neurodesk/pmd/pkg/pmd"
	"go.starlark.net/starlark"
)

// Evaluator runs Starlark scripts that compute render contexts.
type Evaluator struct {
	thread   *starlark.Thread
	builtins starlark.StringDict
	globals  starlark.StringDict
}

type Option func(*options)

type options struct {
	logger *slog.Logger
	getenv func(string) (string, bool)
}

// WithLogger sets the logger that print writes to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEnv replaces the environment lookup behind the env builtin.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(o *options) { o.getenv = lookup }
}

// NewEvaluator creates a new Starlark evaluator
func NewEvaluator(opts ...Option) *Evaluator {
	o := options{logger: slog.Default(), getenv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}
	thread := &starlark.Thread{Name: "pmd"}
	return &Evaluator{
		thread:   thread,
		builtins: CreateBuiltins(o.logger, o.getenv),
		globals:  make(starlark.StringDict),
	}
}

// SetGlobal sets a global variable in the Starlark environment
func (e *Evaluator) SetGlobal(name string, value pmd.Value) {
	e.globals[name] = ConvertToStarlark(value)
}

func (e *Evaluator) predeclared() starlark.StringDict {
	predeclared := make(starlark.StringDict, len(e.builtins)+len(e.globals))
	for k, v := range e.builtins {
		predeclared[k] = v
	}
	for k, v := range e.globals {
		predeclared[k] = v
	}
	return predeclared
}

// Eval evaluates a Starlark expression and returns the result as a template value.
func (e *Evaluator) Eval(expr string) (pmd.Value, error) {
	val, err := starlark.Eval(e.thread, "<eval>", expr, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	return ConvertFromStarlark(val)
}

// ExecFile executes a Starlark file and returns the globals it defined.
// src may be nil, a string or a []byte, as for starlark.ExecFile.
func (e *Evaluator) ExecFile(filename string, src any) (starlark.StringDict, error) {
	globals, err := starlark.ExecFile(e.thread, filename, src, e.predeclared())
	if err != nil {
		return nil, fmt.Errorf("starlark execution error: %w", err)
	}
	for k, v := range globals {
		e.globals[k] = v
	}
	return globals, nil
}

// GetGlobal retrieves a global variable as a template value.
func (e *Evaluator) GetGlobal(name string) (pmd.Value, bool, error) {
	val, ok := e.globals[name]
	if !ok {
		return nil, false, nil
	}
	v, err := ConvertFromStarlark(val)
	if err != nil {
		return nil, true, fmt.Errorf("global %q: %w", name, err)
	}
	return v, true, nil
}

// LoadContext makes every entry of ctx a Starlark global.
func (e *Evaluator) LoadContext(ctx pmd.Context) {
	for key, value := range ctx {
		e.SetGlobal(key, value)
	}
}

// ExportContext converts the public, non-callable globals to a render context.
func (e *Evaluator) ExportContext() (pmd.Context, error) {
	ctx := make(pmd.Context)
	for key, value := range e.globals {
		if !isExportable(key, value) {
			continue
		}
		v, err := ConvertFromStarlark(value)
		if err != nil {
			return nil, fmt.Errorf("global %q: %w", key, err)
		}
		ctx[key] = v
	}
	return ctx, nil
}

func isExportable(key string, v starlark.Value) bool {
	if key == "" || key[0] == '_' {
		return false
	}
	_, callable := v.(starlark.Callable)
	return !callable
}
