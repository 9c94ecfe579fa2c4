package starlark

import (
	"fmt"

	"github.com/neurodesk/pmd/pkg/pmd"
)

// LoadContext runs a context script and returns its public globals as a
// render context. Functions and names starting with "_" are not exported.
//
//	name = "Alice"
//	items = [x.upper() for x in ["a", "b"]]
//	home = env("HOME", "/")
func LoadContext(filename string, src any, opts ...Option) (pmd.Context, error) {
	e := NewEvaluator(opts...)
	if _, err := e.ExecFile(filename, src); err != nil {
		return nil, err
	}
	ctx, err := e.ExportContext()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return ctx, nil
}
