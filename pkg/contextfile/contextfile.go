// Package contextfile loads render contexts from YAML, JSON, TOML and
// Starlark files and from command line assignments.
package contextfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/neurodesk/pmd/pkg/pmd"
	"github.com/neurodesk/pmd/pkg/starlark"
	"gopkg.in/yaml.v3"
)

// Load reads a context file, choosing the decoder from its extension:
// .yaml, .yml and .json are decoded as YAML, .toml as TOML and .star is run
// as a Starlark script.
func Load(path string) (pmd.Context, error) {
	return LoadWithLogger(path, slog.Default())
}

func LoadWithLogger(path string, logger *slog.Logger) (pmd.Context, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		ctx, err := Decode(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("loaded context", "path", path, "keys", len(ctx))
		return ctx, nil
	case ".toml":
		var raw map[string]any
		if err := toml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("%s: decoding context: %w", path, err)
		}
		ctx, err := pmd.NewContextFromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("loaded context", "path", path, "keys", len(ctx))
		return ctx, nil
	case ".star":
		ctx, err := starlark.LoadContext(path, b, starlark.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Debug("evaluated context script", "path", path, "keys", len(ctx))
		return ctx, nil
	default:
		return nil, fmt.Errorf("%s: unsupported context file extension %q", path, ext)
	}
}

// Decode decodes a YAML (or JSON) mapping into a context. An empty document
// yields an empty context.
func Decode(b []byte) (pmd.Context, error) {
	var raw map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return pmd.Context{}, nil
		}
		return nil, fmt.Errorf("decoding context: %w", err)
	}
	return pmd.NewContextFromAny(raw)
}

// Merge combines contexts left to right; later keys win.
func Merge(ctxs ...pmd.Context) pmd.Context {
	out := pmd.Context{}
	for _, c := range ctxs {
		for k, v := range c {
			out[k] = v
		}
	}
	return out
}

// ParseAssignments parses key=value pairs. Values are strings, except that
// true and false become booleans and a value wrapped in [ ] becomes a
// comma separated list.
func ParseAssignments(args []string) (pmd.Context, error) {
	ctx := pmd.Context{}
	for _, a := range args {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: want key=value", a)
		}
		ctx[key] = parseScalar(value)
	}
	return ctx, nil
}

func parseScalar(s string) pmd.Value {
	switch s {
	case "true":
		return pmd.BoolValue(true)
	case "false":
		return pmd.BoolValue(false)
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := strings.TrimSpace(s[1 : len(s)-1])
		if inner == "" {
			return pmd.Strings()
		}
		parts := strings.Split(inner, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return pmd.Strings(parts...)
	}
	return pmd.StringValue(s)
}
