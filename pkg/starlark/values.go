package starlark

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/neurodesk/pmd/pkg/pmd"
	"go.starlark.net/starlark"
)

// ConvertToStarlark converts a template value to a Starlark value
func ConvertToStarlark(val pmd.Value) starlark.Value {
	switch v := val.(type) {
	case nil:
		return starlark.None
	case pmd.StringValue:
		return starlark.String(string(v))
	case pmd.BoolValue:
		return starlark.Bool(bool(v))
	case pmd.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ConvertToStarlark(item)
		}
		return starlark.NewList(items)
	default:
		return starlark.String(val.String())
	}
}

// ConvertFromStarlark converts a Starlark value to a template value. Numbers
// become their decimal text, bytes their text and None the empty string.
// Dicts and sets have no template counterpart and are rejected.
func ConvertFromStarlark(val starlark.Value) (pmd.Value, error) {
	if val == nil || val == starlark.None {
		return pmd.StringValue(""), nil
	}

	switch v := val.(type) {
	case starlark.String:
		return pmd.StringValue(string(v)), nil
	case starlark.Bytes:
		return pmd.StringValue(string(v)), nil
	case starlark.Bool:
		return pmd.BoolValue(bool(v)), nil
	case starlark.Int:
		return pmd.StringValue(v.String()), nil
	case starlark.Float:
		return pmd.StringValue(strconv.FormatFloat(float64(v), 'g', -1, 64)), nil
	case starlark.Indexable: // list, tuple
		items := make(pmd.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := ConvertFromStarlark(v.Index(i))
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = item
		}
		return items, nil
	case *starlark.Dict, *starlark.Set:
		return nil, fmt.Errorf("unsupported value of type %s", val.Type())
	default:
		return pmd.StringValue(val.String()), nil
	}
}

// CreateBuiltins creates the functions predeclared for context scripts.
func CreateBuiltins(logger *slog.Logger, getenv func(string) (string, bool)) starlark.StringDict {
	return starlark.StringDict{
		"print": starlark.NewBuiltin("print", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var buf []string
			for i := 0; i < len(args); i++ {
				if s, ok := args[i].(starlark.String); ok {
					buf = append(buf, string(s))
				} else {
					buf = append(buf, args[i].String())
				}
			}
			logger.Info(strings.Join(buf, " "), "script", thread.CallFrame(1).Pos.Filename())
			return starlark.None, nil
		}),

		"env": starlark.NewBuiltin("env", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name, def string
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
				return nil, err
			}
			if v, ok := getenv(name); ok {
				return starlark.String(v), nil
			}
			return starlark.String(def), nil
		}),
	}
}
