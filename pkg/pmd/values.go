package pmd

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Value is a context value. It is one of StringValue, BoolValue or ListValue.
type Value interface {
	String() string
	Truth() bool
	value()
}

// StringValue wraps a string. Empty strings are falsy.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return len(s) > 0 }
func (StringValue) value()           {}

// BoolValue wraps a boolean. Its textual form is chosen by the renderer, see
// WithBoolFormat; String returns the default form.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return DefaultTrueText
	}
	return DefaultFalseText
}
func (b BoolValue) Truth() bool { return bool(b) }
func (BoolValue) value()        {}

// ListValue wraps a list of values. Empty lists are falsy.
type ListValue []Value

func (l ListValue) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
func (l ListValue) Truth() bool { return len(l) > 0 }
func (ListValue) value()        {}

// Context maps names to values for a render call.
type Context map[string]Value

// Clone returns a shallow copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Strings builds a ListValue of StringValues.
func Strings(items ...string) ListValue {
	out := make(ListValue, len(items))
	for i, s := range items {
		out[i] = StringValue(s)
	}
	return out
}

// NewContextFromAny converts a map[string]any, typically decoded from YAML or
// JSON, into a Context.
func NewContextFromAny(m map[string]any) (Context, error) {
	ctx := make(Context, len(m))
	for k, v := range m {
		val, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("context key %q: %w", k, err)
		}
		ctx[k] = val
	}
	return ctx, nil
}

// FromGo converts a Go value to a Value. Numbers become their decimal string
// form and nil becomes the empty string. Maps are rejected since templates
// cannot address their members.
func FromGo(v any) (Value, error) {
	if v == nil {
		return StringValue(""), nil
	}
	switch t := v.(type) {
	case Value:
		return t, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case []string:
		return Strings(t...), nil
	case []byte:
		return StringValue(string(t)), nil
	case int:
		return StringValue(strconv.Itoa(t)), nil
	case int64:
		return StringValue(strconv.FormatInt(t, 10)), nil
	case uint64:
		return StringValue(strconv.FormatUint(t, 10)), nil
	case float64:
		return StringValue(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case fmt.Stringer:
		return StringValue(t.String()), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make(ListValue, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, item)
		}
		return out, nil
	case reflect.Map, reflect.Struct:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return StringValue(""), nil
		}
		return FromGo(rv.Elem().Interface())
	}
	return StringValue(fmt.Sprintf("%v", v)), nil
}

// ToGo converts a Value back to plain Go data.
func ToGo(v Value) any {
	switch t := v.(type) {
	case StringValue:
		return string(t)
	case BoolValue:
		return bool(t)
	case ListValue:
		out := make([]any, len(t))
		for i, it := range t {
			out[i] = ToGo(it)
		}
		return out
	}
	return nil
}
