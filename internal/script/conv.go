package script

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// toStarlarkValue converts decoded JSON-like Go values.
func toStarlarkValue(v any) starlark.Value {
	switch v := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(v)
	case string:
		return starlark.String(v)
	case int:
		return starlark.MakeInt(v)
	case int64:
		return starlark.MakeInt64(v)
	case float64:
		return starlark.Float(v)
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = toStarlarkValue(e)
		}
		return starlark.NewList(elems)
	case []string:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = starlark.String(e)
		}
		return starlark.NewList(elems)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := starlark.NewDict(len(v))
		for _, k := range keys {
			_ = d.SetKey(starlark.String(k), toStarlarkValue(v[k]))
		}
		return d
	}
	return starlark.String(fmt.Sprint(v))
}

// fromStarlarkValue converts a Starlark value into the shapes a JSON decoder
// produces, so tool arguments look the same whichever way they arrive.
func fromStarlarkValue(v starlark.Value) (any, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.String:
		return string(v), nil
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return float64(i), nil
		}
		return nil, fmt.Errorf("integer %s out of range", v)
	case starlark.Float:
		return float64(v), nil
	case *starlark.List:
		return fromIterable(v)
	case starlark.Tuple:
		return fromIterable(v)
	case *starlark.Dict:
		m := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			k, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings, got %s", item[0].Type())
			}
			val, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			m[string(k)] = val
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", v.Type())
}

func fromIterable(it starlark.Iterable) ([]any, error) {
	var out []any
	iter := it.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		val, err := fromStarlarkValue(x)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}
