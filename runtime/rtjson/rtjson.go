// Package rtjson backs the json module in generated programs,
// bridging between boxed values and JSON text.
package rtjson

import (
	"encoding/json"
	"fmt"
	"sort"

	"auriga/runtime/rtval"
)

// Dumps serializes a boxed value to JSON.
func Dumps(v rtval.Value) string {
	data, err := json.Marshal(unbox(v))
	if err != nil {
		panic(fmt.Sprintf("json dumps: %v", err))
	}
	return string(data)
}

// Loads parses JSON text into a boxed value. Malformed input panics,
// matching the source-language error surface.
func Loads(s string) rtval.Value {
	var raw any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		panic(fmt.Sprintf("json loads: %v", err))
	}
	return box(raw)
}

func unbox(v rtval.Value) any {
	switch v.Kind() {
	case rtval.KindNone:
		return nil
	case rtval.KindInt:
		return v.AsInt()
	case rtval.KindFloat:
		return v.AsFloat()
	case rtval.KindStr:
		return v.AsStr()
	case rtval.KindBool:
		return v.AsBool()
	case rtval.KindList:
		list := v.AsList()
		out := make([]any, len(list))
		for i, el := range list {
			out[i] = unbox(el)
		}
		return out
	case rtval.KindDict:
		out := make(map[string]any)
		for _, k := range dictKeys(v) {
			el, _ := rtval.DictGet(v, k)
			out[k] = unbox(el)
		}
		return out
	}
	return v.Repr()
}

func dictKeys(v rtval.Value) []string {
	keys := rtval.DictKeys(v)
	sort.Strings(keys)
	return keys
}

func box(raw any) rtval.Value {
	switch x := raw.(type) {
	case nil:
		return rtval.None()
	case bool:
		return rtval.Bool(x)
	case float64:
		if x == float64(int64(x)) {
			return rtval.Int(int64(x))
		}
		return rtval.Float(x)
	case string:
		return rtval.Str(x)
	case []any:
		out := make([]rtval.Value, len(x))
		for i, el := range x {
			out[i] = box(el)
		}
		return rtval.List(out...)
	case map[string]any:
		out := make(map[string]rtval.Value, len(x))
		for k, el := range x {
			out[k] = box(el)
		}
		return rtval.Dict(out)
	}
	return rtval.None()
}
