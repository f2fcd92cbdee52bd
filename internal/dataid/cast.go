package dataid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Typed is a data identifier whose values have been cast to the types the
// repository schema declares for each key.
type Typed map[string]cty.Value

// Cast validates every identifier against schema and casts each value to the
// declared key type. String-typed keys pass through unchanged. An unknown key
// or a failed cast is fatal; the unknown-key error carries the full sorted
// list of valid keys.
func Cast(ids []Raw, schema map[string]cty.Type) ([]Typed, error) {
	valid := make([]string, 0, len(schema))
	for key := range schema {
		valid = append(valid, key)
	}
	sort.Strings(valid)

	out := make([]Typed, 0, len(ids))
	for _, raw := range ids {
		typed := make(Typed, len(raw))
		keys := make([]string, 0, len(raw))
		for key := range raw {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			ty, ok := schema[key]
			if !ok {
				return nil, fmt.Errorf("unrecognized identifier key %q; valid keys are: %s",
					key, strings.Join(valid, ", "))
			}
			strVal := cty.StringVal(raw[key])
			if ty == cty.String {
				typed[key] = strVal
				continue
			}
			cast, err := convert.Convert(strVal, ty)
			if err != nil {
				return nil, fmt.Errorf("cannot cast value %q to %s for identifier key %q",
					raw[key], ty.FriendlyName(), key)
			}
			typed[key] = cast
		}
		out = append(out, typed)
	}
	return out, nil
}

// ValueString renders one identifier value back to its string form.
func ValueString(v cty.Value) string {
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return v.GoString()
	}
	return s.AsString()
}

// String renders the identifier as sorted key=value pairs, for logs and
// --show data output.
func (t Typed) String() string {
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+ValueString(t[key]))
	}
	return strings.Join(parts, " ")
}
