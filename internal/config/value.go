package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ValueString renders a cty value in the form Dump and error messages use.
func ValueString(v cty.Value) string {
	if v == cty.NilVal {
		return "<unset>"
	}
	if v.IsNull() {
		return "null"
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case ty == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case ty == cty.Number:
		bf := v.AsBigFloat()
		return bf.Text('f', -1)
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var parts []string
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			parts = append(parts, ValueString(ev))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ty.IsMapType() || ty.IsObjectType():
		m := v.AsValueMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, k+" = "+ValueString(m[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.GoString()
	}
}

// Dump writes every field as "path = value" lines in declaration order.
// prefix is prepended to each path; pass the task name for output matching
// the frozen configuration display.
func (c *Config) Dump(w io.Writer, prefix string) {
	if prefix != "" && !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	for _, name := range c.order {
		if field, ok := c.fields[name]; ok {
			fmt.Fprintf(w, "%s%s = %s\n", prefix, name, ValueString(field.value))
			continue
		}
		c.children[name].Dump(w, prefix+name)
	}
}
