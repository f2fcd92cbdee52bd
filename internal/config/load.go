package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// ParseLiteral parses a literal-only value: numbers, strings, bools, lists
// and tuples of literals, and null. Evaluation runs with no EvalContext, so
// variable references and function calls fail rather than being looked up.
func ParseLiteral(src string) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<literal>", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return value, nil
}

// LoadFile applies a file of overrides to the config. The file is HCL:
// top-level attributes set root fields, nested blocks set fields of the
// matching sub-config. Attribute values must be literals. Entries apply in
// file order.
func (c *Config) LoadFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot load config file %s: %w", path, err)
	}
	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return fmt.Errorf("cannot parse config file %s: %w", path, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return fmt.Errorf("cannot parse config file %s: unexpected body type", path)
	}
	if err := c.applyBody("", body); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// bodyItem pairs an attribute or block with its source offset so a body can
// be replayed in file order; hclsyntax hands attributes back as a map.
type bodyItem struct {
	offset int
	attr   *hclsyntax.Attribute
	block  *hclsyntax.Block
}

func (c *Config) applyBody(prefix string, body *hclsyntax.Body) error {
	items := make([]bodyItem, 0, len(body.Attributes)+len(body.Blocks))
	for _, attr := range body.Attributes {
		items = append(items, bodyItem{offset: attr.SrcRange.Start.Byte, attr: attr})
	}
	for _, block := range body.Blocks {
		items = append(items, bodyItem{offset: block.TypeRange.Start.Byte, block: block})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].offset < items[j].offset })

	for _, item := range items {
		if item.attr != nil {
			value, diags := item.attr.Expr.Value(nil)
			if diags.HasErrors() {
				return fmt.Errorf("field %s%s: %w", prefix, item.attr.Name, diags)
			}
			if err := c.Set(prefix+item.attr.Name, value); err != nil {
				return err
			}
			continue
		}
		if len(item.block.Labels) > 0 {
			return fmt.Errorf("config block %q may not have labels", item.block.Type)
		}
		if err := c.applyBody(prefix+item.block.Type+".", item.block.Body); err != nil {
			return err
		}
	}
	return nil
}
