package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// UnknownFieldError reports a dotted path that names no declared field.
type UnknownFieldError struct {
	Path string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("no config field %q", e.Path)
}

// Field is one typed leaf slot in a config tree.
type Field struct {
	name  string
	typ   cty.Type
	doc   string
	value cty.Value
}

// Value returns the field's current value; a field with a default reports the
// default until overridden. Unset fields without defaults return cty.NilVal.
func (f *Field) Value() cty.Value { return f.value }

// Type returns the declared slot type.
func (f *Field) Type() cty.Type { return f.typ }

// Config is a node in the configuration tree: a set of leaf fields plus
// nested sub-configs, both addressable by dotted paths from the root.
type Config struct {
	name     string
	order    []string
	fields   map[string]*Field
	children map[string]*Config
	frozen   bool
}

// New creates an empty, mutable config node.
func New(name string) *Config {
	return &Config{
		name:     name,
		fields:   map[string]*Field{},
		children: map[string]*Config{},
	}
}

// DefineField declares a leaf field. def may be cty.NilVal for a field with
// no default; such fields must be set before Validate passes. Redeclaring a
// name is a programmer error and panics.
func (c *Config) DefineField(name string, typ cty.Type, doc string, def cty.Value) {
	c.checkNew(name)
	value := cty.NilVal
	if def != cty.NilVal {
		converted, err := convert.Convert(def, typ)
		if err != nil {
			panic(fmt.Sprintf("config: default for field %q does not fit type %s: %v", name, typ.FriendlyName(), err))
		}
		value = converted
	}
	c.fields[name] = &Field{name: name, typ: typ, doc: doc, value: value}
	c.order = append(c.order, name)
}

// DefineSub declares and returns a nested sub-config.
func (c *Config) DefineSub(name, doc string) *Config {
	c.checkNew(name)
	sub := New(name)
	c.children[name] = sub
	c.order = append(c.order, name)
	return sub
}

func (c *Config) checkNew(name string) {
	if name == "" || strings.Contains(name, ".") {
		panic(fmt.Sprintf("config: invalid field name %q", name))
	}
	if _, ok := c.fields[name]; ok {
		panic(fmt.Sprintf("config: field %q already declared", name))
	}
	if _, ok := c.children[name]; ok {
		panic(fmt.Sprintf("config: sub-config %q already declared", name))
	}
}

// Lookup walks a dotted path to a leaf field.
func (c *Config) Lookup(path string) (*Field, error) {
	node := c
	segments := strings.Split(path, ".")
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node.children[seg]
		if !ok {
			return nil, &UnknownFieldError{Path: path}
		}
		node = child
	}
	field, ok := node.fields[segments[len(segments)-1]]
	if !ok {
		return nil, &UnknownFieldError{Path: path}
	}
	return field, nil
}

// Get returns the value of the field at path.
func (c *Config) Get(path string) (cty.Value, error) {
	field, err := c.Lookup(path)
	if err != nil {
		return cty.NilVal, err
	}
	return field.value, nil
}

// Set writes a value to the field at path, converting it to the slot type.
// It fails on unknown paths, type mismatches, and frozen configs.
func (c *Config) Set(path string, value cty.Value) error {
	if c.frozen {
		return fmt.Errorf("config is frozen; cannot set %s", path)
	}
	field, err := c.Lookup(path)
	if err != nil {
		return err
	}
	converted, err := convert.Convert(value, field.typ)
	if err != nil {
		return fmt.Errorf("cannot set config field %s to %s: %w", path, ValueString(value), err)
	}
	field.value = converted
	return nil
}

// SetFromString writes a raw command-line string to the field at path. The
// string itself is tried first; if it does not convert to the slot type the
// string is re-parsed as a literal (number, bool, string, list/tuple, null)
// and the result is tried instead. General expressions are rejected.
func (c *Config) SetFromString(path, raw string) error {
	err := c.Set(path, cty.StringVal(raw))
	if err == nil {
		return nil
	}
	var unknown *UnknownFieldError
	if errors.As(err, &unknown) {
		return err
	}
	value, perr := ParseLiteral(raw)
	if perr != nil {
		return fmt.Errorf("cannot parse %q as a value for %s", raw, path)
	}
	return c.Set(path, value)
}

// Validate checks that every field without a default has been set.
func (c *Config) Validate() error {
	return c.validate("")
}

func (c *Config) validate(prefix string) error {
	for _, name := range c.order {
		if field, ok := c.fields[name]; ok {
			if field.value == cty.NilVal {
				return fmt.Errorf("config field %s is required but not set", prefix+name)
			}
			continue
		}
		if err := c.children[name].validate(prefix + name + "."); err != nil {
			return err
		}
	}
	return nil
}

// Freeze makes the config and all sub-configs immutable.
func (c *Config) Freeze() {
	c.frozen = true
	for _, child := range c.children {
		child.Freeze()
	}
}

// Frozen reports whether Freeze has been called.
func (c *Config) Frozen() bool { return c.frozen }
