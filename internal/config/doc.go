// Package config models a task configuration as a tree of named, typed
// fields. Fields are addressed by dotted paths, hold cty values, and reject
// writes that do not convert to the declared slot type. A config is built
// mutable, has overrides applied to it, then is validated and frozen; any
// write after freezing is an error.
package config
