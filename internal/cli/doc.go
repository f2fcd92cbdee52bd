// Package cli resolves a pipeline task's command line into a validated,
// immutable execution context: typed data identifiers, materialized data
// references, resolved repository paths, and a frozen configuration.
//
// Resolution is two-phase. The token scanner catches every syntax error
// before any repository is opened; semantic validation (identifier keys and
// types, override fields, rerun mapper compatibility) runs once the
// repository service is available. Either tier aborts the invocation.
package cli
