// Package ctxlog carries a slog.Logger through context.Context and owns the
// process-wide logging knobs: named level parsing, log destinations, and the
// per-component trace verbosity registry.
package ctxlog
