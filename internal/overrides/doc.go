// Package overrides records configuration overrides as an ordered operation
// log and applies them in a single deterministic pass. Recording is separate
// from applying so the exact left-to-right command-line order is preserved no
// matter how many distinct flags introduced the overrides.
package overrides
