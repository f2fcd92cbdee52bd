// Package paths resolves user-supplied repository paths against environment
// default roots and implements the rerun path scheme.
package paths
