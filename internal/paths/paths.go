package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables holding the default root directories for each
// repository path kind. A relative user path is joined onto the matching
// root when the variable is set.
const (
	EnvInput  = "PIPE_INPUT_ROOT"
	EnvCalib  = "PIPE_CALIB_ROOT"
	EnvOutput = "PIPE_OUTPUT_ROOT"
	EnvRerun  = "PIPE_RERUN_ROOT"
)

// Fix applies the environment default root named by envName, if present, and
// returns the absolute form of path.
//
// With the variable unset, an empty path resolves to "" and anything else is
// made absolute relative to the working directory. With the variable set, the
// result is abs(join(root, path)); an empty path resolves to the root itself.
func Fix(envName, path string) (string, error) {
	root, ok := os.LookupEnv(envName)
	if !ok {
		if path == "" {
			return "", nil
		}
		return filepath.Abs(path)
	}
	return filepath.Abs(filepath.Join(root, path))
}

// ResolveRerun splits an [INPUT:]OUTPUT rerun specification and fixes every
// part against the rerun default root. It returns one or two absolute paths.
func ResolveRerun(envName, raw string) ([]string, error) {
	parts := strings.Split(raw, ":")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid rerun specification %q: want [INPUT:]OUTPUT", raw)
	}
	fixed := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("invalid rerun specification %q: empty path component", raw)
		}
		p, err := Fix(envName, part)
		if err != nil {
			return nil, err
		}
		fixed = append(fixed, p)
	}
	return fixed, nil
}
