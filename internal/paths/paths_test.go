package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFix(t *testing.T) {
	t.Run("unset env and empty path resolve to nothing", func(t *testing.T) {
		got, err := Fix("PIPE_TEST_UNSET_ROOT", "")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("unset env makes relative paths absolute", func(t *testing.T) {
		got, err := Fix("PIPE_TEST_UNSET_ROOT", "data/repo")
		require.NoError(t, err)
		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(wd, "data", "repo"), got)
	})

	t.Run("idempotent on an absolute path", func(t *testing.T) {
		abs := t.TempDir()
		once, err := Fix("PIPE_TEST_UNSET_ROOT", abs)
		require.NoError(t, err)
		assert.Equal(t, abs, once)
		twice, err := Fix("PIPE_TEST_UNSET_ROOT", once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})

	t.Run("env root joins relative paths", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv("PIPE_TEST_ROOT", root)
		got, err := Fix("PIPE_TEST_ROOT", "sub/repo")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "sub", "repo"), got)
	})

	t.Run("env root with empty path resolves to the root", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv("PIPE_TEST_ROOT", root)
		got, err := Fix("PIPE_TEST_ROOT", "")
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})
}

func TestResolveRerun(t *testing.T) {
	t.Run("single part", func(t *testing.T) {
		got, err := ResolveRerun("PIPE_TEST_UNSET_ROOT", "/a/rerun1")
		require.NoError(t, err)
		assert.Equal(t, []string{"/a/rerun1"}, got)
	})

	t.Run("input and output parts", func(t *testing.T) {
		got, err := ResolveRerun("PIPE_TEST_UNSET_ROOT", "/a/in:/a/out")
		require.NoError(t, err)
		assert.Equal(t, []string{"/a/in", "/a/out"}, got)
	})

	t.Run("parts resolve against the rerun root", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv("PIPE_TEST_RERUN_ROOT", root)
		got, err := ResolveRerun("PIPE_TEST_RERUN_ROOT", "in:out")
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "in"), filepath.Join(root, "out")}, got)
	})

	t.Run("too many parts", func(t *testing.T) {
		_, err := ResolveRerun("PIPE_TEST_UNSET_ROOT", "a:b:c")
		assert.ErrorContains(t, err, "invalid rerun specification")
	})

	t.Run("empty component", func(t *testing.T) {
		_, err := ResolveRerun("PIPE_TEST_UNSET_ROOT", "a:")
		assert.ErrorContains(t, err, "empty path component")
	})
}
