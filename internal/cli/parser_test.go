package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/gcmshadow/pipe-base/internal/config"
	"github.com/gcmshadow/pipe-base/internal/ctxlog"
)

const testManifest = `
camera = "testcam"

dataset "raw" {
  template = "raw/v{visit}/c{ccd}.dat"

  key "visit" { type = "int" }
  key "ccd"   { type = "string" }
}
`

const testRegistry = `
record "raw" {
  visit = 1
  ccd   = "1,1"
}

record "raw" {
  visit = 2
  ccd   = "1,1"
}
`

func writeTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "_mapper"), "fs\n")
	mustWrite(t, filepath.Join(root, "mapper.hcl"), testManifest)
	mustWrite(t, filepath.Join(root, "registry.hcl"), testRegistry)
	mustWrite(t, filepath.Join(root, "raw", "v1", "c1,1.dat"), "data")
	mustWrite(t, filepath.Join(root, "raw", "v2", "c1,1.dat"), "data")
	return root
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New("task")
	cfg.DefineField("threshold", cty.Number, "detection threshold", cty.NumberFloatVal(5.0))
	cfg.DefineField("doCalibrate", cty.Bool, "apply calibration", cty.True)
	sub := cfg.DefineSub("background", "background estimation")
	sub.DefineField("binSize", cty.Number, "bin size in pixels", cty.NumberIntVal(128))
	return cfg
}

func parseOptions(t *testing.T, args ...string) (ParseOptions, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var logBuf, outBuf bytes.Buffer
	logger, _ := ctxlog.New(&logBuf, slog.LevelDebug)
	return ParseOptions{
		Args:   args,
		Config: newTestConfig(t),
		Log:    logger,
		Out:    &outBuf,
	}, &logBuf, &outBuf
}

func TestParse(t *testing.T) {
	root := writeTestRepo(t)
	p := New("exampleTask", "raw")

	t.Run("full resolution", func(t *testing.T) {
		output := t.TempDir()
		opts, _, _ := parseOptions(t, root,
			"--id", "visit=1..2", "ccd=1,1",
			"-c", "threshold=2.5", "background.binSize=64",
			"--output", output,
			"-j", "3")
		rc, done, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		require.False(t, done)

		assert.Equal(t, "testcam", rc.Camera)
		assert.Equal(t, "raw", rc.DatasetType)
		assert.Equal(t, root, rc.Input)
		assert.Equal(t, output, rc.Output)
		assert.Equal(t, 3, rc.Processes)
		require.Len(t, rc.IDs, 2)
		assert.Equal(t, "ccd=1,1 visit=1", rc.IDs[0].String())
		assert.Equal(t, "ccd=1,1 visit=2", rc.IDs[1].String())
		require.Len(t, rc.Refs, 2)

		threshold, err := rc.Config.Get("threshold")
		require.NoError(t, err)
		assert.True(t, threshold.RawEquals(cty.NumberFloatVal(2.5)))
		binSize, err := rc.Config.Get("background.binSize")
		require.NoError(t, err)
		assert.True(t, binSize.RawEquals(cty.NumberIntVal(64)))
		assert.True(t, rc.Config.Frozen())
	})

	t.Run("overrides apply in command-line order", func(t *testing.T) {
		overrideFile := filepath.Join(t.TempDir(), "override.hcl")
		mustWrite(t, overrideFile, "threshold = 9\n")

		opts, _, _ := parseOptions(t, root,
			"-c", "threshold=1",
			"-C", overrideFile,
			"-c", "threshold=2")
		rc, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)

		threshold, err := rc.Config.Get("threshold")
		require.NoError(t, err)
		assert.True(t, threshold.RawEquals(cty.NumberIntVal(2)))
	})

	t.Run("unknown override field", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root, "-c", "bogus=1")
		_, _, err := p.Parse(context.Background(), opts)
		assert.ErrorContains(t, err, `no config field "bogus"`)
	})

	t.Run("unknown identifier key lists valid keys", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root, "--id", "filter=g")
		_, _, err := p.Parse(context.Background(), opts)
		assert.ErrorContains(t, err, `unrecognized identifier key "filter"`)
		assert.ErrorContains(t, err, "ccd, visit")
	})

	t.Run("help exits before any repository work", func(t *testing.T) {
		opts, _, out := parseOptions(t, "--help")
		rc, done, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Nil(t, rc)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("missing input argument", func(t *testing.T) {
		opts, _, out := parseOptions(t, "--id", "visit=1")
		_, _, err := p.Parse(context.Background(), opts)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.ErrorContains(t, err, "must specify input as first argument")
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("input directory does not exist", func(t *testing.T) {
		opts, _, _ := parseOptions(t, filepath.Join(t.TempDir(), "nope"))
		_, _, err := p.Parse(context.Background(), opts)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("input resolved against environment root", func(t *testing.T) {
		t.Setenv("PIPE_INPUT_ROOT", filepath.Dir(root))
		opts, _, _ := parseOptions(t, filepath.Base(root))
		rc, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, root, rc.Input)
	})

	t.Run("malformed identifier fails before the repository opens", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root, "--id", "visit")
		_, _, err := p.Parse(context.Background(), opts)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("bad log level", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root, "--loglevel", "CHATTY")
		_, _, err := p.Parse(context.Background(), opts)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
	})

	t.Run("argument file expands in place", func(t *testing.T) {
		argFile := filepath.Join(t.TempDir(), "args.txt")
		mustWrite(t, argFile, "--id visit=1 ccd=1,1 # just the one\n")
		opts, _, _ := parseOptions(t, root, "@"+argFile)
		rc, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		require.Len(t, rc.IDs, 1)
		assert.Equal(t, "ccd=1,1 visit=1", rc.IDs[0].String())
	})
}

func TestParseShow(t *testing.T) {
	root := writeTestRepo(t)
	p := New("exampleTask", "raw")

	t.Run("show config dumps the post-override state", func(t *testing.T) {
		opts, _, out := parseOptions(t, root, "-c", "threshold=2", "--show", "config")
		_, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "config.threshold = 2")
		assert.Contains(t, out.String(), "config.background.binSize = 128")
	})

	t.Run("show data lists resolved references", func(t *testing.T) {
		opts, _, out := parseOptions(t, root, "--id", "visit=1", "ccd=1,1", "--show", "data")
		_, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "ref.id = ccd=1,1 visit=1")
	})

	t.Run("show exit stops after reporting", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root, "--show", "exit")
		rc, done, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Nil(t, rc)
	})
}

func TestParseRerun(t *testing.T) {
	root := writeTestRepo(t)
	p := New("exampleTask", "raw")

	t.Run("rerun conflicts with output", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root, "--output", t.TempDir(), "--rerun", "a")
		_, _, err := p.Parse(context.Background(), opts)
		assert.ErrorContains(t, err, "cannot specify both --output and --rerun")
	})

	t.Run("fresh rerun path becomes the output", func(t *testing.T) {
		rerun := filepath.Join(t.TempDir(), "fresh")
		opts, _, _ := parseOptions(t, root, "--rerun", rerun)
		rc, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, root, rc.Input)
		assert.Equal(t, rerun, rc.Output)
		assert.Equal(t, []string{rerun}, rc.Rerun)
	})

	t.Run("existing rerun path becomes the input", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root, "--rerun", root)
		rc, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, root, rc.Input)
		assert.Equal(t, "", rc.Output)
	})

	t.Run("rerun input must use the same mapper", func(t *testing.T) {
		other := t.TempDir()
		mustWrite(t, filepath.Join(other, "_mapper"), "othermapper\n")
		opts, _, _ := parseOptions(t, root, "--rerun", other+":"+filepath.Join(t.TempDir(), "out"))
		_, _, err := p.Parse(context.Background(), opts)
		assert.ErrorContains(t, err, "must have the same mapper")
	})
}

func TestParseDatasetArgument(t *testing.T) {
	root := writeTestRepo(t)

	t.Run("required when no default is given", func(t *testing.T) {
		p := New("exampleTask", "", WithDatasetArgument(DatasetArgument{Help: "dataset type to read"}))
		opts, _, _ := parseOptions(t, root)
		_, _, err := p.Parse(context.Background(), opts)
		assert.ErrorContains(t, err, "option --datasettype is required")
	})

	t.Run("command-line value wins over the default", func(t *testing.T) {
		p := New("exampleTask", "", WithDatasetArgument(DatasetArgument{Default: "calexp"}))
		opts, _, _ := parseOptions(t, root, "--datasettype", "raw")
		rc, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, "raw", rc.DatasetType)
	})
}

func TestParseCameraHook(t *testing.T) {
	root := writeTestRepo(t)

	var hookCamera string
	p := New("exampleTask", "raw", WithCameraHook(func(ctx context.Context, camera string, cfg *config.Config) error {
		hookCamera = camera
		return cfg.Set("threshold", cty.NumberIntVal(7))
	}))

	// Command-line overrides land after the hook.
	opts, _, _ := parseOptions(t, root, "-c", "background.binSize=32")
	rc, _, err := p.Parse(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "testcam", hookCamera)

	threshold, err := rc.Config.Get("threshold")
	require.NoError(t, err)
	assert.True(t, threshold.RawEquals(cty.NumberIntVal(7)))
}

func TestParsePackagedOverrides(t *testing.T) {
	// Packaged defaults apply first, the camera file second, the command
	// line last.
	root := writeTestRepo(t)
	configDir := filepath.Join(root, "config")
	mustWrite(t, filepath.Join(configDir, "exampleTask.hcl"), "threshold = 10\nbackground { binSize = 256 }\n")
	mustWrite(t, filepath.Join(configDir, "testcam", "exampleTask.hcl"), "threshold = 20\n")
	mustWrite(t, filepath.Join(root, "mapper.hcl"), testManifest+"\nconfig_dir = \"config\"\n")

	p := New("exampleTask", "raw")

	t.Run("camera file wins over the package file", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root)
		rc, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)

		threshold, err := rc.Config.Get("threshold")
		require.NoError(t, err)
		assert.True(t, threshold.RawEquals(cty.NumberIntVal(20)))
		binSize, err := rc.Config.Get("background.binSize")
		require.NoError(t, err)
		assert.True(t, binSize.RawEquals(cty.NumberIntVal(256)))
	})

	t.Run("command line wins over both", func(t *testing.T) {
		opts, _, _ := parseOptions(t, root, "-c", "threshold=30")
		rc, _, err := p.Parse(context.Background(), opts)
		require.NoError(t, err)

		threshold, err := rc.Config.Get("threshold")
		require.NoError(t, err)
		assert.True(t, threshold.RawEquals(cty.NumberIntVal(30)))
	})
}
