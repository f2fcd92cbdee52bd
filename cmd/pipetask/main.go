package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zclconf/go-cty/cty"

	"github.com/gcmshadow/pipe-base/internal/cli"
	"github.com/gcmshadow/pipe-base/internal/config"
)

// main is the entrypoint for the demonstration pipeline task.
func main() {
	// Use a minimal logger until the parser configures the full one.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newConfig declares the task configuration schema.
func newConfig() *config.Config {
	cfg := config.New("exampleTask")
	cfg.DefineField("doCalibrate", cty.Bool, "Perform calibration?", cty.True)
	cfg.DefineField("threshold", cty.Number, "Detection threshold in sigma.", cty.NumberFloatVal(5.0))
	cfg.DefineField("filters", cty.List(cty.String), "Filters to process.",
		cty.ListVal([]cty.Value{cty.StringVal("g"), cty.StringVal("r")}))
	bg := cfg.DefineSub("background", "Background estimation.")
	bg.DefineField("binSize", cty.Number, "Bin size in pixels.", cty.NumberIntVal(128))
	bg.DefineField("algorithm", cty.String, "Interpolation algorithm.", cty.StringVal("natural_spline"))
	return cfg
}

// run encapsulates the task so errors and exit codes stay testable.
func run(outW io.Writer, args []string) error {
	parser := cli.New("exampleTask", "raw")
	rc, shouldExit, err := parser.Parse(context.Background(), cli.ParseOptions{
		Args:   args,
		Config: newConfig(),
		Out:    outW,
	})
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	rc.Log.Info("Resolution complete.",
		"camera", rc.Camera,
		"datasetType", rc.DatasetType,
		"identifiers", len(rc.IDs),
		"references", len(rc.Refs))
	for _, ref := range rc.Refs {
		rc.Log.Info("Would process data reference.", "id", ref.ID.String())
	}
	return nil
}
