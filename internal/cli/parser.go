package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/gcmshadow/pipe-base/internal/config"
	"github.com/gcmshadow/pipe-base/internal/ctxlog"
	"github.com/gcmshadow/pipe-base/internal/dataid"
	"github.com/gcmshadow/pipe-base/internal/dataref"
	"github.com/gcmshadow/pipe-base/internal/overrides"
	"github.com/gcmshadow/pipe-base/internal/paths"
	"github.com/gcmshadow/pipe-base/internal/repo"
)

// DatasetArgument makes the dataset type a command-line option instead of a
// fixed parser parameter. With an empty Default the option is required.
type DatasetArgument struct {
	Help    string
	Default string
}

// Parser resolves a pipeline task's command line.
type Parser struct {
	name        string
	datasetType string
	datasetArg  *DatasetArgument
	refLevel    string
	cameraHook  func(ctx context.Context, camera string, cfg *config.Config) error
}

// Option configures a Parser.
type Option func(*Parser)

// WithRefLevel sets the reference level for materialized data references.
// The default is the mapper's default level.
func WithRefLevel(level string) Option {
	return func(p *Parser) { p.refLevel = level }
}

// WithDatasetArgument replaces the fixed dataset type with a --datasettype
// command-line option.
func WithDatasetArgument(arg DatasetArgument) Option {
	return func(p *Parser) { p.datasetArg = &arg }
}

// WithCameraHook installs a callback invoked after the camera is known and
// before any override is applied.
func WithCameraHook(hook func(ctx context.Context, camera string, cfg *config.Config) error) Option {
	return func(p *Parser) { p.cameraHook = hook }
}

// New creates a parser for the named task. name selects the packaged and
// camera-specific override files. datasetType is ignored when
// WithDatasetArgument is given.
func New(name, datasetType string, opts ...Option) *Parser {
	p := &Parser{name: name, datasetType: datasetType}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseOptions carries the per-invocation inputs of Parse.
type ParseOptions struct {
	// Args is the raw argument list; nil means os.Args[1:].
	Args []string
	// Config is the task configuration the overrides apply to. Required.
	Config *config.Config
	// Log replaces the parser-owned logger. A caller-supplied logger cannot
	// be retuned by --loglevel or --debug.
	Log *slog.Logger
	// Override is a programmatic override callback, applied after the two
	// fixed-priority override files and before any command-line override.
	Override func(cfg *config.Config) error
	// Out receives help text and --show output; nil means os.Stdout.
	Out io.Writer
}

// ResolvedContext is the immutable result of one resolution pass. The Refs
// are valid only while Repo is live.
type ResolvedContext struct {
	Camera      string
	DatasetType string
	Input       string
	Calib       string
	Output      string
	Rerun       []string
	Config      *config.Config
	Repo        *repo.Repository
	IDs         []dataid.Typed
	Refs        []*repo.Ref
	Log         *slog.Logger
	Processes   int
	Debug       bool
	DoRaise     bool
	Show        map[string]bool
}

// Parse resolves a command line into a ResolvedContext. The bool result is
// true when the invocation asked for a clean early exit (--help, --show
// exit); the context is nil in that case.
func (p *Parser) Parse(ctx context.Context, opts ParseOptions) (*ResolvedContext, bool, error) {
	if opts.Config == nil {
		panic("cli: ParseOptions.Config is required")
	}
	args := opts.Args
	if args == nil {
		args = os.Args[1:]
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	logger := opts.Log
	var levelVar *slog.LevelVar
	if logger == nil {
		logger, levelVar = ctxlog.New(os.Stderr, slog.LevelInfo)
	}
	ctx = ctxlog.WithLogger(ctx, logger)

	tokens, err := expandArgs(args)
	if err != nil {
		return nil, false, err
	}

	// The input repository must be the first argument; everything after it
	// is an option.
	if len(tokens) >= 1 && (tokens[0] == "-h" || tokens[0] == "--help") {
		fmt.Fprint(out, p.Usage())
		return nil, true, nil
	}
	if len(tokens) < 1 || strings.HasPrefix(tokens[0], "-") || strings.HasPrefix(tokens[0], "@") {
		fmt.Fprint(out, p.Usage())
		return nil, false, usageError("must specify input as first argument")
	}

	input, err := paths.Fix(paths.EnvInput, tokens[0])
	if err != nil {
		return nil, false, err
	}
	if fi, err := os.Stat(input); err != nil || !fi.IsDir() {
		return nil, false, usageError("input=%q not found", input)
	}

	// Phase one: pure syntax. Every malformed token fails here, before the
	// mapper is resolved or the repository opened.
	res, err := scan(tokens[1:], p.datasetArg != nil)
	if err != nil {
		return nil, false, err
	}
	if res.help {
		fmt.Fprint(out, p.Usage())
		return nil, true, nil
	}

	datasetType := p.datasetType
	if p.datasetArg != nil {
		datasetType = res.datasetType
		if datasetType == "" {
			datasetType = p.datasetArg.Default
		}
		if datasetType == "" {
			return nil, false, usageError("option --datasettype is required")
		}
	}

	for _, ts := range res.traces {
		ctxlog.SetVerbosity(ts.component, ts.level)
	}

	mapper, err := repo.ResolveMapper(ctx, input)
	if err != nil {
		return nil, false, err
	}
	camera := mapper.CameraName()
	cfg := opts.Config

	if p.cameraHook != nil {
		if err := p.cameraHook(ctx, camera, cfg); err != nil {
			return nil, false, err
		}
	}

	// Fixed-priority override stages: packaged defaults for the task, then
	// the camera-specific file, then the programmatic callback. Command-line
	// overrides follow, in exact token order.
	if dir := mapper.ConfigDir(); dir != "" {
		for _, path := range []string{
			filepath.Join(dir, p.name+".hcl"),
			filepath.Join(dir, camera, p.name+".hcl"),
		} {
			if err := overrides.ApplyFileIfExists(ctx, cfg, path); err != nil {
				return nil, false, err
			}
		}
	}
	if opts.Override != nil {
		if err := opts.Override(cfg); err != nil {
			return nil, false, err
		}
	}
	if err := res.overrides.Apply(ctx, cfg); err != nil {
		return nil, false, err
	}

	calib, err := paths.Fix(paths.EnvCalib, res.calib)
	if err != nil {
		return nil, false, err
	}
	output, err := paths.Fix(paths.EnvOutput, res.output)
	if err != nil {
		return nil, false, err
	}

	var rerun []string
	if res.rerun != "" {
		if output != "" {
			return nil, false, fmt.Errorf("cannot specify both --output and --rerun")
		}
		rerun, err = paths.ResolveRerun(paths.EnvRerun, res.rerun)
		if err != nil {
			return nil, false, usageError("%v", err)
		}
		modifiedInput := false
		if len(rerun) == 2 {
			input, output = rerun[0], rerun[1]
			modifiedInput = true
		} else if _, err := os.Stat(rerun[0]); err == nil {
			// A single existing path is reused as input; a fresh one is an
			// output-only location.
			input = rerun[0]
			modifiedInput = true
		} else {
			output = rerun[0]
		}
		if modifiedInput {
			name, err := repo.MapperName(input)
			if err != nil {
				return nil, false, err
			}
			if name != mapper.Name() {
				return nil, false, fmt.Errorf("input directory specified by --rerun must have the same mapper as INPUT")
			}
		}
	}

	logger.Info("Resolved repository paths.", "input", input, "calib", calib, "output", output)

	if res.show["config"] {
		cfg.Dump(out, "config")
	}

	// Phase two: the repository service exists from here on; remaining
	// failures are semantic.
	repository, err := repo.Open(ctx, input, calib, output)
	if err != nil {
		return nil, false, err
	}

	schema, err := repository.Keys(datasetType, p.refLevel)
	if err != nil {
		return nil, false, err
	}
	ids, err := dataid.Cast(res.ids, schema)
	if err != nil {
		return nil, false, err
	}

	refs, err := dataref.Materialize(ctx, ids, repository, datasetType, p.refLevel)
	if err != nil {
		return nil, false, err
	}
	if len(refs) == 0 {
		logger.Warn("No data found.")
	}

	if res.show["data"] {
		for _, ref := range refs {
			fmt.Fprintf(out, "ref.id = %s\n", ref.ID)
		}
	}
	if res.show["exit"] {
		return nil, true, nil
	}

	debug := res.debug
	if debug {
		if levelVar != nil {
			levelVar.Set(slog.LevelDebug)
		} else {
			logger.Warn("Debugging output is not available with a caller-supplied logger.")
			debug = false
		}
	}
	if res.logDest != "" {
		var level slog.Leveler = slog.LevelInfo
		if levelVar != nil {
			level = levelVar
		}
		logger, err = ctxlog.WithDestination(logger, res.logDest, level)
		if err != nil {
			return nil, false, err
		}
	}
	if res.logLevel != "" {
		level, err := ctxlog.ParseLevel(res.logLevel)
		if err != nil {
			return nil, false, usageError("%v", err)
		}
		if levelVar != nil {
			levelVar.Set(level)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	cfg.Freeze()

	rc := &ResolvedContext{
		Camera:      camera,
		DatasetType: datasetType,
		Input:       input,
		Calib:       calib,
		Output:      output,
		Rerun:       rerun,
		Config:      cfg,
		Repo:        repository,
		IDs:         ids,
		Refs:        refs,
		Log:         logger,
		Processes:   res.processes,
		Debug:       debug,
		DoRaise:     res.doRaise,
		Show:        res.show,
	}
	if debug {
		spew.Fdump(os.Stderr, rc.IDs)
	}
	return rc, false, nil
}
