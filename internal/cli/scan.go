package cli

import (
	"strconv"
	"strings"

	"github.com/gcmshadow/pipe-base/internal/dataid"
	"github.com/gcmshadow/pipe-base/internal/overrides"
)

// traceSetting is one -T/--trace COMPONENT=LEVEL occurrence.
type traceSetting struct {
	component string
	level     int
}

// scanResult is everything the token scanner extracts from the command line
// after the positional input argument. Nothing here has touched the
// repository or the config yet.
type scanResult struct {
	calib       string
	output      string
	rerun       string
	datasetType string
	logLevel    string
	logDest     string
	debug       bool
	doRaise     bool
	help        bool
	processes   int
	show        map[string]bool
	ids         []dataid.Raw
	overrides   overrides.Set
	traces      []traceSetting
}

// scan tokenizes and validates every option in one pass, recording overrides
// and identifier batches in command-line order. All syntax errors surface
// here, before any repository or config work happens.
func scan(tokens []string, wantDatasetArg bool) (*scanResult, error) {
	res := &scanResult{processes: 1, show: map[string]bool{}}

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if !strings.HasPrefix(tok, "-") {
			return nil, usageError("unexpected argument %q", tok)
		}
		name, inline, hasInline := strings.Cut(tok, "=")
		i++

		// value consumes the single value of an option, inline or following.
		value := func() (string, error) {
			if hasInline {
				return inline, nil
			}
			if i >= len(tokens) {
				return "", usageError("option %s requires a value", name)
			}
			v := tokens[i]
			i++
			return v, nil
		}
		// group consumes every following token up to the next option. An
		// inline =value forms a single-element group.
		group := func() []string {
			if hasInline {
				return []string{inline}
			}
			var g []string
			for i < len(tokens) && !strings.HasPrefix(tokens[i], "-") {
				g = append(g, tokens[i])
				i++
			}
			return g
		}
		flag := func() error {
			if hasInline {
				return usageError("option %s takes no value", name)
			}
			return nil
		}

		var err error
		switch name {
		case "-h", "--help":
			err = flag()
			res.help = true
		case "--debug":
			err = flag()
			res.debug = true
		case "--doraise":
			err = flag()
			res.doRaise = true
		case "--calib":
			res.calib, err = value()
		case "--output":
			res.output, err = value()
		case "--rerun":
			res.rerun, err = value()
		case "--logdest":
			res.logDest, err = value()
		case "-L", "--loglevel":
			res.logLevel, err = value()
		case "-j", "--processes":
			var v string
			if v, err = value(); err == nil {
				res.processes, err = strconv.Atoi(v)
				if err != nil || res.processes < 1 {
					err = usageError("option %s: %q is not a positive integer", name, v)
				}
			}
		case "--datasettype":
			if !wantDatasetArg {
				return nil, usageError("unrecognized option %q", tok)
			}
			res.datasetType, err = value()
		case "--id":
			var batch []dataid.Raw
			batch, err = dataid.ParseTokens(name, group())
			res.ids = append(res.ids, batch...)
		case "-c", "--config":
			for _, t := range group() {
				field, v, ok := strings.Cut(t, "=")
				if !ok || field == "" || v == "" {
					return nil, usageError("%s value %q must be in form name=value", name, t)
				}
				res.overrides.AddValue(name, field, v)
			}
		case "-C", "--configfile":
			for _, t := range group() {
				res.overrides.AddFile(name, t)
			}
		case "-T", "--trace":
			for _, t := range group() {
				component, levelStr, ok := strings.Cut(t, "=")
				if !ok || component == "" || levelStr == "" {
					return nil, usageError("%s value %q must be in form component=level", name, t)
				}
				level, aerr := strconv.Atoi(levelStr)
				if aerr != nil {
					return nil, usageError("cannot parse %q as an integer level for %s", levelStr, component)
				}
				res.traces = append(res.traces, traceSetting{component: component, level: level})
			}
		case "--show":
			for _, t := range group() {
				switch t {
				case "config", "data", "exit":
					res.show[t] = true
				default:
					return nil, usageError("unrecognized --show value %q; choices are config, data, exit", t)
				}
			}
		default:
			return nil, usageError("unrecognized option %q", tok)
		}
		if err != nil {
			if _, ok := err.(*ExitError); ok {
				return nil, err
			}
			return nil, usageError("%v", err)
		}
	}
	return res, nil
}
