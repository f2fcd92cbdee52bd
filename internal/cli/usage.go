package cli

import (
	"fmt"
	"strings"

	"github.com/gcmshadow/pipe-base/internal/paths"
)

// Usage renders the help text for the parser's command surface.
func (p *Parser) Usage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n  %s INPUT [options]\n\n", p.name)
	fmt.Fprintf(&b, "Arguments:\n  INPUT\n    Path to the input data repository, relative to $%s.\n\n", paths.EnvInput)
	b.WriteString("Options:\n")
	rows := [][2]string{
		{"--calib PATH", fmt.Sprintf("path to the input calibration repository, relative to $%s", paths.EnvCalib)},
		{"--output PATH", fmt.Sprintf("path to the output repository (need not exist), relative to $%s", paths.EnvOutput)},
		{"--rerun [INPUT:]OUTPUT", fmt.Sprintf("rerun repository, relative to $%s; mutually exclusive with --output", paths.EnvRerun)},
		{"--id KEY=VALUE1[^VALUE2...] ...", "data identifier, e.g. --id visit=12345 ccd=1,2; values may use START..END[:STRIDE] ranges"},
	}
	if p.datasetArg != nil {
		help := p.datasetArg.Help
		if help == "" {
			help = "dataset type to process from the input repository"
		}
		if p.datasetArg.Default != "" {
			help += fmt.Sprintf(" (default %q)", p.datasetArg.Default)
		}
		rows = append(rows, [2]string{"--datasettype TYPE", help})
	}
	rows = append(rows, [][2]string{
		{"-c, --config NAME=VALUE ...", "config override(s), e.g. -c foo=newfoo bar.baz=3"},
		{"-C, --configfile PATH ...", "config override file(s)"},
		{"-L, --loglevel LEVEL", "logging level: DEBUG, INFO, WARN, FATAL or an integer"},
		{"-T, --trace COMPONENT=LEVEL ...", "trace verbosity per component"},
		{"--debug", "enable debugging output"},
		{"--doraise", "raise an error instead of logging and continuing"},
		{"--logdest PATH", "also write log records to PATH"},
		{"--show WHAT ...", "display config and/or data identifiers; WHAT is config, data or exit"},
		{"-j, --processes N", "number of processes to use"},
		{"-h, --help", "show this help and exit"},
	}...)
	for _, row := range rows {
		fmt.Fprintf(&b, "  %s\n    %s\n", row[0], row[1])
	}
	b.WriteString(`
Notes:
* --rerun specifies the input and output directories simultaneously,
  relative to the same root.
* --config, --configfile, --id, --trace and @file may appear multiple
  times; all values are used, in order left to right.
* @FILE reads command-line options from FILE, one or more per line;
  text after # is a comment and blank lines are ignored.
* To give an option multiple values, do not use = after the option name:
  wrong: --configfile=foo bar   right: --configfile foo bar
`)
	return b.String()
}
