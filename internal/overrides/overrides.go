package overrides

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gcmshadow/pipe-base/internal/config"
	"github.com/gcmshadow/pipe-base/internal/ctxlog"
)

// Kind discriminates the two override operation forms.
type Kind int

const (
	// KindValue sets one dotted field from a NAME=VALUE literal.
	KindValue Kind = iota
	// KindFile loads a file of overrides.
	KindFile
)

// Operation is one recorded override. Position in the log is the position of
// the originating token on the command line.
type Operation struct {
	Kind   Kind
	Name   string // KindValue: dotted field path
	Value  string // KindValue: raw value string
	File   string // KindFile: override file path
	Source string // flag that introduced the operation, for error messages
}

// Set is an ordered override operation log.
type Set struct {
	ops []Operation
}

// AddValue records a NAME=VALUE override.
func (s *Set) AddValue(source, name, value string) {
	s.ops = append(s.ops, Operation{Kind: KindValue, Name: name, Value: value, Source: source})
}

// AddFile records a file override.
func (s *Set) AddFile(source, file string) {
	s.ops = append(s.ops, Operation{Kind: KindFile, File: file, Source: source})
}

// Len reports the number of recorded operations.
func (s *Set) Len() int { return len(s.ops) }

// Operations returns the recorded log in application order.
func (s *Set) Operations() []Operation { return s.ops }

// Apply replays the log against cfg in recorded order. The first failing
// operation aborts the pass.
func (s *Set) Apply(ctx context.Context, cfg *config.Config) error {
	logger := ctxlog.FromContext(ctx)
	for _, op := range s.ops {
		switch op.Kind {
		case KindValue:
			logger.Debug("Applying config override.", "field", op.Name, "value", op.Value)
			if err := cfg.SetFromString(op.Name, op.Value); err != nil {
				var unknown *config.UnknownFieldError
				if errors.As(err, &unknown) {
					return err
				}
				return fmt.Errorf("%s %s=%s: %w", op.Source, op.Name, op.Value, err)
			}
		case KindFile:
			logger.Debug("Applying config override file.", "file", op.File)
			if err := cfg.LoadFile(op.File); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyFileIfExists loads an override file only if it is present. The two
// fixed-priority override stages (package defaults, camera defaults) use this
// so an absent file is a log line, not an error.
func ApplyFileIfExists(ctx context.Context, cfg *config.Config, path string) error {
	logger := ctxlog.FromContext(ctx)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Config override file does not exist.", "file", path)
			return nil
		}
		return fmt.Errorf("cannot load config file %s: %w", path, err)
	}
	logger.Info("Loading config override file.", "file", path)
	return cfg.LoadFile(path)
}
