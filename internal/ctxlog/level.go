package ctxlog

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// LevelFatal sits above slog.LevelError; a FATAL record always precedes
// process termination.
const LevelFatal = slog.Level(12)

// levelNames is the permitted set of named logging levels, in severity order.
var levelNames = []string{"DEBUG", "INFO", "WARN", "FATAL"}

// ParseLevel converts a level argument into a slog.Level. Accepted forms are
// the names DEBUG, INFO, WARN and FATAL (case-insensitive) or a bare integer,
// which is used as a raw slog level value.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "FATAL":
		return LevelFatal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("log level %q is not an integer or one of %s", s, strings.Join(levelNames, ", "))
	}
	return slog.Level(n), nil
}
