package cli

import "fmt"

// ExitError is a fatal resolution error carrying a specific exit code.
// Syntax-tier errors use code 2, matching conventional usage errors.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageError builds the syntax-tier ExitError.
func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}
