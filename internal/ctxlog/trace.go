package ctxlog

import "sync"

// traceMu guards traceLevels. Resolution itself is single-threaded, but the
// verbosity registry is read by whatever components the caller runs afterwards.
var traceMu sync.RWMutex

var traceLevels = map[string]int{}

// SetVerbosity records the trace verbosity for a named component.
func SetVerbosity(component string, level int) {
	traceMu.Lock()
	defer traceMu.Unlock()
	traceLevels[component] = level
}

// Verbosity reports the trace verbosity recorded for a component, zero if unset.
func Verbosity(component string) int {
	traceMu.RLock()
	defer traceMu.RUnlock()
	return traceLevels[component]
}

// ResetVerbosity clears all recorded trace levels. Intended for tests.
func ResetVerbosity() {
	traceMu.Lock()
	defer traceMu.Unlock()
	traceLevels = map[string]int{}
}
