package monitoring

import "log"

// Logf is the package-level progress logger used by the CLI. It defaults to
// log.Printf and may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// Verbosef logs only when verbose output is enabled.
var Verbosef func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose routes Verbosef to Logf when on and mutes it otherwise.
func SetVerbose(on bool) {
	if on {
		Verbosef = func(format string, v ...interface{}) { Logf(format, v...) }
		return
	}
	Verbosef = func(string, ...interface{}) {}
}
