// Package monitoring carries the process-wide diagnostic logger used by the
// sorting pipeline. Components log through Logf so tests can mute output and
// deployments can redirect it without threading a logger through every
// constructor.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// Alertf reports conditions worth surfacing to operators (actuator faults,
// persistence failures). It defaults to Logf with an ALERT prefix.
var Alertf = func(format string, v ...interface{}) {
	Logf("ALERT: "+format, v...)
}

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
