package logger

// Logger :
// Describes a common interface used for logging purposes.
// A single method is needed to allow the logging of some
// messages based on a content and a severity.
//
// The `Trace` allows to log a message with the specified
// level. The `module` identifies the component producing
// the message and is displayed alongside it.
type Logger interface {
	Trace(level Severity, module string, message string)
}

// NullLogger :
// A logger discarding every message. Mostly useful in tests
// and for tools which do not need any output.
type NullLogger struct{}

// NewNullLogger :
// Returns a logger which drops everything.
func NewNullLogger() Logger {
	return NullLogger{}
}

// Trace :
// Implementation of the `Logger` interface.
func (NullLogger) Trace(level Severity, module string, message string) {}
