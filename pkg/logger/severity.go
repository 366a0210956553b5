package logger

import "strings"

// Severity :
// Describes the various available log severities that can be
// used in conjunction with the logger interface.
type Severity int

const (
	Verbose Severity = iota
	Debug
	Info
	Notice
	Warning
	Error
	Critical
	Fatal
)

// Name :
// Provides a string value from the input level identifier. This
// is very useful when actually producing the logs for a given
// level.
//
// Returns the string representing the input log level.
func (s Severity) Name() string {
	if s < Verbose || s > Fatal {
		return "unknown"
	}

	return [...]string{
		"verbose",
		"debug",
		"info",
		"notice",
		"warning",
		"error",
		"critical",
		"fatal",
	}[s]
}

// Color :
// Provides a color value representing the severity. This is used
// as a visual way to distinguish between severity when displayed
// in a logging device.
func (s Severity) Color() Color {
	if s < Verbose || s > Fatal {
		return White
	}

	return [...]Color{
		Grey,
		Blue,
		Green,
		Cyan,
		Yellow,
		Red,
		Red,
		Red,
	}[s]
}

// String :
// Implementation of the stringer interface, returns the colored
// and bracketed name of the severity.
func (s Severity) String() string {
	return FormatWithBrackets(s.Name(), s.Color())
}

// ParseSeverity :
// Converts the input string into the corresponding severity value.
// The case is not important (so `Debug`, `DeBug` or `debug` are all
// converted to `Debug`). Unknown strings yield `Verbose` so that no
// message gets lost because of a typo in the configuration.
//
// The `level` represents the string to convert to a severity.
//
// Returns the severity associated to the input string.
func ParseSeverity(level string) Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "notice":
		return Notice
	case "warning", "warn":
		return Warning
	case "error":
		return Error
	case "critical":
		return Critical
	case "fatal":
		return Fatal
	default:
		return Verbose
	}
}
