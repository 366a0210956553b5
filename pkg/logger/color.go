package logger

// Color :
// Defines the color that can be produced as valid standard
// output display.
type Color int

const (
	Black Color = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
	Grey
)

// Code :
// Returns the escape sequence allowing to switch the display
// of a terminal to this color.
func (c Color) Code() string {
	code := [...]string{
		"30",
		"31",
		"32",
		"33",
		"34",
		"35",
		"36",
		"37",
		"90",
	}[c]

	return "\033[1;" + code + "m"
}

// reset :
// Escape sequence restoring the default display of the
// terminal.
const reset = "\033[0m"

// decorate :
// Used to format the input message with optional brackets
// and an optional color.
//
// The `msg` represents the content to decorate.
//
// The `c` defines the color to use. It is ignored in case
// `colored` is `false`.
//
// The `brackets` allows to surround the message with `[`
// and `]` characters.
//
// Returns the decorated string.
func decorate(msg string, c Color, colored bool, brackets bool) string {
	if brackets {
		msg = "[" + msg + "]"
	}
	if !colored {
		return msg
	}

	return c.Code() + msg + reset
}

// FormatWithBrackets :
// Wraps the input message in brackets and displays it with
// the provided color.
func FormatWithBrackets(msg string, c Color) string {
	return decorate(msg, c, true, true)
}

// FormatWithNoBrackets :
// Similar to `FormatWithBrackets` without the brackets.
func FormatWithNoBrackets(msg string, c Color) string {
	return decorate(msg, c, true, false)
}
