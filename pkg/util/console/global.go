package console

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Default is the global instance of Console, so we don't have to pass one
// around everywhere.
var Default = &Console{
	Color: IsTTY(os.Stderr),
	Level: InfoLevel,
}

// SetLevel sets the log level of the global console.
func SetLevel(level Level) {
	Default.Level = level
}

// SetColor sets whether the global console prints colors.
func SetColor(color bool) {
	Default.Color = color
}

// Debug level message.
func Debug(msg string) {
	Default.Debug(msg)
}

// Info level message.
func Info(msg string) {
	Default.Info(msg)
}

// Warn level message.
func Warn(msg string) {
	Default.Warn(msg)
}

// Error level message.
func Error(msg string) {
	Default.Error(msg)
}

// Fatal level message, followed by exit.
func Fatal(msg string) {
	Default.Fatal(msg)
}

// Debug level message.
func Debugf(msg string, v ...interface{}) {
	Default.Debugf(msg, v...)
}

// Info level message.
func Infof(msg string, v ...interface{}) {
	Default.Infof(msg, v...)
}

// Warn level message.
func Warnf(msg string, v ...interface{}) {
	Default.Warnf(msg, v...)
}

// Error level message.
func Errorf(msg string, v ...interface{}) {
	Default.Errorf(msg, v...)
}

// Fatal level message, followed by exit.
func Fatalf(msg string, v ...interface{}) {
	Default.Fatalf(msg, v...)
}

// Output a line to stdout.
func Output(s string) {
	Default.Output(s)
}

// IsTTY checks if a file is a TTY or not. E.g. IsTTY(os.Stderr)
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}
