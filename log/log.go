package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Verbose controls whether debug messages are being printed.
var Verbose bool

// IndentationLevel controls the amount of indentation of log messages.
var IndentationLevel = 0

var errorOccured = false

const (
	indentField = "indent"
	kindField   = "kind"
)

const (
	kindPlain   = "plain"
	kindSuccess = "success"
)

var logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	return &logrus.Logger{
		Out:       out,
		Formatter: &narrationFormatter{},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.DebugLevel,
		ExitFunc:  os.Exit,
	}
}

// narrationFormatter renders entries the way the console narration looks:
// indented, with a coloured marker in front of everything but plain messages.
type narrationFormatter struct{}

func (f *narrationFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	indent := 0
	if level, ok := entry.Data[indentField].(int); ok {
		indent = level
	}

	prefix := ""
	switch {
	case entry.Data[kindField] == kindPlain:
	case entry.Data[kindField] == kindSuccess:
		prefix = "\033[32mSuccess: \033[0m"
	case entry.Level == logrus.DebugLevel:
		prefix = "\033[36mDebug: \033[0m"
	case entry.Level == logrus.WarnLevel:
		prefix = "\033[33mWarning: \033[0m"
	case entry.Level <= logrus.ErrorLevel:
		prefix = "\033[31mError: \033[0m"
	}

	return []byte(strings.Repeat("  ", indent) + prefix + entry.Message), nil
}

// SetOutput redirects all messages to `w`. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	previous := logger.Out
	logger.SetOutput(w)
	return previous
}

// ResetErrorOccured clears the flag reported by ErrorOccured.
func ResetErrorOccured() {
	errorOccured = false
}

// ErrorOccured reports whether any errors have occured.
func ErrorOccured() bool {
	return errorOccured
}

func entry(kind string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		indentField: IndentationLevel,
		kindField:   kind,
	})
}

// Log prints an indented and formatted message to os.Stderr.
func Log(format string, a ...interface{}) {
	entry(kindPlain).Infof(format, a...)
}

// Debug prints an indented and formatted debug message to os.Stderr if verbose output is selected.
func Debug(format string, a ...interface{}) {
	if Verbose {
		entry("").Debugf(format, a...)
	}
}

// Success prints an indented and formatted success message to os.Stderr.
func Success(format string, a ...interface{}) {
	entry(kindSuccess).Infof(format, a...)
}

// Warning prints an indented and formatted warning to os.Stderr.
func Warning(format string, a ...interface{}) {
	entry("").Warnf(format, a...)
}

// Error prints an indented and formatted error message to os.Stderr.
func Error(format string, a ...interface{}) {
	errorOccured = true
	entry("").Errorf(format, a...)
}

// Fatal prints an indented and formatted error message to os.Stderr and terminates the program.
func Fatal(format string, a ...interface{}) {
	Error(format, a...)
	fmt.Fprintf(logger.Out, "\033[31mA fatal error occured. Exiting...\033[0m\n")
	logger.Exit(1)
}

// Banner prints `title` framed by two rules of '=' characters, followed by `lines`.
func Banner(title string, lines ...string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(logger.Out, "\n%s\n%s\n%s\n", rule, title, rule)
	for _, line := range lines {
		fmt.Fprintf(logger.Out, "%s\n", line)
	}
}
