// Package logger is the logging facade of go-sdi12.
//
// Recorders, buses and serial ports log through the Logger interface, so an
// application can route protocol traces into whatever it already uses.
// Two backends are provided: NewSlog, built on log/slog (with a colored
// console handler when ENV=development), and NewLogrus, which adapts an
// existing *logrus.Logger.
//
// Messages are emitted with key/value pairs. go-sdi12 itself logs at these levels:
//
//   - DebugLevel: every transaction step, break and retry.
//   - InfoLevel: serial port opened.
//   - WarnLevel: transactions that failed after all retries, and a frame
//     format that could not be restored.
package logger

// LogLevel is a logging severity.
type LogLevel = int8

const (
	DebugLevel LogLevel = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
	// FatalLevel logs, then calls os.Exit(1).
	FatalLevel
)

// Logger is a leveled, structured logger.
//
// keysAndValues alternate between string keys and arbitrary values. Fields
// added with With are carried by the child only.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs at FatalLevel and exits the process, even if the level is
	// disabled.
	Fatal(msg string, keysAndValues ...any)

	With(keyValues ...any) Logger

	Level() LogLevel
	SetLevel(level LogLevel)
}
