package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a *logrus.Logger to Logger.
type LogrusLogger struct {
	base  *logrus.Logger
	entry *logrus.Entry
}

var _ Logger = (*LogrusLogger)(nil)

// NewLogrus wraps l. A nil l is replaced by logrus.New().
func NewLogrus(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.New()
	}

	return &LogrusLogger{base: l, entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Debug(msg string, keysAndValues ...any) {
	l.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, keysAndValues ...any) {
	l.entry.WithFields(toFields(keysAndValues)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, keysAndValues ...any) {
	l.entry.WithFields(toFields(keysAndValues)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, keysAndValues ...any) {
	l.entry.WithFields(toFields(keysAndValues)).Error(msg)
}

func (l *LogrusLogger) Fatal(msg string, keysAndValues ...any) {
	l.entry.WithFields(toFields(keysAndValues)).Fatal(msg)
}

func (l *LogrusLogger) With(keyValues ...any) Logger {
	return &LogrusLogger{base: l.base, entry: l.entry.WithFields(toFields(keyValues))}
}

func (l *LogrusLogger) Level() LogLevel {
	switch l.base.GetLevel() {
	case logrus.TraceLevel, logrus.DebugLevel:
		return DebugLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}

// SetLevel changes the level of the wrapped logrus.Logger, which is shared
// by every child created with With.
func (l *LogrusLogger) SetLevel(level LogLevel) {
	switch level {
	case DebugLevel:
		l.base.SetLevel(logrus.DebugLevel)
	case InfoLevel:
		l.base.SetLevel(logrus.InfoLevel)
	case WarnLevel:
		l.base.SetLevel(logrus.WarnLevel)
	case ErrorLevel:
		l.base.SetLevel(logrus.ErrorLevel)
	default:
		l.base.SetLevel(logrus.FatalLevel)
	}
}

// toFields turns alternating keys and values into logrus fields.
// A dangling key is stored under "!BADKEY", as log/slog does.
func toFields(kv []any) logrus.Fields {
	fields := make(logrus.Fields, (len(kv)+1)/2)

	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			fields["!BADKEY"] = kv[i]
			break
		}

		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}

	return fields
}
