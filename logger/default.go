package logger

import "sync/atomic"

var defLogger atomic.Pointer[Logger]

func init() {
	SetLogger(NewSlog(InfoLevel, false))
}

func get() Logger { return *defLogger.Load() }

func Debug(msg string, keysAndValues ...any) {
	get().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	get().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	get().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	get().Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	get().Fatal(msg, keysAndValues...)
}

func SetLevel(level LogLevel) {
	get().SetLevel(level)
}

// GetLogger returns the package default logger. Recorders and serial ports
// created without an explicit logger use it.
func GetLogger() Logger {
	return get()
}

// SetLogger replaces the package default logger. A nil l is ignored.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(&l)
}

func With(keyValues ...any) Logger {
	return get().With(keyValues...)
}
