// Package logger defines the logging contract shared by planning components.
package logger

// Logger is implemented by infra/logger. The *w variants attach structured
// fields such as run ids and solver counters.
type Logger interface {
	Debugf(format string, args ...any)
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Infow(msg string, fields map[string]any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
