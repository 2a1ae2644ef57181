// Package logger provides the zerolog-backed implementation of the core
// logging contract.
package logger

import corelogger "github.com/kilianp07/dustplan/core/logger"

type Logger = corelogger.Logger

// NopLogger discards everything; tests and optional collaborators use it.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a logger whose entries carry component=<component>. Level and
// format come from the last successful Configure call.
func New(component string) Logger { return NewZerologLogger(component) }
