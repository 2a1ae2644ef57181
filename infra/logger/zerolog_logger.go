package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options select the level and format of process logs.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string `json:"level"`
	// Format is "json" or "console". Empty falls back to console when
	// APP_ENV=dev and json otherwise.
	Format string `json:"format"`
	// Output defaults to stderr so reports written to stdout stay clean.
	Output io.Writer `json:"-"`
}

var (
	mu      sync.RWMutex
	current = Options{}
)

// Configure validates and installs opts for every logger created afterwards.
func Configure(opts Options) error {
	if opts.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(opts.Level)); err != nil {
			return fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	}
	switch strings.ToLower(opts.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}
	mu.Lock()
	current = opts
	mu.Unlock()
	return nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger from the configured options. All
// logs include the provided component field.
func NewZerologLogger(component string) Logger {
	mu.RLock()
	opts := current
	mu.RUnlock()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	format := strings.ToLower(opts.Format)
	if format == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		format = "console"
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	level := zerolog.InfoLevel
	if opts.Level != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(opts.Level)); err == nil {
			level = l
		}
	}
	z := zerolog.New(out).Level(level).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
