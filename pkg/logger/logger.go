// Package logger provides the controller's structured logging, wrapping
// zerolog so the rest of the tree can keep calling logger.Info/Warn/Error
// the way it would with a bare stdlib logger, but with a configurable
// trace/debug/info/warn/error level filter.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps a configured zerolog.Logger.
type Logger struct {
	z zerolog.Logger
}

var Default = New("info")

// New builds a Logger writing to stdout with the given minimum level
// ("trace", "debug", "info", "warn", "error"). An unrecognized level
// defaults to "info".
func New(level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	z := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return &Logger{z: z}
}

// SetLevel adjusts the default logger's level threshold at runtime.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	Default.z = Default.z.Level(lvl)
}

func (l *Logger) Trace(format string, v ...any) { l.z.Trace().Msgf(format, v...) }
func (l *Logger) Debug(format string, v ...any) { l.z.Debug().Msgf(format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.z.Info().Msgf(format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.z.Warn().Msgf(format, v...) }
func (l *Logger) Error(format string, v ...any) { l.z.Error().Msgf(format, v...) }
func (l *Logger) Fatal(format string, v ...any) { l.z.Fatal().Msgf(format, v...) }

func Trace(format string, v ...any) { Default.Trace(format, v...) }
func Debug(format string, v ...any) { Default.Debug(format, v...) }
func Info(format string, v ...any)  { Default.Info(format, v...) }
func Warn(format string, v ...any)  { Default.Warn(format, v...) }
func Error(format string, v ...any) { Default.Error(format, v...) }
func Fatal(format string, v ...any) { Default.Fatal(format, v...) }
