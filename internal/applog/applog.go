// Package applog builds the logger shared by the flow binaries. Records are
// encoded by zap; library packages only see log/slog. One zap.AtomicLevel
// gates both sides, so the server can change verbosity while running.
package applog

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options describes one binary's logger.
type Options struct {
	Service string // stamped on every record as "service"
	Level   string // zap level name, case-insensitive; empty means info
	JSON    bool   // JSON lines instead of console output
	Caller  bool
	Out     io.Writer // stdout when nil
}

// Logger is a slog.Logger that keeps hold of its zap core and level.
type Logger struct {
	*slog.Logger
	zl    *zap.Logger
	level zap.AtomicLevel
}

// Build returns a logger for o. It fails on an unknown level name.
func Build(o Options) (*Logger, error) {
	level := zap.NewAtomicLevel()
	if o.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(o.Level))); err != nil {
			return nil, fmt.Errorf("applog: %w", err)
		}
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(enc)
	if o.JSON {
		encoder = zapcore.NewJSONEncoder(enc)
	}
	out := o.Out
	if out == nil {
		out = os.Stdout
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if o.Caller {
		opts = append(opts, zap.AddCaller())
	}
	if o.Service != "" {
		opts = append(opts, zap.Fields(zap.String("service", o.Service)))
	}
	zl := zap.New(zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level), opts...)

	h := slogzap.Option{Level: slogLevel{level}, Logger: zl, AddSource: o.Caller}.NewZapHandler()
	return &Logger{Logger: slog.New(h), zl: zl, level: level}, nil
}

// Install makes l the slog and zap default and routes the standard log
// package through it.
func (l *Logger) Install() {
	zap.ReplaceGlobals(l.zl)
	zap.RedirectStdLog(l.zl)
	slog.SetDefault(l.Logger)
}

// SetLevel changes the level of l and of every logger derived from it.
func (l *Logger) SetLevel(name string) error {
	if err := l.level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return fmt.Errorf("applog: %w", err)
	}
	return nil
}

// Level reports the current level name.
func (l *Logger) Level() string { return l.level.String() }

// LevelHandler serves the level as JSON: GET reads it, PUT {"level":"debug"}
// changes it.
func (l *Logger) LevelHandler() http.Handler { return l.level }

// Sync flushes buffered records.
func (l *Logger) Sync() error { return l.zl.Sync() }

// Fatal logs through the default logger and exits.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	_ = zap.L().Sync()
	os.Exit(1)
}

// slogLevel reads the shared zap level as a slog.Leveler.
type slogLevel struct{ zap.AtomicLevel }

func (l slogLevel) Level() slog.Level {
	switch lv := l.AtomicLevel.Level(); {
	case lv <= zapcore.DebugLevel:
		return slog.LevelDebug
	case lv == zapcore.InfoLevel:
		return slog.LevelInfo
	case lv == zapcore.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
