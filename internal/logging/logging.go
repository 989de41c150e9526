// Package logging builds the zap loggers handed to every component.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLoggerConfig returns a console config with ISO8601 timestamps and
// no stacktraces.
func NewLoggerConfig(debug bool) zap.Config {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a named logger. Callers own it and should Sync it on
// exit.
func NewLogger(name string, debug bool) (*zap.SugaredLogger, error) {
	l, err := NewLoggerConfig(debug).Build()
	if err != nil {
		return nil, err
	}
	return l.Named(name).Sugar(), nil
}

// Fatal logs err, flushes the logger and exits with status 1.
func Fatal(logger *zap.SugaredLogger, err error) {
	fatal(logger, err, os.Exit)
}

func fatal(logger *zap.SugaredLogger, err error, exit func(int)) {
	logger.Errorf("fatal: %v", err)
	_ = logger.Sync()
	exit(1)
}
