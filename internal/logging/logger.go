// Package logging provides the structured logger used across tvrank.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tvrank/tvrank/internal/config"
)

// Logger is the structured logging interface used across tvrank's
// components. All of it is satisfied by a *zapLogger; callers that only
// need to log pass this interface, never *zap.Logger directly.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, err error, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	Sync() error
}

type zapLogger struct {
	logger *zap.Logger
}

// New creates a structured logger from a config.LoggerConfig, choosing
// console or JSON encoding and routing to stdout/stderr/a file.
func New(cfg config.LoggerConfig) (Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	}

	if noColor := os.Getenv("NO_COLOR"); noColor != "" && noColor != "0" {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "console", "":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	var writeSyncer zapcore.WriteSyncer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		writeSyncer = zapcore.AddSync(os.Stdout)
	case "stderr", "":
		writeSyncer = zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writeSyncer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	options := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		options = append(options, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return &zapLogger{logger: zap.New(core, options...)}, nil
}

// NewDefault returns a console logger at the given verbosity (0, 1, 2
// mapping to info/debug/debug+development, matching the CLI's -v/-vv).
func NewDefault(verbosity int) Logger {
	cfg := config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		Output:      "stderr",
		Development: verbosity >= 2,
	}
	if verbosity >= 1 {
		cfg.Level = "debug"
	}

	logger, err := New(cfg)
	if err != nil {
		zapLog, _ := zap.NewDevelopment()
		return &zapLogger{logger: zapLog}
	}
	return logger
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.logger.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.logger.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.logger.Warn(msg, fields...) }

func (l *zapLogger) Error(msg string, err error, fields ...zap.Field) {
	allFields := make([]zap.Field, 0, len(fields)+1)
	if err != nil {
		allFields = append(allFields, zap.Error(err))
	}
	allFields = append(allFields, fields...)
	l.logger.Error(msg, allFields...)
}

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

func (l *zapLogger) Sync() error { return l.logger.Sync() }

func parseLogLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

// Fields provides convenient zap.Field constructors shared across
// components, kept small and undomained (unlike the teacher's, which
// carried benchmark-specific constructors for workload/db/plugin
// fields that have no counterpart here).
var Fields fieldHelpers

type fieldHelpers struct{}

func (fieldHelpers) String(key, value string) zap.Field { return zap.String(key, value) }
func (fieldHelpers) Int(key string, value int) zap.Field { return zap.Int(key, value) }
func (fieldHelpers) Duration(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}
func (fieldHelpers) Error(err error) zap.Field { return zap.Error(err) }
