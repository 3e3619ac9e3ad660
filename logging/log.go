// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// A Level is a logging priority. Higher levels are more important.
type Level int8

// Logging levels (matching zap core internals).
const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel Level = -1
	// InfoLevel is the default logging priority.
	InfoLevel Level = 0
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel Level = 1
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel Level = 2
	// PanicLevel logs a message, then panics.
	PanicLevel Level = 4
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel Level = 5
)

// ParseLevel parse a log level from a string.
func ParseLevel(l string) (Level, error) {
	switch strings.ToLower(l) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warning", "warn":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "panic":
		return PanicLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return Level(100), fmt.Errorf("log level \"%s\" is not supported", l)
	}
}

// String converts a log level to its string representation.
func (l Level) String() string {
	return l.ZapLevel().String()
}

func (l Level) ZapLevel() zapcore.Level {
	return zapcore.Level(l)
}

// Logger wraps a zap logger and keeps the config it was built from so
// children can change their level independently.
type Logger struct {
	*zap.Logger
	config  *zap.Config
	name    string
	encoder zapcore.Encoder
	sink    zapcore.WriteSyncer
	fields  []zap.Field
}

// New builds a logger writing encoded entries to sink. The level is read
// from cfg.Level.
func New(encoder zapcore.Encoder, sink zapcore.WriteSyncer, cfg *zap.Config) *Logger {
	log := &Logger{
		config:  cfg,
		encoder: encoder,
		sink:    sink,
	}
	log.Logger = log.build()
	return log
}

func (log *Logger) build() *zap.Logger {
	core := zapcore.NewCore(log.encoder.Clone(), log.sink, log.config.Level)
	l := zap.New(core, zap.AddCaller())
	if log.name != "" {
		l = l.Named(log.name)
	}
	if len(log.fields) > 0 {
		l = l.With(log.fields...)
	}
	return l
}

// Clone returns a copy of the logger with its own level.
func (log *Logger) Clone() *Logger {
	c := &Logger{
		config:  cloneConfig(log.config),
		name:    log.name,
		encoder: log.encoder,
		sink:    log.sink,
		fields:  append([]zap.Field{}, log.fields...),
	}
	c.Logger = c.build()
	return c
}

func (log *Logger) GetLevel() Level {
	return (Level)(log.config.Level.Level())
}

func (log *Logger) GetLevelString() string {
	return log.config.Level.String()
}

func (log *Logger) GetName() string {
	return log.name
}

// IsDebug is true when debug logs would be written.
func (log *Logger) IsDebug() bool {
	return log.GetLevel() == DebugLevel
}

// Named returns a child logger, the name is appended to the parent one
// with a dot.
func (log *Logger) Named(name string) *Logger {
	c := log.Clone()
	c.name = name
	if log.name != "" {
		c.name = fmt.Sprintf("%s.%s", log.name, name)
	}
	c.Logger = c.build()
	return c
}

func (log *Logger) SetLevel(level Level) {
	lvl := (zapcore.Level)(level)
	if log.config.Level.Level() == lvl {
		return
	}
	log.config.Level.SetLevel(lvl)
}

func (log *Logger) With(fields ...zap.Field) *Logger {
	c := log.Clone()
	c.fields = append(c.fields, fields...)
	c.Logger = c.build()
	return c
}

// AtExit flushes the logs before exiting the process. Useful when an
// app shuts down so we store all logging possible. This is meant to be used
// with defer when initializing your logger.
func (log *Logger) AtExit() {
	if log.Logger != nil {
		_ = log.Logger.Sync()
	}
}

func cloneConfig(cfg *zap.Config) *zap.Config {
	c := *cfg
	c.Level = zap.NewAtomicLevelAt(cfg.Level.Level())
	c.InitialFields = make(map[string]interface{}, len(cfg.InitialFields))
	for k, v := range cfg.InitialFields {
		c.InitialFields[k] = v
	}
	return &c
}

func devEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		CallerKey:      "C",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		LevelKey:       "L",
		LineEnding:     "\n",
		MessageKey:     "M",
		NameKey:        "N",
		TimeKey:        "T",
	}
}

func prodEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		LevelKey:       "level",
		LineEnding:     "\n",
		MessageKey:     "message",
		NameKey:        "logger",
		StacktraceKey:  "stacktrace",
		TimeKey:        "@timestamp",
	}
}

// NewLoggerFromConfig builds a logger for the configured environment.
// "dev" writes coloured console output at debug level, anything else
// writes JSON at info level. When a file is configured the output is
// also written to a rotating log file.
func NewLoggerFromConfig(cfg Config) *Logger {
	var (
		encoder zapcore.Encoder
		config  zap.Config
	)
	switch cfg.Environment {
	case "dev":
		ec := devEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(ec)
		config = zap.Config{
			Level:            zap.NewAtomicLevelAt(DebugLevel.ZapLevel()),
			Development:      true,
			Encoding:         "console",
			EncoderConfig:    ec,
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		}
	default:
		ec := prodEncoderConfig()
		encoder = zapcore.NewJSONEncoder(ec)
		config = zap.Config{
			Level:            zap.NewAtomicLevelAt(InfoLevel.ZapLevel()),
			Encoding:         "json",
			EncoderConfig:    ec,
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		}
	}

	sink := zapcore.AddSync(os.Stdout)
	if cfg.File != nil && cfg.File.Path != "" {
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}))
		config.OutputPaths = append(config.OutputPaths, cfg.File.Path)
	}

	return New(encoder, sink, &config)
}

func NewLoggerFromEnv(env string) *Logger {
	return NewLoggerFromConfig(Config{Environment: env})
}

func NewDevLogger() *Logger {
	return NewLoggerFromEnv("dev")
}

func NewProdLogger() *Logger {
	return NewLoggerFromEnv("prod")
}

// NewTestLogger returns a logger discarding everything below error
// level, for use in unit tests.
func NewTestLogger() *Logger {
	ec := devEncoderConfig()
	config := zap.Config{
		Level:         zap.NewAtomicLevelAt(ErrorLevel.ZapLevel()),
		Development:   true,
		Encoding:      "console",
		EncoderConfig: ec,
	}
	return New(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(os.Stderr), &config)
}
