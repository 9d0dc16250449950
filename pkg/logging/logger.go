// Copyright (c) 2026 The Evstream Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides the logger used by evstream loops and streams.
// The default logger is powered by go.uber.org/zap; any implementation of
// the Logger interface can replace it through evstream.WithLogger.
//
// The environment variable EVSTREAM_LOGGING_LEVEL selects the level, either
// by name (debug, info, warn, error) or by the zapcore integer value.
// The environment variable EVSTREAM_LOGGING_FILE redirects logs to a local
// file that is rotated by lumberjack.
package logging

import (
	"errors"
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Flusher flushes any buffered log entries to the underlying writer.
type Flusher = func() error

// Level is the alias of zapcore.Level.
type Level = zapcore.Level

const (
	// DebugLevel logs pass statistics and task transitions.
	DebugLevel = zapcore.DebugLevel
	// InfoLevel is the default logging priority.
	InfoLevel = zapcore.InfoLevel
	// WarnLevel logs pruned streams and pool overloads.
	WarnLevel = zapcore.WarnLevel
	// ErrorLevel logs I/O failures that closed a stream.
	ErrorLevel = zapcore.ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel = zapcore.FatalLevel
)

const prefix = "[evstream]"

var (
	defaultLogger       Logger
	defaultLoggingLevel Level
	defaultFlusher      Flusher
)

func init() {
	if lvl := os.Getenv("EVSTREAM_LOGGING_LEVEL"); len(lvl) > 0 {
		level, err := ParseLevel(lvl)
		if err != nil {
			panic("invalid EVSTREAM_LOGGING_LEVEL, " + err.Error())
		}
		defaultLoggingLevel = level
	}

	if fileName := os.Getenv("EVSTREAM_LOGGING_FILE"); len(fileName) > 0 {
		var err error
		defaultLogger, defaultFlusher, err = CreateLoggerAsLocalFile(fileName, defaultLoggingLevel)
		if err != nil {
			panic("invalid EVSTREAM_LOGGING_FILE, " + err.Error())
		}
		return
	}

	core := zapcore.NewCore(newEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(os.Stdout), defaultLoggingLevel)
	zapLogger := zap.New(core,
		zap.Development(),
		zap.AddCaller(),
		zap.AddStacktrace(ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defaultLogger = zapLogger.Sugar()
	defaultFlusher = zapLogger.Sync
}

// ParseLevel accepts either a level name or its integer value.
func ParseLevel(s string) (Level, error) {
	if n, err := strconv.ParseInt(s, 10, 8); err == nil {
		return Level(n), nil
	}
	var lvl Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, err
	}
	return lvl, nil
}

type prefixEncoder struct {
	zapcore.Encoder

	bufPool buffer.Pool
}

func (e *prefixEncoder) Clone() zapcore.Encoder {
	return &prefixEncoder{Encoder: e.Encoder.Clone(), bufPool: e.bufPool}
}

func (e *prefixEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	logEntry, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}
	defer logEntry.Free()

	buf := e.bufPool.Get()
	buf.AppendString(prefix)
	buf.AppendByte(' ')
	_, _ = buf.Write(logEntry.Bytes())
	return buf, nil
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return &prefixEncoder{
		Encoder: zapcore.NewConsoleEncoder(cfg),
		bufPool: buffer.NewPool(),
	}
}

// GetDefaultLogger returns the default logger.
func GetDefaultLogger() Logger {
	return defaultLogger
}

// GetDefaultFlusher returns the default flusher.
func GetDefaultFlusher() Flusher {
	return defaultFlusher
}

var setupOnce sync.Once

// SetDefaultLoggerAndFlusher sets the default logger and its flusher.
//
// Only the first call takes effect.
func SetDefaultLoggerAndFlusher(logger Logger, flusher Flusher) {
	setupOnce.Do(func() {
		defaultLogger, defaultFlusher = logger, flusher
	})
}

// LogLevel tells what the default logging level is.
func LogLevel() string {
	return defaultLoggingLevel.String()
}

// CreateLoggerAsLocalFile sets up a logger that writes to a rotated local file.
func CreateLoggerAsLocalFile(localFilePath string, logLevel Level) (logger Logger, flush Flusher, err error) {
	if len(localFilePath) == 0 {
		return nil, nil, errors.New("invalid local logger path")
	}

	// lumberjack.Logger is already safe for concurrent use.
	lumberJackLogger := &lumberjack.Logger{
		Filename:   localFilePath,
		MaxSize:    100, // megabytes
		MaxBackups: 2,
		MaxAge:     15, // days
	}

	levelEnabler := zap.LevelEnablerFunc(func(level Level) bool {
		return level >= logLevel
	})
	core := zapcore.NewCore(newEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(lumberJackLogger), levelEnabler)
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(ErrorLevel))
	return zapLogger.Sugar(), zapLogger.Sync, nil
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return zap.NewNop().Sugar()
}

// Cleanup flushes the default logger.
func Cleanup() {
	if defaultFlusher != nil {
		_ = defaultFlusher()
	}
}

// Error prints err if it's not nil.
func Error(err error) {
	if err != nil {
		defaultLogger.Errorf("error occurs during runtime, %v", err)
	}
}

// Debugf logs messages at DEBUG level.
func Debugf(format string, args ...any) {
	defaultLogger.Debugf(format, args...)
}

// Infof logs messages at INFO level.
func Infof(format string, args ...any) {
	defaultLogger.Infof(format, args...)
}

// Warnf logs messages at WARN level.
func Warnf(format string, args ...any) {
	defaultLogger.Warnf(format, args...)
}

// Errorf logs messages at ERROR level.
func Errorf(format string, args ...any) {
	defaultLogger.Errorf(format, args...)
}

// Logger is used for logging formatted messages.
type Logger interface {
	// Debugf logs messages at DEBUG level.
	Debugf(format string, args ...any)
	// Infof logs messages at INFO level.
	Infof(format string, args ...any)
	// Warnf logs messages at WARN level.
	Warnf(format string, args ...any)
	// Errorf logs messages at ERROR level.
	Errorf(format string, args ...any)
	// Fatalf logs messages at FATAL level.
	Fatalf(format string, args ...any)
}
