// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package commons

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logging surface threaded through every
// constructor in this module, mirroring the teacher's commons.Logger.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalf(format string, args ...interface{})
	// Benchmark logs how long a named operation took, at debug level.
	Benchmark(name string, d time.Duration)
	// With returns a Logger with the given key/value pairs attached to
	// every subsequent entry, without mutating the receiver.
	With(keysAndValues ...interface{}) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// Config controls where and how the logger writes.
type Config struct {
	// Level is one of debug/info/warn/error. Defaults to info.
	Level string
	// Console, when true, also writes to stderr in addition to the file sink.
	Console bool
	// FilePath is the lumberjack-rotated log file destination. Empty
	// disables the file sink (console-only, useful for tests).
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger builds a Logger backed by zap, writing through a lumberjack
// rotating file sink (and optionally stderr), matching the teacher's
// zap+lumberjack pairing.
func NewLogger(cfg Config) Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var cores []zapcore.Core
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 50),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}
	if cfg.Console || cfg.FilePath == "" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level))
	}

	core := zapcore.NewTee(cores...)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &zapLogger{sugar: logger.Sugar()}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debug(args ...interface{})                        { l.sugar.Debug(args...) }
func (l *zapLogger) Debugf(format string, args ...interface{})        { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Debugw(msg string, kv ...interface{})             { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Info(args ...interface{})                         { l.sugar.Info(args...) }
func (l *zapLogger) Infof(format string, args ...interface{})         { l.sugar.Infof(format, args...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})              { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warn(args ...interface{})                         { l.sugar.Warn(args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})         { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Error(args ...interface{})                        { l.sugar.Error(args...) }
func (l *zapLogger) Errorf(format string, args ...interface{})        { l.sugar.Errorf(format, args...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{})             { l.sugar.Errorw(msg, kv...) }
func (l *zapLogger) Fatalf(format string, args ...interface{})        { l.sugar.Fatalf(format, args...) }

func (l *zapLogger) Benchmark(name string, d time.Duration) {
	l.sugar.Debugw("benchmark", "op", name, "elapsed_ms", d.Milliseconds())
}

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(kv...)}
}
