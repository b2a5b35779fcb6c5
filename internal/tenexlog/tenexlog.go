// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tenexlog provides the process-wide structured logger.
package tenexlog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

func init() {
	logger, _ = zap.NewDevelopment()
}

// Logger returns the current global logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the global logger, e.g. once the data directory and
// tenex.log file sink are known.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// NewFileLogger builds a logger that writes structured JSON to path in
// addition to the console, used once the façade knows the data directory.
func NewFileLogger(path string, level zapcore.Level) (*zap.Logger, func() error, error) {
	lj := &rotatingFile{path: path}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(lj),
		level,
	)
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(consoleSink())),
		level,
	)
	l := zap.New(zapcore.NewTee(fileCore, consoleCore), zap.AddCaller())
	return l, lj.Close, nil
}

// Debug logs at debug level on the global logger.
func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }

// Info logs at info level on the global logger.
func Info(msg string, fields ...zap.Field) { Logger().Info(msg, fields...) }

// Warn logs at warn level on the global logger.
func Warn(msg string, fields ...zap.Field) { Logger().Warn(msg, fields...) }

// Error logs at error level on the global logger.
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// With returns a child logger carrying the given fields.
func With(fields ...zap.Field) *zap.Logger { return Logger().With(fields...) }

// Sync flushes any buffered log entries.
func Sync() error { return Logger().Sync() }
