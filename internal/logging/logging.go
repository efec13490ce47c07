/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging builds the host's zap loggers.
package logging

import (
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level follows the numeric scale accepted by PLUGINHOST_LOG_LEVEL.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelNoPrint
)

// EnvLevel is the environment variable that overrides the configured level.
const EnvLevel = "PLUGINHOST_LOG_LEVEL"

// Options controls where and how much the logger writes.
type Options struct {
	Level Level
	// File enables a rotating JSON log file in addition to the console.
	File string
	// Out is the console writer, os.Stdout when nil.
	Out io.Writer
}

// LevelFromEnv returns the level set in the environment, or def when the
// variable is unset or out of range.
func LevelFromEnv(def Level) Level {
	v := os.Getenv(EnvLevel)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < int(LevelTrace) || n > int(LevelNoPrint) {
		return def
	}
	return Level(n)
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelTrace, LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// New returns a logger writing colored console output and, optionally, a
// rotating JSON file.
func New(opts Options) *zap.Logger {
	if opts.Level >= LevelNoPrint {
		return zap.NewNop()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	level := zap.NewAtomicLevelAt(opts.Level.zapLevel())

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.999999")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(out)), level),
	}

	if opts.File != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}
