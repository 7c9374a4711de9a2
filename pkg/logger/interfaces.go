/*
 * Copyright 2025 Carver Automation Corporation.
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

package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the injectable logging surface used by every component.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	Fatal() *zerolog.Event
	Panic() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
	WithFields(fields map[string]interface{}) zerolog.Logger
	SetLevel(level zerolog.Level)
	SetDebug(debug bool)
}

// zeroLogger adapts a zerolog.Logger value to Logger.
type zeroLogger struct {
	zl zerolog.Logger
}

// New wraps an existing zerolog logger.
func New(zl zerolog.Logger) Logger {
	return &zeroLogger{zl: zl}
}

// NewWriterLogger logs JSON lines at debug level to w. Tests use it to
// inspect what a component reported.
func NewWriterLogger(w io.Writer) Logger {
	return &zeroLogger{zl: zerolog.New(w).Level(zerolog.DebugLevel)}
}

// NewTestLogger creates a no-op logger for testing that discards all output
func NewTestLogger() Logger {
	return &zeroLogger{zl: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

func (z *zeroLogger) Trace() *zerolog.Event { return z.zl.Trace() }
func (z *zeroLogger) Debug() *zerolog.Event { return z.zl.Debug() }
func (z *zeroLogger) Info() *zerolog.Event  { return z.zl.Info() }
func (z *zeroLogger) Warn() *zerolog.Event  { return z.zl.Warn() }
func (z *zeroLogger) Error() *zerolog.Event { return z.zl.Error() }
func (z *zeroLogger) Fatal() *zerolog.Event { return z.zl.Fatal() }
func (z *zeroLogger) Panic() *zerolog.Event { return z.zl.Panic() }
func (z *zeroLogger) With() zerolog.Context { return z.zl.With() }

func (z *zeroLogger) WithComponent(component string) zerolog.Logger {
	return z.zl.With().Str("component", component).Logger()
}

func (z *zeroLogger) WithFields(fields map[string]interface{}) zerolog.Logger {
	return z.zl.With().Fields(fields).Logger()
}

func (z *zeroLogger) SetLevel(level zerolog.Level) { z.zl = z.zl.Level(level) }

func (z *zeroLogger) SetDebug(debug bool) {
	if debug {
		z.SetLevel(zerolog.DebugLevel)
	} else {
		z.SetLevel(zerolog.InfoLevel)
	}
}
