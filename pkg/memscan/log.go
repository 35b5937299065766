// Copyright 2026 The memscan Authors.
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

package memscan

import (
	stdlog "log"
	"sync/atomic"
)

// Logger is the minimal leveled-logging surface the engine depends on; a
// host embedding memscan supplies one via SetLogger, or gets a no-op logger
// by default so library use never requires wiring logging up front.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type logger struct {
	*stdlog.Logger
}

const logPrefix = "memscan "

var log Logger = &logger{Logger: nil}
var logDebugMessages = false

// warnCount and errorCount let a Collector expose how many Warnf/Errorf
// calls this process has made as a scrapeable counter, the way
// regionWorkerLimit-bounded region failures (logged, not fatal, in
// Controller.StartSearch) stay visible to a host even though they never
// surface as a returned error.
var warnCount int64
var errorCount int64

// SetLogger installs l as the package-wide logger.
func SetLogger(l *stdlog.Logger) {
	log = &logger{Logger: l}
}

// SetLogDebug toggles whether Debugf output is emitted.
func SetLogDebug(debug bool) {
	logDebugMessages = debug
}

// LogCounts returns the number of Warnf and Errorf calls made so far,
// regardless of whether a logger was ever installed; Collector exposes
// these as memscan_log_warn_total/memscan_log_error_total.
func LogCounts() (warn, errs int64) {
	return atomic.LoadInt64(&warnCount), atomic.LoadInt64(&errorCount)
}

func (l *logger) Debugf(format string, v ...interface{}) {
	if l.Logger != nil && logDebugMessages {
		l.Logger.Printf("DEBUG: "+logPrefix+format, v...)
	}
}

func (l *logger) Infof(format string, v ...interface{}) {
	if l.Logger != nil {
		l.Logger.Printf("INFO: "+logPrefix+format, v...)
	}
}

func (l *logger) Warnf(format string, v ...interface{}) {
	atomic.AddInt64(&warnCount, 1)
	if l.Logger != nil {
		l.Logger.Printf("WARN: "+logPrefix+format, v...)
	}
}

func (l *logger) Errorf(format string, v ...interface{}) {
	atomic.AddInt64(&errorCount, 1)
	if l.Logger != nil {
		l.Logger.Printf("ERROR: "+logPrefix+format, v...)
	}
}
