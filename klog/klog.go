//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package klog is the kernel core's structured logger. Handlers log a
// rejected invocation through Rejected, at Warn, with the component, the
// invocation label and the response label; operand values are not logged.
// The package has no Fatal-level helper, and the module's
// internal-consistency panics are not logged before they fire.
package klog

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the package-level kernel logger. Tests may swap its output with
// SetOutput to capture log lines.
var Log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// UseJSON switches the logger to JSON output, for kernels embedded behind a
// log aggregator rather than an interactive console.
func UseJSON() {
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Rejected logs a handler's rejection of an invocation.
func Rejected(component string, label fmt.Stringer, resp fmt.Stringer, fields logrus.Fields) {
	entry := Log.WithField("component", component).
		WithField("label", label.String()).
		WithField("response", resp.String())
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Warn("invocation rejected")
}
