// Copyright 2024 PingCAP, Inc.
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

// Package logutil provides the package-level structured logger the
// decorrelation rule logs through, mirroring TiDB's
// util/logutil.BgLogger() accessor used throughout pkg/planner/core.
package logutil

import (
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

var logger *zap.Logger

// BgLogger returns the background logger used for rule decisions. It
// defaults to pingcap/log's global logger (itself a thin wrapper over zap),
// matching TiDB's default of piggy-backing on the process-wide logger
// rather than threading one through every call.
func BgLogger() *zap.Logger {
	if logger != nil {
		return logger
	}
	return log.L()
}

// SetLogger overrides the background logger, for tests and for embedding
// applications that want rule decisions folded into their own log sink.
func SetLogger(l *zap.Logger) {
	logger = l
}
