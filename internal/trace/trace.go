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

// Package trace reproduces the optimize-trace step log TiDB builds via
// optimizetrace.LogicalOptimizeOp and the appendXTraceStep family of
// helpers at the bottom of rule_decorrelate.go: a reason/action pair
// recorded per plan transformation, for humans debugging a rewrite.
package trace

import "github.com/pingcap/lqpdecorrelate/internal/lqp"

// Step records one transformation applied to a node during rule execution.
type Step struct {
	NodeID   lqp.NodeID
	NodeType lqp.NodeType
	// Reason explains why the transformation was legal/necessary; Action
	// describes what changed. Both are computed lazily, matching TiDB's
	// own appendXTraceStep closures, since formatting a step is only needed
	// when the trace is actually inspected.
	Reason func() string
	Action func() string
}

// Op accumulates Steps for one rule application.
type Op struct {
	Steps []Step
}

// AppendStepToCurrent records a step against node.
func (o *Op) AppendStepToCurrent(id lqp.NodeID, tp lqp.NodeType, reason, action func() string) {
	if o == nil {
		return
	}
	o.Steps = append(o.Steps, Step{NodeID: id, NodeType: tp, Reason: reason, Action: action})
}

// Render formats every step as "<type>_<id>: <action> (<reason>)", one per
// line, for debugging output.
func (o *Op) Render() []string {
	if o == nil {
		return nil
	}
	lines := make([]string, 0, len(o.Steps))
	for _, s := range o.Steps {
		reason := ""
		if s.Reason != nil {
			reason = s.Reason()
		}
		action := ""
		if s.Action != nil {
			action = s.Action()
		}
		line := s.NodeType.String() + "_" + string(s.NodeID) + ": " + action
		if reason != "" {
			line += " (" + reason + ")"
		}
		lines = append(lines, line)
	}
	return lines
}
