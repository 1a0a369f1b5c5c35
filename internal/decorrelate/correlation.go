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

package decorrelate

import "github.com/pingcap/lqpdecorrelate/internal/lqp"

// AnalyzeCorrelation is a depth-first traversal of the subquery plan that
// counts every correlated Predicate node and rejects any other correlated
// use (a grouping key, a join predicate inside the subquery, a sort key, a
// projected expression, anything the rule has no mechanism to pull above a
// join).
//
// The traversal is unconditional full descent (every node's both inputs),
// unlike PullablePredicateFinder's restricted "safe edges" walk: the
// analyzer must see every correlated use to produce an accurate count and
// to detect blocking uses wherever they occur, not only on edges the finder
// could later act on.
func AnalyzeCorrelation(plan lqp.Node, m map[lqp.ParameterID]lqp.Expression) (blocked bool, correlatedPredicateCount int) {
	if len(m) == 0 {
		return false, 0
	}
	var visit func(n lqp.Node) bool // returns false once blocked, to short-circuit
	visit = func(n lqp.Node) bool {
		if n == nil {
			return true
		}
		using := false
		for _, e := range n.NodeExpressions() {
			if usesAnyParam(e, m) {
				using = true
				break
			}
		}
		if using {
			if n.Type() == lqp.TypePredicate {
				correlatedPredicateCount++
			} else {
				blocked = true
				return false
			}
		}
		if !visit(n.LeftInput()) {
			return false
		}
		return visit(n.RightInput())
	}
	visit(plan)
	return blocked, correlatedPredicateCount
}
