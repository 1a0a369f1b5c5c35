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

// Pullable pairs a correlated Predicate node found inside a subquery plan
// with the join predicate synthesized from it.
type Pullable struct {
	Node      *lqp.PredicateNode
	Predicate *lqp.Binary
}

// FindPullablePredicates descends only through edges safe to pull a
// predicate across, and at every Predicate node on that path attempts to
// synthesize a join predicate.
func FindPullablePredicates(plan lqp.Node, m map[lqp.ParameterID]lqp.Expression) []Pullable {
	var result []Pullable
	var walk func(n lqp.Node, belowAggregate bool)
	walk = func(n lqp.Node, belowAggregate bool) {
		if n == nil {
			return
		}
		if pn, ok := n.(*lqp.PredicateNode); ok {
			if jp := TryExtractJoinPredicate(pn, m, belowAggregate); jp != nil {
				result = append(result, Pullable{Node: pn, Predicate: jp})
			}
		}
		if _, ok := n.(*lqp.AggregateNode); ok {
			belowAggregate = true
		}
		left, right := safeRecursionSides(n)
		if left {
			walk(n.LeftInput(), belowAggregate)
		}
		if right {
			walk(n.RightInput(), belowAggregate)
		}
	}
	walk(plan, false)
	return result
}

// safeRecursionSides implements calculate_safe_recursion_sides from the
// Hyrise original (subquery_to_join_rule.cpp): which of a node's inputs are
// safe to pull a correlated predicate across. Both FindPullablePredicates
// and AdaptPlan must walk the identical set of edges, so this is the single
// function both call.
func safeRecursionSides(n lqp.Node) (left, right bool) {
	switch v := n.(type) {
	case *lqp.JoinNode:
		switch v.Mode {
		case lqp.Inner, lqp.Cross:
			return true, true
		case lqp.Left, lqp.Semi, lqp.AntiNullAsFalse, lqp.AntiNullAsTrue:
			return true, false
		case lqp.Right:
			return false, true
		case lqp.FullOuter:
			return false, false
		default:
			return false, false
		}
	case *lqp.PredicateNode, *lqp.AggregateNode, *lqp.AliasNode, *lqp.ProjectionNode, *lqp.SortNode, *lqp.ValidateNode:
		return true, false
	default:
		return false, false
	}
}

// TryExtractJoinPredicate mirrors SubqueryToJoinRule::try_to_extract_join_predicate
// from the Hyrise original, exported with the same signature as its
// standalone-unit-testable static method: pn's predicate must be a binary
// comparison with exactly one side a correlated parameter bound in m, and
// the other side must resolve to a column of pn's left input. Below an
// aggregate, only equality is accepted: a group-by collapses rows, so a
// non-equality comparison pulled above it would compare against the wrong
// row count.
func TryExtractJoinPredicate(pn *lqp.PredicateNode, m map[lqp.ParameterID]lqp.Expression, belowAggregate bool) *lqp.Binary {
	bin, ok := pn.Predicate.(*lqp.Binary)
	if !ok {
		return nil
	}
	lp, lok := bin.LHS.(*lqp.CorrelatedParameter)
	rp, rok := bin.RHS.(*lqp.CorrelatedParameter)
	if lok == rok {
		// Exactly one side must be a correlated parameter.
		return nil
	}
	param := lp
	if rok {
		// Parameter is on the right: flip so it leads.
		bin = bin.Flipped()
		param = rp
	}
	other := bin.RHS
	outer, inDomain := m[param.ID]
	if !inDomain {
		// Bound to an enclosing scope further out than this subquery's
		// immediate parent, not ours to pull.
		return nil
	}
	if _, ok := pn.FindColumnID(other); !ok {
		return nil
	}
	if belowAggregate && !bin.Op.IsEquality() {
		return nil
	}
	return &lqp.Binary{Op: bin.Op, LHS: outer, RHS: other}
}
