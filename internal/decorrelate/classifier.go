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

// InputLQPInfo describes the subquery to decorrelate, the join mode the
// rewrite will produce, and the base join predicate derived directly from
// the IN/scalar-comparison shape, if any. Exists/NotExists carry no base
// predicate; every join predicate for them comes from a pulled correlated
// predicate instead.
type InputLQPInfo struct {
	Subquery      *lqp.Subquery
	JoinMode      lqp.JoinMode
	BasePredicate lqp.Expression
}

// Classify decides whether n is a convertible Predicate shape and, if so,
// extracts its subquery, target join mode, and base join predicate. It
// returns a decline-wrapped error (errors.Is(err, ErrDecline)) when n is not
// a convertible shape. A nil opts is equivalent to the zero value.
func Classify(n *lqp.PredicateNode, opts *Options) (*InputLQPInfo, error) {
	if opts == nil {
		opts = &Options{}
	}
	switch pred := n.Predicate.(type) {
	case *lqp.In:
		return classifyIn(n, pred, opts)
	case *lqp.Binary:
		return classifyBinary(n, pred)
	case *lqp.Exists:
		return classifyExists(pred)
	default:
		return nil, decline("predicate is not IN/NOT IN, a scalar comparison, or EXISTS/NOT EXISTS")
	}
}

func classifyIn(n *lqp.PredicateNode, pred *lqp.In, opts *Options) (*InputLQPInfo, error) {
	sub, ok := pred.Set.(*lqp.Subquery)
	if !ok {
		// Static list, not a subquery: nothing to decorrelate.
		return nil, decline("IN's right-hand side is not a subquery")
	}
	col, ok := singleOutputColumn(sub)
	if !ok {
		return nil, decline("subquery does not produce exactly one output column")
	}
	if _, ok := n.FindColumnID(pred.Value); !ok {
		return nil, decline("IN's left-hand side does not resolve to a column of the outer input")
	}
	mode := lqp.Semi
	if pred.Negated {
		// Null semantics make correlated NOT IN incompatible with a
		// uniform multi-predicate anti-join: there is no single anti-join
		// flavor that reproduces NOT IN's null handling once more than one
		// predicate can be pulled in. AllowNotInDecorrelation cannot change
		// that, so setting it still declines, just with a more specific
		// reason than "always false" would otherwise give.
		if isCorrelated(sub) {
			if opts.AllowNotInDecorrelation {
				return nil, decline("correlated NOT IN decorrelation was requested but has no safe implementation")
			}
			return nil, decline("NOT IN subquery is correlated")
		}
		mode = lqp.AntiNullAsTrue
	}
	base := &lqp.Binary{Op: lqp.EQ, LHS: pred.Value, RHS: col}
	return &InputLQPInfo{Subquery: sub, JoinMode: mode, BasePredicate: base}, nil
}

func classifyBinary(n *lqp.PredicateNode, pred *lqp.Binary) (*InputLQPInfo, error) {
	_, lok := pred.LHS.(*lqp.Subquery)
	_, rok := pred.RHS.(*lqp.Subquery)
	if lok == rok {
		// Neither or both operands are a subquery: not this shape.
		return nil, decline("binary comparison does not have exactly one subquery operand")
	}
	if lok {
		// Subquery on the left: flip so the outer column leads.
		pred = pred.Flipped()
	}
	sub := pred.RHS.(*lqp.Subquery)
	outerCol := pred.LHS
	if _, ok := n.FindColumnID(outerCol); !ok {
		return nil, decline("comparison's non-subquery operand does not resolve to a column of the outer input")
	}
	col, ok := singleOutputColumn(sub)
	if !ok {
		return nil, decline("subquery does not produce exactly one output column")
	}
	base := &lqp.Binary{Op: pred.Op, LHS: outerCol, RHS: col}
	return &InputLQPInfo{Subquery: sub, JoinMode: lqp.Semi, BasePredicate: base}, nil
}

func classifyExists(pred *lqp.Exists) (*InputLQPInfo, error) {
	if !isCorrelated(pred.Sub) {
		// An uncorrelated EXISTS always evaluates to the same constant for
		// every outer row, so there is no predicate to turn into a join.
		return nil, decline("EXISTS subquery is not correlated")
	}
	mode := lqp.Semi
	if pred.Negated {
		mode = lqp.AntiNullAsFalse
	}
	return &InputLQPInfo{Subquery: pred.Sub, JoinMode: mode}, nil
}

func singleOutputColumn(sub *lqp.Subquery) (lqp.Expression, bool) {
	cols := sub.Plan.ColumnExpressions()
	if len(cols) != 1 {
		return nil, false
	}
	return cols[0], true
}

// isCorrelated reports whether any expression reachable in sub's plan
// references a parameter bound by sub's own parameter list, i.e. whether
// the subquery is correlated to its immediate enclosing query at all,
// independent of whether that use is a pullable predicate.
func isCorrelated(sub *lqp.Subquery) bool {
	m := sub.ParameterMapping()
	if len(m) == 0 {
		return false
	}
	found := false
	var walk func(n lqp.Node)
	walk = func(n lqp.Node) {
		if n == nil || found {
			return
		}
		for _, e := range n.NodeExpressions() {
			if usesAnyParam(e, m) {
				found = true
				return
			}
		}
		walk(n.LeftInput())
		walk(n.RightInput())
	}
	walk(sub.Plan)
	return found
}

func usesAnyParam(e lqp.Expression, m map[lqp.ParameterID]lqp.Expression) bool {
	found := false
	lqp.Visit(e, func(x lqp.Expression) bool {
		if found {
			return false
		}
		if p, ok := x.(*lqp.CorrelatedParameter); ok {
			if _, in := m[p.ID]; in {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
