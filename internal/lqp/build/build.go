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

// Package build provides fluent constructors for assembling LQPNode trees in
// tests, without hand-wiring every struct field. This plays the role TiDB's
// own struct-literal plan construction plays in its planner unit tests.
// There is no SQL parser here, so tests build trees directly.
package build

import "github.com/pingcap/lqpdecorrelate/internal/lqp"

// Table returns a StoredTable node together with Column accessors for its
// named columns, for convenient use in test expressions.
func Table(name string, columns ...string) *lqp.StoredTableNode {
	return lqp.NewStoredTable(name, columns...)
}

// Col is shorthand for referencing a column produced by n.
func Col(n lqp.Node, name string) *lqp.ColumnExpr {
	return &lqp.ColumnExpr{Producer: n.ID(), Name: name}
}

// Param returns a correlated parameter placeholder.
func Param(id string) *lqp.CorrelatedParameter {
	return &lqp.CorrelatedParameter{ID: lqp.ParameterID(id)}
}

// Lit returns a literal expression.
func Lit(v any) *lqp.Literal {
	return &lqp.Literal{Value: v}
}

// Eq/Ne/Lt/Le/Gt/Ge build a Binary expression with the named comparison.
func Eq(lhs, rhs lqp.Expression) *lqp.Binary { return &lqp.Binary{Op: lqp.EQ, LHS: lhs, RHS: rhs} }
func Ne(lhs, rhs lqp.Expression) *lqp.Binary { return &lqp.Binary{Op: lqp.NE, LHS: lhs, RHS: rhs} }
func Lt(lhs, rhs lqp.Expression) *lqp.Binary { return &lqp.Binary{Op: lqp.LT, LHS: lhs, RHS: rhs} }
func Le(lhs, rhs lqp.Expression) *lqp.Binary { return &lqp.Binary{Op: lqp.LE, LHS: lhs, RHS: rhs} }
func Gt(lhs, rhs lqp.Expression) *lqp.Binary { return &lqp.Binary{Op: lqp.GT, LHS: lhs, RHS: rhs} }
func Ge(lhs, rhs lqp.Expression) *lqp.Binary { return &lqp.Binary{Op: lqp.GE, LHS: lhs, RHS: rhs} }

// Pred wraps predicate over input in a Predicate node.
func Pred(predicate lqp.Expression, input lqp.Node) *lqp.PredicateNode {
	return lqp.NewPredicate(predicate, input)
}

// Proj wraps exprs over input in a Projection node.
func Proj(exprs []lqp.Expression, input lqp.Node) *lqp.ProjectionNode {
	return lqp.NewProjection(exprs, input)
}

// Subquery builds a Subquery expression embedding plan, with bindings given
// as ParameterBinding values built by Bind.
func Subquery(plan lqp.Node, bindings ...lqp.ParameterBinding) *lqp.Subquery {
	return &lqp.Subquery{Plan: plan, Bindings: bindings}
}

// Bind constructs one ParameterBinding.
func Bind(id string, outer lqp.Expression) lqp.ParameterBinding {
	return lqp.ParameterBinding{Param: lqp.ParameterID(id), Outer: outer}
}

// In builds `value IN subquery`.
func In(value lqp.Expression, sub *lqp.Subquery) *lqp.In {
	return &lqp.In{Value: value, Set: sub}
}

// NotIn builds `value NOT IN subquery`.
func NotIn(value lqp.Expression, sub *lqp.Subquery) *lqp.In {
	return &lqp.In{Value: value, Set: sub, Negated: true}
}

// ExistsExpr builds `EXISTS subquery`.
func ExistsExpr(sub *lqp.Subquery) *lqp.Exists {
	return &lqp.Exists{Sub: sub}
}

// NotExistsExpr builds `NOT EXISTS subquery`.
func NotExistsExpr(sub *lqp.Subquery) *lqp.Exists {
	return &lqp.Exists{Sub: sub, Negated: true}
}
