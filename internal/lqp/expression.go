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

package lqp

import "fmt"

// ParameterID identifies a correlated parameter. It is opaque outside of the
// Subquery expression that binds it to an outer expression.
type ParameterID string

// ExprType tags the variant of an Expression, the way the host expression
// algebra's own "type" accessor does.
type ExprType int

const (
	ExprColumn ExprType = iota
	ExprLiteral
	ExprCorrelatedParameter
	ExprBinary
	ExprIn
	ExprExists
	ExprSubquery
)

// Expression is a node in a predicate/projection expression tree. Only the
// variants this rule needs are implemented; anything else (scalar
// functions, case expressions, ...) is out of this rule's scope and is
// opaque to it.
type Expression interface {
	Type() ExprType
	// Key is a canonical string identifying this expression for equality and
	// deduplication purposes. Two expressions with equal Key are considered
	// the same expression by the rule.
	Key() string
	// Children returns this expression's immediate sub-expressions, used by
	// Visit. Subquery plans are Nodes, not Expressions, and are not returned
	// here, so Visit never reaches into a subquery's plan.
	Children() []Expression
	DeepCopy() Expression
}

// VisitFunc is called for every expression Visit descends into. Returning
// false stops the walker from descending into that expression's children,
// letting a caller skip sub-trees it already knows not to care about.
type VisitFunc func(Expression) bool

// Visit walks expr and its descendants depth-first, pre-order.
func Visit(expr Expression, fn VisitFunc) {
	if expr == nil {
		return
	}
	if !fn(expr) {
		return
	}
	for _, child := range expr.Children() {
		Visit(child, fn)
	}
}

// ColumnExpr references a column produced by a specific node's output.
type ColumnExpr struct {
	Producer NodeID
	Name     string
}

func (c *ColumnExpr) Type() ExprType        { return ExprColumn }
func (c *ColumnExpr) Key() string           { return fmt.Sprintf("col:%s.%s", c.Producer, c.Name) }
func (c *ColumnExpr) Children() []Expression { return nil }
func (c *ColumnExpr) DeepCopy() Expression {
	cp := *c
	return &cp
}

// Literal is a constant value.
type Literal struct {
	Value any
}

func (l *Literal) Type() ExprType        { return ExprLiteral }
func (l *Literal) Key() string           { return fmt.Sprintf("lit:%v", l.Value) }
func (l *Literal) Children() []Expression { return nil }
func (l *Literal) DeepCopy() Expression {
	cp := *l
	return &cp
}

// CorrelatedParameter is an opaque placeholder bound, in some enclosing
// Subquery expression's parameter list, to an outer expression.
type CorrelatedParameter struct {
	ID ParameterID
}

func (p *CorrelatedParameter) Type() ExprType        { return ExprCorrelatedParameter }
func (p *CorrelatedParameter) Key() string           { return fmt.Sprintf("param:%s", p.ID) }
func (p *CorrelatedParameter) Children() []Expression { return nil }
func (p *CorrelatedParameter) DeepCopy() Expression {
	cp := *p
	return &cp
}

// Binary is a two-operand comparison.
type Binary struct {
	Op       CompareOp
	LHS, RHS Expression
}

func (b *Binary) Type() ExprType { return ExprBinary }
func (b *Binary) Key() string {
	return fmt.Sprintf("bin(%s,%s,%s)", b.LHS.Key(), b.Op, b.RHS.Key())
}
func (b *Binary) Children() []Expression { return []Expression{b.LHS, b.RHS} }
func (b *Binary) DeepCopy() Expression {
	return &Binary{Op: b.Op, LHS: b.LHS.DeepCopy(), RHS: b.RHS.DeepCopy()}
}

// Flipped returns a new Binary with LHS and RHS swapped and Op mirrored,
// equivalent to the source algebra's flip_predicate_condition applied to a
// whole predicate rather than just the operator.
func (b *Binary) Flipped() *Binary {
	return &Binary{Op: b.Op.Flip(), LHS: b.RHS, RHS: b.LHS}
}

// In is `value IN set` (or, with Negated, `value NOT IN set`). The rule only
// optimizes the case where Set is a Subquery; other set forms (literal
// lists) are left as an opaque Expression the rule declines to touch.
type In struct {
	Value   Expression
	Set     Expression
	Negated bool
}

func (i *In) Type() ExprType { return ExprIn }
func (i *In) Key() string {
	tag := "in"
	if i.Negated {
		tag = "notin"
	}
	return fmt.Sprintf("%s(%s,%s)", tag, i.Value.Key(), i.Set.Key())
}
func (i *In) Children() []Expression { return []Expression{i.Value} }
func (i *In) DeepCopy() Expression {
	return &In{Value: i.Value.DeepCopy(), Set: i.Set.DeepCopy(), Negated: i.Negated}
}

// Exists is `EXISTS (subquery)` (or, with Negated, `NOT EXISTS`).
type Exists struct {
	Sub     *Subquery
	Negated bool
}

func (e *Exists) Type() ExprType { return ExprExists }
func (e *Exists) Key() string {
	tag := "exists"
	if e.Negated {
		tag = "notexists"
	}
	return fmt.Sprintf("%s(%s)", tag, e.Sub.Key())
}
func (e *Exists) Children() []Expression { return nil }
func (e *Exists) DeepCopy() Expression {
	return &Exists{Sub: e.Sub.DeepCopy().(*Subquery), Negated: e.Negated}
}

// ParameterBinding binds one correlated parameter, visible inside a
// Subquery's embedded plan, to an expression evaluated in the enclosing
// query.
type ParameterBinding struct {
	Param ParameterID
	Outer Expression
}

// Subquery embeds a plan and the correlated parameters it references from
// its immediate enclosing scope.
type Subquery struct {
	Plan     Node
	Bindings []ParameterBinding
}

func (s *Subquery) Type() ExprType        { return ExprSubquery }
func (s *Subquery) Key() string           { return fmt.Sprintf("subquery:%s", s.Plan.ID()) }
func (s *Subquery) Children() []Expression { return nil }
func (s *Subquery) DeepCopy() Expression {
	bindings := make([]ParameterBinding, len(s.Bindings))
	for i, b := range s.Bindings {
		bindings[i] = ParameterBinding{Param: b.Param, Outer: b.Outer.DeepCopy()}
	}
	return &Subquery{Plan: s.Plan.DeepCopy(), Bindings: bindings}
}

// ParameterMapping resolves a correlated parameter bound by this subquery to
// the outer expression it refers to.
func (s *Subquery) ParameterMapping() map[ParameterID]Expression {
	m := make(map[ParameterID]Expression, len(s.Bindings))
	for _, b := range s.Bindings {
		m[b.Param] = b.Outer
	}
	return m
}

// ContainsExpr reports whether expr (or a sub-expression) equals target by
// Key, without descending into nested Subquery plans.
func ContainsExpr(expr, target Expression) bool {
	found := false
	Visit(expr, func(e Expression) bool {
		if found {
			return false
		}
		if e.Key() == target.Key() {
			found = true
			return false
		}
		return true
	})
	return found
}

// DedupeByKey appends src items onto dst, skipping any whose Key already
// appears in dst or was already appended from src.
func DedupeByKey(dst []Expression, src ...Expression) []Expression {
	seen := make(map[string]struct{}, len(dst))
	for _, e := range dst {
		seen[e.Key()] = struct{}{}
	}
	for _, e := range src {
		if _, ok := seen[e.Key()]; ok {
			continue
		}
		seen[e.Key()] = struct{}{}
		dst = append(dst, e)
	}
	return dst
}
