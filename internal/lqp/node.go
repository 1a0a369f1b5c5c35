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

import (
	"strconv"

	"github.com/google/uuid"
)

// NodeID identifies an LQPNode. TiDB's planner assigns nodes a per-session,
// auto-incrementing id; this standalone module has no session to host that
// counter, so nodes are identified by a uuid instead.
type NodeID string

func newNodeID() NodeID {
	return NodeID(uuid.New().String())
}

// NodeType tags the variant of an LQPNode.
type NodeType int

const (
	TypePredicate NodeType = iota
	TypeJoin
	TypeAggregate
	TypeProjection
	TypeAlias
	TypeSort
	TypeValidate
	TypeStoredTable
)

func (t NodeType) String() string {
	switch t {
	case TypePredicate:
		return "Predicate"
	case TypeJoin:
		return "Join"
	case TypeAggregate:
		return "Aggregate"
	case TypeProjection:
		return "Projection"
	case TypeAlias:
		return "Alias"
	case TypeSort:
		return "Sort"
	case TypeValidate:
		return "Validate"
	case TypeStoredTable:
		return "StoredTable"
	default:
		return "Unknown"
	}
}

// Node is one node of the logical query plan tree.
type Node interface {
	ID() NodeID
	Type() NodeType
	LeftInput() Node
	RightInput() Node
	SetLeftInput(Node)
	SetRightInput(Node)
	// NodeExpressions returns the expressions this node itself carries
	// (filter predicate, projection list, grouping/aggregate list, sort
	// keys, join predicates), not the columns it produces.
	NodeExpressions() []Expression
	// ColumnExpressions returns the set of column references this node
	// produces, i.e. its output schema.
	ColumnExpressions() []Expression
	// FindColumnID reports whether expr resolves to a column produced by
	// this node, returning the canonical column expression if so.
	FindColumnID(expr Expression) (Expression, bool)
	DeepCopy() Node
}

func colsOf(n Node) []Expression {
	if n == nil {
		return nil
	}
	return n.ColumnExpressions()
}

func findInCols(n Node, expr Expression) (Expression, bool) {
	if n == nil {
		return nil, false
	}
	return n.FindColumnID(expr)
}

func findByKey(cols []Expression, expr Expression) (Expression, bool) {
	key := expr.Key()
	for _, c := range cols {
		if c.Key() == key {
			return c, true
		}
	}
	return nil, false
}

// PredicateNode filters its input by one predicate. PredicateSplitUpRule is
// assumed to have already run, so Predicate carries exactly one comparison.
type PredicateNode struct {
	id        NodeID
	Predicate Expression
	Input     Node
}

// NewPredicate constructs a fresh Predicate node.
func NewPredicate(predicate Expression, input Node) *PredicateNode {
	return &PredicateNode{id: newNodeID(), Predicate: predicate, Input: input}
}

func (n *PredicateNode) ID() NodeID                   { return n.id }
func (n *PredicateNode) Type() NodeType                { return TypePredicate }
func (n *PredicateNode) LeftInput() Node               { return n.Input }
func (n *PredicateNode) RightInput() Node              { return nil }
func (n *PredicateNode) SetLeftInput(c Node)           { n.Input = c }
func (n *PredicateNode) SetRightInput(Node)            {}
func (n *PredicateNode) NodeExpressions() []Expression { return []Expression{n.Predicate} }
func (n *PredicateNode) ColumnExpressions() []Expression {
	return colsOf(n.Input)
}
func (n *PredicateNode) FindColumnID(expr Expression) (Expression, bool) {
	return findInCols(n.Input, expr)
}
func (n *PredicateNode) DeepCopy() Node {
	cp := &PredicateNode{id: newNodeID(), Predicate: n.Predicate.DeepCopy()}
	if n.Input != nil {
		cp.Input = n.Input.DeepCopy()
	}
	return cp
}

// JoinNode is a binary join of the given mode over the given predicates.
type JoinNode struct {
	id          NodeID
	Mode        JoinMode
	Predicates  []Expression
	Left, Right Node
}

// NewJoin constructs a fresh Join node.
func NewJoin(mode JoinMode, predicates []Expression, left, right Node) *JoinNode {
	return &JoinNode{id: newNodeID(), Mode: mode, Predicates: predicates, Left: left, Right: right}
}

func (n *JoinNode) ID() NodeID        { return n.id }
func (n *JoinNode) Type() NodeType    { return TypeJoin }
func (n *JoinNode) LeftInput() Node   { return n.Left }
func (n *JoinNode) RightInput() Node  { return n.Right }
func (n *JoinNode) SetLeftInput(c Node)  { n.Left = c }
func (n *JoinNode) SetRightInput(c Node) { n.Right = c }
func (n *JoinNode) NodeExpressions() []Expression {
	return n.Predicates
}
func (n *JoinNode) ColumnExpressions() []Expression {
	cols := append([]Expression{}, colsOf(n.Left)...)
	if !n.Mode.DropsRightColumns() {
		cols = append(cols, colsOf(n.Right)...)
	}
	return cols
}
func (n *JoinNode) FindColumnID(expr Expression) (Expression, bool) {
	if c, ok := findInCols(n.Left, expr); ok {
		return c, true
	}
	if n.Mode.DropsRightColumns() {
		return nil, false
	}
	return findInCols(n.Right, expr)
}
func (n *JoinNode) DeepCopy() Node {
	preds := make([]Expression, len(n.Predicates))
	for i, p := range n.Predicates {
		preds[i] = p.DeepCopy()
	}
	cp := &JoinNode{id: newNodeID(), Mode: n.Mode, Predicates: preds}
	if n.Left != nil {
		cp.Left = n.Left.DeepCopy()
	}
	if n.Right != nil {
		cp.Right = n.Right.DeepCopy()
	}
	return cp
}

// AggregateNode groups its input by GroupBy and computes Aggregates.
type AggregateNode struct {
	id         NodeID
	GroupBy    []Expression
	Aggregates []Expression
	Input      Node
}

// NewAggregate constructs a fresh Aggregate node.
func NewAggregate(groupBy, aggregates []Expression, input Node) *AggregateNode {
	return &AggregateNode{id: newNodeID(), GroupBy: groupBy, Aggregates: aggregates, Input: input}
}

func (n *AggregateNode) ID() NodeID       { return n.id }
func (n *AggregateNode) Type() NodeType   { return TypeAggregate }
func (n *AggregateNode) LeftInput() Node  { return n.Input }
func (n *AggregateNode) RightInput() Node { return nil }
func (n *AggregateNode) SetLeftInput(c Node) { n.Input = c }
func (n *AggregateNode) SetRightInput(Node)  {}
func (n *AggregateNode) NodeExpressions() []Expression {
	return append(append([]Expression{}, n.GroupBy...), n.Aggregates...)
}
func (n *AggregateNode) ColumnExpressions() []Expression {
	cols := append([]Expression{}, n.GroupBy...)
	for i, agg := range n.Aggregates {
		_ = agg
		cols = append(cols, &ColumnExpr{Producer: n.id, Name: aggColumnName(i)})
	}
	return cols
}
func (n *AggregateNode) FindColumnID(expr Expression) (Expression, bool) {
	return findByKey(n.ColumnExpressions(), expr)
}
func (n *AggregateNode) DeepCopy() Node {
	cp := &AggregateNode{id: newNodeID()}
	cp.GroupBy = make([]Expression, len(n.GroupBy))
	for i, e := range n.GroupBy {
		cp.GroupBy[i] = e.DeepCopy()
	}
	cp.Aggregates = make([]Expression, len(n.Aggregates))
	for i, e := range n.Aggregates {
		cp.Aggregates[i] = e.DeepCopy()
	}
	if n.Input != nil {
		cp.Input = n.Input.DeepCopy()
	}
	return cp
}

func aggColumnName(i int) string {
	return "agg" + strconv.Itoa(i)
}

// ProjectionNode computes a new output from a fixed list of expressions.
type ProjectionNode struct {
	id          NodeID
	Expressions []Expression
	Input       Node
}

// NewProjection constructs a fresh Projection node.
func NewProjection(exprs []Expression, input Node) *ProjectionNode {
	return &ProjectionNode{id: newNodeID(), Expressions: exprs, Input: input}
}

func (n *ProjectionNode) ID() NodeID       { return n.id }
func (n *ProjectionNode) Type() NodeType   { return TypeProjection }
func (n *ProjectionNode) LeftInput() Node  { return n.Input }
func (n *ProjectionNode) RightInput() Node { return nil }
func (n *ProjectionNode) SetLeftInput(c Node) { n.Input = c }
func (n *ProjectionNode) SetRightInput(Node)  {}
func (n *ProjectionNode) NodeExpressions() []Expression { return n.Expressions }
func (n *ProjectionNode) ColumnExpressions() []Expression {
	return n.Expressions
}
func (n *ProjectionNode) FindColumnID(expr Expression) (Expression, bool) {
	return findByKey(n.Expressions, expr)
}
func (n *ProjectionNode) DeepCopy() Node {
	cp := &ProjectionNode{id: newNodeID()}
	cp.Expressions = make([]Expression, len(n.Expressions))
	for i, e := range n.Expressions {
		cp.Expressions[i] = e.DeepCopy()
	}
	if n.Input != nil {
		cp.Input = n.Input.DeepCopy()
	}
	return cp
}

// AliasNode renames the output of Expressions to Aliases, one-to-one.
type AliasNode struct {
	id          NodeID
	Expressions []Expression
	Aliases     []string
	Input       Node
}

// NewAlias constructs a fresh Alias node.
func NewAlias(exprs []Expression, aliases []string, input Node) *AliasNode {
	return &AliasNode{id: newNodeID(), Expressions: exprs, Aliases: aliases, Input: input}
}

func (n *AliasNode) ID() NodeID       { return n.id }
func (n *AliasNode) Type() NodeType   { return TypeAlias }
func (n *AliasNode) LeftInput() Node  { return n.Input }
func (n *AliasNode) RightInput() Node { return nil }
func (n *AliasNode) SetLeftInput(c Node) { n.Input = c }
func (n *AliasNode) SetRightInput(Node)  {}
func (n *AliasNode) NodeExpressions() []Expression { return n.Expressions }
func (n *AliasNode) ColumnExpressions() []Expression {
	cols := make([]Expression, len(n.Expressions))
	for i, name := range n.Aliases {
		cols[i] = &ColumnExpr{Producer: n.id, Name: name}
	}
	return cols
}
func (n *AliasNode) FindColumnID(expr Expression) (Expression, bool) {
	if c, ok := findByKey(n.ColumnExpressions(), expr); ok {
		return c, true
	}
	return findByKey(n.Expressions, expr)
}
func (n *AliasNode) DeepCopy() Node {
	cp := &AliasNode{id: newNodeID(), Aliases: append([]string{}, n.Aliases...)}
	cp.Expressions = make([]Expression, len(n.Expressions))
	for i, e := range n.Expressions {
		cp.Expressions[i] = e.DeepCopy()
	}
	if n.Input != nil {
		cp.Input = n.Input.DeepCopy()
	}
	return cp
}

// SortNode orders its input by Keys; it does not change the set of columns.
type SortNode struct {
	id     NodeID
	Keys   []Expression
	Orders []bool // true = ascending
	Input  Node
}

// NewSort constructs a fresh Sort node.
func NewSort(keys []Expression, orders []bool, input Node) *SortNode {
	return &SortNode{id: newNodeID(), Keys: keys, Orders: orders, Input: input}
}

func (n *SortNode) ID() NodeID       { return n.id }
func (n *SortNode) Type() NodeType   { return TypeSort }
func (n *SortNode) LeftInput() Node  { return n.Input }
func (n *SortNode) RightInput() Node { return nil }
func (n *SortNode) SetLeftInput(c Node) { n.Input = c }
func (n *SortNode) SetRightInput(Node)  {}
func (n *SortNode) NodeExpressions() []Expression  { return n.Keys }
func (n *SortNode) ColumnExpressions() []Expression { return colsOf(n.Input) }
func (n *SortNode) FindColumnID(expr Expression) (Expression, bool) {
	return findInCols(n.Input, expr)
}
func (n *SortNode) DeepCopy() Node {
	cp := &SortNode{id: newNodeID(), Orders: append([]bool{}, n.Orders...)}
	cp.Keys = make([]Expression, len(n.Keys))
	for i, e := range n.Keys {
		cp.Keys[i] = e.DeepCopy()
	}
	if n.Input != nil {
		cp.Input = n.Input.DeepCopy()
	}
	return cp
}

// ValidateNode enforces MVCC/visibility rules on its input; it is a pure
// pass-through for the purposes of this rule.
type ValidateNode struct {
	id    NodeID
	Input Node
}

// NewValidate constructs a fresh Validate node.
func NewValidate(input Node) *ValidateNode {
	return &ValidateNode{id: newNodeID(), Input: input}
}

func (n *ValidateNode) ID() NodeID       { return n.id }
func (n *ValidateNode) Type() NodeType   { return TypeValidate }
func (n *ValidateNode) LeftInput() Node  { return n.Input }
func (n *ValidateNode) RightInput() Node { return nil }
func (n *ValidateNode) SetLeftInput(c Node) { n.Input = c }
func (n *ValidateNode) SetRightInput(Node)  {}
func (n *ValidateNode) NodeExpressions() []Expression   { return nil }
func (n *ValidateNode) ColumnExpressions() []Expression { return colsOf(n.Input) }
func (n *ValidateNode) FindColumnID(expr Expression) (Expression, bool) {
	return findInCols(n.Input, expr)
}
func (n *ValidateNode) DeepCopy() Node {
	cp := &ValidateNode{id: newNodeID()}
	if n.Input != nil {
		cp.Input = n.Input.DeepCopy()
	}
	return cp
}

// StoredTableNode is a recursion terminal referencing a base table by name.
type StoredTableNode struct {
	id      NodeID
	Name    string
	Columns []string
}

// NewStoredTable constructs a fresh StoredTable node with the given column
// names, in schema order.
func NewStoredTable(name string, columns ...string) *StoredTableNode {
	return &StoredTableNode{id: newNodeID(), Name: name, Columns: columns}
}

func (n *StoredTableNode) ID() NodeID                   { return n.id }
func (n *StoredTableNode) Type() NodeType                { return TypeStoredTable }
func (n *StoredTableNode) LeftInput() Node               { return nil }
func (n *StoredTableNode) RightInput() Node              { return nil }
func (n *StoredTableNode) SetLeftInput(Node)             {}
func (n *StoredTableNode) SetRightInput(Node)            {}
func (n *StoredTableNode) NodeExpressions() []Expression { return nil }
func (n *StoredTableNode) ColumnExpressions() []Expression {
	cols := make([]Expression, len(n.Columns))
	for i, name := range n.Columns {
		cols[i] = &ColumnExpr{Producer: n.id, Name: name}
	}
	return cols
}
func (n *StoredTableNode) FindColumnID(expr Expression) (Expression, bool) {
	return findByKey(n.ColumnExpressions(), expr)
}
func (n *StoredTableNode) DeepCopy() Node {
	return &StoredTableNode{id: newNodeID(), Name: n.Name, Columns: append([]string{}, n.Columns...)}
}

// Column returns the ColumnExpr referencing the named column produced by t.
func (n *StoredTableNode) Column(name string) *ColumnExpr {
	return &ColumnExpr{Producer: n.id, Name: name}
}
