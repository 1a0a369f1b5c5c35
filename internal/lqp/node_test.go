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

package lqp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap/lqpdecorrelate/internal/lqp"
)

func TestPredicateNodeColumnExpressionsPassThroughInput(t *testing.T) {
	table := lqp.NewStoredTable("a", "x", "y")
	pred := lqp.NewPredicate(&lqp.Binary{Op: lqp.EQ, LHS: table.Column("x"), RHS: &lqp.Literal{Value: 1}}, table)

	cols := pred.ColumnExpressions()
	require.Len(t, cols, 2)
	assert.Equal(t, table.Column("x").Key(), cols[0].Key())
}

func TestJoinNodeSemiHidesRightColumns(t *testing.T) {
	left := lqp.NewStoredTable("a", "x")
	right := lqp.NewStoredTable("b", "y")
	join := lqp.NewJoin(lqp.Semi, nil, left, right)

	cols := join.ColumnExpressions()
	require.Len(t, cols, 1)
	assert.Equal(t, left.Column("x").Key(), cols[0].Key())

	_, found := join.FindColumnID(right.Column("y"))
	assert.False(t, found)
}

func TestJoinNodeInnerExposesBothSides(t *testing.T) {
	left := lqp.NewStoredTable("a", "x")
	right := lqp.NewStoredTable("b", "y")
	join := lqp.NewJoin(lqp.Inner, nil, left, right)

	cols := join.ColumnExpressions()
	require.Len(t, cols, 2)

	found, ok := join.FindColumnID(right.Column("y"))
	require.True(t, ok)
	assert.Equal(t, right.Column("y").Key(), found.Key())
}

func TestAggregateNodeColumnExpressionsAppendSyntheticAggNames(t *testing.T) {
	table := lqp.NewStoredTable("a", "x", "y")
	agg := lqp.NewAggregate(
		[]lqp.Expression{table.Column("x")},
		[]lqp.Expression{table.Column("y")},
		table,
	)

	cols := agg.ColumnExpressions()
	require.Len(t, cols, 2)
	assert.Equal(t, table.Column("x").Key(), cols[0].Key())

	aggCol, ok := cols[1].(*lqp.ColumnExpr)
	require.True(t, ok)
	assert.Equal(t, "agg0", aggCol.Name)
	assert.Equal(t, agg.ID(), aggCol.Producer)
}

func TestAliasNodeFindColumnIDMatchesAliasOrUnderlyingExpression(t *testing.T) {
	table := lqp.NewStoredTable("a", "x")
	alias := lqp.NewAlias([]lqp.Expression{table.Column("x")}, []string{"renamed"}, table)

	found, ok := alias.FindColumnID(&lqp.ColumnExpr{Producer: alias.ID(), Name: "renamed"})
	require.True(t, ok)
	assert.Equal(t, "renamed", found.(*lqp.ColumnExpr).Name)

	found, ok = alias.FindColumnID(table.Column("x"))
	require.True(t, ok)
	assert.Equal(t, table.Column("x").Key(), found.Key())
}

func TestDeepCopyAssignsFreshNodeID(t *testing.T) {
	table := lqp.NewStoredTable("a", "x")
	cp := table.DeepCopy().(*lqp.StoredTableNode)
	assert.NotEqual(t, table.ID(), cp.ID())
	assert.Equal(t, table.Name, cp.Name)
}

func TestSetLeftInputRewiresPredicateInput(t *testing.T) {
	table := lqp.NewStoredTable("a", "x")
	other := lqp.NewStoredTable("b", "y")
	pred := lqp.NewPredicate(&lqp.Literal{Value: true}, table)

	pred.SetLeftInput(other)
	assert.Same(t, other, pred.LeftInput())
}
