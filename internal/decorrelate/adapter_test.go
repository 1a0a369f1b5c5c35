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

package decorrelate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap/lqpdecorrelate/internal/decorrelate"
	"github.com/pingcap/lqpdecorrelate/internal/lqp"
	"github.com/pingcap/lqpdecorrelate/internal/lqp/build"
)

func TestAdaptPlanRemovesPulledPredicateAndExposesInnerColumn(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a", "x")
	inner := build.Pred(build.Eq(build.Col(b, "a"), build.Param("p0")), b)
	proj := build.Proj([]lqp.Expression{build.Col(b, "x")}, inner)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	pullable := decorrelate.FindPullablePredicates(proj, m)
	require.Len(t, pullable, 1)

	adapted, err := decorrelate.AdaptPlan(proj, pullable)
	require.NoError(t, err)

	newProj, ok := adapted.NewRoot.(*lqp.ProjectionNode)
	require.True(t, ok)
	// The predicate node is gone: the projection's input is now the table
	// directly.
	_, isTable := newProj.Input.(*lqp.StoredTableNode)
	assert.True(t, isTable)

	// And the inner join column (b.a) is now also exposed by the projection.
	found := false
	for _, e := range newProj.Expressions {
		if e.Key() == build.Col(b, "a").Key() {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAdaptPlanAugmentsAggregateGroupBy(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a", "x")
	inner := build.Pred(build.Eq(build.Col(b, "a"), build.Param("p0")), b)
	agg := lqp.NewAggregate(nil, []lqp.Expression{build.Col(b, "x")}, inner)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	pullable := decorrelate.FindPullablePredicates(agg, m)
	require.Len(t, pullable, 1)

	adapted, err := decorrelate.AdaptPlan(agg, pullable)
	require.NoError(t, err)

	newAgg, ok := adapted.NewRoot.(*lqp.AggregateNode)
	require.True(t, ok)
	require.Len(t, newAgg.GroupBy, 1)
	assert.Equal(t, build.Col(b, "a").Key(), newAgg.GroupBy[0].Key())
}

func TestAdaptPlanAugmentsAliasWithSyntheticName(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a", "x")
	inner := build.Pred(build.Eq(build.Col(b, "a"), build.Param("p0")), b)
	alias := lqp.NewAlias([]lqp.Expression{build.Col(b, "x")}, []string{"renamed_x"}, inner)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	pullable := decorrelate.FindPullablePredicates(alias, m)
	require.Len(t, pullable, 1)

	adapted, err := decorrelate.AdaptPlan(alias, pullable)
	require.NoError(t, err)

	newAlias, ok := adapted.NewRoot.(*lqp.AliasNode)
	require.True(t, ok)
	require.Len(t, newAlias.Expressions, 2)
	require.Len(t, newAlias.Aliases, 2)
	assert.Equal(t, "a", newAlias.Aliases[1])
}

func TestAdaptPlanReResolvesColumnSynthesizedByRebuiltAggregate(t *testing.T) {
	a := build.Table("a", "x")
	c := build.Table("c", "v")
	agg := lqp.NewAggregate(nil, []lqp.Expression{build.Col(c, "v")}, c)
	aggCol := &lqp.ColumnExpr{Producer: agg.ID(), Name: "agg0"}
	pred := lqp.NewPredicate(&lqp.Binary{Op: lqp.EQ, LHS: aggCol, RHS: build.Param("p0")}, agg)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "x")}

	pullable := decorrelate.FindPullablePredicates(pred, m)
	require.Len(t, pullable, 1)

	adapted, err := decorrelate.AdaptPlan(pred, pullable)
	require.NoError(t, err)

	newAgg, ok := adapted.NewRoot.(*lqp.AggregateNode)
	require.True(t, ok)
	require.Len(t, adapted.RequiredColumns, 1)
	resolved, ok := adapted.RequiredColumns[0].(*lqp.ColumnExpr)
	require.True(t, ok)
	// The pulled predicate's inner operand named a column produced by the
	// pre-adaptation Aggregate; rebuilding that node mints it a fresh id, so
	// the re-resolved reference must point at the new Aggregate, not the
	// stale one the predicate was originally written against.
	assert.Equal(t, newAgg.ID(), resolved.Producer)
	assert.NotEqual(t, agg.ID(), resolved.Producer)
	assert.Equal(t, "agg0", resolved.Name)
}

func TestAdaptPlanReResolvesColumnSynthesizedByRebuiltAlias(t *testing.T) {
	a := build.Table("a", "x")
	c := build.Table("c", "v")
	alias := lqp.NewAlias([]lqp.Expression{build.Col(c, "v")}, []string{"renamed_v"}, c)
	aliasCol := &lqp.ColumnExpr{Producer: alias.ID(), Name: "renamed_v"}
	pred := lqp.NewPredicate(&lqp.Binary{Op: lqp.EQ, LHS: aliasCol, RHS: build.Param("p0")}, alias)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "x")}

	pullable := decorrelate.FindPullablePredicates(pred, m)
	require.Len(t, pullable, 1)

	adapted, err := decorrelate.AdaptPlan(pred, pullable)
	require.NoError(t, err)

	newAlias, ok := adapted.NewRoot.(*lqp.AliasNode)
	require.True(t, ok)
	require.Len(t, adapted.RequiredColumns, 1)
	resolved, ok := adapted.RequiredColumns[0].(*lqp.ColumnExpr)
	require.True(t, ok)
	assert.Equal(t, newAlias.ID(), resolved.Producer)
	assert.NotEqual(t, alias.ID(), resolved.Producer)
	assert.Equal(t, "renamed_v", resolved.Name)
}
