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

func TestFindPullablePredicatesFindsDirectCorrelatedPredicate(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a")
	inner := build.Pred(build.Eq(build.Col(b, "a"), build.Param("p0")), b)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	pullable := decorrelate.FindPullablePredicates(inner, m)
	require.Len(t, pullable, 1)
	assert.Equal(t, lqp.EQ, pullable[0].Predicate.Op)
	assert.Equal(t, build.Col(a, "a").Key(), pullable[0].Predicate.LHS.Key())
}

func TestFindPullablePredicatesRejectsRangeBelowAggregate(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a")
	inner := build.Pred(build.Lt(build.Col(b, "a"), build.Param("p0")), b)
	agg := lqp.NewAggregate(nil, []lqp.Expression{build.Col(b, "a")}, inner)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	pullable := decorrelate.FindPullablePredicates(agg, m)
	assert.Empty(t, pullable)
}

func TestFindPullablePredicatesAcceptsEqualityBelowAggregate(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a")
	inner := build.Pred(build.Eq(build.Col(b, "a"), build.Param("p0")), b)
	agg := lqp.NewAggregate(nil, []lqp.Expression{build.Col(b, "a")}, inner)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	pullable := decorrelate.FindPullablePredicates(agg, m)
	require.Len(t, pullable, 1)
}

func TestFindPullablePredicatesFlipsNonEqualityWhenParameterIsOnTheRight(t *testing.T) {
	a := build.Table("a", "a", "b")
	e := build.Table("e", "c")
	// e.c < $0, with $0 bound to a.b: the parameter is on the right, so the
	// synthesized join predicate must flip to put the outer operand first,
	// a.b > e.c, not a.b < e.c.
	inner := build.Pred(build.Lt(build.Col(e, "c"), build.Param("p0")), e)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "b")}

	pullable := decorrelate.FindPullablePredicates(inner, m)
	require.Len(t, pullable, 1)
	assert.Equal(t, lqp.GT, pullable[0].Predicate.Op)
	assert.Equal(t, build.Col(a, "b").Key(), pullable[0].Predicate.LHS.Key())
	assert.Equal(t, build.Col(e, "c").Key(), pullable[0].Predicate.RHS.Key())
}

func TestFindPullablePredicatesDoesNotCrossFullOuterJoin(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a")
	c := build.Table("c", "a")
	inner := build.Pred(build.Eq(build.Col(b, "a"), build.Param("p0")), b)
	join := lqp.NewJoin(lqp.FullOuter, nil, inner, c)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	pullable := decorrelate.FindPullablePredicates(join, m)
	assert.Empty(t, pullable)
}

func TestTryExtractJoinPredicateExtractsDirectCorrelatedComparison(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a")
	pn := build.Pred(build.Eq(build.Col(b, "a"), build.Param("p0")), b)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	jp := decorrelate.TryExtractJoinPredicate(pn, m, false)
	require.NotNil(t, jp)
	assert.Equal(t, lqp.EQ, jp.Op)
	assert.Equal(t, build.Col(a, "a").Key(), jp.LHS.Key())
	assert.Equal(t, build.Col(b, "a").Key(), jp.RHS.Key())
}

func TestTryExtractJoinPredicateFlipsWhenParameterIsOnTheRight(t *testing.T) {
	a := build.Table("a", "a")
	e := build.Table("e", "c")
	pn := build.Pred(build.Lt(build.Col(e, "c"), build.Param("p0")), e)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	jp := decorrelate.TryExtractJoinPredicate(pn, m, false)
	require.NotNil(t, jp)
	assert.Equal(t, lqp.GT, jp.Op)
	assert.Equal(t, build.Col(a, "a").Key(), jp.LHS.Key())
}

func TestTryExtractJoinPredicateReturnsNilWhenNeitherSideIsCorrelated(t *testing.T) {
	b := build.Table("b", "a")
	pn := build.Pred(build.Eq(build.Col(b, "a"), build.Lit(1)), b)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Lit(1)}

	assert.Nil(t, decorrelate.TryExtractJoinPredicate(pn, m, false))
}

func TestTryExtractJoinPredicateReturnsNilWhenBothSidesAreCorrelated(t *testing.T) {
	b := build.Table("b", "a")
	pn := build.Pred(&lqp.Binary{Op: lqp.EQ, LHS: build.Param("p0"), RHS: build.Param("p1")}, b)
	m := map[lqp.ParameterID]lqp.Expression{
		"p0": build.Lit(1),
		"p1": build.Lit(2),
	}

	assert.Nil(t, decorrelate.TryExtractJoinPredicate(pn, m, false))
}

func TestTryExtractJoinPredicateRejectsNonEqualityBelowAggregate(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a")
	pn := build.Pred(build.Lt(build.Col(b, "a"), build.Param("p0")), b)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	assert.Nil(t, decorrelate.TryExtractJoinPredicate(pn, m, true))
}

func TestTryExtractJoinPredicateReturnsNilWhenOtherSideIsNotAColumnOfPredicatesInput(t *testing.T) {
	a := build.Table("a", "a")
	c := build.Table("c", "a")
	b := build.Table("b", "a")
	pn := build.Pred(build.Eq(build.Col(c, "a"), build.Param("p0")), b)
	m := map[lqp.ParameterID]lqp.Expression{"p0": build.Col(a, "a")}

	assert.Nil(t, decorrelate.TryExtractJoinPredicate(pn, m, false))
}

func TestFindPullablePredicatesDoesNotPullParameterBoundOutsideThisSubquery(t *testing.T) {
	a := build.Table("a", "a")
	b := build.Table("b", "a")
	inner := build.Pred(build.Eq(build.Col(b, "a"), build.Param("outer_outer")), b)
	// m only maps params bound by *this* subquery's parameter list; a
	// parameter belonging to an enclosing scope further out is absent.
	m := map[lqp.ParameterID]lqp.Expression{}
	_ = a

	pullable := decorrelate.FindPullablePredicates(inner, m)
	assert.Empty(t, pullable)
}
