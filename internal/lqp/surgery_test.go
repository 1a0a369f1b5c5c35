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

func TestReplaceNodeRewritesDirectChild(t *testing.T) {
	table := lqp.NewStoredTable("a", "x")
	pred := lqp.NewPredicate(&lqp.Literal{Value: true}, table)
	replacement := lqp.NewStoredTable("b", "y")

	newRoot := lqp.ReplaceNode(pred, table, replacement)
	require.Same(t, pred, newRoot)
	assert.Same(t, replacement, pred.LeftInput())
}

func TestReplaceNodeReplacesRootItself(t *testing.T) {
	table := lqp.NewStoredTable("a", "x")
	replacement := lqp.NewStoredTable("b", "y")

	newRoot := lqp.ReplaceNode(table, table, replacement)
	assert.Same(t, replacement, newRoot)
}

func TestReplaceNodeDescendsThroughBothJoinSides(t *testing.T) {
	left := lqp.NewStoredTable("a", "x")
	right := lqp.NewStoredTable("b", "y")
	join := lqp.NewJoin(lqp.Inner, nil, left, right)
	replacement := lqp.NewStoredTable("c", "z")

	lqp.ReplaceNode(join, right, replacement)
	assert.Same(t, replacement, join.RightInput())
	assert.Same(t, left, join.LeftInput())
}
