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

// Package planviz renders an LQPNode tree as an indented bullet list, the
// role TiDB's EXPLAIN output serves during development: a human-readable
// dump of a plan, used here for debugging rule output and test failures.
// There is no physical EXPLAIN machinery here, only the logical tree.
package planviz

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"

	"github.com/pingcap/lqpdecorrelate/internal/lqp"
)

// Render returns a multi-line string describing root and its descendants.
func Render(root lqp.Node) string {
	w := list.NewWriter()
	render(w, root)
	return w.Render()
}

func render(w list.Writer, n lqp.Node) {
	if n == nil {
		w.AppendItem("<nil>")
		return
	}
	w.AppendItem(describe(n))
	w.Indent()
	if left := n.LeftInput(); left != nil {
		render(w, left)
	}
	if right := n.RightInput(); right != nil {
		render(w, right)
	}
	w.UnIndent()
}

func describe(n lqp.Node) string {
	var b strings.Builder
	b.WriteString(n.Type().String())
	b.WriteString("_")
	b.WriteString(string(n.ID())[:8])
	if exprs := n.NodeExpressions(); len(exprs) > 0 {
		b.WriteString(" [")
		for i, e := range exprs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.Key())
		}
		b.WriteString("]")
	}
	if jn, ok := n.(*lqp.JoinNode); ok {
		b.WriteString(" mode=")
		b.WriteString(jn.Mode.String())
	}
	return b.String()
}
