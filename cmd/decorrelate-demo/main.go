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

// Command decorrelate-demo runs the subquery-to-join rule over a few worked
// examples and prints a before/after plan dump plus a summary table, the
// way TiDB ships small cmd/ tools exercising planner-adjacent functionality
// standalone.
package main

import (
	"fmt"
	"os"

	"github.com/cheynewallace/tabby"

	"github.com/pingcap/lqpdecorrelate/internal/decorrelate"
	"github.com/pingcap/lqpdecorrelate/internal/lqp"
	"github.com/pingcap/lqpdecorrelate/internal/lqp/build"
	"github.com/pingcap/lqpdecorrelate/internal/planviz"
)

type example struct {
	name string
	plan func() lqp.Node
}

func main() {
	examples := []example{
		{name: "uncorrelated IN -> Semi", plan: uncorrelatedIn},
		{name: "uncorrelated NOT IN -> AntiNullAsTrue", plan: uncorrelatedNotIn},
		{name: "correlated IN (WHERE b.b = a.b)", plan: correlatedIn},
	}

	t := tabby.New()
	t.AddHeader("Example", "Root Before", "Root After", "Rewritten")
	driver := decorrelate.NewDriver(&decorrelate.Options{TraceSteps: true})

	for _, ex := range examples {
		before := ex.plan()
		fmt.Printf("=== %s ===\n--- before ---\n%s\n", ex.name, planviz.Render(before))

		after, op, err := driver.ApplyTo(before)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", ex.name, err)
			os.Exit(1)
		}
		fmt.Printf("--- after ---\n%s\n", planviz.Render(after))
		for _, line := range op.Render() {
			fmt.Println("  step:", line)
		}

		t.AddLine(ex.name, before.Type(), after.Type(), fmt.Sprintf("%v", before.Type() != after.Type()))
	}
	t.Print()
}

// uncorrelatedIn builds an uncorrelated IN-subquery plan:
// Predicate(a.a IN Projection([b.a], b), a)
func uncorrelatedIn() lqp.Node {
	a := build.Table("a", "a", "b")
	b := build.Table("b", "a", "b")
	sub := build.Subquery(build.Proj([]lqp.Expression{build.Col(b, "a")}, b))
	return build.Pred(build.In(build.Col(a, "a"), sub), a)
}

// uncorrelatedNotIn builds an uncorrelated NOT IN subquery plan:
// Predicate(a.a NOT IN Projection([b.a], b), a)
func uncorrelatedNotIn() lqp.Node {
	a := build.Table("a", "a", "b")
	b := build.Table("b", "a", "b")
	sub := build.Subquery(build.Proj([]lqp.Expression{build.Col(b, "a")}, b))
	return build.Pred(build.NotIn(build.Col(a, "a"), sub), a)
}

// correlatedIn builds a correlated IN subquery plan:
// Predicate(a.a IN Projection([b.a], Predicate(b.b = $0, b)), a) with $0 -> a.b
func correlatedIn() lqp.Node {
	a := build.Table("a", "a", "b")
	b := build.Table("b", "a", "b")
	inner := build.Pred(build.Eq(build.Col(b, "b"), build.Param("p0")), b)
	sub := build.Subquery(
		build.Proj([]lqp.Expression{build.Col(b, "a")}, inner),
		build.Bind("p0", build.Col(a, "b")),
	)
	return build.Pred(build.In(build.Col(a, "a"), sub), a)
}
