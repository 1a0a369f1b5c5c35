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

// AdaptedLQP is the transformed subquery plan with the pulled predicates
// removed, plus the list of columns every node between the removed predicate
// and the new root had to be made to propagate.
type AdaptedLQP struct {
	NewRoot         lqp.Node
	RequiredColumns []lqp.Expression
}

// AdaptPlan builds the adapted subquery plan. pullable is the list
// FindPullablePredicates returned; every predicate node in it is removed
// from the adapted tree, and every Aggregate/Projection/Alias node on the
// path from that predicate to the root is rewritten to additionally expose
// the join predicate's inner-column operand.
func AdaptPlan(plan lqp.Node, pullable []Pullable) (*AdaptedLQP, error) {
	removed := make(map[lqp.NodeID]*lqp.Binary, len(pullable))
	for _, p := range pullable {
		removed[p.Node.ID()] = p.Predicate
	}
	newRoot, required, err := adaptRecursive(plan, removed)
	if err != nil {
		return nil, err
	}
	return &AdaptedLQP{NewRoot: newRoot, RequiredColumns: required}, nil
}

func adaptRecursive(n lqp.Node, removed map[lqp.NodeID]*lqp.Binary) (lqp.Node, []lqp.Expression, error) {
	if n == nil {
		return nil, nil, nil
	}

	switch v := n.(type) {
	case *lqp.PredicateNode:
		if v.Input == nil {
			return nil, nil, ErrMissingChild
		}
		adaptedInput, required, err := adaptRecursive(v.Input, removed)
		if err != nil {
			return nil, nil, err
		}
		if jp, ok := removed[v.ID()]; ok {
			// This predicate is pulled up into the join: drop it and expose
			// its inner-column operand to the new root. jp.RHS was captured
			// against the pre-adaptation tree by FindPullablePredicates, so it
			// has to be re-resolved against adaptedInput before use.
			inner := resolveInnerColumn(adaptedInput, jp.RHS)
			return adaptedInput, lqp.DedupeByKey(required, inner), nil
		}
		return lqp.NewPredicate(v.Predicate.DeepCopy(), adaptedInput), required, nil

	case *lqp.AggregateNode:
		if v.Input == nil {
			return nil, nil, ErrMissingChild
		}
		adaptedInput, required, err := adaptRecursive(v.Input, removed)
		if err != nil {
			return nil, nil, err
		}
		groupBy := lqp.DedupeByKey(copyExprs(v.GroupBy), required...)
		return lqp.NewAggregate(groupBy, copyExprs(v.Aggregates), adaptedInput), required, nil

	case *lqp.ProjectionNode:
		if v.Input == nil {
			return nil, nil, ErrMissingChild
		}
		adaptedInput, required, err := adaptRecursive(v.Input, removed)
		if err != nil {
			return nil, nil, err
		}
		// Duplicates inside the original list are preserved. Projections
		// may deliberately repeat columns.
		exprs := lqp.DedupeByKey(copyExprs(v.Expressions), required...)
		return lqp.NewProjection(exprs, adaptedInput), required, nil

	case *lqp.AliasNode:
		if v.Input == nil {
			return nil, nil, ErrMissingChild
		}
		adaptedInput, required, err := adaptRecursive(v.Input, removed)
		if err != nil {
			return nil, nil, err
		}
		exprs := copyExprs(v.Expressions)
		aliases := append([]string{}, v.Aliases...)
		seen := make(map[string]struct{}, len(exprs))
		for _, e := range exprs {
			seen[e.Key()] = struct{}{}
		}
		for _, req := range required {
			if _, ok := seen[req.Key()]; ok {
				continue
			}
			seen[req.Key()] = struct{}{}
			exprs = append(exprs, req)
			aliases = append(aliases, canonicalColumnName(req))
		}
		return lqp.NewAlias(exprs, aliases, adaptedInput), required, nil

	case *lqp.SortNode:
		if v.Input == nil {
			return nil, nil, ErrMissingChild
		}
		adaptedInput, required, err := adaptRecursive(v.Input, removed)
		if err != nil {
			return nil, nil, err
		}
		return lqp.NewSort(copyExprs(v.Keys), append([]bool{}, v.Orders...), adaptedInput), required, nil

	case *lqp.ValidateNode:
		if v.Input == nil {
			return nil, nil, ErrMissingChild
		}
		adaptedInput, required, err := adaptRecursive(v.Input, removed)
		if err != nil {
			return nil, nil, err
		}
		return lqp.NewValidate(adaptedInput), required, nil

	case *lqp.JoinNode:
		left, right := safeRecursionSides(v)
		if (left && v.Left == nil) || (right && v.Right == nil) {
			return nil, nil, ErrMissingChild
		}
		newLeft, newRight := v.Left, v.Right
		var required []lqp.Expression
		if left {
			adapted, req, err := adaptRecursive(v.Left, removed)
			if err != nil {
				return nil, nil, err
			}
			newLeft, required = adapted, req
		}
		if right {
			adapted, req, err := adaptRecursive(v.Right, removed)
			if err != nil {
				return nil, nil, err
			}
			newRight = adapted
			required = append(required, req...)
		}
		return lqp.NewJoin(v.Mode, copyExprs(v.Predicates), newLeft, newRight), required, nil

	default:
		// Recursion terminal, e.g. StoredTable. Returned unchanged; no
		// columns are newly required here.
		return n, nil, nil
	}
}

func copyExprs(exprs []lqp.Expression) []lqp.Expression {
	out := make([]lqp.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = e.DeepCopy()
	}
	return out
}

func canonicalColumnName(e lqp.Expression) string {
	if c, ok := e.(*lqp.ColumnExpr); ok {
		return c.Name
	}
	return e.Key()
}

// resolveInnerColumn re-resolves expr against adaptedInput's output schema.
// Rebuilding an Aggregate or Alias node mints it a fresh NodeID (node.go
// keys both node types' output ColumnExprs by their own id), so a column
// reference captured before adaptation can name a producer id that no
// longer appears anywhere in the adapted tree even though the same column,
// under the same name, still exists. Aggregate's output names are
// positional ("agg0", "agg1", ...) and Alias's are its own Aliases list,
// and both survive a rebuild unchanged, so falling back to a name match
// recovers the right column.
func resolveInnerColumn(adaptedInput lqp.Node, expr lqp.Expression) lqp.Expression {
	col, ok := expr.(*lqp.ColumnExpr)
	if !ok {
		return expr
	}
	if resolved, ok := adaptedInput.FindColumnID(col); ok {
		return resolved
	}
	for _, c := range adaptedInput.ColumnExpressions() {
		if oc, ok := c.(*lqp.ColumnExpr); ok && oc.Name == col.Name {
			return oc
		}
	}
	return expr
}
