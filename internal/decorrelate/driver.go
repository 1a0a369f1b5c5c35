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

// Package decorrelate implements the subquery-to-join decorrelation rule:
// classifying eligible filter predicates, analyzing correlated-parameter
// uses inside the referenced subquery, finding which correlated predicates
// can be pulled up into a join condition, adapting the subquery plan to
// expose the columns those predicates need, and splicing the resulting join
// into the outer plan.
package decorrelate

import (
	goerrors "errors"
	"fmt"

	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"go.uber.org/zap"

	"github.com/pingcap/lqpdecorrelate/internal/lqp"
	"github.com/pingcap/lqpdecorrelate/internal/logutil"
	"github.com/pingcap/lqpdecorrelate/internal/trace"
)

// Options configures a Driver. A nil *Options is equivalent to the zero
// value.
type Options struct {
	// AllowNotInDecorrelation is read by Classify, but setting it true does
	// not relax the rejection of a correlated NOT IN: null semantics make a
	// correlated NOT IN incompatible with a uniform multi-predicate
	// anti-join, and there is no safe relaxed implementation to fall back
	// to. It exists, narrow and documented, the way TiDB exposes many
	// single-purpose planner toggles rather than hard-coding every constant
	// inline; a future safe implementation would be gated on it.
	AllowNotInDecorrelation bool

	// TraceSteps enables recording an optimize-trace-style step log of every
	// rewrite, returned alongside the rewritten plan.
	TraceSteps bool
}

// Driver orchestrates the classify/analyze/find/adapt steps and splices the
// resulting join into the plan in place of the classified Predicate node.
type Driver struct {
	opts *Options
}

// NewDriver constructs a Driver. A nil opts uses the zero-value Options.
func NewDriver(opts *Options) *Driver {
	if opts == nil {
		opts = &Options{}
	}
	return &Driver{opts: opts}
}

// ApplyTo traverses root's plan, rewriting every eligible Predicate node
// into a Join, and returns the (possibly new) root of the rewritten plan.
func (d *Driver) ApplyTo(root lqp.Node) (lqp.Node, *trace.Op, error) {
	op := &trace.Op{}
	newRoot, err := d.rewrite(root, op)
	if err != nil {
		return nil, op, err
	}
	return newRoot, op, nil
}

func (d *Driver) rewrite(n lqp.Node, op *trace.Op) (lqp.Node, error) {
	if n == nil {
		return nil, nil
	}

	if pn, ok := n.(*lqp.PredicateNode); ok {
		if info, cerr := Classify(pn, d.opts); cerr == nil {
			join, berr := d.tryBuildJoin(pn, info, op)
			if berr == nil {
				oldLeft, oldRight := join.Left, join.Right
				newLeft, err := d.rewrite(oldLeft, op)
				if err != nil {
					return nil, err
				}
				lqp.ReplaceNode(join, oldLeft, newLeft)
				newRight, err := d.rewrite(oldRight, op)
				if err != nil {
					return nil, err
				}
				lqp.ReplaceNode(join, oldRight, newRight)
				logutil.BgLogger().Debug("decorrelate: rewrote predicate into join",
					zap.String("predicate_node", string(pn.ID())),
					zap.String("join_node", string(join.ID())),
					zap.String("join_mode", join.Mode.String()),
					zap.Int("predicates", len(join.Predicates)))
				return join, nil
			}
			if !goerrors.Is(berr, ErrDecline) {
				logutil.BgLogger().Error("decorrelate: invariant violation", zap.Error(berr))
				return nil, berr
			}
			logutil.BgLogger().Debug("decorrelate: declined after classification",
				zap.String("predicate_node", string(pn.ID())), zap.Error(berr))
		} else if !goerrors.Is(cerr, ErrDecline) {
			logutil.BgLogger().Error("decorrelate: invariant violation", zap.Error(cerr))
			return nil, cerr
		} else {
			logutil.BgLogger().Debug("decorrelate: declined at classification",
				zap.String("predicate_node", string(pn.ID())), zap.Error(cerr))
		}
	}

	if left := n.LeftInput(); left != nil {
		newLeft, err := d.rewrite(left, op)
		if err != nil {
			return nil, err
		}
		lqp.ReplaceNode(n, left, newLeft)
	}
	if right := n.RightInput(); right != nil {
		newRight, err := d.rewrite(right, op)
		if err != nil {
			return nil, err
		}
		lqp.ReplaceNode(n, right, newRight)
	}
	return n, nil
}

// tryBuildJoin runs the remaining steps for one classified Predicate node:
// build the parameter mapping, analyze correlation, find pullable
// predicates, adapt the subquery plan, and assemble the replacement join.
func (d *Driver) tryBuildJoin(pn *lqp.PredicateNode, info *InputLQPInfo, op *trace.Op) (*lqp.JoinNode, error) {
	m := info.Subquery.ParameterMapping()

	blocked, count := AnalyzeCorrelation(info.Subquery.Plan, m)
	if blocked {
		return nil, decline("a correlated parameter is used outside of a predicate node")
	}

	pullable := FindPullablePredicates(info.Subquery.Plan, m)

	failpoint.Inject("forceInvariantViolation", func() {
		count = 0
	})

	if len(pullable) > count {
		return nil, errors.Annotatef(ErrPullableCountExceeded,
			"subquery %s: found %d pullable predicates but the analyzer counted %d correlated predicate nodes",
			info.Subquery.Plan.ID(), len(pullable), count)
	}
	if len(pullable) != count {
		return nil, decline("a correlated predicate is off a safe edge or cannot be turned into a join predicate")
	}

	adapted, err := AdaptPlan(info.Subquery.Plan, pullable)
	if err != nil {
		return nil, err
	}

	predicates := make([]lqp.Expression, 0, len(pullable)+1)
	if info.BasePredicate != nil {
		predicates = append(predicates, info.BasePredicate)
	}
	for _, p := range pullable {
		predicates = append(predicates, p.Predicate)
	}
	if !anyEquality(predicates) {
		return nil, decline("no candidate join predicate is an equality")
	}
	leadWithEquality(predicates)

	join := lqp.NewJoin(info.JoinMode, predicates, pn.Input, adapted.NewRoot)
	if d.opts.TraceSteps {
		appendRewriteTraceStep(op, pn, join)
	}
	return join, nil
}

func anyEquality(preds []lqp.Expression) bool {
	for _, p := range preds {
		if b, ok := p.(*lqp.Binary); ok && b.Op.IsEquality() {
			return true
		}
	}
	return false
}

// leadWithEquality swaps the first equality predicate in preds into index 0,
// in place. Semi/Anti-joins are typically implemented as hash joins, and
// physical planning requires the leading predicate to be an equality. Any
// equality candidate works; the first one found is picked deterministically.
func leadWithEquality(preds []lqp.Expression) {
	for i, p := range preds {
		if b, ok := p.(*lqp.Binary); ok && b.Op.IsEquality() {
			preds[0], preds[i] = preds[i], preds[0]
			return
		}
	}
}

func appendRewriteTraceStep(op *trace.Op, pn *lqp.PredicateNode, join *lqp.JoinNode) {
	action := func() string {
		return fmt.Sprintf("Predicate_%s replaced by Join_%s", pn.ID(), join.ID())
	}
	reason := func() string {
		return fmt.Sprintf("subquery decorrelated into a %s join with %d predicate(s)", join.Mode, len(join.Predicates))
	}
	op.AppendStepToCurrent(pn.ID(), pn.Type(), reason, action)
}
