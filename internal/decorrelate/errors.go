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

import "github.com/pingcap/errors"

// ErrDecline is the sentinel every decline is wrapped around. Callers check
// errors.Is(err, ErrDecline) to tell a silent, local decline (leave the plan
// untouched, keep descending) apart from an invariant violation that must
// abort plan compilation.
var ErrDecline = errors.New("decorrelate: rule does not apply to this node")

// decline wraps ErrDecline with a human-readable reason, the way TiDB's
// own rule files annotate every early return with a one-line comment
// explaining why.
func decline(reason string) error {
	return errors.Annotate(ErrDecline, reason)
}

// Invariant violations: these indicate an upstream bug (a malformed plan, or
// rule ordering that violates the assumptions this rule depends on) and must
// abort plan compilation rather than be treated as a decline.
var (
	// ErrMissingChild is returned when a node whose type requires a child
	// (every type PlanAdapter recurses into) has none.
	ErrMissingChild = errors.New("decorrelate: node requires an input but has none")

	// ErrPullableCountExceeded is returned when PullablePredicateFinder
	// reports more pullable predicates than CorrelationAnalyzer counted
	// correlated Predicate nodes. This is an internal error: the finder
	// walks a subset of the analyzer's edges, so its count can never exceed
	// the analyzer's by construction.
	ErrPullableCountExceeded = errors.New("decorrelate: pullable predicate finder found more predicates than the correlation analyzer counted")
)
