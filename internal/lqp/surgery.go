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

// ReplaceNode rewrites every parent's child pointer from old to replacement,
// walking down from root. It never mutates old itself, only the parents
// pointing at it.
//
// Nodes are compared by identity (ID), not by deep equality, so a node that
// appears as its own ancestor's descendant via two different paths is
// replaced consistently everywhere it is referenced.
func ReplaceNode(root, old, replacement Node) Node {
	if root == nil {
		return nil
	}
	if root.ID() == old.ID() {
		return replacement
	}
	if left := root.LeftInput(); left != nil {
		if left.ID() == old.ID() {
			root.SetLeftInput(replacement)
		} else {
			ReplaceNode(left, old, replacement)
		}
	}
	if right := root.RightInput(); right != nil {
		if right.ID() == old.ID() {
			root.SetRightInput(replacement)
		} else {
			ReplaceNode(right, old, replacement)
		}
	}
	return root
}
