// internal/rules/optimize.go
package rules

import (
	"fmt"

	"github.com/solatis/queryforge/internal/types"
)

/*
 * Semantics-preserving rewrite passes.
 *
 * Optimize applies four idempotent passes left-to-right exactly once:
 *
 *   1. remove empty groups      (post-order strip; empty root becomes the
 *                                canonical empty AND tree)
 *   2. flatten single-child     (non-root AND/OR group with one child
 *                                becomes the child; NOT is a negation,
 *                                not nesting)
 *   3. merge same-operator      (direct AND/OR child groups with the same
 *                                operator are spliced into the parent)
 *   4. NOT simplification       (double-negation elimination; De Morgan on
 *                                NOT over AND/OR)
 *
 * The pipeline runs once in fixed order, not to a fixed point: a double
 * negation introduced by De Morgan in pass 4 is not eliminated until the
 * next Optimize call. That is a deliberate scope limit callers rely on,
 * not a bug to fix.
 *
 * Merging is restricted to AND/OR: splicing a NOT group's children into a
 * NOT parent would silently drop a negation. NOT-in-NOT is pass 4's job.
 *
 * Rewrites recurse with a depth counter that gives up below
 * maxRewriteDepth and returns the subtree unchanged: inputs may nest
 * adversarially deep before validation has rejected them, and a rewrite
 * must degrade to a no-op rather than exhaust the call stack.
 */

const maxRewriteDepth = types.MaxDecodeDepth

// Optimize applies the full rewrite pipeline once and reports which
// rewrites fired, in human-readable form for envelope metadata.
func Optimize(root types.Node) (types.Node, []string) {
	out := root.Clone()
	var notes []string

	out, n := removeEmpty(out, 1, true)
	if n > 0 {
		notes = append(notes, fmt.Sprintf("removed %d empty group(s)", n))
	}
	out, n = flattenSingle(out, 1, true)
	if n > 0 {
		notes = append(notes, fmt.Sprintf("flattened %d single-child group(s)", n))
	}
	out, n = mergeSameOperator(out, 1)
	if n > 0 {
		notes = append(notes, fmt.Sprintf("merged %d same-operator group(s)", n))
	}
	out, n = simplifyNot(out, 1)
	if n > 0 {
		notes = append(notes, fmt.Sprintf("simplified %d negation(s)", n))
	}

	return out, notes
}

// RemoveEmptyGroups applies only the empty-group strip.
func RemoveEmptyGroups(root types.Node) (types.Node, int) {
	return removeEmpty(root.Clone(), 1, true)
}

// FlattenSingleChild applies only the single-child flatten.
func FlattenSingleChild(root types.Node) (types.Node, int) {
	return flattenSingle(root.Clone(), 1, true)
}

// MergeSameOperator applies only the same-operator merge.
func MergeSameOperator(root types.Node) (types.Node, int) {
	return mergeSameOperator(root.Clone(), 1)
}

// SimplifyNot applies only the NOT simplification.
func SimplifyNot(root types.Node) (types.Node, int) {
	return simplifyNot(root.Clone(), 1)
}

// Simplify composes the structural cleanups (passes 1-3) without the full
// pipeline; builder callers use it as a convenience wrapper.
func Simplify(root types.Node) types.Node {
	out, _ := removeEmpty(root.Clone(), 1, true)
	out, _ = flattenSingle(out, 1, true)
	out, _ = mergeSameOperator(out, 1)
	return out
}

// Flatten reduces nesting (passes 2-3) without touching empty groups.
func Flatten(root types.Node) types.Node {
	out, _ := flattenSingle(root.Clone(), 1, true)
	out, _ = mergeSameOperator(out, 1)
	return out
}

// removeEmpty strips groups whose already-processed children list is empty.
// The root is never stripped; an empty root resets to the canonical empty
// AND tree, keeping its id.
func removeEmpty(n types.Node, depth int, isRoot bool) (types.Node, int) {
	if depth > maxRewriteDepth {
		return n, 0
	}

	g, ok := n.(*types.Group)
	if !ok {
		return n, 0
	}

	removed := 0
	kept := make([]types.Node, 0, len(g.Children))
	for _, child := range g.Children {
		processed, r := removeEmpty(child, depth+1, false)
		removed += r
		if cg, ok := processed.(*types.Group); ok && len(cg.Children) == 0 {
			removed++
			continue
		}
		kept = append(kept, processed)
	}
	g.Children = kept

	if isRoot && len(g.Children) == 0 && g.Operator != types.BoolAnd {
		g.Operator = types.BoolAnd
		g.Meta = types.GroupMeta{}
	}
	return g, removed
}

// flattenSingle replaces non-root AND/OR groups having exactly one
// processed child with that child. NOT groups are exempt: a single-child
// NOT is a negation, not redundant nesting.
func flattenSingle(n types.Node, depth int, isRoot bool) (types.Node, int) {
	if depth > maxRewriteDepth {
		return n, 0
	}

	g, ok := n.(*types.Group)
	if !ok {
		return n, 0
	}

	flattened := 0
	for i, child := range g.Children {
		processed, f := flattenSingle(child, depth+1, false)
		g.Children[i] = processed
		flattened += f
	}

	if !isRoot && g.Operator != types.BoolNot && len(g.Children) == 1 {
		return g.Children[0], flattened + 1
	}
	return g, flattened
}

// mergeSameOperator splices the children of same-operator AND/OR child
// groups into their parent. Post-order, so same-operator chains collapse
// fully in one pass; spliced grandchildren are not re-examined.
func mergeSameOperator(n types.Node, depth int) (types.Node, int) {
	if depth > maxRewriteDepth {
		return n, 0
	}

	g, ok := n.(*types.Group)
	if !ok {
		return n, 0
	}

	merged := 0
	processed := make([]types.Node, 0, len(g.Children))
	for _, child := range g.Children {
		p, m := mergeSameOperator(child, depth+1)
		merged += m
		processed = append(processed, p)
	}

	mergeable := g.Operator == types.BoolAnd || g.Operator == types.BoolOr
	out := make([]types.Node, 0, len(processed))
	for _, child := range processed {
		if cg, ok := child.(*types.Group); ok && mergeable && cg.Operator == g.Operator {
			out = append(out, cg.Children...)
			merged++
			continue
		}
		out = append(out, child)
	}
	g.Children = out
	return g, merged
}

// simplifyNot eliminates double negations and pushes NOT over AND/OR via
// De Morgan's law.
func simplifyNot(n types.Node, depth int) (types.Node, int) {
	if depth > maxRewriteDepth {
		return n, 0
	}

	g, ok := n.(*types.Group)
	if !ok {
		return n, 0
	}

	if g.Operator == types.BoolNot && len(g.Children) == 1 {
		child := g.Children[0]

		if cg, ok := child.(*types.Group); ok {
			// NOT(NOT(x)) -> x
			if cg.Operator == types.BoolNot && len(cg.Children) == 1 {
				out, s := simplifyNot(cg.Children[0], depth+1)
				return out, s + 1
			}

			// De Morgan: NOT(AND(a, b)) -> OR(NOT(a), NOT(b)) and dually
			if cg.Operator == types.BoolAnd || cg.Operator == types.BoolOr {
				flipped := types.BoolOr
				if cg.Operator == types.BoolOr {
					flipped = types.BoolAnd
				}
				simplified := 1
				wrapped := make([]types.Node, 0, len(cg.Children))
				for _, grandchild := range cg.Children {
					p, s := simplifyNot(grandchild, depth+2)
					simplified += s
					wrapped = append(wrapped, &types.Group{
						NodeID:   types.NewNodeID(),
						Operator: types.BoolNot,
						Children: []types.Node{p},
					})
				}
				return &types.Group{
					NodeID:   g.NodeID,
					Operator: flipped,
					Children: wrapped,
					Meta:     g.Meta,
				}, simplified
			}
		}
	}

	simplified := 0
	for i, child := range g.Children {
		p, s := simplifyNot(child, depth+1)
		g.Children[i] = p
		simplified += s
	}
	return g, simplified
}
