// internal/rules/complexity.go
package rules

import (
	"math"
	"sort"

	"github.com/solatis/queryforge/internal/tree"
	"github.com/solatis/queryforge/internal/types"
)

/*
 * Complexity scoring and index hints.
 *
 * One canonical cost formula shared by validation, the compiler envelope,
 * and analytics tagging:
 *
 *   condition: 1 + depth_weight * depth, + 0.5 when the operator is in the
 *              expensive set (regex, fuzzy, contains, not_contains)
 *   group:     0.1, + 0.3 when the operator is NOT
 *
 * The total rounds up and clamps to [1, 10]. Analytics tagging uses the
 * same formula with a heavier depth weight (0.5 vs 0.2); the two call
 * sites are weight variants of one function, not two formulas.
 */

// Weights parameterizes the complexity formula.
type Weights struct {
	DepthWeight float64
}

// DefaultWeights returns the weights used for validation and compilation.
func DefaultWeights() Weights { return Weights{DepthWeight: 0.2} }

// AnalyticsWeights returns the heavier depth weighting used for analytics
// tagging of stored filters.
func AnalyticsWeights() Weights { return Weights{DepthWeight: 0.5} }

// Per-node cost constants.
const (
	costCondition   = 1.0
	costExpensiveOp = 0.5
	costGroup       = 0.1
	costNotGroup    = 0.3

	minScore = 1
	maxScore = 10
)

// expensiveOperators evaluate per-row scans or backtracking matchers.
var expensiveOperators = map[types.Operator]bool{
	types.OpMatchesRegex: true,
	types.OpFuzzyMatch:   true,
	types.OpContains:     true,
	types.OpNotContains:  true,
}

// Score computes the tree's complexity score, clamped to [1, 10].
func Score(root types.Node, w Weights) int {
	raw := 0.0
	tree.Walk(root, func(n types.Node, _ *types.Group, depth int) bool {
		switch node := n.(type) {
		case *types.Condition:
			raw += costCondition + w.DepthWeight*float64(depth)
			if expensiveOperators[node.Operator] {
				raw += costExpensiveOp
			}
		case *types.Group:
			raw += costGroup
			if node.Operator == types.BoolNot {
				raw += costNotGroup
			}
		}
		return true
	})

	score := int(math.Ceil(raw))
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// IndexHints suggests per-field indexes for the fields a tree touches.
// Range operators add a ":range" suggestion, text-search operators a
// ":text" suggestion. Output is deduplicated and sorted.
func IndexHints(root types.Node) []string {
	seen := map[string]bool{}
	for _, cond := range tree.Conditions(root) {
		if cond.Field == "" {
			continue
		}
		seen[cond.Field] = true
		if cond.Operator.IsNumericComparison() {
			seen[cond.Field+":range"] = true
		}
		if isTextSearch(cond.Operator) {
			seen[cond.Field+":text"] = true
		}
	}

	hints := make([]string, 0, len(seen))
	for h := range seen {
		hints = append(hints, h)
	}
	sort.Strings(hints)
	return hints
}

// isTextSearch reports whether the operator scans text rather than
// comparing whole values.
func isTextSearch(op types.Operator) bool {
	switch op {
	case types.OpContains, types.OpNotContains, types.OpStartsWith,
		types.OpEndsWith, types.OpMatchesRegex, types.OpFuzzyMatch:
		return true
	}
	return false
}
