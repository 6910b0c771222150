// internal/rules/validate.go
package rules

import (
	"fmt"

	"github.com/solatis/queryforge/internal/tree"
	"github.com/solatis/queryforge/internal/types"
)

/*
 * Tree validation.
 *
 * Runs an ordered set of independent rules and collects every diagnostic
 * rather than failing fast: the point of validation is to report all
 * issues at once. Severity decides whether the tree is usable (valid iff
 * no error-severity diagnostics), not whether validation "failed".
 *
 * Rules are function values in a named slice so individual rules stay
 * independently testable and skippable (ValidateWith). Function-based
 * dispatch over interface polymorphism: five rules via plain funcs are
 * cleaner than five single-method implementations.
 *
 * Contradiction detection is deliberately narrow: it compares direct
 * condition siblings within one AND group and never reasons across nested
 * groups or OR/NOT boundaries. That scope is a documented design boundary.
 */

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is one validation finding, located by tree path and node id.
type Diagnostic struct {
	Severity Severity     `json:"severity"`
	Rule     string       `json:"rule"`
	Path     string       `json:"path"`
	NodeID   types.NodeID `json:"nodeId"`
	Message  string       `json:"message"`
}

// PerformanceEstimate summarizes expected evaluation cost.
type PerformanceEstimate struct {
	Complexity       int      `json:"complexity"`
	EstimatedMillis  int      `json:"estimatedMillis"`
	Class            string   `json:"class"`
	SuggestedIndexes []string `json:"suggestedIndexes"`
}

// Validation is the full result of validating one tree.
type Validation struct {
	Valid       bool                `json:"valid"`
	Diagnostics []Diagnostic        `json:"diagnostics"`
	Suggestions []string            `json:"suggestions"`
	Estimate    PerformanceEstimate `json:"estimate"`
}

// ValidationRule is one independently runnable check.
type ValidationRule struct {
	Name  string
	Check func(root types.Node) []Diagnostic
}

// DefaultRules returns the standard rule pipeline in execution order.
func DefaultRules() []ValidationRule {
	return []ValidationRule{
		{Name: "empty-groups", Check: checkEmptyGroups},
		{Name: "single-child-groups", Check: checkSingleChildGroups},
		{Name: "operator-compatibility", Check: checkOperatorCompatibility},
		{Name: "contradictions", Check: checkContradictions},
		{Name: "limits", Check: checkLimits},
	}
}

// Validate runs the default rule pipeline against a tree.
func Validate(root types.Node) Validation {
	return ValidateWith(root, DefaultRules())
}

// ValidateWith runs an explicit rule set, preserving rule order.
func ValidateWith(root types.Node, ruleset []ValidationRule) Validation {
	v := Validation{Valid: true, Diagnostics: []Diagnostic{}}

	for _, rule := range ruleset {
		v.Diagnostics = append(v.Diagnostics, rule.Check(root)...)
	}
	for _, d := range v.Diagnostics {
		if d.Severity == SeverityError {
			v.Valid = false
			break
		}
	}

	v.Suggestions = suggestions(root, v.Diagnostics)
	v.Estimate = estimate(root)
	return v
}

// walkPaths visits every node pre-order, carrying a human-readable tree
// path ("root", "root.children[1]", ...). Iterative for the same reason
// tree.Walk is: the input has not passed the limit checks yet.
func walkPaths(root types.Node, visit func(n types.Node, parent *types.Group, depth int, path string)) {
	type pframe struct {
		node   types.Node
		parent *types.Group
		depth  int
		path   string
	}

	stack := []pframe{{node: root, depth: 1, path: "root"}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visit(f.node, f.parent, f.depth, f.path)

		if g, ok := f.node.(*types.Group); ok {
			for i := len(g.Children) - 1; i >= 0; i-- {
				stack = append(stack, pframe{
					node:   g.Children[i],
					parent: g,
					depth:  f.depth + 1,
					path:   fmt.Sprintf("%s.children[%d]", f.path, i),
				})
			}
		}
	}
}

// checkEmptyGroups flags any group with zero children (warning).
func checkEmptyGroups(root types.Node) []Diagnostic {
	var out []Diagnostic
	walkPaths(root, func(n types.Node, _ *types.Group, _ int, path string) {
		if g, ok := n.(*types.Group); ok && len(g.Children) == 0 {
			out = append(out, Diagnostic{
				Severity: SeverityWarning,
				Rule:     "empty-groups",
				Path:     path,
				NodeID:   g.NodeID,
				Message:  "group has no children and matches nothing useful",
			})
		}
	})
	return out
}

// checkSingleChildGroups flags non-root groups with exactly one child (info).
func checkSingleChildGroups(root types.Node) []Diagnostic {
	var out []Diagnostic
	walkPaths(root, func(n types.Node, parent *types.Group, _ int, path string) {
		g, ok := n.(*types.Group)
		if !ok || parent == nil {
			return
		}
		if len(g.Children) == 1 {
			out = append(out, Diagnostic{
				Severity: SeverityInfo,
				Rule:     "single-child-groups",
				Path:     path,
				NodeID:   g.NodeID,
				Message:  "group has a single child and can be flattened",
			})
		}
	})
	return out
}

// checkOperatorCompatibility flags operator/data-type mismatches and value
// shapes that do not fit the operator (all errors).
func checkOperatorCompatibility(root types.Node) []Diagnostic {
	var out []Diagnostic
	walkPaths(root, func(n types.Node, _ *types.Group, _ int, path string) {
		c, ok := n.(*types.Condition)
		if !ok {
			return
		}

		fail := func(msg string) {
			out = append(out, Diagnostic{
				Severity: SeverityError,
				Rule:     "operator-compatibility",
				Path:     path,
				NodeID:   c.NodeID,
				Message:  msg,
			})
		}

		if !c.Operator.IsValid() {
			fail(fmt.Sprintf("unknown operator %q", c.Operator))
			return
		}
		if !c.DataType.IsValid() {
			fail(fmt.Sprintf("unknown data type %q", c.DataType))
			return
		}
		if !c.Operator.CompatibleWith(c.DataType) {
			fail(fmt.Sprintf("operator %q is not applicable to %q fields", c.Operator, c.DataType))
			return
		}
		if c.Operator.IgnoresValue() {
			return
		}

		switch {
		case c.Operator == types.OpBetween:
			if c.Value.Kind() != types.KindArray || c.Value.Len() != 2 {
				fail("between requires an array of exactly two values")
			}
		case c.Operator.RequiresArray():
			if c.Value.Kind() != types.KindArray || c.Value.Len() == 0 {
				fail(fmt.Sprintf("%s requires a non-empty array value", c.Operator))
			}
		case c.Value.IsNull():
			fail(fmt.Sprintf("operator %q requires a comparison value", c.Operator))
		case !c.Value.MatchesType(c.DataType):
			fail(fmt.Sprintf("value is %s but field is declared %q", c.Value.Kind(), c.DataType))
		}
	})
	return out
}

// checkContradictions pairwise-compares direct condition siblings sharing a
// field within each AND group (warning).
func checkContradictions(root types.Node) []Diagnostic {
	var out []Diagnostic
	walkPaths(root, func(n types.Node, _ *types.Group, _ int, path string) {
		g, ok := n.(*types.Group)
		if !ok || g.Operator != types.BoolAnd {
			return
		}

		byField := map[string][]*types.Condition{}
		for _, child := range g.Children {
			if c, ok := child.(*types.Condition); ok && c.Field != "" {
				byField[c.Field] = append(byField[c.Field], c)
			}
		}

		for field, conds := range byField {
			for i := 0; i < len(conds); i++ {
				for j := i + 1; j < len(conds); j++ {
					if reason := contradicts(conds[i], conds[j]); reason != "" {
						out = append(out, Diagnostic{
							Severity: SeverityWarning,
							Rule:     "contradictions",
							Path:     path,
							NodeID:   g.NodeID,
							Message:  fmt.Sprintf("field %q: %s", field, reason),
						})
					}
				}
			}
		}
	})
	return out
}

// contradicts reports why two same-field AND siblings can never both hold,
// or "" when no contradiction is detected.
func contradicts(a, b *types.Condition) string {
	// equals vs not_equals on the same value, either order
	if a.Operator == types.OpNotEquals && b.Operator == types.OpEquals {
		a, b = b, a
	}
	if a.Operator == types.OpEquals && b.Operator == types.OpNotEquals {
		if a.Value.Equal(b.Value) {
			return "equals and not_equals on the same value"
		}
		return ""
	}

	// two different equals
	if a.Operator == types.OpEquals && b.Operator == types.OpEquals {
		if !a.Value.Equal(b.Value) {
			return "two equals conditions with different values"
		}
		return ""
	}

	// numeric/date window that excludes everything
	av, aok := ordered(a.Value)
	bv, bok := ordered(b.Value)
	if !aok || !bok {
		return ""
	}
	if a.Operator == types.OpLessThan && b.Operator == types.OpGreaterThan {
		a, b = b, a
		av, bv = bv, av
	}
	if a.Operator == types.OpGreaterThan && b.Operator == types.OpLessThan && av >= bv {
		return "greater_than and less_than bounds exclude every value"
	}
	if a.Operator == types.OpLessEqual && b.Operator == types.OpGreaterEqual {
		a, b = b, a
		av, bv = bv, av
	}
	if a.Operator == types.OpGreaterEqual && b.Operator == types.OpLessEqual && av > bv {
		return "greater_equal and less_equal bounds exclude every value"
	}
	return ""
}

// ordered projects numbers and dates onto a comparable axis.
func ordered(v types.Value) (float64, bool) {
	switch v.Kind() {
	case types.KindNumber:
		return v.Num(), true
	case types.KindDate:
		return float64(v.Date().UnixNano()), true
	}
	return 0, false
}

// checkLimits enforces the depth and node-count ceilings.
func checkLimits(root types.Node) []Diagnostic {
	var out []Diagnostic

	depth := tree.Depth(root)
	switch {
	case depth > types.MaxTreeDepth:
		out = append(out, Diagnostic{
			Severity: SeverityError,
			Rule:     "limits",
			Path:     "root",
			NodeID:   root.ID(),
			Message:  fmt.Sprintf("tree depth %d exceeds maximum %d", depth, types.MaxTreeDepth),
		})
	case depth > types.WarnTreeDepth:
		out = append(out, Diagnostic{
			Severity: SeverityWarning,
			Rule:     "limits",
			Path:     "root",
			NodeID:   root.ID(),
			Message:  fmt.Sprintf("tree depth %d exceeds recommended %d", depth, types.WarnTreeDepth),
		})
	}

	if n := tree.CountNodes(root); n > types.MaxTreeNodes {
		out = append(out, Diagnostic{
			Severity: SeverityError,
			Rule:     "limits",
			Path:     "root",
			NodeID:   root.ID(),
			Message:  fmt.Sprintf("tree has %d nodes, exceeding maximum %d", n, types.MaxTreeNodes),
		})
	}

	return out
}

// suggestions derives improvement hints from diagnostics and tree shape.
func suggestions(root types.Node, diags []Diagnostic) []string {
	var out []string
	seenRule := map[string]bool{}
	for _, d := range diags {
		seenRule[d.Rule+string(d.Severity)] = true
	}

	if seenRule["empty-groups"+string(SeverityWarning)] {
		out = append(out, "remove empty groups or run optimize to strip them")
	}
	if seenRule["single-child-groups"+string(SeverityInfo)] {
		out = append(out, "flatten single-child groups to reduce nesting")
	}

	for _, c := range tree.Conditions(root) {
		if expensiveOperators[c.Operator] {
			out = append(out, "regex, fuzzy, and contains operators scan rows; prefer prefix or equality matches where possible")
			break
		}
	}
	if Score(root, DefaultWeights()) >= 7 {
		out = append(out, "filter complexity is high; consider splitting it into smaller filters")
	}
	return out
}

// estimate builds the performance estimate from the shared scorer.
func estimate(root types.Node) PerformanceEstimate {
	score := Score(root, DefaultWeights())

	class := "fast"
	switch {
	case score > 6:
		class = "slow"
	case score > 3:
		class = "moderate"
	}

	return PerformanceEstimate{
		Complexity:       score,
		EstimatedMillis:  score * score * 2,
		Class:            class,
		SuggestedIndexes: IndexHints(root),
	}
}
