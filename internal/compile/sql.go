// internal/compile/sql.go
package compile

import (
	"fmt"
	"strings"

	"github.com/solatis/queryforge/internal/types"
)

/*
 * Relational target.
 *
 * Recursive descent over the tree building WHERE-clause text. Conditions
 * render as "<field> <operator> <placeholder>"; groups render
 * parenthesized and operator-joined; a NOT group renders as
 * "NOT (<children>)"; an empty group renders as the always-true literal.
 *
 * Generated text targets PostgreSQL: ILIKE for case-insensitive matching,
 * ~* for case-insensitive regex, matching the lib/pq production driver.
 *
 * Placeholders are sequentially numbered (:p1, :p2, ...) and collected
 * into a side map; condition values are never interpolated into the text.
 * Identifiers (table, remapped fields) must pass the allow-list before
 * they are embedded - that check is the entire injection defense for
 * identifiers, so it runs before any string building uses the name.
 */

// paramSink numbers placeholders and accumulates bound values.
type paramSink struct {
	params map[string]any
	n      int
}

// next registers a value and returns its placeholder.
func (p *paramSink) next(v any) string {
	p.n++
	name := fmt.Sprintf("p%d", p.n)
	p.params[name] = v
	return ":" + name
}

// buildSQL compiles the tree into a full SELECT against the allow-listed
// table.
func (c *Compiler) buildSQL(root types.Node, ectx ExecutionContext) (*SQLQuery, error) {
	if err := c.checkTable(ectx.Collection); err != nil {
		return nil, err
	}

	sink := &paramSink{params: map[string]any{}}
	where, err := c.sqlNode(root, ectx, sink, 1)
	if err != nil {
		return nil, err
	}

	return &SQLQuery{
		Query:      fmt.Sprintf("SELECT * FROM %s WHERE %s", ectx.Collection, where),
		Parameters: sink.params,
	}, nil
}

// sqlNode renders one node.
func (c *Compiler) sqlNode(n types.Node, ectx ExecutionContext, sink *paramSink, depth int) (string, error) {
	if depth > maxCompileDepth {
		return "", types.NodeErr(n.ID(), types.ErrDepthExceeded)
	}

	switch node := n.(type) {
	case *types.Condition:
		return c.sqlCondition(node, ectx, sink)
	case *types.Group:
		return c.sqlGroup(node, ectx, sink, depth)
	default:
		return "", types.NodeErr(n.ID(), types.ErrUnsupportedOperator)
	}
}

// sqlGroup renders a group as parenthesized, operator-joined children.
func (c *Compiler) sqlGroup(g *types.Group, ectx ExecutionContext, sink *paramSink, depth int) (string, error) {
	if len(g.Children) == 0 {
		// Always-true predicate: an empty group filters nothing
		return "(1 = 1)", nil
	}

	parts := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		part, err := c.sqlNode(child, ectx, sink, depth+1)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}

	switch g.Operator {
	case types.BoolAnd:
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case types.BoolOr:
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case types.BoolNot:
		return "NOT (" + strings.Join(parts, " AND ") + ")", nil
	default:
		return "", types.NodeErr(g.NodeID, types.ErrUnsupportedOperator)
	}
}

// sqlCondition renders a leaf comparison. The field passes the allow-list
// after remapping and before any use in text.
func (c *Compiler) sqlCondition(cond *types.Condition, ectx ExecutionContext, sink *paramSink) (string, error) {
	field := ectx.mapField(cond.Field)
	if err := c.checkField(field); err != nil {
		return "", err
	}

	like := "ILIKE"
	regex := "~*"
	if cond.CaseSensitive {
		like = "LIKE"
		regex = "~"
	}

	switch cond.Operator {
	case types.OpEquals:
		return fmt.Sprintf("%s = %s", field, sink.next(cond.Value.Native())), nil
	case types.OpNotEquals:
		return fmt.Sprintf("%s != %s", field, sink.next(cond.Value.Native())), nil
	case types.OpGreaterThan:
		return fmt.Sprintf("%s > %s", field, sink.next(cond.Value.Native())), nil
	case types.OpLessThan:
		return fmt.Sprintf("%s < %s", field, sink.next(cond.Value.Native())), nil
	case types.OpGreaterEqual:
		return fmt.Sprintf("%s >= %s", field, sink.next(cond.Value.Native())), nil
	case types.OpLessEqual:
		return fmt.Sprintf("%s <= %s", field, sink.next(cond.Value.Native())), nil

	case types.OpContains, types.OpFuzzyMatch:
		// fuzzy_match degrades to substring matching on the relational path
		s, err := textValue(cond)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", field, like, sink.next("%"+s+"%")), nil
	case types.OpNotContains:
		s, err := textValue(cond)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s NOT %s %s", field, like, sink.next("%"+s+"%")), nil
	case types.OpStartsWith:
		s, err := textValue(cond)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", field, like, sink.next(s+"%")), nil
	case types.OpEndsWith:
		s, err := textValue(cond)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", field, like, sink.next("%"+s)), nil

	case types.OpIn, types.OpNotIn:
		elems, err := arrayValue(cond, 1)
		if err != nil {
			return "", err
		}
		placeholders := make([]string, len(elems))
		for i, e := range elems {
			placeholders[i] = sink.next(e.Native())
		}
		op := "IN"
		if cond.Operator == types.OpNotIn {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", field, op, strings.Join(placeholders, ", ")), nil

	case types.OpIsNull:
		return fmt.Sprintf("%s IS NULL", field), nil
	case types.OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", field), nil

	case types.OpBetween:
		elems, err := arrayValue(cond, 2)
		if err != nil {
			return "", err
		}
		lo := sink.next(elems[0].Native())
		hi := sink.next(elems[1].Native())
		return fmt.Sprintf("%s BETWEEN %s AND %s", field, lo, hi), nil

	case types.OpMatchesRegex:
		s, err := textValue(cond)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", field, regex, sink.next(s)), nil

	default:
		return "", types.NodeErr(cond.NodeID, types.ErrUnsupportedOperator)
	}
}

// textValue extracts the string payload for text operators.
func textValue(cond *types.Condition) (string, error) {
	if cond.Value.Kind() != types.KindString {
		return "", types.NodeErr(cond.NodeID, types.ErrMalformedValue)
	}
	return cond.Value.Str(), nil
}

// arrayValue extracts an array payload, enforcing an exact length when
// want > 1 and a non-empty minimum otherwise.
func arrayValue(cond *types.Condition, want int) ([]types.Value, error) {
	if cond.Value.Kind() != types.KindArray {
		return nil, types.NodeErr(cond.NodeID, types.ErrMalformedValue)
	}
	elems := cond.Value.Array()
	if want > 1 && len(elems) != want {
		return nil, types.NodeErr(cond.NodeID, types.ErrMalformedValue)
	}
	if len(elems) == 0 {
		return nil, types.NodeErr(cond.NodeID, types.ErrMalformedValue)
	}
	return elems, nil
}
