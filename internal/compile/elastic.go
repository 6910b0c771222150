// internal/compile/elastic.go
package compile

import (
	"github.com/solatis/queryforge/internal/types"
)

/*
 * Document-search target.
 *
 * Recursive descent producing a nested bool query: AND=>must, OR=>should
 * with minimum_should_match 1, NOT=>must_not. Leaves map to
 * term/range/wildcard/prefix/regexp/fuzzy/exists clauses. An empty group
 * compiles to match_all.
 *
 * The output is a plain JSON-serializable map: the official Elasticsearch
 * client consumes raw query bodies, so no builder types are involved. No
 * identifier allow-list applies here; field names travel as JSON values,
 * never as query-language text.
 */

// buildElastic compiles the tree into a search query body with paging
// pulled from the execution context.
func buildElastic(root types.Node, ectx ExecutionContext) (*ElasticQuery, error) {
	query, err := elasticNode(root, ectx, 1)
	if err != nil {
		return nil, err
	}

	return &ElasticQuery{
		Query: query,
		Size:  intParam(ectx.Parameters, "size", 10),
		From:  intParam(ectx.Parameters, "from", 0),
	}, nil
}

// intParam reads an integer option, tolerating float64 from decoded JSON.
func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func elasticNode(n types.Node, ectx ExecutionContext, depth int) (map[string]any, error) {
	if depth > maxCompileDepth {
		return nil, types.NodeErr(n.ID(), types.ErrDepthExceeded)
	}

	switch node := n.(type) {
	case *types.Condition:
		return elasticCondition(node, ectx)
	case *types.Group:
		return elasticGroup(node, ectx, depth)
	default:
		return nil, types.NodeErr(n.ID(), types.ErrUnsupportedOperator)
	}
}

func elasticGroup(g *types.Group, ectx ExecutionContext, depth int) (map[string]any, error) {
	if len(g.Children) == 0 {
		return map[string]any{"match_all": map[string]any{}}, nil
	}

	clauses := make([]any, 0, len(g.Children))
	for _, child := range g.Children {
		clause, err := elasticNode(child, ectx, depth+1)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	switch g.Operator {
	case types.BoolAnd:
		return map[string]any{"bool": map[string]any{"must": clauses}}, nil
	case types.BoolOr:
		return map[string]any{"bool": map[string]any{
			"should":               clauses,
			"minimum_should_match": 1,
		}}, nil
	case types.BoolNot:
		return map[string]any{"bool": map[string]any{"must_not": clauses}}, nil
	default:
		return nil, types.NodeErr(g.NodeID, types.ErrUnsupportedOperator)
	}
}

// mustNot wraps a single clause in a negating bool query.
func mustNot(clause map[string]any) map[string]any {
	return map[string]any{"bool": map[string]any{"must_not": []any{clause}}}
}

func elasticCondition(cond *types.Condition, ectx ExecutionContext) (map[string]any, error) {
	field := ectx.mapField(cond.Field)
	caseInsensitive := !cond.CaseSensitive && cond.DataType == types.TypeString

	switch cond.Operator {
	case types.OpEquals, types.OpNotEquals:
		term := map[string]any{"value": cond.Value.Native()}
		if caseInsensitive {
			term["case_insensitive"] = true
		}
		clause := map[string]any{"term": map[string]any{field: term}}
		if cond.Operator == types.OpNotEquals {
			return mustNot(clause), nil
		}
		return clause, nil

	case types.OpGreaterThan:
		return rangeClause(field, "gt", cond.Value.Native()), nil
	case types.OpLessThan:
		return rangeClause(field, "lt", cond.Value.Native()), nil
	case types.OpGreaterEqual:
		return rangeClause(field, "gte", cond.Value.Native()), nil
	case types.OpLessEqual:
		return rangeClause(field, "lte", cond.Value.Native()), nil

	case types.OpBetween:
		elems, err := arrayValue(cond, 2)
		if err != nil {
			return nil, err
		}
		return map[string]any{"range": map[string]any{field: map[string]any{
			"gte": elems[0].Native(),
			"lte": elems[1].Native(),
		}}}, nil

	case types.OpContains, types.OpNotContains:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		clause := map[string]any{"wildcard": map[string]any{field: map[string]any{
			"value":            "*" + s + "*",
			"case_insensitive": !cond.CaseSensitive,
		}}}
		if cond.Operator == types.OpNotContains {
			return mustNot(clause), nil
		}
		return clause, nil

	case types.OpStartsWith:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return map[string]any{"prefix": map[string]any{field: map[string]any{
			"value":            s,
			"case_insensitive": !cond.CaseSensitive,
		}}}, nil

	case types.OpEndsWith:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return map[string]any{"wildcard": map[string]any{field: map[string]any{
			"value":            "*" + s,
			"case_insensitive": !cond.CaseSensitive,
		}}}, nil

	case types.OpIn, types.OpNotIn:
		elems, err := arrayValue(cond, 1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(elems))
		for i, e := range elems {
			values[i] = e.Native()
		}
		clause := map[string]any{"terms": map[string]any{field: values}}
		if cond.Operator == types.OpNotIn {
			return mustNot(clause), nil
		}
		return clause, nil

	case types.OpIsNull:
		return mustNot(map[string]any{"exists": map[string]any{"field": field}}), nil
	case types.OpIsNotNull:
		return map[string]any{"exists": map[string]any{"field": field}}, nil

	case types.OpMatchesRegex:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return map[string]any{"regexp": map[string]any{field: map[string]any{
			"value":            s,
			"case_insensitive": !cond.CaseSensitive,
		}}}, nil

	case types.OpFuzzyMatch:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return map[string]any{"fuzzy": map[string]any{field: map[string]any{
			"value":     s,
			"fuzziness": "AUTO",
		}}}, nil

	default:
		return nil, types.NodeErr(cond.NodeID, types.ErrUnsupportedOperator)
	}
}

func rangeClause(field, op string, v any) map[string]any {
	return map[string]any{"range": map[string]any{field: map[string]any{op: v}}}
}
