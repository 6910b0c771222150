// internal/compile/mongo.go
package compile

import (
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/solatis/queryforge/internal/types"
)

/*
 * Document-store target.
 *
 * Recursive descent producing a bson filter document: AND=>$and, OR=>$or.
 * Group-level negation renders as a single-element $nor: MongoDB's $not
 * only exists at operator level, and $nor of one clause is the standard
 * document-level equivalent.
 *
 * String-contains and fuzzy operators have no native form and degrade to
 * an anchored-or-unanchored $regex approximation with the literal value
 * quoted. Dates pass through as time.Time; the driver encodes them as
 * BSON datetimes.
 */

// buildMongo compiles the tree into a filter document.
func buildMongo(root types.Node, ectx ExecutionContext) (bson.M, error) {
	return mongoNode(root, ectx, 1)
}

func mongoNode(n types.Node, ectx ExecutionContext, depth int) (bson.M, error) {
	if depth > maxCompileDepth {
		return nil, types.NodeErr(n.ID(), types.ErrDepthExceeded)
	}

	switch node := n.(type) {
	case *types.Condition:
		return mongoCondition(node, ectx)
	case *types.Group:
		return mongoGroup(node, ectx, depth)
	default:
		return nil, types.NodeErr(n.ID(), types.ErrUnsupportedOperator)
	}
}

func mongoGroup(g *types.Group, ectx ExecutionContext, depth int) (bson.M, error) {
	if len(g.Children) == 0 {
		// Empty filter document matches every document
		return bson.M{}, nil
	}

	clauses := make(bson.A, 0, len(g.Children))
	for _, child := range g.Children {
		clause, err := mongoNode(child, ectx, depth+1)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	switch g.Operator {
	case types.BoolAnd:
		return bson.M{"$and": clauses}, nil
	case types.BoolOr:
		return bson.M{"$or": clauses}, nil
	case types.BoolNot:
		if len(clauses) == 1 {
			return bson.M{"$nor": clauses}, nil
		}
		// Multi-child NOT negates the conjunction of its children
		return bson.M{"$nor": bson.A{bson.M{"$and": clauses}}}, nil
	default:
		return nil, types.NodeErr(g.NodeID, types.ErrUnsupportedOperator)
	}
}

// regexOptions returns the $options string for a condition.
func regexOptions(cond *types.Condition) string {
	if cond.CaseSensitive {
		return ""
	}
	return "i"
}

func mongoCondition(cond *types.Condition, ectx ExecutionContext) (bson.M, error) {
	field := ectx.mapField(cond.Field)

	switch cond.Operator {
	case types.OpEquals:
		return bson.M{field: cond.Value.Native()}, nil
	case types.OpNotEquals:
		return bson.M{field: bson.M{"$ne": cond.Value.Native()}}, nil
	case types.OpGreaterThan:
		return bson.M{field: bson.M{"$gt": cond.Value.Native()}}, nil
	case types.OpLessThan:
		return bson.M{field: bson.M{"$lt": cond.Value.Native()}}, nil
	case types.OpGreaterEqual:
		return bson.M{field: bson.M{"$gte": cond.Value.Native()}}, nil
	case types.OpLessEqual:
		return bson.M{field: bson.M{"$lte": cond.Value.Native()}}, nil

	case types.OpContains, types.OpFuzzyMatch:
		// No native fuzzy matching; degrade to a substring regex
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return bson.M{field: bson.M{"$regex": regexp.QuoteMeta(s), "$options": regexOptions(cond)}}, nil
	case types.OpNotContains:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return bson.M{field: bson.M{"$not": bson.M{"$regex": regexp.QuoteMeta(s), "$options": regexOptions(cond)}}}, nil
	case types.OpStartsWith:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return bson.M{field: bson.M{"$regex": "^" + regexp.QuoteMeta(s), "$options": regexOptions(cond)}}, nil
	case types.OpEndsWith:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return bson.M{field: bson.M{"$regex": regexp.QuoteMeta(s) + "$", "$options": regexOptions(cond)}}, nil

	case types.OpIn, types.OpNotIn:
		elems, err := arrayValue(cond, 1)
		if err != nil {
			return nil, err
		}
		values := make(bson.A, len(elems))
		for i, e := range elems {
			values[i] = e.Native()
		}
		op := "$in"
		if cond.Operator == types.OpNotIn {
			op = "$nin"
		}
		return bson.M{field: bson.M{op: values}}, nil

	case types.OpIsNull:
		// Matches null values and missing fields alike
		return bson.M{field: nil}, nil
	case types.OpIsNotNull:
		return bson.M{field: bson.M{"$ne": nil}}, nil

	case types.OpBetween:
		elems, err := arrayValue(cond, 2)
		if err != nil {
			return nil, err
		}
		return bson.M{field: bson.M{"$gte": elems[0].Native(), "$lte": elems[1].Native()}}, nil

	case types.OpMatchesRegex:
		s, err := textValue(cond)
		if err != nil {
			return nil, err
		}
		return bson.M{field: bson.M{"$regex": s, "$options": regexOptions(cond)}}, nil

	default:
		return nil, types.NodeErr(cond.NodeID, types.ErrUnsupportedOperator)
	}
}
