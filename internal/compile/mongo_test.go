// internal/compile/mongo_test.go
package compile

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/solatis/queryforge/internal/types"
)

func TestBuildMongo_GroupStructure(t *testing.T) {
	c := testCompiler()
	a := sqlCond("status", types.OpEquals, types.StringValue("open"), types.TypeString)
	b := sqlCond("age", types.OpGreaterThan, types.NumberValue(3), types.TypeNumber)

	t.Run("and", func(t *testing.T) {
		sq, err := c.Build(group(types.BoolAnd, a, b), TargetMongoDB, testCtx())
		if err != nil {
			t.Fatalf("Build() error = %v, want nil", err)
		}
		clauses, ok := sq.MongoDB["$and"].(bson.A)
		if !ok || len(clauses) != 2 {
			t.Errorf("$and = %v, want 2 clauses", sq.MongoDB["$and"])
		}
	})

	t.Run("or", func(t *testing.T) {
		sq, err := c.Build(group(types.BoolOr, a, b), TargetMongoDB, testCtx())
		if err != nil {
			t.Fatalf("Build() error = %v, want nil", err)
		}
		if clauses, ok := sq.MongoDB["$or"].(bson.A); !ok || len(clauses) != 2 {
			t.Errorf("$or = %v, want 2 clauses", sq.MongoDB["$or"])
		}
	})

	t.Run("single-child not becomes nor", func(t *testing.T) {
		sq, err := c.Build(group(types.BoolNot, a), TargetMongoDB, testCtx())
		if err != nil {
			t.Fatalf("Build() error = %v, want nil", err)
		}
		want := bson.M{"$nor": bson.A{bson.M{"status": "open"}}}
		if !reflect.DeepEqual(sq.MongoDB, want) {
			t.Errorf("filter = %v, want %v", sq.MongoDB, want)
		}
	})

	t.Run("multi-child not negates the conjunction", func(t *testing.T) {
		sq, err := c.Build(group(types.BoolNot, a, b), TargetMongoDB, testCtx())
		if err != nil {
			t.Fatalf("Build() error = %v, want nil", err)
		}
		nor, ok := sq.MongoDB["$nor"].(bson.A)
		if !ok || len(nor) != 1 {
			t.Fatalf("$nor = %v, want single element", sq.MongoDB["$nor"])
		}
		inner, ok := nor[0].(bson.M)["$and"].(bson.A)
		if !ok || len(inner) != 2 {
			t.Errorf("$nor[0] = %v, want $and of 2 clauses", nor[0])
		}
	})

	t.Run("empty group matches everything", func(t *testing.T) {
		sq, err := c.Build(group(types.BoolAnd), TargetMongoDB, testCtx())
		if err != nil {
			t.Fatalf("Build() error = %v, want nil", err)
		}
		if len(sq.MongoDB) != 0 {
			t.Errorf("filter = %v, want empty document", sq.MongoDB)
		}
	})
}

func TestBuildMongo_ConditionClauses(t *testing.T) {
	c := testCompiler()
	tests := []struct {
		name string
		cond *types.Condition
		want bson.M
	}{
		{
			"equals is direct equality",
			sqlCond("status", types.OpEquals, types.StringValue("open"), types.TypeString),
			bson.M{"status": "open"},
		},
		{
			"not equals",
			sqlCond("status", types.OpNotEquals, types.StringValue("open"), types.TypeString),
			bson.M{"status": bson.M{"$ne": "open"}},
		},
		{
			"greater than",
			sqlCond("age", types.OpGreaterThan, types.NumberValue(21), types.TypeNumber),
			bson.M{"age": bson.M{"$gt": float64(21)}},
		},
		{
			"between merges both bounds",
			sqlCond("age", types.OpBetween, types.ArrayValue(types.NumberValue(18), types.NumberValue(65)), types.TypeNumber),
			bson.M{"age": bson.M{"$gte": float64(18), "$lte": float64(65)}},
		},
		{
			"contains quotes metacharacters",
			sqlCond("name", types.OpContains, types.StringValue("a.b"), types.TypeString),
			bson.M{"name": bson.M{"$regex": `a\.b`, "$options": "i"}},
		},
		{
			"not contains uses operator-level negation",
			sqlCond("name", types.OpNotContains, types.StringValue("smith"), types.TypeString),
			bson.M{"name": bson.M{"$not": bson.M{"$regex": "smith", "$options": "i"}}},
		},
		{
			"starts with anchors at the front",
			sqlCond("name", types.OpStartsWith, types.StringValue("sm"), types.TypeString),
			bson.M{"name": bson.M{"$regex": "^sm", "$options": "i"}},
		},
		{
			"ends with anchors at the back",
			sqlCond("name", types.OpEndsWith, types.StringValue("th"), types.TypeString),
			bson.M{"name": bson.M{"$regex": "th$", "$options": "i"}},
		},
		{
			"in",
			sqlCond("tags", types.OpIn, types.ArrayValue(types.StringValue("a"), types.StringValue("b")), types.TypeString),
			bson.M{"tags": bson.M{"$in": bson.A{"a", "b"}}},
		},
		{
			"not in",
			sqlCond("tags", types.OpNotIn, types.ArrayValue(types.StringValue("a")), types.TypeString),
			bson.M{"tags": bson.M{"$nin": bson.A{"a"}}},
		},
		{
			"is null matches null and missing",
			sqlCond("created_at", types.OpIsNull, types.NullValue(), types.TypeDate),
			bson.M{"created_at": nil},
		},
		{
			"is not null",
			sqlCond("created_at", types.OpIsNotNull, types.NullValue(), types.TypeDate),
			bson.M{"created_at": bson.M{"$ne": nil}},
		},
		{
			"matches regex passes the pattern through unquoted",
			sqlCond("name", types.OpMatchesRegex, types.StringValue("^sm.*h$"), types.TypeString),
			bson.M{"name": bson.M{"$regex": "^sm.*h$", "$options": "i"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sq, err := c.Build(group(types.BoolAnd, tt.cond), TargetMongoDB, testCtx())
			if err != nil {
				t.Fatalf("Build() error = %v, want nil", err)
			}
			clause := sq.MongoDB["$and"].(bson.A)[0]
			if !reflect.DeepEqual(clause, tt.want) {
				t.Errorf("clause = %#v, want %#v", clause, tt.want)
			}
		})
	}
}

func TestBuildMongo_CaseSensitiveRegexDropsOption(t *testing.T) {
	c := testCompiler()
	cond := sqlCond("name", types.OpContains, types.StringValue("Smith"), types.TypeString)
	cond.CaseSensitive = true

	sq, err := c.Build(group(types.BoolAnd, cond), TargetMongoDB, testCtx())
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	clause := sq.MongoDB["$and"].(bson.A)[0].(bson.M)
	want := bson.M{"name": bson.M{"$regex": "Smith", "$options": ""}}
	if !reflect.DeepEqual(clause, want) {
		t.Errorf("clause = %#v, want %#v", clause, want)
	}
}

func TestBuildMongo_FieldMapApplies(t *testing.T) {
	c := testCompiler()
	ectx := testCtx()
	ectx.FieldMap = map[string]string{"accountStatus": "account_status"}
	cond := sqlCond("accountStatus", types.OpEquals, types.StringValue("ok"), types.TypeString)

	sq, err := c.Build(group(types.BoolAnd, cond), TargetMongoDB, ectx)
	if err != nil {
		t.Fatalf("Build() error = %v, want nil", err)
	}
	clause := sq.MongoDB["$and"].(bson.A)[0].(bson.M)
	if _, ok := clause["account_status"]; !ok {
		t.Errorf("clause = %v, want remapped field account_status", clause)
	}
}
