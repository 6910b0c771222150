// internal/types/node_test.go
package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func sampleTree() *Group {
	return &Group{
		NodeID:   NewNodeID(),
		Operator: BoolAnd,
		Children: []Node{
			&Condition{
				NodeID:   NewNodeID(),
				Field:    "status",
				Operator: OpEquals,
				Value:    StringValue("active"),
				DataType: TypeString,
			},
			&Group{
				NodeID:   NewNodeID(),
				Operator: BoolOr,
				Meta:     GroupMeta{Label: "priority band"},
				Children: []Node{
					&Condition{
						NodeID:   NewNodeID(),
						Field:    "priority",
						Operator: OpGreaterThan,
						Value:    NumberValue(5),
						DataType: TypeNumber,
					},
					&Condition{
						NodeID:   NewNodeID(),
						Field:    "tags",
						Operator: OpIn,
						Value:    ArrayValue(StringValue("urgent"), StringValue("blocked")),
						DataType: TypeString,
					},
				},
			},
		},
	}
}

func TestMarshalNode_RoundTrip(t *testing.T) {
	original := sampleTree()

	raw, err := MarshalNode(original)
	if err != nil {
		t.Fatalf("MarshalNode() error = %v, want nil", err)
	}

	decoded, err := UnmarshalNode(raw)
	if err != nil {
		t.Fatalf("UnmarshalNode() error = %v, want nil", err)
	}

	group, ok := decoded.(*Group)
	if !ok {
		t.Fatalf("decoded root is %T, want *Group", decoded)
	}
	if group.NodeID != original.NodeID {
		t.Errorf("root id = %v, want %v", group.NodeID, original.NodeID)
	}
	if group.Operator != BoolAnd {
		t.Errorf("root operator = %v, want and", group.Operator)
	}
	if len(group.Children) != 2 {
		t.Fatalf("len(Children) = %v, want 2", len(group.Children))
	}

	cond, ok := group.Children[0].(*Condition)
	if !ok {
		t.Fatalf("first child is %T, want *Condition", group.Children[0])
	}
	if cond.Field != "status" || cond.Operator != OpEquals {
		t.Errorf("condition = %v %v, want status equals", cond.Field, cond.Operator)
	}
	if !cond.Value.Equal(StringValue("active")) {
		t.Errorf("condition value = %v, want \"active\"", cond.Value.Native())
	}

	nested, ok := group.Children[1].(*Group)
	if !ok {
		t.Fatalf("second child is %T, want *Group", group.Children[1])
	}
	if nested.Meta.Label != "priority band" {
		t.Errorf("nested label = %q, want \"priority band\"", nested.Meta.Label)
	}
	arr, ok := nested.Children[1].(*Condition)
	if !ok {
		t.Fatalf("nested second child is %T, want *Condition", nested.Children[1])
	}
	if arr.Value.Kind() != KindArray || arr.Value.Len() != 2 {
		t.Errorf("array value kind=%v len=%v, want array of 2", arr.Value.Kind(), arr.Value.Len())
	}
}

func TestUnmarshalNode_RejectsUnknownOperator(t *testing.T) {
	raw := []byte(`{"type":"condition","id":"x","field":"a","operator":"resembles","dataType":"string"}`)
	if _, err := UnmarshalNode(raw); err == nil {
		t.Error("UnmarshalNode() = nil error, want unknown operator error")
	}
}

func TestUnmarshalNode_RejectsUnknownBoolOperator(t *testing.T) {
	raw := []byte(`{"type":"group","id":"x","boolOperator":"xor"}`)
	if _, err := UnmarshalNode(raw); err == nil {
		t.Error("UnmarshalNode() = nil error, want unknown boolean operator error")
	}
}

func TestUnmarshalNode_DepthGuard(t *testing.T) {
	// Build JSON nested one level past the decode ceiling
	var b strings.Builder
	for i := 0; i <= MaxDecodeDepth; i++ {
		fmt.Fprintf(&b, `{"type":"group","id":"g%d","boolOperator":"and","children":[`, i)
	}
	b.WriteString(`{"type":"condition","id":"leaf","field":"a","operator":"equals","dataType":"string","value":"x"}`)
	for i := 0; i <= MaxDecodeDepth; i++ {
		b.WriteString("]}")
	}

	_, err := UnmarshalNode([]byte(b.String()))
	if !errors.Is(err, ErrDecodeTooDeep) {
		t.Fatalf("UnmarshalNode() error = %v, want ErrDecodeTooDeep", err)
	}
}

func TestClone_IsDeep(t *testing.T) {
	original := sampleTree()
	clone := original.Clone().(*Group)

	cond := clone.Children[0].(*Condition)
	cond.Field = "mutated"

	if original.Children[0].(*Condition).Field != "status" {
		t.Error("mutating clone leaked into original")
	}

	nested := clone.Children[1].(*Group)
	nested.Children = nested.Children[:1]
	if len(original.Children[1].(*Group).Children) != 2 {
		t.Error("truncating clone children leaked into original")
	}
}

func TestNodeError_Unwrap(t *testing.T) {
	err := NodeErr("abc", ErrNodeNotFound)
	if !errors.Is(err, ErrNodeNotFound) {
		t.Error("NodeErr should unwrap to its sentinel")
	}
	var nerr *NodeError
	if !errors.As(err, &nerr) {
		t.Fatal("NodeErr should be a *NodeError")
	}
	if nerr.Node != "abc" {
		t.Errorf("Node = %v, want abc", nerr.Node)
	}
}
