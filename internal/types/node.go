// internal/types/node.go
package types

import (
	"encoding/json"
	"fmt"
)

/*
 * Filter tree nodes.
 *
 * A tree is a tagged union of Condition (leaf comparison) and Group
 * (boolean combinator over ordered children). The union is expressed as a
 * two-implementation interface so "a condition has no children" and "a
 * group has no field" are compile-time guarantees.
 *
 * Immutability convention: nodes are never mutated after construction by
 * anything outside internal/tree; mutation operations clone the path from
 * root to the touched node and return a new tree value. Concurrent holders
 * of the same tree never observe partial mutation.
 *
 * Serialization: the wire format is a JSON envelope discriminated by a
 * "type" field ("condition" | "group"). Decoding enforces MaxDecodeDepth
 * because serialized input may nest adversarially deep.
 */

// Node is one node of a filter tree: either *Condition or *Group.
type Node interface {
	// ID returns the node's tree-unique identifier.
	ID() NodeID
	// Clone returns a deep copy of the subtree, preserving ids.
	Clone() Node

	filterNode()
}

// Condition is a leaf comparison against a single field.
type Condition struct {
	NodeID        NodeID
	Field         string
	Operator      Operator
	Value         Value
	DataType      DataType
	CaseSensitive bool
	Label         string
}

// ID implements Node.
func (c *Condition) ID() NodeID { return c.NodeID }

// Clone implements Node. Value is immutable by construction, so a shallow
// struct copy is a deep copy.
func (c *Condition) Clone() Node {
	dup := *c
	return &dup
}

func (c *Condition) filterNode() {}

// GroupMeta carries presentation metadata for a group.
type GroupMeta struct {
	Label     string
	Collapsed bool
}

// Group combines an ordered sequence of children with a boolean operator.
// A NOT group is only semantically valid with exactly one child; the
// optimizer enforces that, the struct allows transient other shapes.
type Group struct {
	NodeID   NodeID
	Operator BooleanOperator
	Children []Node
	Meta     GroupMeta
}

// ID implements Node.
func (g *Group) ID() NodeID { return g.NodeID }

// Clone implements Node.
func (g *Group) Clone() Node {
	dup := &Group{
		NodeID:   g.NodeID,
		Operator: g.Operator,
		Meta:     g.Meta,
		Children: make([]Node, len(g.Children)),
	}
	for i, child := range g.Children {
		dup.Children[i] = child.Clone()
	}
	return dup
}

func (g *Group) filterNode() {}

// nodeEnvelope is the JSON wire shape for both node kinds.
type nodeEnvelope struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	// condition fields
	Field         string   `json:"field,omitempty"`
	Operator      string   `json:"operator,omitempty"`
	Value         *Value   `json:"value,omitempty"`
	DataType      string   `json:"dataType,omitempty"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
	Label         string   `json:"label,omitempty"`

	// group fields
	BoolOperator string            `json:"boolOperator,omitempty"`
	Children     []json.RawMessage `json:"children,omitempty"`
	Collapsed    bool              `json:"collapsed,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c *Condition) MarshalJSON() ([]byte, error) {
	env := nodeEnvelope{
		Type:          "condition",
		ID:            string(c.NodeID),
		Field:         c.Field,
		Operator:      string(c.Operator),
		DataType:      string(c.DataType),
		CaseSensitive: c.CaseSensitive,
		Label:         c.Label,
	}
	if !c.Value.IsNull() {
		v := c.Value
		env.Value = &v
	}
	return json.Marshal(env)
}

// MarshalJSON implements json.Marshaler.
func (g *Group) MarshalJSON() ([]byte, error) {
	env := nodeEnvelope{
		Type:         "group",
		ID:           string(g.NodeID),
		BoolOperator: string(g.Operator),
		Label:        g.Meta.Label,
		Collapsed:    g.Meta.Collapsed,
		Children:     make([]json.RawMessage, 0, len(g.Children)),
	}
	for _, child := range g.Children {
		raw, err := json.Marshal(child)
		if err != nil {
			return nil, err
		}
		env.Children = append(env.Children, raw)
	}
	return json.Marshal(env)
}

// MarshalNode serializes a tree to its JSON envelope form.
func MarshalNode(n Node) ([]byte, error) {
	return json.Marshal(n)
}

// UnmarshalNode decodes a serialized tree.
// Returns ErrDecodeTooDeep for input nested beyond MaxDecodeDepth.
func UnmarshalNode(data []byte) (Node, error) {
	return unmarshalNode(data, 1)
}

func unmarshalNode(data []byte, depth int) (Node, error) {
	if depth > MaxDecodeDepth {
		return nil, ErrDecodeTooDeep
	}

	var env nodeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Type {
	case "condition":
		cond := &Condition{
			NodeID:        NodeID(env.ID),
			Field:         env.Field,
			Operator:      Operator(env.Operator),
			DataType:      DataType(env.DataType),
			CaseSensitive: env.CaseSensitive,
			Label:         env.Label,
		}
		if env.Value != nil {
			cond.Value = *env.Value
		}
		if !cond.Operator.IsValid() {
			return nil, fmt.Errorf("condition %s: unknown operator %q", env.ID, env.Operator)
		}
		if !cond.DataType.IsValid() {
			return nil, fmt.Errorf("condition %s: unknown data type %q", env.ID, env.DataType)
		}
		return cond, nil

	case "group":
		group := &Group{
			NodeID:   NodeID(env.ID),
			Operator: BooleanOperator(env.BoolOperator),
			Meta:     GroupMeta{Label: env.Label, Collapsed: env.Collapsed},
			Children: make([]Node, 0, len(env.Children)),
		}
		if !group.Operator.IsValid() {
			return nil, fmt.Errorf("group %s: unknown boolean operator %q", env.ID, env.BoolOperator)
		}
		for _, raw := range env.Children {
			child, err := unmarshalNode(raw, depth+1)
			if err != nil {
				return nil, err
			}
			group.Children = append(group.Children, child)
		}
		return group, nil

	default:
		return nil, fmt.Errorf("unknown node type %q", env.Type)
	}
}
