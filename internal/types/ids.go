package types

import (
	"github.com/google/uuid"
)

// NodeID identifies a single node within a filter tree.
// String alias enables type safety while keeping JSON string serialization.
// UUIDv7 time-ordering keeps ids generated in one editing session adjacent,
// which makes diffs of serialized trees readable.
type NodeID string

// TemplateID identifies a persisted filter template.
type TemplateID string

// ShareID identifies a share token issued for a template snapshot.
type ShareID string

// NewNodeID generates a UUIDv7 node identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewNodeID() NodeID {
	return NodeID(uuid.Must(uuid.NewV7()).String())
}

// NewTemplateID generates a UUIDv7 template identifier.
func NewTemplateID() TemplateID {
	return TemplateID(uuid.Must(uuid.NewV7()).String())
}

// NewShareID generates a UUIDv7 share identifier without hyphens.
// The 32-hex-char form embeds directly in the share token format.
func NewShareID() ShareID {
	u := uuid.Must(uuid.NewV7())
	buf := make([]byte, 0, 32)
	for _, b := range u {
		const hex = "0123456789abcdef"
		buf = append(buf, hex[b>>4], hex[b&0x0f])
	}
	return ShareID(buf)
}

// ParseNodeID validates and converts a string to NodeID.
// Rejects malformed UUIDs to prevent invalid ids from entering a tree.
func ParseNodeID(s string) (NodeID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return NodeID(s), nil
}

// ParseTemplateID validates and converts a string to TemplateID.
func ParseTemplateID(s string) (TemplateID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return TemplateID(s), nil
}
