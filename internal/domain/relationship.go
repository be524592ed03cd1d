package domain

import "time"

// RelationshipDirection selects which edges of an entity to list.
type RelationshipDirection string

const (
	DirectionOutgoing RelationshipDirection = "outgoing"
	DirectionIncoming RelationshipDirection = "incoming"
	DirectionBoth     RelationshipDirection = "both"
)

// Relationship is a typed, directed edge between two entities. Source and
// target types are denormalized at read/create time so consumers never
// need a second lookup.
type Relationship struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	SourceType string         `json:"source_type"`
	TargetType string         `json:"target_type"`
	Properties map[string]any `json:"properties"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  *time.Time     `json:"updated_at"`
}

// RelationshipCreate carries one item of a create request, single or bulk.
type RelationshipCreate struct {
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// BulkResult reports the outcome of one item in a bulk operation. Exactly
// one of Relationship/Deleted is meaningful depending on the operation;
// Error is set when OK is false.
type BulkResult struct {
	ID           string        `json:"id,omitempty"`
	OK           bool          `json:"ok"`
	Relationship *Relationship `json:"relationship,omitempty"`
	Error        string        `json:"error,omitempty"`
}
