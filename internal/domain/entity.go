package domain

import "time"

// EntityStatus represents the lifecycle status of a configuration item.
// The default set below applies to every type; a type's property schema
// may narrow it with its own enumeration.
type EntityStatus = string

const (
	StatusActive         EntityStatus = "Active"
	StatusInactive       EntityStatus = "Inactive"
	StatusMaintenance    EntityStatus = "Maintenance"
	StatusPlanned        EntityStatus = "Planned"
	StatusDecommissioned EntityStatus = "Decommissioned"
	StatusDevelopment    EntityStatus = "Development"
	StatusTesting        EntityStatus = "Testing"
)

// DefaultStatuses is the global status set used when a type's schema does
// not declare its own.
var DefaultStatuses = []EntityStatus{
	StatusActive,
	StatusInactive,
	StatusMaintenance,
	StatusPlanned,
	StatusDecommissioned,
	StatusDevelopment,
	StatusTesting,
}

// Entity is a configuration item: a typed node in the CMDB graph.
type Entity struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Status      EntityStatus   `json:"status"`
	Description string         `json:"description,omitempty"`
	Properties  map[string]any `json:"properties"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at"`
}

// NewEntity creates an entity with initialized properties and the default
// status. The ID is assigned by the repository on create.
func NewEntity(entityType, name string) *Entity {
	return &Entity{
		Type:       entityType,
		Name:       name,
		Status:     StatusActive,
		Properties: make(map[string]any),
		CreatedAt:  time.Now().UTC(),
	}
}

// SetProperty sets an open property value.
func (e *Entity) SetProperty(key string, value any) {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	e.Properties[key] = value
}

// GetProperty gets an open property value.
func (e *Entity) GetProperty(key string) (any, bool) {
	if e.Properties == nil {
		return nil, false
	}
	val, ok := e.Properties[key]
	return val, ok
}

// ValidStatus reports whether s is a member of the given status set, or of
// the default set when none is given.
func ValidStatus(s EntityStatus, allowed []EntityStatus) bool {
	if len(allowed) == 0 {
		allowed = DefaultStatuses
	}
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}
