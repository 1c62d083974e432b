package domain

import (
	"github.com/google/uuid"
)

// OperationKind classifies a change-feed mutation.
type OperationKind string

const (
	OpInsert OperationKind = "insert"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
	OpOther  OperationKind = "other"
)

// ParseOperationKind maps a raw feed operation string to a known kind.
// Anything unrecognized collapses to OpOther so new feed operations never
// break classification downstream.
func ParseOperationKind(s string) OperationKind {
	switch OperationKind(s) {
	case OpInsert, OpUpdate, OpDelete:
		return OperationKind(s)
	default:
		return OpOther
	}
}

// Collection identifies a watched table as a closed set. Tables added to
// the store without a matching constant map to CollectionUnknown and
// produce no notifications.
type Collection int

const (
	CollectionUnknown Collection = iota
	CollectionChargeSessions
	CollectionDriveSessions
	CollectionVehicles
	CollectionMapPoints
)

// CollectionFromTable resolves a table name from the change feed.
func CollectionFromTable(table string) Collection {
	switch table {
	case "charge_sessions":
		return CollectionChargeSessions
	case "drive_sessions":
		return CollectionDriveSessions
	case "vehicles":
		return CollectionVehicles
	case "map_points":
		return CollectionMapPoints
	default:
		return CollectionUnknown
	}
}

// EventType returns the client-facing type tag for this collection.
func (c Collection) EventType() string {
	switch c {
	case CollectionChargeSessions:
		return "charge-sessions"
	case CollectionDriveSessions:
		return "drive-sessions"
	case CollectionVehicles:
		return "vehicles"
	case CollectionMapPoints:
		return "map-points"
	default:
		return ""
	}
}

func (c Collection) String() string {
	if c == CollectionUnknown {
		return "unknown"
	}
	return c.EventType()
}

// Mutation is one record emitted by the store's change feed. Document holds
// the full post-mutation row for inserts and updates; for deletes it holds
// whatever the feed captured of the old row.
type Mutation struct {
	Collection Collection
	Table      string
	Op         OperationKind
	Document   map[string]any
}

// Owner extracts the owning user identity from the mutated document.
// A mutation without a resolvable owner cannot be routed.
func (m Mutation) Owner() (uuid.UUID, bool) {
	raw, ok := m.Document["user_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// EntityID extracts the mutated row's primary key.
func (m Mutation) EntityID() (uuid.UUID, bool) {
	raw, ok := m.Document["id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
