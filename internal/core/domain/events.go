package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DropReason labels why an event was intentionally not delivered.
// Silent drops are part of the delivery contract; the reasons exist so the
// behavior is observable through metrics instead of invisible.
type DropReason string

const (
	DropNoOwner           DropReason = "no_owner"
	DropUnknownCollection DropReason = "unknown_collection"
	DropNoConnections     DropReason = "no_connections"
	DropSendFailure       DropReason = "send_failure"
)

// Notification is the payload pushed to websocket clients for one mutation.
// Owner is routing metadata only and is never serialized.
type Notification struct {
	Type   string
	Action OperationKind
	Owner  uuid.UUID

	// Entity holds the projected document fields, flattened into the top
	// level of the wire object.
	Entity map[string]any

	// Aggregate carries the secondary summary for session-like
	// collections. HasAggregate distinguishes "collection has no
	// aggregate" (field omitted) from "lookup found nothing" (explicit
	// null on the wire).
	Aggregate    *SessionSummary
	HasAggregate bool
}

// MarshalJSON flattens the entity fields into the top-level object:
// { "type": ..., "action": ..., ...entityFields, "aggregateData": ... }.
func (n *Notification) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Entity)+3)
	for k, v := range n.Entity {
		out[k] = v
	}
	out["type"] = n.Type
	out["action"] = string(n.Action)
	if n.HasAggregate {
		if n.Aggregate != nil {
			out["aggregateData"] = n.Aggregate
		} else {
			out["aggregateData"] = nil
		}
	}
	return json.Marshal(out)
}
