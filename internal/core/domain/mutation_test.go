package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
)

func TestCollectionFromTable(t *testing.T) {
	tests := []struct {
		table     string
		want      domain.Collection
		eventType string
	}{
		{"charge_sessions", domain.CollectionChargeSessions, "charge-sessions"},
		{"drive_sessions", domain.CollectionDriveSessions, "drive-sessions"},
		{"vehicles", domain.CollectionVehicles, "vehicles"},
		{"map_points", domain.CollectionMapPoints, "map-points"},
		{"users", domain.CollectionUnknown, ""},
		{"", domain.CollectionUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			got := domain.CollectionFromTable(tt.table)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.eventType, got.EventType())
		})
	}
}

func TestParseOperationKind(t *testing.T) {
	assert.Equal(t, domain.OpInsert, domain.ParseOperationKind("insert"))
	assert.Equal(t, domain.OpUpdate, domain.ParseOperationKind("update"))
	assert.Equal(t, domain.OpDelete, domain.ParseOperationKind("delete"))
	assert.Equal(t, domain.OpOther, domain.ParseOperationKind("truncate"))
	assert.Equal(t, domain.OpOther, domain.ParseOperationKind(""))
}

func TestMutationOwner(t *testing.T) {
	userID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		m := domain.Mutation{Document: map[string]any{"user_id": userID.String()}}
		owner, ok := m.Owner()
		assert.True(t, ok)
		assert.Equal(t, userID, owner)
	})

	t.Run("missing", func(t *testing.T) {
		m := domain.Mutation{Document: map[string]any{}}
		_, ok := m.Owner()
		assert.False(t, ok)
	})

	t.Run("not a string", func(t *testing.T) {
		m := domain.Mutation{Document: map[string]any{"user_id": 42}}
		_, ok := m.Owner()
		assert.False(t, ok)
	})

	t.Run("not a uuid", func(t *testing.T) {
		m := domain.Mutation{Document: map[string]any{"user_id": "nope"}}
		_, ok := m.Owner()
		assert.False(t, ok)
	})
}
