package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/voltlog/telemetry-backend/internal/core/domain"
)

// MockSessionStore is a mock implementation of ports.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

func (m *MockSessionStore) VerifyUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockAggregateLookup is a mock implementation of ports.AggregateLookup
type MockAggregateLookup struct {
	mock.Mock
}

func NewMockAggregateLookup() *MockAggregateLookup {
	return &MockAggregateLookup{}
}

func (m *MockAggregateLookup) ChargeSummary(ctx context.Context, sessionID, ownerID uuid.UUID) (*domain.SessionSummary, error) {
	args := m.Called(ctx, sessionID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionSummary), args.Error(1)
}

func (m *MockAggregateLookup) DriveSummary(ctx context.Context, sessionID, ownerID uuid.UUID) (*domain.SessionSummary, error) {
	args := m.Called(ctx, sessionID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SessionSummary), args.Error(1)
}

// CapturingBroadcaster records every fan-out call for assertions. It is a
// hand-rolled double rather than a testify mock because tests mostly want
// to inspect delivery order and counts.
type CapturingBroadcaster struct {
	mu    sync.Mutex
	sends []CapturedSend
}

type CapturedSend struct {
	Owner        uuid.UUID
	Notification *domain.Notification
}

func NewCapturingBroadcaster() *CapturingBroadcaster {
	return &CapturingBroadcaster{}
}

func (b *CapturingBroadcaster) SendToUser(owner uuid.UUID, n *domain.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sends = append(b.sends, CapturedSend{Owner: owner, Notification: n})
}

// Sends returns a copy of everything delivered so far.
func (b *CapturingBroadcaster) Sends() []CapturedSend {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]CapturedSend, len(b.sends))
	copy(out, b.sends)
	return out
}

// StubMutationSource feeds tests a fixed channel of mutations.
type StubMutationSource struct {
	Ch chan domain.Mutation
}

func NewStubMutationSource(buffer int) *StubMutationSource {
	return &StubMutationSource{Ch: make(chan domain.Mutation, buffer)}
}

func (s *StubMutationSource) Mutations() <-chan domain.Mutation {
	return s.Ch
}
