package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"proctorhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Upsert(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Append(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockEventRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]*domain.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Event), args.Error(1)
}

func TestReportService_SessionAndEvents(t *testing.T) {
	sessions := new(MockSessionRepository)
	events := new(MockEventRepository)
	svc := NewReportService(sessions, events)

	start := time.Now().UTC()
	session := &domain.Session{SessionID: "s1", CandidateName: "Alice", StartTime: &start}
	stored := []*domain.Event{
		{ID: "e1", SessionID: "s1", Type: "tab-switch", Ts: start.Add(time.Second)},
		{ID: "e2", SessionID: "s1", Type: "face-missing", Ts: start.Add(2 * time.Second)},
	}

	sessions.On("Get", mock.Anything, domain.SessionID("s1")).Return(session, nil)
	events.On("ListBySession", mock.Anything, domain.SessionID("s1")).Return(stored, nil)

	report, err := svc.GetReport(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, session, report.Session)
	assert.Len(t, report.Events, 2)
	assert.Equal(t, "e1", report.Events[0].ID)
}

func TestReportService_MissingSessionStillReturnsEvents(t *testing.T) {
	sessions := new(MockSessionRepository)
	events := new(MockEventRepository)
	svc := NewReportService(sessions, events)

	stored := []*domain.Event{
		{ID: "e1", SessionID: "ghost", Type: "tab-switch", Ts: time.Now().UTC()},
	}

	sessions.On("Get", mock.Anything, domain.SessionID("ghost")).Return(nil, domain.ErrSessionNotFound)
	events.On("ListBySession", mock.Anything, domain.SessionID("ghost")).Return(stored, nil)

	report, err := svc.GetReport(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, report.Session)
	assert.Len(t, report.Events, 1)
}

func TestReportService_NoEventsYieldsEmptySlice(t *testing.T) {
	sessions := new(MockSessionRepository)
	events := new(MockEventRepository)
	svc := NewReportService(sessions, events)

	sessions.On("Get", mock.Anything, domain.SessionID("s1")).Return(nil, domain.ErrSessionNotFound)
	events.On("ListBySession", mock.Anything, domain.SessionID("s1")).Return(nil, nil)

	report, err := svc.GetReport(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Nil(t, report.Session)
	assert.NotNil(t, report.Events)
	assert.Empty(t, report.Events)
}

func TestReportService_StoreFailurePropagates(t *testing.T) {
	sessions := new(MockSessionRepository)
	events := new(MockEventRepository)
	svc := NewReportService(sessions, events)

	boom := errors.New("connection refused")
	sessions.On("Get", mock.Anything, domain.SessionID("s1")).Return(nil, boom)

	report, err := svc.GetReport(context.Background(), "s1")
	assert.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, report)
	events.AssertNotCalled(t, "ListBySession", mock.Anything, mock.Anything)
}
