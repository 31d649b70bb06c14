package services

import (
	"context"
	"errors"
	"fmt"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"
)

type reportService struct {
	sessionRepo ports.SessionRepository
	eventRepo   ports.EventRepository
}

func NewReportService(sessionRepo ports.SessionRepository, eventRepo ports.EventRepository) ports.ReportService {
	return &reportService{
		sessionRepo: sessionRepo,
		eventRepo:   eventRepo,
	}
}

// GetReport assembles a session's stored metadata plus its full ordered event
// log. A missing session record is not an error: events may have been logged
// before any session record existed, and the report must still surface them.
func (s *reportService) GetReport(ctx context.Context, id domain.SessionID) (*ports.Report, error) {
	session, err := s.sessionRepo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		session = nil
	}

	events, err := s.eventRepo.ListBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if events == nil {
		events = []*domain.Event{}
	}

	return &ports.Report{Session: session, Events: events}, nil
}
