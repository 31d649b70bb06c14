package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"

	"gorm.io/gorm"
)

type PostgresEventRepository struct {
	db *gorm.DB
}

func NewPostgresEventRepository(db *gorm.DB) ports.EventRepository {
	return &PostgresEventRepository{db: db}
}

// Append inserts one immutable event row. The returned event carries the
// database-assigned identifier; callers must not broadcast before this
// returns.
func (r *PostgresEventRepository) Append(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	record := EventRecord{
		SessionID:     string(event.SessionID),
		CandidateName: event.CandidateName,
		Type:          event.Type,
		Meta:          []byte(event.Meta),
		Ts:            event.Ts,
	}
	if record.Ts.IsZero() {
		record.Ts = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	return recordToEvent(&record), nil
}

func (r *PostgresEventRepository) ListBySession(ctx context.Context, id domain.SessionID) ([]*domain.Event, error) {
	var records []EventRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", string(id)).
		Order("ts ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*domain.Event, 0, len(records))
	for i := range records {
		events = append(events, recordToEvent(&records[i]))
	}
	return events, nil
}

func recordToEvent(record *EventRecord) *domain.Event {
	return &domain.Event{
		ID:            strconv.FormatUint(record.ID, 10),
		SessionID:     domain.SessionID(record.SessionID),
		CandidateName: record.CandidateName,
		Type:          record.Type,
		Meta:          record.Meta,
		Ts:            record.Ts,
		Seq:           record.ID,
	}
}
