package postgres

import (
	"context"
	"errors"
	"fmt"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresSessionRepository struct {
	db *gorm.DB
}

func NewPostgresSessionRepository(db *gorm.DB) ports.SessionRepository {
	return &PostgresSessionRepository{db: db}
}

// Upsert is a single INSERT ... ON CONFLICT statement, so create-if-absent
// and merge-if-present cannot race against each other. Only the fields the
// patch carries are assigned on conflict, and start_time keeps its existing
// value via COALESCE (first-write-wins).
func (r *PostgresSessionRepository) Upsert(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) error {
	record := SessionRecord{SessionID: string(id)}
	assignments := map[string]interface{}{}

	if patch.CandidateName != nil {
		record.CandidateName = *patch.CandidateName
		assignments["candidate_name"] = *patch.CandidateName
	}
	if patch.InterviewerName != nil {
		record.InterviewerName = *patch.InterviewerName
		assignments["interviewer_name"] = *patch.InterviewerName
	}
	if patch.StartTime != nil {
		record.StartTime = patch.StartTime
		assignments["start_time"] = gorm.Expr("COALESCE(sessions.start_time, excluded.start_time)")
	}
	if patch.EndTime != nil {
		record.EndTime = patch.EndTime
		assignments["end_time"] = *patch.EndTime
	}
	if patch.VideoURL != nil {
		record.VideoURL = *patch.VideoURL
		assignments["video_url"] = *patch.VideoURL
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}
	if len(assignments) > 0 {
		onConflict.DoNothing = false
		onConflict.DoUpdates = clause.Assignments(assignments)
	}

	if err := r.db.WithContext(ctx).Clauses(onConflict).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	var record SessionRecord
	err := r.db.WithContext(ctx).Where("session_id = ?", string(id)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &domain.Session{
		SessionID:       id,
		CandidateName:   record.CandidateName,
		InterviewerName: record.InterviewerName,
		StartTime:       record.StartTime,
		EndTime:         record.EndTime,
		VideoURL:        record.VideoURL,
	}, nil
}
