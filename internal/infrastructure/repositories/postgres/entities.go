package postgres

import "time"

// SessionRecord is the sessions table. SessionID is externally supplied and
// acts as the primary key; rows appear on first upsert and are never deleted
// by the service.
type SessionRecord struct {
	SessionID       string `gorm:"primaryKey;size:128"`
	CandidateName   string `gorm:"size:255"`
	InterviewerName string `gorm:"size:255"`
	StartTime       *time.Time
	EndTime         *time.Time
	VideoURL        string    `gorm:"size:1024"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (SessionRecord) TableName() string { return "sessions" }

// EventRecord is the events table. The bigserial ID doubles as the insertion
// sequence used to break timestamp ties.
type EventRecord struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID     string    `gorm:"size:128;not null;index:idx_events_session_ts,priority:1"`
	CandidateName string    `gorm:"size:255"`
	Type          string    `gorm:"size:128;not null"`
	Meta          []byte    `gorm:"type:jsonb"`
	Ts            time.Time `gorm:"not null;index:idx_events_session_ts,priority:2"`
}

func (EventRecord) TableName() string { return "events" }
