package domain

import "time"

type SessionID string
type ConnID string
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// Session is the durable record of one interview. The SessionID is supplied
// externally and acts as the primary key. A session row comes into existence
// on the first upsert that references it, whether that is a participant join
// or a recording upload.
type Session struct {
	SessionID       SessionID  `json:"sessionId"`
	CandidateName   string     `json:"candidateName,omitempty"`
	InterviewerName string     `json:"interviewerName,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	VideoURL        string     `json:"videoUrl,omitempty"`
}

// SessionPatch carries the fields of a single upsert. Nil fields are left
// untouched by the merge. StartTime is first-write-wins: once a session has a
// start time, later patches never overwrite it.
type SessionPatch struct {
	CandidateName   *string
	InterviewerName *string
	StartTime       *time.Time
	EndTime         *time.Time
	VideoURL        *string
}

// Empty reports whether the patch carries no fields at all.
func (p SessionPatch) Empty() bool {
	return p.CandidateName == nil && p.InterviewerName == nil &&
		p.StartTime == nil && p.EndTime == nil && p.VideoURL == nil
}
