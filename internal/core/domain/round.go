package domain

import "time"

type UserID string
type RoundID string

type UserRole string

const (
	RoleCandidate   UserRole = "candidate"
	RoleInterviewer UserRole = "interviewer"
	RoleHR          UserRole = "hr"
	RoleAdmin       UserRole = "admin"
)

// Identity is the authenticated principal attached to a connection
// at handshake time.
type Identity struct {
	UserID UserID
	Email  string
	Role   UserRole
}

// Round is the relay's read-only view of a scheduled interview round.
// Round metadata is owned by the interview CRUD service; the relay only
// needs the identities for access control.
type Round struct {
	ID            RoundID
	CandidateID   UserID
	InterviewerID UserID
	ScheduledAt   time.Time
	StartedAt     *time.Time
}

// AccessibleBy reports whether the identity may join this round's room:
// administrative roles unconditionally, otherwise only the assigned
// interviewer or the round's candidate.
func (r *Round) AccessibleBy(id Identity) bool {
	switch id.Role {
	case RoleAdmin, RoleHR:
		return true
	case RoleInterviewer:
		return r.InterviewerID == id.UserID
	case RoleCandidate:
		return r.CandidateID == id.UserID
	default:
		return false
	}
}
