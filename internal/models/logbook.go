package models

import "time"

// LogbookStatus is the supervisor review state of a journal entry.
type LogbookStatus string

const (
	LogbookStatusPending  LogbookStatus = "pending"
	LogbookStatusApproved LogbookStatus = "approved"
	LogbookStatusRejected LogbookStatus = "rejected"
)

// Valid returns true when the status is a supported value.
func (s LogbookStatus) Valid() bool {
	switch s {
	case LogbookStatusPending, LogbookStatusApproved, LogbookStatusRejected:
		return true
	default:
		return false
	}
}

// LogbookEntry is a student's daily activity journal, one per calendar date.
// Approval stamps Signature; rejection requires ReviewNote and reopens the
// entry for revision.
type LogbookEntry struct {
	ID           string        `db:"id" json:"id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	SupervisorID *string       `db:"supervisor_id" json:"supervisor_id,omitempty"`
	EntryDate    time.Time     `db:"entry_date" json:"entry_date"`
	Activity     string        `db:"activity" json:"activity"`
	Progress     int           `db:"progress" json:"progress"`
	Status       LogbookStatus `db:"status" json:"status"`
	ReviewNote   *string       `db:"review_note" json:"review_note,omitempty"`
	Signature    *string       `db:"signature" json:"signature,omitempty"`
	ReviewedBy   *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Signed reports whether a supervisor has approved the entry.
func (e LogbookEntry) Signed() bool {
	return e.Signature != nil
}

// LogbookEntryDetail joins the entry with student metadata for listings.
type LogbookEntryDetail struct {
	LogbookEntry
	NIM         string `db:"nim" json:"nim"`
	StudentName string `db:"student_name" json:"student_name"`
}

// LogbookFilter constrains listing queries.
type LogbookFilter struct {
	StudentID    string
	SupervisorID string
	Date         *time.Time
	Status       *LogbookStatus
	Search       string
	Page         int
	PageSize     int
}
