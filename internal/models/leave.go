package models

import "time"

// LeaveCategory is the reason class of a leave request.
type LeaveCategory string

const (
	LeaveCategorySick     LeaveCategory = "sick"
	LeaveCategoryPersonal LeaveCategory = "personal"
	LeaveCategoryAcademic LeaveCategory = "academic"
	LeaveCategoryOther    LeaveCategory = "other"
)

// LeaveStatus captures the review workflow state.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

// LeaveRequest asks for an inclusive date range to be excused.
type LeaveRequest struct {
	ID           string        `db:"id" json:"id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	SupervisorID *string       `db:"supervisor_id" json:"supervisor_id,omitempty"`
	StartDate    time.Time     `db:"start_date" json:"start_date"`
	EndDate      time.Time     `db:"end_date" json:"end_date"`
	Category     LeaveCategory `db:"category" json:"category"`
	Reason       string        `db:"reason" json:"reason"`
	Status       LeaveStatus   `db:"status" json:"status"`
	ReviewNote   *string       `db:"review_note" json:"review_note,omitempty"`
	ReviewedBy   *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// LeaveFilter constrains listing queries.
type LeaveFilter struct {
	StudentID    string
	SupervisorID string
	Status       []LeaveStatus
	Page         int
	PageSize     int
}

// BackfillResult tallies the per-date outcome of a leave backfill.
type BackfillResult struct {
	LeaveRequestID string      `json:"leave_request_id"`
	Created        []time.Time `json:"created"`
	Skipped        []time.Time `json:"skipped"`
	Failed         []time.Time `json:"failed"`
}

// Complete reports whether every date was either created or already present.
func (r BackfillResult) Complete() bool {
	return len(r.Failed) == 0
}

// LeaveReviewResult is returned after a review decision.
type LeaveReviewResult struct {
	Leave    *LeaveRequest   `json:"leave"`
	Backfill *BackfillResult `json:"backfill,omitempty"`
	// RetryScheduled is set when failed dates were handed to the retry queue.
	RetryScheduled bool `json:"retry_scheduled"`
}
