package models

import "time"

// StudentStatus tracks whether an intern may record attendance.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "active"
	StudentStatusInactive StudentStatus = "inactive"
)

// Student is an intern enrolled in the programme.
type Student struct {
	ID              string        `db:"id" json:"id"`
	UserID          *string       `db:"user_id" json:"user_id,omitempty"`
	NIM             string        `db:"nim" json:"nim"`
	FullName        string        `db:"full_name" json:"full_name"`
	Status          StudentStatus `db:"status" json:"status"`
	SupervisorID    *string       `db:"supervisor_id" json:"supervisor_id,omitempty"`
	InternshipStart *time.Time    `db:"internship_start" json:"internship_start,omitempty"`
	InternshipEnd   *time.Time    `db:"internship_end" json:"internship_end,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Active reports whether the student may produce attendance.
func (s Student) Active() bool {
	return s.Status == StudentStatusActive
}
