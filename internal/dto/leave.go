package dto

// CreateLeaveRequest is submitted by a student for an inclusive date range.
type CreateLeaveRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02" example:"2024-01-01"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02" example:"2024-01-03"`
	Category  string `json:"category" validate:"required,oneof=sick personal academic other"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

// ReviewLeaveRequest captures the reviewer's decision.
type ReviewLeaveRequest struct {
	Decision   string `json:"decision" validate:"required,leave_decision" example:"approved"`
	ReviewNote string `json:"review_note" validate:"max=1000"`
}

// LeaveQuery mirrors supported listing filters.
type LeaveQuery struct {
	StudentID string   `form:"student_id"`
	Status    []string `form:"status"`
	Page      int      `form:"page"`
	PageSize  int      `form:"page_size"`
}
