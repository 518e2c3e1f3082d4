package dto

// CreateLogbookRequest records the day's activity.
type CreateLogbookRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02" example:"2024-01-02"`
	Activity string `json:"activity" validate:"required,max=4000"`
	Progress *int   `json:"progress" validate:"required,min=0,max=100" example:"60"`
}

// ReviseLogbookRequest resubmits a rejected entry. The date cannot change.
type ReviseLogbookRequest struct {
	Activity string `json:"activity" validate:"required,max=4000"`
	Progress *int   `json:"progress" validate:"required,min=0,max=100"`
}

// ReviewLogbookRequest captures the supervisor's decision. A rejection needs a note.
type ReviewLogbookRequest struct {
	Decision   string `json:"decision" validate:"required,oneof=approved rejected" example:"approved"`
	ReviewNote string `json:"review_note" validate:"required_if=Decision rejected,max=1000"`
}

// LogbookQuery mirrors supported listing filters.
type LogbookQuery struct {
	StudentID string `form:"student_id"`
	Date      string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Status    string `form:"status" validate:"omitempty,oneof=pending approved rejected"`
	Search    string `form:"search" validate:"max=100"`
	Page      int    `form:"page" validate:"gte=0"`
	PageSize  int    `form:"page_size" validate:"gte=0,lte=100"`
}
