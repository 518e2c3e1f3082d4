package dto

import "time"

// ScanRequest is the kiosk payload produced by scanning a student's QR code.
type ScanRequest struct {
	Credential string   `json:"credential" example:"eyJhbGciOiJIUzI1NiIs..."`
	Latitude   *float64 `json:"latitude" validate:"required,latitude" example:"-6.2"`
	Longitude  *float64 `json:"longitude" validate:"required,longitude" example:"106.816666"`
	DeviceInfo string   `json:"device_info" validate:"max=255"`
}

// ScanTokenResponse carries a freshly minted scan credential.
type ScanTokenResponse struct {
	Credential string    `json:"credential"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// AttendanceQuery mirrors supported listing filters.
type AttendanceQuery struct {
	StudentID string `form:"student_id"`
	Status    string `form:"status" validate:"omitempty,oneof=present excused absent"`
	DateFrom  string `form:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortOrder string `form:"sort_order"`
}
