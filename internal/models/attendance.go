package models

import "time"

// AttendanceStatus is the presence classification of a day.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusExcused AttendanceStatus = "excused"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusExcused, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Lateness classifies a check-in against the entry time and grace period.
type Lateness string

const (
	LatenessOnTime Lateness = "on_time"
	LatenessLate   Lateness = "late"
)

// AttendanceRecord is the single row per (student, date).
type AttendanceRecord struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	AttendanceDate   time.Time        `db:"attendance_date" json:"attendance_date"`
	CheckInAt        *time.Time       `db:"check_in_at" json:"check_in_at,omitempty"`
	CheckOutAt       *time.Time       `db:"check_out_at" json:"check_out_at,omitempty"`
	Lateness         *Lateness        `db:"lateness" json:"lateness,omitempty"`
	Status           AttendanceStatus `db:"status" json:"status"`
	InsideGeofence   bool             `db:"inside_geofence" json:"inside_geofence"`
	DistanceMeters   *float64         `db:"distance_meters" json:"distance_meters,omitempty"`
	ScanLatitude     *float64         `db:"scan_latitude" json:"scan_latitude,omitempty"`
	ScanLongitude    *float64         `db:"scan_longitude" json:"scan_longitude,omitempty"`
	DeviceInfo       *string          `db:"device_info" json:"device_info,omitempty"`
	ScheduleConfigID string           `db:"schedule_config_id" json:"schedule_config_id"`
	LeaveRequestID   *string          `db:"leave_request_id" json:"leave_request_id,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceState is the position of a record in the daily state machine.
type AttendanceState string

const (
	StateNoRecord   AttendanceState = "no_record"
	StateCheckedIn  AttendanceState = "checked_in"
	StateCheckedOut AttendanceState = "checked_out"
)

// State derives the state machine position of r. A nil record has no state yet.
func (r *AttendanceRecord) State() AttendanceState {
	switch {
	case r == nil || r.CheckInAt == nil:
		return StateNoRecord
	case r.CheckOutAt == nil:
		return StateCheckedIn
	default:
		return StateCheckedOut
	}
}

// AttendanceRecordDetail joins the record with student metadata for listings.
type AttendanceRecordDetail struct {
	AttendanceRecord
	NIM         string `db:"nim" json:"nim"`
	StudentName string `db:"student_name" json:"student_name"`
}

// AttendanceFilter defines listing filters.
type AttendanceFilter struct {
	StudentID string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortOrder string
}

// ScanOutcome names the transition a scan produced.
type ScanOutcome string

const (
	ScanOutcomeCheckedIn  ScanOutcome = "checked_in"
	ScanOutcomeCheckedOut ScanOutcome = "checked_out"
)

// ScanResult reports the effect of an accepted scan.
type ScanResult struct {
	Outcome        ScanOutcome       `json:"outcome"`
	Lateness       *Lateness         `json:"lateness,omitempty"`
	InsideGeofence bool              `json:"inside_geofence"`
	DistanceMeters float64           `json:"distance_meters"`
	StudentID      string            `json:"student_id"`
	StudentName    string            `json:"student_name"`
	EventTime      time.Time         `json:"event_time"`
	Record         *AttendanceRecord `json:"record"`
}

// TodayStatus bundles a student's current record with the active schedule.
type TodayStatus struct {
	Date     time.Time         `json:"date"`
	State    AttendanceState   `json:"state"`
	Record   *AttendanceRecord `json:"record,omitempty"`
	Schedule *ScheduleConfig   `json:"schedule,omitempty"`
}
