package models

import "time"

// ScheduleConfig is one version of the attendance schedule and geofence.
// Rows are immutable; replacing the schedule deactivates the current row and
// inserts a new one.
type ScheduleConfig struct {
	ID                 string    `db:"id" json:"id"`
	EntryTime          TimeOfDay `db:"entry_time" json:"entry_time" swaggertype:"string" example:"08:00:00"`
	DepartureTime      TimeOfDay `db:"departure_time" json:"departure_time" swaggertype:"string" example:"17:00:00"`
	GracePeriodMinutes int       `db:"grace_period_minutes" json:"grace_period_minutes"`
	CenterLat          float64   `db:"center_lat" json:"center_lat"`
	CenterLon          float64   `db:"center_lon" json:"center_lon"`
	RadiusMeters       float64   `db:"radius_meters" json:"radius_meters"`
	Active             bool      `db:"active" json:"active"`
	CreatedBy          *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// GracePeriod returns the grace window as a duration.
func (s ScheduleConfig) GracePeriod() time.Duration {
	return time.Duration(s.GracePeriodMinutes) * time.Minute
}
