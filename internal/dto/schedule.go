package dto

// ReplaceScheduleRequest defines a new schedule version.
type ReplaceScheduleRequest struct {
	EntryTime          string   `json:"entry_time" validate:"required,time_of_day" example:"08:00"`
	DepartureTime      string   `json:"departure_time" validate:"required,time_of_day" example:"17:00"`
	GracePeriodMinutes *int     `json:"grace_period_minutes" validate:"required,min=0,max=240" example:"15"`
	RadiusMeters       float64  `json:"radius_meters" validate:"required,gt=0,lte=100000" example:"100"`
	CenterLat          *float64 `json:"center_lat" validate:"required,latitude" example:"-6.2"`
	CenterLon          *float64 `json:"center_lon" validate:"required,longitude" example:"106.816666"`
}
