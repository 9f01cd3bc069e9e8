package dto

import "time"

// TimetableEntry is one scheduled period in a class timetable.
type TimetableEntry struct {
	Day       string `json:"day" validate:"required,oneof=monday tuesday wednesday thursday friday saturday"`
	StartTime string `json:"start_time" validate:"required,max=8"`
	EndTime   string `json:"end_time" validate:"required,max=8"`
	Subject   string `json:"subject" validate:"required,max=128"`
	Teacher   string `json:"teacher" validate:"omitempty,max=255"`
}

// TimetablePutRequest replaces a class timetable wholesale.
type TimetablePutRequest struct {
	Entries []TimetableEntry `json:"entries" validate:"required,dive"`
}

// TimetableResponse is the stored timetable object for one class.
type TimetableResponse struct {
	Class     string           `json:"class"`
	Entries   []TimetableEntry `json:"entries"`
	UpdatedBy string           `json:"updated_by,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}
