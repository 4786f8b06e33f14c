package events

import "time"

// createEventRequest represents the request to create a new event.
// StartDate and EndDate accept either an RFC3339 instant or a local
// wall-clock value ("2006-01-02T15:04") interpreted under Timezone.
type createEventRequest struct {
	Profiles  []string `json:"profiles" example:"550e8400-e29b-41d4-a716-446655440000"` // Profile ids, insertion order preserved
	Timezone  string   `json:"timezone" example:"America/New_York"`                     // IANA timezone identifier
	StartDate string   `json:"startDate" example:"2024-03-09T12:00"`                    // Start instant or local wall clock
	EndDate   string   `json:"endDate" example:"2024-03-10T12:00"`                      // End instant or local wall clock
}

// updateEventRequest is a partial update; absent fields are left untouched.
type updateEventRequest struct {
	Profiles  []string `json:"profiles,omitempty"`
	Timezone  *string  `json:"timezone,omitempty"`
	StartDate *string  `json:"startDate,omitempty"`
	EndDate   *string  `json:"endDate,omitempty"`
}

// localDateTime is a wall-clock projection of an instant in the event's timezone
type localDateTime struct {
	Date string `json:"date" example:"2024-03-09"` // Calendar date (YYYY-MM-DD)
	Time string `json:"time" example:"12:00"`      // Time of day (HH:mm)
}

// profileResponse represents a profile joined onto an event
type profileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// eventResponse represents an event with its profiles resolved
type eventResponse struct {
	ID         string            `json:"id"`
	Profiles   []profileResponse `json:"profiles"`   // Joined profiles, event order
	Timezone   string            `json:"timezone"`   // Default display timezone
	StartDate  time.Time         `json:"startDate"`  // UTC instant
	EndDate    time.Time         `json:"endDate"`    // UTC instant
	StartLocal localDateTime     `json:"startLocal"` // StartDate projected into Timezone
	EndLocal   localDateTime     `json:"endLocal"`   // EndDate projected into Timezone
	CreatedBy  string            `json:"createdBy"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}
