package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventtrail/internal/infrastructure/validate"
	"eventtrail/internal/timeutil"

	"github.com/google/uuid"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrDateRange     = errors.New("end date must be after start date")
)

// Event is a time interval owned by one or more profiles. StartDate and
// EndDate are absolute UTC instants; Timezone records the zone the event's
// times are interpreted and displayed under by default.
type Event struct {
	ID         string    `bson:"_id" json:"id"`
	ProfileIDs []string  `bson:"profiles" json:"profiles"`
	Timezone   string    `bson:"timezone" json:"timezone"`
	StartDate  time.Time `bson:"start_date" json:"startDate"`
	EndDate    time.Time `bson:"end_date" json:"endDate"`
	CreatedBy  string    `bson:"created_by" json:"createdBy"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updatedAt"`
}

// ResolvedEvent is an event with its profile references joined. Every read
// and mutation response carries this shape.
type ResolvedEvent struct {
	Event
	Profiles []Profile `json:"profiles"`
}

type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	// List returns events sorted by start date descending. A non-empty
	// profileID restricts the result to events whose profile list
	// contains that id.
	List(ctx context.Context, profileID string) ([]Event, error)
}

func NewEvent(profileIDs []string, timezone string, start, end time.Time, createdBy string) (*Event, error) {
	if len(profileIDs) == 0 {
		return nil, fmt.Errorf("at least one profile is required")
	}
	if err := validate.Field("timezone", validate.Timezone())(timezone); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("start and end dates are required")
	}
	if !timeutil.IsAfter(end, start) {
		return nil, ErrDateRange
	}

	now := time.Now().UTC()

	return &Event{
		ID:         uuid.NewString(),
		ProfileIDs: profileIDs,
		Timezone:   timezone,
		StartDate:  start.UTC(),
		EndDate:    end.UTC(),
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Validate re-checks the date ordering invariant. The repository calls
// this before every write as a last-resort guard; the handler calls it on
// the post-patch state so a partial update can never commit an inverted
// interval.
func (e *Event) Validate() error {
	if !timeutil.IsAfter(e.EndDate, e.StartDate) {
		return ErrDateRange
	}
	return nil
}
