package domain

import (
	"context"
	"time"

	"eventtrail/internal/timeutil"

	"github.com/google/uuid"
)

// DefaultActor attributes writes when no actor is configured. There is no
// authentication in this system; the actor is a deployment-level setting.
const DefaultActor = "admin"

// ProfileRef is a point-in-time snapshot of a profile's id and name,
// captured when a change is logged so the history stays readable even if
// the profile is later renamed.
type ProfileRef struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// ProfilesChange records a membership change. Old carries {id, name}
// snapshots of the previous membership; New is the raw proposed id list,
// exactly as the caller sent it.
type ProfilesChange struct {
	Old []ProfileRef `bson:"old" json:"old"`
	New []string     `bson:"new" json:"new"`
}

type TimezoneChange struct {
	Old string `bson:"old" json:"old"`
	New string `bson:"new" json:"new"`
}

type DateChange struct {
	Old time.Time `bson:"old" json:"old"`
	New time.Time `bson:"new" json:"new"`
}

// ChangeSet holds one old/new pair per tracked field that actually changed
// in a single update. Fields that did not change stay nil and are omitted
// from the persisted document, so the stored shape is {field: {old, new}}.
type ChangeSet struct {
	Profiles  *ProfilesChange `bson:"profiles,omitempty" json:"profiles,omitempty"`
	Timezone  *TimezoneChange `bson:"timezone,omitempty" json:"timezone,omitempty"`
	StartDate *DateChange     `bson:"start_date,omitempty" json:"startDate,omitempty"`
	EndDate   *DateChange     `bson:"end_date,omitempty" json:"endDate,omitempty"`
}

func (c *ChangeSet) Empty() bool {
	return c.Profiles == nil && c.Timezone == nil && c.StartDate == nil && c.EndDate == nil
}

// EventLog is an immutable audit record of one update operation on an
// event. Logs are never updated or deleted; deleting an event leaves its
// logs behind as orphans.
type EventLog struct {
	ID        string    `bson:"_id" json:"id"`
	EventID   string    `bson:"event_id" json:"eventId"`
	Changes   ChangeSet `bson:"changes" json:"changes"`
	UpdatedBy string    `bson:"updated_by" json:"updatedBy"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type EventLogRepository interface {
	Insert(ctx context.Context, log *EventLog) error
	// ListByEventID returns logs sorted by timestamp descending. Unknown
	// event ids yield an empty slice, not an error.
	ListByEventID(ctx context.Context, eventID string) ([]EventLog, error)
	EnsureIndexes(ctx context.Context) error
}

func NewEventLog(eventID string, changes ChangeSet, updatedBy string) *EventLog {
	if updatedBy == "" {
		updatedBy = DefaultActor
	}

	return &EventLog{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Changes:   changes,
		UpdatedBy: updatedBy,
		Timestamp: time.Now().UTC(),
	}
}

// ProfilesComparer decides whether two profile id lists are the same
// membership. The policy is pluggable because the source system compared
// the full ordered sequence, which makes a pure reordering register as a
// change; callers that consider that unintended can swap in SetEquality.
type ProfilesComparer func(old, proposed []string) bool

// SequenceEquality compares the full ordered id sequence.
func SequenceEquality(old, proposed []string) bool {
	if len(old) != len(proposed) {
		return false
	}
	for i := range old {
		if old[i] != proposed[i] {
			return false
		}
	}
	return true
}

// SetEquality compares membership ignoring order.
func SetEquality(old, proposed []string) bool {
	if len(old) != len(proposed) {
		return false
	}

	counts := make(map[string]int, len(old))
	for _, id := range old {
		counts[id]++
	}
	for _, id := range proposed {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}

// EventPatch is a partial event update. Nil fields are absent from the
// request and must be left untouched.
type EventPatch struct {
	ProfileIDs []string
	Timezone   *string
	StartDate  *time.Time
	EndDate    *time.Time
}

// ApplyPatch diffs the proposed partial update against the event's current
// state field by field. Each field that differs is applied to the event and
// recorded in the returned ChangeSet; supplied-but-equal fields do neither.
// current is the event's resolved profile list, used to snapshot {id, name}
// pairs into the log before membership changes.
//
// ApplyPatch does not validate the resulting state; the caller re-checks
// Validate() afterwards and aborts the whole update if it fails.
func (e *Event) ApplyPatch(patch EventPatch, current []Profile, sameProfiles ProfilesComparer) *ChangeSet {
	if sameProfiles == nil {
		sameProfiles = SequenceEquality
	}

	changes := &ChangeSet{}

	if patch.ProfileIDs != nil && !sameProfiles(e.ProfileIDs, patch.ProfileIDs) {
		old := make([]ProfileRef, 0, len(current))
		for _, p := range current {
			old = append(old, ProfileRef{ID: p.ID, Name: p.Name})
		}
		changes.Profiles = &ProfilesChange{Old: old, New: patch.ProfileIDs}
		e.ProfileIDs = patch.ProfileIDs
	}

	if patch.Timezone != nil && *patch.Timezone != e.Timezone {
		changes.Timezone = &TimezoneChange{Old: e.Timezone, New: *patch.Timezone}
		e.Timezone = *patch.Timezone
	}

	if patch.StartDate != nil && !timeutil.SameInstant(*patch.StartDate, e.StartDate) {
		changes.StartDate = &DateChange{Old: e.StartDate, New: patch.StartDate.UTC()}
		e.StartDate = patch.StartDate.UTC()
	}

	if patch.EndDate != nil && !timeutil.SameInstant(*patch.EndDate, e.EndDate) {
		changes.EndDate = &DateChange{Old: e.EndDate, New: patch.EndDate.UTC()}
		e.EndDate = patch.EndDate.UTC()
	}

	if !changes.Empty() {
		e.UpdatedAt = time.Now().UTC()
	}

	return changes
}
