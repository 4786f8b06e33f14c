package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"eventtrail/internal/infrastructure/validate"

	"github.com/google/uuid"
)

// DefaultTimezone is applied to profiles created without an explicit one.
const DefaultTimezone = "America/New_York"

var (
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileRefs means the requested profile id list did not resolve
	// one-for-one against the store: an id is unknown, or duplicates
	// collapsed during lookup.
	ErrProfileRefs = errors.New("one or more profiles not found")
)

// Profile is a named participant with its own default display timezone.
// Profiles are never deleted; events reference them weakly by id.
type Profile struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Timezone  string    `bson:"timezone" json:"timezone"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	// GetByIDs returns the profiles that exist among ids, in the order
	// they were requested. Missing ids are simply absent from the result;
	// callers compare counts to detect referential failures.
	GetByIDs(ctx context.Context, ids []string) ([]Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Update(ctx context.Context, profile *Profile) error
}

func NewProfile(rawName, timezone string) (*Profile, error) {
	validateName := validate.Field("name",
		validate.Required(),
		validate.MaxLength(80),
	)
	if err := validateName(rawName); err != nil {
		return nil, err
	}

	if timezone == "" {
		timezone = DefaultTimezone
	}
	if err := validate.Field("timezone", validate.Timezone())(timezone); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Profile{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(rawName),
		Timezone:  timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Name     *string
	Timezone *string
}

func (p *Profile) ApplyUpdate(patch ProfilePatch) error {
	if patch.Name != nil {
		if err := validate.Field("name", validate.Required(), validate.MaxLength(80))(*patch.Name); err != nil {
			return err
		}
		p.Name = strings.TrimSpace(*patch.Name)
	}

	if patch.Timezone != nil {
		if err := validate.Field("timezone", validate.Timezone())(*patch.Timezone); err != nil {
			return err
		}
		p.Timezone = *patch.Timezone
	}

	p.UpdatedAt = time.Now().UTC()
	return nil
}
