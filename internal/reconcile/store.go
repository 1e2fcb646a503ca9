package reconcile

import (
	"context"
	"errors"
	"time"

	"horse.fit/jachtproef/internal/record"
)

// ErrNotFound is returned by stores when a lookup has no result.
var ErrNotFound = errors.New("match not found")

// Stored is a persisted match as seen by the engine. Only owned fields are
// exposed; stores keep every other column untouched.
type Stored struct {
	ID                 string
	OrganizerKey       string
	LocationKey        string
	Date               time.Time
	Organizer          string
	Location           string
	Type               string
	RegistrationText   string
	RegistrationStatus record.RegistrationState
	OpensAt            *time.Time
	Remark             string
	SourceCalendarID   string
	LastUpdated        time.Time
}

// Key returns the composite key of the stored match.
func (s Stored) Key() record.Key {
	return record.Key{
		Organizer: s.OrganizerKey,
		Date:      s.Date.Format(record.DateLayout),
		Location:  s.LocationKey,
	}
}

// Patch is a partial update restricted to owned fields. Nil fields are left
// alone.
type Patch struct {
	Organizer          *string
	Location           *string
	Type               *string
	RegistrationText   *string
	RegistrationStatus *record.RegistrationState
	OpensAt            **time.Time
	Remark             *string
	SourceCalendarID   *string
	LastUpdated        *time.Time
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Organizer == nil &&
		p.Location == nil &&
		p.Type == nil &&
		p.RegistrationText == nil &&
		p.RegistrationStatus == nil &&
		p.OpensAt == nil &&
		p.Remark == nil &&
		p.SourceCalendarID == nil &&
		p.LastUpdated == nil
}

// Store is the persistence contract the engine needs. Matches are never
// deleted.
type Store interface {
	FindByKey(ctx context.Context, key record.Key) (Stored, error)
	Insert(ctx context.Context, match Stored) (Stored, error)
	Update(ctx context.Context, id string, patch Patch) error
	ListOpen(ctx context.Context) ([]Stored, error)
}

// FromRecord builds the owned fields of a stored match from a snapshot record.
func FromRecord(rec record.Normalized, now time.Time) Stored {
	return Stored{
		OrganizerKey:       rec.OrganizerKey,
		LocationKey:        rec.LocationKey,
		Date:               rec.Date,
		Organizer:          rec.OrganizerRaw,
		Location:           rec.LocationRaw,
		Type:               rec.TypeCode,
		RegistrationText:   rec.RegistrationText,
		RegistrationStatus: rec.Registration.State,
		OpensAt:            rec.Registration.OpensAt,
		Remark:             rec.Remark,
		SourceCalendarID:   rec.SourceCalendarID,
		LastUpdated:        now,
	}
}

// Diff returns the patch that brings current in line with fresh. LastUpdated
// is only set when some other owned field changed.
func Diff(current, fresh Stored) Patch {
	var p Patch
	if current.Organizer != fresh.Organizer {
		p.Organizer = &fresh.Organizer
	}
	if current.Location != fresh.Location {
		p.Location = &fresh.Location
	}
	if current.Type != fresh.Type {
		p.Type = &fresh.Type
	}
	if current.RegistrationText != fresh.RegistrationText {
		p.RegistrationText = &fresh.RegistrationText
	}
	if current.RegistrationStatus != fresh.RegistrationStatus {
		p.RegistrationStatus = &fresh.RegistrationStatus
	}
	if !sameInstant(current.OpensAt, fresh.OpensAt) {
		p.OpensAt = &fresh.OpensAt
	}
	if current.Remark != fresh.Remark {
		p.Remark = &fresh.Remark
	}
	if current.SourceCalendarID != fresh.SourceCalendarID {
		p.SourceCalendarID = &fresh.SourceCalendarID
	}
	if !p.Empty() {
		p.LastUpdated = &fresh.LastUpdated
	}
	return p
}

// Apply writes the non-nil patch fields onto s.
func (p Patch) Apply(s *Stored) {
	if p.Organizer != nil {
		s.Organizer = *p.Organizer
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.RegistrationText != nil {
		s.RegistrationText = *p.RegistrationText
	}
	if p.RegistrationStatus != nil {
		s.RegistrationStatus = *p.RegistrationStatus
	}
	if p.OpensAt != nil {
		s.OpensAt = *p.OpensAt
	}
	if p.Remark != nil {
		s.Remark = *p.Remark
	}
	if p.SourceCalendarID != nil {
		s.SourceCalendarID = *p.SourceCalendarID
	}
	if p.LastUpdated != nil {
		s.LastUpdated = *p.LastUpdated
	}
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
