// Package record defines the raw and normalized forms of a calendar listing
// and the conversion between them.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"horse.fit/jachtproef/internal/taxonomy"
	"horse.fit/jachtproef/internal/textnorm"
)

// DateLayout is the canonical ISO calendar date used for keys and storage.
const DateLayout = "2006-01-02"

const remarkSeparator = " | "

// ErrMalformed marks a raw record that cannot be normalized.
var ErrMalformed = errors.New("malformed record")

// MalformedError explains why a raw record was rejected.
type MalformedError struct {
	Reason string
	Value  string
}

func (e *MalformedError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", ErrMalformed, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%q)", ErrMalformed, e.Reason, e.Value)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Raw is one listing exactly as a source delivered it.
type Raw struct {
	Date             string `json:"date"`
	Organizer        string `json:"organizer"`
	Location         string `json:"location"`
	TypeLabel        string `json:"type_label"`
	RegistrationText string `json:"registration_text"`
	Remarks          string `json:"remarks"`
	SourceCalendarID string `json:"source_calendar_id"`
}

// Normalized is a parsed, classified listing ready for matching and
// reconciliation.
type Normalized struct {
	Date             time.Time    `json:"date"`
	OrganizerRaw     string       `json:"organizer"`
	OrganizerKey     string       `json:"organizer_key"`
	LocationRaw      string       `json:"location"`
	LocationKey      string       `json:"location_key"`
	TypeCode         string       `json:"type_code"`
	TypeDetail       string       `json:"type_detail,omitempty"`
	Registration     Registration `json:"registration"`
	RegistrationText string       `json:"registration_text"`
	Remark           string       `json:"remark,omitempty"`
	SourceCalendarID string       `json:"source_calendar_id"`

	// TypeFallthrough is set when no taxonomy rule matched the label.
	TypeFallthrough bool `json:"-"`
}

// Key identifies the real-world event behind a record.
type Key struct {
	Organizer string
	Date      string
	Location  string
}

func (k Key) String() string {
	return k.Organizer + "|" + k.Date + "|" + k.Location
}

// Key returns the composite key of the record.
func (n Normalized) Key() Key {
	return Key{
		Organizer: n.OrganizerKey,
		Date:      n.Date.Format(DateLayout),
		Location:  n.LocationKey,
	}
}

// Classifier resolves type labels; *taxonomy.Classifier implements it.
type Classifier interface {
	Classify(label, calendarID string) taxonomy.Result
}

// Normalize validates and canonicalizes a raw record with the built-in type
// rules. Rejections wrap ErrMalformed.
func Normalize(raw Raw) (Normalized, error) {
	return NormalizeWith(raw, taxonomy.Default)
}

// NormalizeWith is Normalize with a caller-supplied classifier.
func NormalizeWith(raw Raw, classifier Classifier) (Normalized, error) {
	if classifier == nil {
		classifier = taxonomy.Default
	}

	date, err := ParseDate(raw.Date)
	if err != nil {
		return Normalized{}, err
	}

	organizer := textnorm.CleanDisplay(raw.Organizer)
	location := textnorm.CleanDisplay(raw.Location)
	if textnorm.Normalize(organizer) == "" && textnorm.Normalize(location) == "" {
		return Normalized{}, &MalformedError{Reason: "organizer and location are both empty"}
	}

	classified := classifier.Classify(raw.TypeLabel, raw.SourceCalendarID)
	registrationText := NormalizeRegistrationText(raw.RegistrationText)

	return Normalized{
		Date:             date,
		OrganizerRaw:     organizer,
		OrganizerKey:     textnorm.Key(organizer),
		LocationRaw:      location,
		LocationKey:      textnorm.Key(location),
		TypeCode:         classified.Code,
		TypeDetail:       classified.Detail,
		TypeFallthrough:  classified.Fallthrough,
		Registration:     ParseRegistration(registrationText),
		RegistrationText: registrationText,
		Remark:           JoinRemarks(textnorm.CleanDisplay(raw.Remarks), classified.Detail),
		SourceCalendarID: strings.TrimSpace(raw.SourceCalendarID),
	}, nil
}

// JoinRemarks joins the non-empty parts with " | ", skipping repeats.
func JoinRemarks(parts ...string) string {
	kept := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, remarkSeparator)
}
