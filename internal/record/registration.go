package record

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RegistrationState is the enrolment state of a match.
type RegistrationState string

const (
	StatusOpen    RegistrationState = "open"
	StatusOpensAt RegistrationState = "opens_at"
	StatusClosed  RegistrationState = "closed"
)

// DefaultRegistrationText is assumed when a listing shows no registration
// information.
const DefaultRegistrationText = "inschrijven"

// Registration is the parsed registration_text.
type Registration struct {
	State   RegistrationState `json:"state"`
	OpensAt *time.Time        `json:"opens_at,omitempty"`
}

var (
	closedPhrases    = []string{"niet meer mogelijk", "niet mogelijk", "gesloten", "volgeboekt"}
	closedWords      = map[string]struct{}{"vol": {}}
	opensFromPattern = regexp.MustCompile(`vanaf\s+(?:\p{L}+\s+)?(\d{1,4}[-/]\d{1,2}[-/]\d{2,4})(?:\s+(\d{1,2})[:.](\d{2}))?`)
	listingLocation  = loadListingLocation()
)

// NormalizeRegistrationText lowercases and collapses registration text,
// defaulting to "inschrijven".
func NormalizeRegistrationText(raw string) string {
	text := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if text == "" {
		return DefaultRegistrationText
	}
	return text
}

// ParseRegistration derives the registration state from normalized
// registration text. Unrecognized text counts as open.
func ParseRegistration(text string) Registration {
	lowered := NormalizeRegistrationText(text)

	for _, phrase := range closedPhrases {
		if strings.Contains(lowered, phrase) {
			return Registration{State: StatusClosed}
		}
	}
	for _, word := range strings.Fields(lowered) {
		if _, ok := closedWords[strings.Trim(word, ".,!")]; ok {
			return Registration{State: StatusClosed}
		}
	}

	if m := opensFromPattern.FindStringSubmatch(lowered); m != nil {
		date, err := ParseDate(m[1])
		if err == nil {
			hour, minute := 0, 0
			if m[2] != "" {
				hour, _ = strconv.Atoi(m[2])
				minute, _ = strconv.Atoi(m[3])
			}
			opensAt := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, listingLocation)
			return Registration{State: StatusOpensAt, OpensAt: &opensAt}
		}
	}

	return Registration{State: StatusOpen}
}

// ListingLocation is the zone listing times are published in.
func ListingLocation() *time.Location {
	return listingLocation
}

func loadListingLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		return time.UTC
	}
	return loc
}
