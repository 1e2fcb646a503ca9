// Package dedupe collapses listings that describe the same match.
package dedupe

import (
	"strings"

	"horse.fit/jachtproef/internal/record"
	"horse.fit/jachtproef/internal/similarity"
	"horse.fit/jachtproef/internal/textnorm"
)

// DefaultThreshold is the organizer or location similarity above which two
// same-day listings from different calendars are the same match.
const DefaultThreshold = 0.8

type primaryKey struct {
	date      string
	organizer string
	location  string
}

// Dedupe drops records whose (date, organizer, location) key repeats an
// earlier record. Survivors keep their input order.
func Dedupe(records []record.Normalized) []record.Normalized {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[primaryKey]struct{}, len(records))
	out := make([]record.Normalized, 0, len(records))
	for _, rec := range records {
		key := primaryKeyOf(rec)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

func primaryKeyOf(rec record.Normalized) primaryKey {
	return primaryKey{
		date:      rec.Date.Format(record.DateLayout),
		organizer: textnorm.Key(textnorm.StripCollaboration(rec.OrganizerRaw)),
		location:  rec.LocationKey,
	}
}

// Options configure the cross-calendar pass.
type Options struct {
	// Priority lists calendar ids from most to least trusted. Calendars not
	// listed rank below all listed ones.
	Priority  []string
	Threshold float64
	Measure   similarity.Measure
}

// AcrossSources merges same-day listings from different calendars whose
// organizer or location similarity exceeds the threshold, keeping the one
// from the higher-priority calendar. Equal priority keeps the earlier record.
// Listings from one calendar never merge here.
func AcrossSources(records []record.Normalized, opts Options) []record.Normalized {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	rank := priorityRanks(opts.Priority)

	current := records
	for {
		next := mergePass(current, rank, threshold, opts.Measure)
		if len(next) == len(current) {
			return next
		}
		current = next
	}
}

func mergePass(records []record.Normalized, rank func(string) int, threshold float64, measure similarity.Measure) []record.Normalized {
	out := make([]record.Normalized, 0, len(records))
	byDate := make(map[string][]int, len(records))

	for _, rec := range records {
		date := rec.Date.Format(record.DateLayout)
		merged := false
		for _, idx := range byDate[date] {
			if !sameMatch(out[idx], rec, threshold, measure) {
				continue
			}
			if rank(rec.SourceCalendarID) < rank(out[idx].SourceCalendarID) {
				out[idx] = rec
			}
			merged = true
			break
		}
		if merged {
			continue
		}
		byDate[date] = append(byDate[date], len(out))
		out = append(out, rec)
	}
	return out
}

func sameMatch(left, right record.Normalized, threshold float64, measure similarity.Measure) bool {
	if strings.EqualFold(left.SourceCalendarID, right.SourceCalendarID) {
		return false
	}
	if measure.Score(left.OrganizerRaw, right.OrganizerRaw) > threshold {
		return true
	}
	return measure.Score(left.LocationRaw, right.LocationRaw) > threshold
}

func priorityRanks(priority []string) func(string) int {
	ranks := make(map[string]int, len(priority))
	for i, calendar := range priority {
		key := strings.ToLower(strings.TrimSpace(calendar))
		if _, exists := ranks[key]; !exists {
			ranks[key] = i
		}
	}
	unknown := len(priority)
	return func(calendar string) int {
		if r, ok := ranks[strings.ToLower(strings.TrimSpace(calendar))]; ok {
			return r
		}
		return unknown
	}
}
