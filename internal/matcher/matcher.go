// Package matcher pairs listings from two collections that describe the same
// match, using exact dates plus weighted organizer/location similarity.
package matcher

import (
	"errors"
	"fmt"
	"math"
	"time"

	"horse.fit/jachtproef/internal/record"
	"horse.fit/jachtproef/internal/similarity"
)

const (
	// DefaultThreshold is used for general cross-calendar reconciliation.
	DefaultThreshold = 0.6
	// CorrectionThreshold is used with LocationAnchored weights.
	CorrectionThreshold = 0.5
	// DefaultAdjacentOrganizerFloor is the organizer similarity a ±1 day
	// candidate must exceed.
	DefaultAdjacentOrganizerFloor = 0.7

	maxThreshold  = 0.999
	weightEpsilon = 1e-9
)

var ErrInvalidWeights = errors.New("invalid matcher weights")

// Weights for the combined score. They must be non-negative and sum to 1.
type Weights struct {
	Organizer float64
	Location  float64
}

var (
	// DefaultWeights trust the organizer over the location.
	DefaultWeights = Weights{Organizer: 0.7, Location: 0.3}
	// LocationAnchored is for listings whose organizer field is unreliable.
	LocationAnchored = Weights{Organizer: 0.3, Location: 0.7}
)

func (w Weights) Validate() error {
	if w.Organizer < 0 || w.Location < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidWeights)
	}
	if math.Abs(w.Organizer+w.Location-1) > weightEpsilon {
		return fmt.Errorf("%w: weights sum to %.3f", ErrInvalidWeights, w.Organizer+w.Location)
	}
	return nil
}

// Strategy says how a pair was found.
type Strategy string

const (
	StrategyNone         Strategy = "none"
	StrategyExactDate    Strategy = "exact_date"
	StrategyAdjacentDate Strategy = "adjacent_date"
)

// AdjacentOptions enable the ±1 day fallback for left records the exact-date
// pass left unmatched.
type AdjacentOptions struct {
	OrganizerFloor float64
}

type Options struct {
	Weights   Weights
	Threshold float64
	Adjacent  *AdjacentOptions
	// Measure picks the string similarity fallback; empty means overlap.
	Measure similarity.Measure
}

// DefaultOptions returns organizer-weighted matching at DefaultThreshold.
func DefaultOptions() Options {
	return Options{Weights: DefaultWeights, Threshold: DefaultThreshold}
}

// Candidate is one scored pairing.
type Candidate struct {
	Left                *record.Normalized
	Right               *record.Normalized
	OrganizerSimilarity float64
	LocationSimilarity  float64
	Score               float64
	Strategy            Strategy
}

// Result is the outcome for one left record. Right is nil when unmatched.
type Result struct {
	Left                record.Normalized
	Right               *record.Normalized
	Score               float64
	OrganizerSimilarity float64
	LocationSimilarity  float64
	Strategy            Strategy
}

func (r Result) Matched() bool {
	return r.Right != nil
}

// Match finds the best counterpart in right for every record in left. The
// returned slice is parallel to left. Ties resolve to the earliest right
// record.
func Match(left, right []record.Normalized, opts Options) ([]Result, error) {
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	threshold := clampThreshold(opts.Threshold)

	index := indexByDate(right)
	results := make([]Result, len(left))
	for i := range left {
		results[i] = Result{Left: left[i], Strategy: StrategyNone}

		best, ok := bestExact(&left[i], right, index, opts.Weights, opts.Measure)
		if ok && best.Score > threshold {
			results[i] = best.result()
			continue
		}
		if opts.Adjacent == nil {
			continue
		}
		if adjacent, ok := bestAdjacent(&left[i], right, index, adjacentFloor(opts.Adjacent), opts.Measure); ok {
			results[i] = adjacent.result()
		}
	}
	return results, nil
}

func bestExact(left *record.Normalized, right []record.Normalized, index map[string][]int, weights Weights, measure similarity.Measure) (Candidate, bool) {
	var best Candidate
	found := false
	for _, idx := range index[dateKey(left.Date)] {
		candidate := scoreWith(measure, left, &right[idx], weights)
		if !found || candidate.Score > best.Score {
			best = candidate
			found = true
		}
	}
	return best, found
}

func bestAdjacent(left *record.Normalized, right []record.Normalized, index map[string][]int, floor float64, measure similarity.Measure) (Candidate, bool) {
	var best Candidate
	found := false
	for _, offset := range []int{-1, 1} {
		day := left.Date.AddDate(0, 0, offset)
		for _, idx := range index[dateKey(day)] {
			orgSim := measure.Score(left.OrganizerRaw, right[idx].OrganizerRaw)
			if orgSim <= floor {
				continue
			}
			if found && orgSim <= best.Score {
				continue
			}
			best = Candidate{
				Left:                left,
				Right:               &right[idx],
				OrganizerSimilarity: orgSim,
				LocationSimilarity:  measure.Score(left.LocationRaw, right[idx].LocationRaw),
				Score:               orgSim,
				Strategy:            StrategyAdjacentDate,
			}
			found = true
		}
	}
	return best, found
}

// Score computes the weighted similarity of two same-day records.
func Score(left, right *record.Normalized, weights Weights) Candidate {
	return scoreWith(similarity.MeasureOverlap, left, right, weights)
}

func scoreWith(measure similarity.Measure, left, right *record.Normalized, weights Weights) Candidate {
	orgSim := measure.Score(left.OrganizerRaw, right.OrganizerRaw)
	locSim := measure.Score(left.LocationRaw, right.LocationRaw)
	return Candidate{
		Left:                left,
		Right:               right,
		OrganizerSimilarity: orgSim,
		LocationSimilarity:  locSim,
		Score:               orgSim*weights.Organizer + locSim*weights.Location,
		Strategy:            StrategyExactDate,
	}
}

func (c Candidate) result() Result {
	right := *c.Right
	return Result{
		Left:                *c.Left,
		Right:               &right,
		Score:               c.Score,
		OrganizerSimilarity: c.OrganizerSimilarity,
		LocationSimilarity:  c.LocationSimilarity,
		Strategy:            c.Strategy,
	}
}

func indexByDate(records []record.Normalized) map[string][]int {
	index := make(map[string][]int, len(records))
	for i := range records {
		key := dateKey(records[i].Date)
		index[key] = append(index[key], i)
	}
	return index
}

func dateKey(t time.Time) string {
	return t.Format(record.DateLayout)
}

func clampThreshold(threshold float64) float64 {
	switch {
	case threshold < 0:
		return 0
	case threshold > maxThreshold:
		return maxThreshold
	default:
		return threshold
	}
}

func adjacentFloor(opts *AdjacentOptions) float64 {
	if opts == nil || opts.OrganizerFloor <= 0 {
		return DefaultAdjacentOrganizerFloor
	}
	return opts.OrganizerFloor
}
