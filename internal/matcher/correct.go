package matcher

import (
	"strings"

	"horse.fit/jachtproef/internal/record"
)

// DefaultGenericCodes are legacy catch-all type codes whose listings usually
// duplicate a more specific listing elsewhere.
var DefaultGenericCodes = []string{"KNJV"}

// Correction configures the generic-type correction pass.
type Correction struct {
	GenericCodes []string
	Options      Options
}

// DefaultCorrection is location-anchored matching at CorrectionThreshold.
func DefaultCorrection() Correction {
	return Correction{
		GenericCodes: DefaultGenericCodes,
		Options:      Options{Weights: LocationAnchored, Threshold: CorrectionThreshold},
	}
}

// Correct matches records carrying a generic type code against the specific
// records and drops the generic ones that found a counterpart. It returns the
// remaining records in input order and the accepted matches.
func Correct(records []record.Normalized, c Correction) ([]record.Normalized, []Result, error) {
	generic := make(map[string]struct{}, len(c.GenericCodes))
	for _, code := range c.GenericCodes {
		generic[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}

	var left, right []record.Normalized
	var leftPositions []int
	for i, rec := range records {
		if _, ok := generic[strings.ToUpper(strings.TrimSpace(rec.TypeCode))]; ok {
			left = append(left, rec)
			leftPositions = append(leftPositions, i)
			continue
		}
		right = append(right, rec)
	}
	if len(left) == 0 {
		return records, nil, nil
	}

	results, err := Match(left, right, c.Options)
	if err != nil {
		return nil, nil, err
	}

	dropped := make(map[int]struct{}, len(results))
	var corrected []Result
	for i, res := range results {
		if !res.Matched() {
			continue
		}
		dropped[leftPositions[i]] = struct{}{}
		corrected = append(corrected, res)
	}

	kept := make([]record.Normalized, 0, len(records)-len(dropped))
	for i, rec := range records {
		if _, ok := dropped[i]; ok {
			continue
		}
		kept = append(kept, rec)
	}
	return kept, corrected, nil
}
