// Package taxonomy maps free-text event labels onto the canonical match type
// codes. The mapping depends on which calendar a label was published in.
package taxonomy

import (
	"regexp"
	"strings"
	"unicode"

	"horse.fit/jachtproef/internal/textnorm"
)

// Calendar identifiers as published by the source site.
const (
	CalendarFieldTrial  = "Veldwedstrijd"
	CalendarProficiency = "Jachthondenproef"
	CalendarWorkingTest = "ORWEJA Werktest"
)

// Canonical type codes.
const (
	CodeFieldTrial = "Veldwedstrijd"
	CodeSJP        = "SJP"
	CodeMAP        = "MAP"
	CodePJP        = "PJP"
	CodeTAP        = "TAP"
	CodeKAP        = "KAP"
	CodeSWT        = "SWT"
	CodeOWT        = "OWT"
)

const (
	internationalQualifierPrefix = "Internationale kwalificatie: "
	nationalQualifierPrefix      = "Kwalificatie: "
)

// Result is the outcome of classifying one label.
type Result struct {
	Code   string
	Detail string
	// Fallthrough is set when a rule table exists for the calendar but no rule
	// matched, so Code carries the label verbatim.
	Fallthrough bool
}

// Rule maps a label to Code when any of its phrases (substring) or words
// (whole word) occur in the lowercased label.
type Rule struct {
	Code    string
	Phrases []string
	Words   []string
}

// ProficiencyRules is evaluated top to bottom; the first hit wins. Append new
// rules at the end.
var ProficiencyRules = []Rule{
	{Code: CodeSJP, Phrases: []string{"standaard jachthonden"}},
	{Code: CodeMAP, Phrases: []string{"middelgrote apporteur"}, Words: []string{"map"}},
	{Code: CodePJP, Phrases: []string{"praktijk jacht", "provinciale jachthonden"}, Words: []string{"pjp"}},
	{Code: CodeTAP, Phrases: []string{"terrier apporteur", "team apporteer"}, Words: []string{"tap"}},
	{Code: CodeKAP, Phrases: []string{"kleine apporteur"}, Words: []string{"kap"}},
	{Code: CodeSWT, Phrases: []string{"stöberhunde", "spaniël workingtest", "spaniel workingtest"}, Words: []string{"swt"}},
	{Code: CodeOWT, Phrases: []string{"orweja werktest"}, Words: []string{"owt"}},
}

var (
	internationalMarker = regexp.MustCompile(`(?i)cacit`)
	nationalMarker      = regexp.MustCompile(`(?i)cac`)
)

// Classifier holds the ordered rule tables per calendar.
type Classifier struct {
	rules map[string][]Rule
}

// NewClassifier returns a classifier with the built-in tables plus extra
// rules appended per calendar. Extra rules for the field trial calendar are
// ignored; every field trial label is a Veldwedstrijd.
func NewClassifier(extra map[string][]Rule) *Classifier {
	rules := map[string][]Rule{
		CalendarProficiency: append([]Rule(nil), ProficiencyRules...),
	}
	for calendar, list := range extra {
		calendar = strings.TrimSpace(calendar)
		if calendar == CalendarFieldTrial {
			continue
		}
		rules[calendar] = append(rules[calendar], list...)
	}
	return &Classifier{rules: rules}
}

// Default uses only the built-in rules.
var Default = NewClassifier(nil)

// Classify resolves a raw label with the built-in rules.
func Classify(label, calendarID string) Result {
	return Default.Classify(label, calendarID)
}

// Classify resolves a raw label published in calendarID.
func (c *Classifier) Classify(label, calendarID string) Result {
	cleaned := textnorm.CleanDisplay(label)
	calendarID = strings.TrimSpace(calendarID)

	if calendarID == CalendarFieldTrial {
		return classifyFieldTrial(cleaned)
	}
	if rules, ok := c.rules[calendarID]; ok {
		return classifyByRules(cleaned, rules)
	}
	return Result{Code: cleaned, Fallthrough: cleaned == ""}
}

func classifyFieldTrial(label string) Result {
	result := Result{Code: CodeFieldTrial}
	switch {
	case internationalMarker.MatchString(label):
		result.Detail = internationalQualifierPrefix + label
	case nationalMarker.MatchString(label):
		result.Detail = nationalQualifierPrefix + label
	}
	return result
}

func classifyByRules(label string, rules []Rule) Result {
	lowered := strings.ToLower(label)
	normalized := textnorm.Normalize(label)
	words := make(map[string]struct{})
	// split on punctuation so "KAP/MAP" yields both codes
	for _, word := range strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		words[word] = struct{}{}
	}

	for _, rule := range rules {
		if rule.matches(lowered, normalized, words) {
			return Result{Code: rule.Code}
		}
	}
	return Result{Code: label, Fallthrough: true}
}

func (r Rule) matches(lowered, normalized string, words map[string]struct{}) bool {
	for _, phrase := range r.Phrases {
		phrase = strings.ToLower(phrase)
		if strings.Contains(lowered, phrase) || strings.Contains(normalized, phrase) {
			return true
		}
	}
	for _, word := range r.Words {
		if _, ok := words[strings.ToLower(word)]; ok {
			return true
		}
	}
	return false
}
