// Package textnorm canonicalizes the free-text organizer, location and type
// strings found in calendar listings.
package textnorm

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	xhtml "golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// stopWords are generic legal-form words that say nothing about which club
// organizes a match. They are removed by Key only.
var stopWords = map[string]struct{}{
	"stichting":           {},
	"vereniging":          {},
	"jachtvereniging":     {},
	"kynologenvereniging": {},
	"club":                {},
	"kc":                  {},
	"kring":               {},
}

var (
	emailArtifactPattern = regexp.MustCompile(`(?i)\[email[^\]]*protected\]|\[email[^\]]*\]`)
	emailAddressPattern  = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	startTimePattern     = regexp.MustCompile(`(?i)aanvang:?\s*\d{1,2}[:.]\d{2}(\s*uur)?`)
	collaborationPattern = regexp.MustCompile(`(?i)(\bi\.\s?s\.\s?m\.?:?|\bin samenwerking met\b).*$`)
)

// Normalize returns the comparison form of raw: entities decoded, tags
// stripped, NFC composed, lowercased, punctuation removed and whitespace
// collapsed. It never fails; garbage in yields "".
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := stripTags(html.UnescapeString(raw))
	text = norm.NFC.String(text)
	text = strings.ToLower(collapseSpace(text))

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.Is(unicode.Mn, r):
			// combining marks that did not compose stay attached to their letter
			b.WriteRune(r)
		}
	}
	return collapseSpace(b.String())
}

// Key is Normalize with generic association words removed. Use it to compare
// organizers, never to display them.
func Key(raw string) string {
	normalized := Normalize(raw)
	if normalized == "" {
		return ""
	}

	fields := strings.Fields(normalized)
	kept := fields[:0]
	for _, field := range fields {
		if _, stop := stopWords[field]; stop {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

// CleanDisplay removes scraping artifacts (obfuscated email placeholders,
// start times) from a display string while keeping its casing.
func CleanDisplay(raw string) string {
	text := html.UnescapeString(raw)
	text = emailArtifactPattern.ReplaceAllString(text, " ")
	text = startTimePattern.ReplaceAllString(text, " ")
	text = collapseSpace(text)
	return strings.Trim(text, " ,;-|")
}

// StripCollaboration drops "i.s.m. X" / "in samenwerking met X" tails and
// contact email fragments from an organizer string.
func StripCollaboration(raw string) string {
	text := CleanDisplay(raw)
	text = emailAddressPattern.ReplaceAllString(text, " ")
	text = collaborationPattern.ReplaceAllString(text, "")
	text = collapseSpace(text)
	return strings.Trim(text, " ,;-|")
}

func stripTags(input string) string {
	if !strings.ContainsRune(input, '<') {
		return input
	}

	tokenizer := xhtml.NewTokenizer(strings.NewReader(input))
	var b strings.Builder
	b.Grow(len(input))
	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			return b.String()
		case xhtml.TextToken:
			b.Write(tokenizer.Text())
		case xhtml.StartTagToken, xhtml.EndTagToken, xhtml.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

func collapseSpace(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
