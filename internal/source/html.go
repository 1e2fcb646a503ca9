package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"horse.fit/jachtproef/internal/record"
)

const defaultTableSelector = "table.table"

// Calendar table columns on the listing site.
const (
	colDate = iota
	colType
	colOrganizer
	colLocation
	colRemarks
	colRegistration
)

const minColumns = colLocation + 1

// HTMLSource reads a saved calendar page and maps its table rows to raw
// listings.
type HTMLSource struct {
	name       string
	calendarID string
	path       string
	selector   string
}

func NewHTMLSource(name, calendarID, path, selector string) *HTMLSource {
	if strings.TrimSpace(selector) == "" {
		selector = defaultTableSelector
	}
	return &HTMLSource{
		name:       name,
		calendarID: calendarID,
		path:       path,
		selector:   selector,
	}
}

func (s *HTMLSource) Name() string { return s.name }

func (s *HTMLSource) Fetch(ctx context.Context) ([]record.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open calendar page %s: %w", s.path, err)
	}
	defer f.Close()

	return ParseCalendarTable(f, s.calendarID, s.selector)
}

// ParseCalendarTable extracts listings from every row with at least the
// date, type, organizer and location cells. Header rows have no td cells and
// are skipped.
func ParseCalendarTable(r io.Reader, calendarID, selector string) ([]record.Raw, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	if strings.TrimSpace(selector) == "" {
		selector = defaultTableSelector
	}

	tables := doc.Find(selector)
	if tables.Length() == 0 {
		return nil, fmt.Errorf("no calendar table matches %q", selector)
	}

	records := make([]record.Raw, 0)
	tables.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minColumns {
			return
		}

		raw := record.Raw{
			Date:             cellText(cells, colDate),
			TypeLabel:        cellText(cells, colType),
			Organizer:        cellText(cells, colOrganizer),
			Location:         cellText(cells, colLocation),
			Remarks:          cellText(cells, colRemarks),
			RegistrationText: cellText(cells, colRegistration),
			SourceCalendarID: calendarID,
		}
		records = append(records, raw)
	})
	return records, nil
}

func cellText(cells *goquery.Selection, idx int) string {
	if idx >= cells.Length() {
		return ""
	}
	cell := cells.Eq(idx)
	cell.Find("br").ReplaceWithHtml(" ")
	text := strings.ReplaceAll(cell.Text(), `\`, "")
	return strings.Join(strings.Fields(text), " ")
}
