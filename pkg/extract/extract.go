package extract

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/harrisonrobin/wastecal/pkg/model"
)

// Layout pins down where the schedule lives on the page. The defaults match
// the one page this tool understands; they are configurable, not generic.
type Layout struct {
	RowSelector string `yaml:"table_selector"`
	// Rows is how many leading rows are real schedule rows. Everything after
	// them is filler and is dropped.
	Rows      int `yaml:"rows"`
	TitleCell int `yaml:"title_cell"`
	DatesCell int `yaml:"dates_cell"`
	// DateToken is the whitespace-separated token of each dates-cell line
	// that holds the date, e.g. "Mo. den 08.01.2024" -> index 2.
	DateToken int `yaml:"date_token"`
}

func DefaultLayout() Layout {
	return Layout{
		RowSelector: "#foo tr",
		Rows:        4,
		TitleCell:   1,
		DatesCell:   2,
		DateToken:   2,
	}
}

// ExtractionError reports a schedule row that does not have the expected
// cell structure. Row is the zero-based index among the selected rows, or -1
// for table-level problems.
type ExtractionError struct {
	Row    int
	Reason string
}

func (e *ExtractionError) Error() string {
	if e.Row < 0 {
		return "schedule table: " + e.Reason
	}
	return fmt.Sprintf("schedule row %d: %s", e.Row, e.Reason)
}

var (
	boldTag   = regexp.MustCompile(`(?i)</?b\s*>`)
	lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// Extractor parses the schedule page into raw events.
type Extractor struct {
	layout Layout
}

func New(layout Layout) *Extractor {
	return &Extractor{layout: layout}
}

// Extract returns one RawEvent per well-formed schedule row, in page order.
// Malformed rows are reported in the error slice and skipped; they never
// abort the rest of the table.
func (x *Extractor) Extract(r io.Reader) ([]model.RawEvent, []error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, []error{fmt.Errorf("parsing HTML: %w", err)}
	}

	var errs []error
	rows := doc.Find(x.layout.RowSelector)
	if rows.Length() < x.layout.Rows {
		errs = append(errs, &ExtractionError{
			Row:    -1,
			Reason: fmt.Sprintf("found %d rows, expected at least %d", rows.Length(), x.layout.Rows),
		})
	}

	events := make([]model.RawEvent, 0, x.layout.Rows)
	rows.Slice(0, min(rows.Length(), x.layout.Rows)).Each(func(i int, row *goquery.Selection) {
		evt, err := x.parseRow(i, row)
		if err != nil {
			errs = append(errs, err)
			return
		}
		events = append(events, evt)
	})

	return events, errs
}

func (x *Extractor) parseRow(i int, row *goquery.Selection) (model.RawEvent, error) {
	cells := row.Find("td")
	need := max(x.layout.TitleCell, x.layout.DatesCell) + 1
	if cells.Length() < need {
		return model.RawEvent{}, &ExtractionError{
			Row:    i,
			Reason: fmt.Sprintf("has %d cells, need %d", cells.Length(), need),
		}
	}

	title := strings.Join(strings.Fields(cells.Eq(x.layout.TitleCell).Text()), " ")
	if title == "" {
		return model.RawEvent{}, &ExtractionError{Row: i, Reason: "empty title cell"}
	}

	inner, err := cells.Eq(x.layout.DatesCell).Html()
	if err != nil {
		return model.RawEvent{}, &ExtractionError{Row: i, Reason: "rendering dates cell: " + err.Error()}
	}

	tokens := splitDates(inner, x.layout.DateToken)
	evt := model.RawEvent{
		Title:       title,
		Description: tokens[0],
		Dates:       []string{},
	}
	// The first line is the header, the last the trailing break.
	if len(tokens) > 2 {
		evt.Dates = tokens[1 : len(tokens)-1]
	}
	return evt, nil
}

// splitDates strips bold tags from a dates cell, splits it on line breaks and
// picks the token at index from each line. Lines too short to have that
// token contribute "", keeping positions stable for the first/last trim.
// The result always has at least one element.
func splitDates(cellHTML string, index int) []string {
	plain := boldTag.ReplaceAllString(cellHTML, "")
	lines := lineBreak.Split(plain, -1)

	tokens := make([]string, len(lines))
	for i, line := range lines {
		fields := strings.Fields(html.UnescapeString(line))
		if index < len(fields) {
			tokens[i] = fields[index]
		}
	}
	return tokens
}
