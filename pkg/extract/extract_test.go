package extract

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/wastecal/pkg/model"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/schedule.html")
	require.NoError(t, err, "failed to load test fixture")
	return data
}

func TestExtractFixture(t *testing.T) {
	events, errs := New(DefaultLayout()).Extract(bytes.NewReader(loadFixture(t)))
	require.Empty(t, errs)

	want := []model.RawEvent{
		{Title: "Restmüll", Description: "08.01.2024", Dates: []string{"08.01.2024", "22.01.2024", "05.02.2024"}},
		{Title: "Bioabfall", Description: "03.01.2024", Dates: []string{"03.01.2024", "10.01.2024"}},
		{Title: "Wertstoff", Description: "12.01.2024", Dates: []string{"12.01.2024", "26.01.2024"}},
		{Title: "Altpapier", Description: "16.01.2024", Dates: []string{"16.01.2024"}},
	}
	assert.Equal(t, want, events)
}

func TestExtractDropsRowsAfterLayoutRows(t *testing.T) {
	data := loadFixture(t)
	events, _ := New(DefaultLayout()).Extract(bytes.NewReader(data))

	assert.Len(t, events, 4)
	for _, evt := range events {
		assert.NotEqual(t, "Hinweis", evt.Title)
	}
}

func TestExtractDeterministic(t *testing.T) {
	data := loadFixture(t)
	x := New(DefaultLayout())

	first, _ := x.Extract(bytes.NewReader(data))
	second, _ := x.Extract(bytes.NewReader(data))
	assert.Equal(t, first, second)
}

func TestSplitDates(t *testing.T) {
	cell := "<b>Mo. den 01.01.2024</b><br />Di. den 02.01.2024<br />Mi. den 03.01.2024"

	tokens := splitDates(cell, 2)
	assert.Equal(t, []string{"01.01.2024", "02.01.2024", "03.01.2024"}, tokens)
}

func TestSplitDatesShortLinesKeepPosition(t *testing.T) {
	tokens := splitDates("<B>Termine</B><br>Mo. den 01.01.2024<br/>", 2)
	assert.Equal(t, []string{"", "01.01.2024", ""}, tokens)
}

func TestExtractDescriptionAndTrim(t *testing.T) {
	page := `<table id="foo">
	<tr><td>x</td><td>Restmüll</td><td><b>Mo. den 01.01.2024</b><br />Di. den 02.01.2024<br />Mi. den 03.01.2024</td></tr>
	</table>`
	layout := DefaultLayout()
	layout.Rows = 1

	events, errs := New(layout).Extract(strings.NewReader(page))
	require.Empty(t, errs)
	require.Len(t, events, 1)
	assert.Equal(t, "01.01.2024", events[0].Description)
	assert.Equal(t, []string{"02.01.2024"}, events[0].Dates)
}

func TestExtractMalformedRowIsIsolated(t *testing.T) {
	page := `<table id="foo">
	<tr><td>x</td><td>Restmüll</td><td><b>a b 01.01.2024</b><br />a b 02.01.2024<br /></td></tr>
	<tr><td>x</td><td>only two cells</td></tr>
	<tr><td>x</td><td>Bioabfall</td><td><b>a b 03.01.2024</b><br />a b 03.01.2024<br /></td></tr>
	<tr><td>x</td><td>Altpapier</td><td><b>a b 04.01.2024</b><br />a b 04.01.2024<br /></td></tr>
	</table>`

	events, errs := New(DefaultLayout()).Extract(strings.NewReader(page))

	require.Len(t, errs, 1)
	var xerr *ExtractionError
	require.ErrorAs(t, errs[0], &xerr)
	assert.Equal(t, 1, xerr.Row)

	require.Len(t, events, 3)
	assert.Equal(t, "Restmüll", events[0].Title)
	assert.Equal(t, "Bioabfall", events[1].Title)
	assert.Equal(t, "Altpapier", events[2].Title)
}

func TestExtractEmptyTitleIsError(t *testing.T) {
	page := `<table id="foo"><tr><td>x</td><td>  </td><td>a b 01.01.2024</td></tr></table>`
	layout := DefaultLayout()
	layout.Rows = 1

	events, errs := New(layout).Extract(strings.NewReader(page))
	assert.Empty(t, events)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "empty title")
}

func TestExtractShortTable(t *testing.T) {
	page := `<table id="foo">
	<tr><td>x</td><td>Restmüll</td><td><b>a b 01.01.2024</b><br />a b 02.01.2024<br /></td></tr>
	</table>`

	events, errs := New(DefaultLayout()).Extract(strings.NewReader(page))

	require.Len(t, events, 1)
	require.Len(t, errs, 1)
	var xerr *ExtractionError
	require.ErrorAs(t, errs[0], &xerr)
	assert.Equal(t, -1, xerr.Row)
}

func TestExtractEmptyDatesCell(t *testing.T) {
	page := `<table id="foo"><tr><td>x</td><td>Restmüll</td><td></td></tr></table>`
	layout := DefaultLayout()
	layout.Rows = 1

	events, errs := New(layout).Extract(strings.NewReader(page))
	require.Empty(t, errs)
	require.Len(t, events, 1)
	assert.Equal(t, "", events[0].Description)
	assert.Empty(t, events[0].Dates)
}

func TestExtractCustomLayout(t *testing.T) {
	page := `<table class="plan">
	<tr><td>Gelber Sack</td><td>x</td><td><b>01-02-2024</b><br />01-02-2024<br />15-02-2024<br /></td></tr>
	</table>`
	layout := Layout{RowSelector: "table.plan tr", Rows: 1, TitleCell: 0, DatesCell: 2, DateToken: 0}

	events, errs := New(layout).Extract(strings.NewReader(page))
	require.Empty(t, errs)
	require.Len(t, events, 1)
	assert.Equal(t, "Gelber Sack", events[0].Title)
	assert.Equal(t, []string{"01-02-2024", "15-02-2024"}, events[0].Dates)
}
