package ics

import (
	"bytes"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/wastecal/pkg/model"
)

var stamp = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestWriteAllDayEvents(t *testing.T) {
	events := []model.RawEvent{
		{Title: "Restmüll", Description: "08.01.2024", Dates: []string{"08.01.2024", "22.01.2024"}},
		{Title: "Bioabfall", Dates: []string{"03.01.2024", "kein Datum"}},
	}

	var buf bytes.Buffer
	errs, err := Write(&buf, events, Options{Location: "Sengestr. 1", Stamp: stamp})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Bioabfall")

	cal, err := ical.ParseCalendar(&buf)
	require.NoError(t, err)
	require.Len(t, cal.Events(), 3)

	first := cal.Events()[0]
	assert.Equal(t, "Restmüll", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "08.01.2024", first.GetProperty(ical.ComponentPropertyDescription).Value)
	assert.Equal(t, "Sengestr. 1", first.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "20240108", first.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240109", first.GetProperty(ical.ComponentPropertyDtEnd).Value)

	third := cal.Events()[2]
	assert.Nil(t, third.GetProperty(ical.ComponentPropertyDescription))
}

func TestBuildStableUIDs(t *testing.T) {
	events := []model.RawEvent{{Title: "Altpapier", Dates: []string{"16.01.2024"}}}

	a, _ := Build(events, Options{Stamp: stamp})
	b, _ := Build(events, Options{Stamp: stamp})
	assert.Equal(t, a.Events()[0].Id(), b.Events()[0].Id())
	assert.Equal(t, a.Serialize(), b.Serialize())
}

func TestBuildSkipsRepeatedPairs(t *testing.T) {
	events := []model.RawEvent{
		{Title: "Wertstoff", Dates: []string{"12.01.2024", "12.1.2024"}},
	}
	cal, errs := Build(events, Options{Stamp: stamp})
	assert.Empty(t, errs)
	assert.Len(t, cal.Events(), 1)
}
