package model

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// RawEvent is one schedule row as extracted from the page, before any date
// has been normalized.
type RawEvent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Dates       []string `json:"dates"`
}

// PairKey identifies a calendar event for existence checks.
type PairKey struct {
	CalendarID string
	Title      string
	Date       civil.Date
}

func (k PairKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.CalendarID, k.Title, k.Date)
}
