package models

import "time"

// ViewMode selects between the weekly and monthly dashboard layouts.
type ViewMode string

const (
	ViewWeek  ViewMode = "semanal"
	ViewMonth ViewMode = "mensal"
)

// ParseViewMode maps a query value onto a ViewMode, defaulting to weekly.
func ParseViewMode(raw string) ViewMode {
	if ViewMode(raw) == ViewMonth {
		return ViewMonth
	}
	return ViewWeek
}

// CalendarDay is one ephemeral cell of the dashboard grid. It is computed
// per render and never persisted.
type CalendarDay struct {
	Date    time.Time `json:"-"`
	Day     int       `json:"day"`
	ISODate string    `json:"full_date"`
	InMonth bool      `json:"in_month"`
}

// CalendarWindow is the computed span of days shown by the dashboard plus
// the inclusive date range to fetch lessons for.
type CalendarWindow struct {
	Mode       ViewMode      `json:"mode"`
	Offset     int           `json:"offset"`
	Label      string        `json:"label"`
	Days       []CalendarDay `json:"days"`
	RangeStart time.Time     `json:"range_start"`
	RangeEnd   time.Time     `json:"range_end"`
}
