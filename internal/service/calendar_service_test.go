package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/config"
)

type lessonRangeStub struct {
	lessons []models.Lesson
	err     error
	calls   int
}

func (s *lessonRangeStub) ListForRange(ctx context.Context, userID string, start, end time.Time) ([]models.Lesson, error) {
	s.calls++
	return s.lessons, s.err
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildWindowWeekStartsOnSunday(t *testing.T) {
	svc := NewCalendarService(&lessonRangeStub{}, nil, config.DashboardConfig{}, nil)

	// 2026-08-26 is a Wednesday.
	window := svc.BuildWindow(models.ViewWeek, 0, day(2026, time.August, 26))

	require.Len(t, window.Days, 7)
	assert.Equal(t, time.Sunday, window.Days[0].Date.Weekday())
	assert.Equal(t, "2026-08-23", window.Days[0].ISODate)
	assert.Equal(t, "2026-08-29", window.Days[6].ISODate)
	assert.Equal(t, "Semana de 23/08 a 29/08", window.Label)
	assert.Equal(t, window.Days[0].Date, window.RangeStart)
	assert.Equal(t, window.Days[6].Date, window.RangeEnd)
	for _, d := range window.Days {
		assert.True(t, d.InMonth)
	}
}

func TestBuildWindowWeekOffset(t *testing.T) {
	svc := NewCalendarService(&lessonRangeStub{}, nil, config.DashboardConfig{}, nil)

	window := svc.BuildWindow(models.ViewWeek, -2, day(2026, time.August, 26))
	assert.Equal(t, "2026-08-09", window.Days[0].ISODate)

	window = svc.BuildWindow(models.ViewWeek, 1, day(2026, time.August, 26))
	assert.Equal(t, "2026-08-30", window.Days[0].ISODate)
}

func TestBuildWindowMonthRollsBackAcrossYear(t *testing.T) {
	svc := NewCalendarService(&lessonRangeStub{}, nil, config.DashboardConfig{}, nil)

	window := svc.BuildWindow(models.ViewMonth, -1, day(2026, time.January, 15))

	assert.Equal(t, "Dezembro 2025", window.Label)
	first := firstInMonth(window.Days)
	require.NotNil(t, first)
	assert.Equal(t, "2025-12-01", first.ISODate)
}

func TestBuildWindowMonthRollsForwardAcrossYear(t *testing.T) {
	svc := NewCalendarService(&lessonRangeStub{}, nil, config.DashboardConfig{}, nil)

	window := svc.BuildWindow(models.ViewMonth, 13, day(2026, time.March, 10))

	assert.Equal(t, "Abril 2027", window.Label)
	first := firstInMonth(window.Days)
	require.NotNil(t, first)
	assert.Equal(t, "2027-04-01", first.ISODate)
}

func TestBuildWindowMonthGridIsWholeWeeks(t *testing.T) {
	svc := NewCalendarService(&lessonRangeStub{}, nil, config.DashboardConfig{}, nil)

	// August 2026 starts on a Saturday and ends on a Monday, so the grid
	// needs padding on both sides.
	window := svc.BuildWindow(models.ViewMonth, 0, day(2026, time.August, 10))

	require.NotEmpty(t, window.Days)
	assert.Equal(t, 0, len(window.Days)%7)
	assert.Equal(t, time.Sunday, window.Days[0].Date.Weekday())
	assert.Equal(t, time.Saturday, window.Days[len(window.Days)-1].Date.Weekday())
	assert.False(t, window.Days[0].InMonth)
	assert.Equal(t, "Agosto 2026", window.Label)
}

func firstInMonth(days []models.CalendarDay) *models.CalendarDay {
	for i := range days {
		if days[i].InMonth {
			return &days[i]
		}
	}
	return nil
}

func TestProjectLayoutBucketsAndCoerces(t *testing.T) {
	svc := NewCalendarService(&lessonRangeStub{}, nil, config.DashboardConfig{}, nil)
	window := svc.BuildWindow(models.ViewWeek, 0, day(2026, time.August, 26))

	lessons := []models.Lesson{
		{ID: "a", Date: day(2026, time.August, 24), Shift: models.ShiftMorning},
		{ID: "b", Date: day(2026, time.August, 24), Shift: "Madrugada"},
		{ID: "c", Date: day(2026, time.September, 24), Shift: models.ShiftMorning},
	}
	layout := ProjectLayout(window, lessons)

	require.Len(t, layout, 7)
	cell := layout["2026-08-24"]
	require.NotNil(t, cell)
	require.Len(t, cell[models.ShiftMorning], 1)
	assert.Equal(t, "a", cell[models.ShiftMorning][0].ID)

	// Unknown shift lands in the evening bucket.
	require.Len(t, cell[models.ShiftEvening], 1)
	assert.Equal(t, "b", cell[models.ShiftEvening][0].ID)

	// Out-of-window lessons are dropped entirely.
	for _, shifts := range layout {
		for _, bucket := range shifts {
			for _, lesson := range bucket {
				assert.NotEqual(t, "c", lesson.ID)
			}
		}
	}
}

func TestDashboardLoadsRangeFromWindow(t *testing.T) {
	stub := &lessonRangeStub{lessons: []models.Lesson{
		{ID: "a", Date: day(2026, time.August, 24), Shift: models.ShiftAfternoon},
	}}
	svc := NewCalendarService(stub, nil, config.DashboardConfig{}, nil)
	svc.now = func() time.Time { return day(2026, time.August, 26) }

	resp, err := svc.Dashboard(context.Background(), "user-1", models.ViewWeek, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, models.ViewWeek, resp.Window.Mode)
	assert.Len(t, resp.Lessons["2026-08-24"][models.ShiftAfternoon], 1)
	assert.Equal(t, models.Shifts(), resp.Shifts)
}
