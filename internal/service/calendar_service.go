package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/config"
	appErrors "github.com/omenezes/aula-planner-api/pkg/errors"
)

type calendarLessonRepository interface {
	ListForRange(ctx context.Context, userID string, start, end time.Time) ([]models.Lesson, error)
}

// CalendarService computes the dashboard: the calendar window for the
// requested view and offset, and the user's lessons projected onto it.
type CalendarService struct {
	lessons calendarLessonRepository
	cache   *CacheService
	cfg     config.DashboardConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewCalendarService constructs the service.
func NewCalendarService(lessons calendarLessonRepository, cache *CacheService, cfg config.DashboardConfig, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{lessons: lessons, cache: cache, cfg: cfg, logger: logger, now: time.Now}
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// DashboardResponse is the rendered dashboard payload. Lessons are keyed by
// ISO date, then by shift, preserving chronological order inside each cell.
type DashboardResponse struct {
	Window  models.CalendarWindow                       `json:"window"`
	Shifts  []models.Shift                              `json:"shifts"`
	Lessons map[string]map[models.Shift][]models.Lesson `json:"lessons"`
}

// Dashboard renders the window at the given view and offset, serving from
// cache when a fresh copy exists.
func (s *CalendarService) Dashboard(ctx context.Context, userID string, mode models.ViewMode, offset int) (*DashboardResponse, error) {
	var key string
	if s.cfg.CacheEnabled && s.cache != nil {
		key = s.cache.DashboardKey(userID, mode, offset)
		var cached DashboardResponse
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	window := s.BuildWindow(mode, offset, s.now())
	lessons, err := s.lessons.ListForRange(ctx, userID, window.RangeStart, window.RangeEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons for dashboard")
	}

	resp := &DashboardResponse{
		Window:  window,
		Shifts:  models.Shifts(),
		Lessons: ProjectLayout(window, lessons),
	}

	if key != "" {
		s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	}
	return resp, nil
}

// BuildWindow computes the span of days the dashboard shows. Weeks start on
// Sunday; months are padded with leading and trailing out-of-month days so
// the grid always holds whole weeks.
func (s *CalendarService) BuildWindow(mode models.ViewMode, offset int, now time.Time) models.CalendarWindow {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if mode == models.ViewMonth {
		return buildMonthWindow(today, offset)
	}
	return buildWeekWindow(today, offset)
}

func buildWeekWindow(today time.Time, offset int) models.CalendarWindow {
	start := today.AddDate(0, 0, -int(today.Weekday())+7*offset)
	days := make([]models.CalendarDay, 0, 7)
	for i := 0; i < 7; i++ {
		d := start.AddDate(0, 0, i)
		days = append(days, models.CalendarDay{
			Date:    d,
			Day:     d.Day(),
			ISODate: d.Format("2006-01-02"),
			InMonth: true,
		})
	}
	end := days[6].Date
	return models.CalendarWindow{
		Mode:       models.ViewWeek,
		Offset:     offset,
		Label:      fmt.Sprintf("Semana de %s a %s", start.Format("02/01"), end.Format("02/01")),
		Days:       days,
		RangeStart: start,
		RangeEnd:   end,
	}
}

func buildMonthWindow(today time.Time, offset int) models.CalendarWindow {
	// Normalized so offset -1 in January lands on December of the
	// previous year, and large offsets roll the year forward.
	shifted := int(today.Month()) - 1 + offset
	month := time.Month((shifted%12+12)%12 + 1)
	year := today.Year()
	if shifted >= 0 {
		year += shifted / 12
	} else {
		year += (shifted - 11) / 12
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	gridStart := first.AddDate(0, 0, -int(first.Weekday()))
	gridEnd := last.AddDate(0, 0, 6-int(last.Weekday()))

	var days []models.CalendarDay
	for d := gridStart; !d.After(gridEnd); d = d.AddDate(0, 0, 1) {
		days = append(days, models.CalendarDay{
			Date:    d,
			Day:     d.Day(),
			ISODate: d.Format("2006-01-02"),
			InMonth: d.Month() == month && d.Year() == year,
		})
	}

	return models.CalendarWindow{
		Mode:       models.ViewMonth,
		Offset:     offset,
		Label:      fmt.Sprintf("%s %d", monthNames[month-1], year),
		Days:       days,
		RangeStart: gridStart,
		RangeEnd:   gridEnd,
	}
}

// ProjectLayout buckets lessons by day and shift. Lessons dated outside the
// window are dropped; an unknown shift lands in the evening bucket.
func ProjectLayout(window models.CalendarWindow, lessons []models.Lesson) map[string]map[models.Shift][]models.Lesson {
	layout := make(map[string]map[models.Shift][]models.Lesson, len(window.Days))
	for _, day := range window.Days {
		cell := make(map[models.Shift][]models.Lesson, len(models.Shifts()))
		for _, shift := range models.Shifts() {
			cell[shift] = []models.Lesson{}
		}
		layout[day.ISODate] = cell
	}

	for _, lesson := range lessons {
		key := lesson.Date.Format("2006-01-02")
		cell, ok := layout[key]
		if !ok {
			continue
		}
		shift := models.NormalizeShift(string(lesson.Shift))
		cell[shift] = append(cell[shift], lesson)
	}
	return layout
}
