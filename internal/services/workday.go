package services

import (
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
)

// WorkdayService answers working-day questions for activity rollups so
// weekends and public holidays do not inflate cycle times. The region
// selects a holiday calendar; an unknown region falls back to a
// weekend-only calendar.
type WorkdayService struct {
	calendar *cal.BusinessCalendar
}

func NewWorkdayService(region string) *WorkdayService {
	c := cal.NewBusinessCalendar()

	switch strings.ToUpper(region) {
	case "US":
		c.AddHoliday(us.Holidays...)
	case "GB", "UK":
		c.AddHoliday(gb.Holidays...)
	case "DE":
		c.AddHoliday(de.Holidays...)
	}

	return &WorkdayService{calendar: c}
}

// IsWorkday reports whether t falls on a working day.
func (s *WorkdayService) IsWorkday(t time.Time) bool {
	return s.calendar.IsWorkday(t)
}

// WorkdaysBetween counts working days in [start, end], inclusive.
func (s *WorkdayService) WorkdaysBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return s.calendar.WorkdaysInRange(start, end)
}

// CycleHours returns the working time in hours between start and end.
// Same-day spans use the raw elapsed hours; longer spans count full
// working days.
func (s *WorkdayService) CycleHours(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}

	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy == ey && sm == em && sd == ed {
		return end.Sub(start).Hours()
	}

	return float64(s.calendar.WorkdaysInRange(start, end)) * 24
}
