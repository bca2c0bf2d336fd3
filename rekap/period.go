package rekap

import (
	"time"

	"keuanganapi/models"
)

// Period is a date-only reporting window, inclusive on both ends.
type Period struct {
	Type  string
	Start time.Time
	End   time.Time
}

func DailyPeriod(start, end time.Time) Period {
	return Period{Type: models.RekapDaily, Start: midnight(start), End: midnight(end)}
}

// WeeklyPeriod covers the ISO week around now: Monday through Sunday.
func WeeklyPeriod(now time.Time) Period {
	day := int(now.Weekday())
	if day == 0 {
		day = 7
	}
	monday := midnight(now).AddDate(0, 0, 1-day)
	return Period{Type: models.RekapWeekly, Start: monday, End: monday.AddDate(0, 0, 6)}
}

func MonthlyPeriod(month time.Month, year int, loc *time.Location) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{Type: models.RekapMonthly, Start: start, End: start.AddDate(0, 1, -1)}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
