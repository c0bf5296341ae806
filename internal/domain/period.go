package domain

import "time"

// Period is the granularity of the active reporting window.
type Period string

const (
	PeriodAll     Period = "all"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodAll, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// PeriodSelection is the currently selected reporting window: a granularity
// plus the anchor date that picks the concrete month/year instance.
type PeriodSelection struct {
	Period Period    `json:"period"`
	Anchor time.Time `json:"anchor"`
}

// Range returns the inclusive [start, end] day bounds of the selection.
// For PeriodAll bounded is false and record filtering must not be applied;
// chart gap-filling uses ChartRange instead.
func (s PeriodSelection) Range() (start, end time.Time, bounded bool) {
	switch s.Period {
	case PeriodMonthly:
		y, m, _ := s.Anchor.Date()
		start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
		return start, end, true
	case PeriodYearly:
		start = time.Date(s.Anchor.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(s.Anchor.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		return start, end, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// ChartRange returns the day bounds used for gap-filling chart series.
// Unlike Range, PeriodAll synthesizes a full-year window over the anchor
// year; chart consumers depend on this asymmetry.
func (s PeriodSelection) ChartRange() (start, end time.Time) {
	if s.Period == PeriodAll {
		start = time.Date(s.Anchor.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(s.Anchor.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		return start, end
	}
	start, end, _ = s.Range()
	return start, end
}

// Contains reports whether t falls inside the selection, at day granularity.
// PeriodAll contains every date.
func (s PeriodSelection) Contains(t time.Time) bool {
	start, end, bounded := s.Range()
	if !bounded {
		return true
	}
	d := DateOnly(t)
	return !d.Before(start) && !d.After(end)
}

// SameInstance reports whether t falls in the same calendar instance as the
// anchor: same month for monthly selections, same year for yearly ones.
// Used to qualify fixed (non-ongoing) budgets.
func (s PeriodSelection) SameInstance(t time.Time) bool {
	switch s.Period {
	case PeriodMonthly:
		return t.Year() == s.Anchor.Year() && t.Month() == s.Anchor.Month()
	case PeriodYearly:
		return t.Year() == s.Anchor.Year()
	default:
		return true
	}
}

// DateOnly truncates t to midnight UTC, keeping only the calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
