package service

import (
	"sort"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
)

// Pure aggregation helpers for chart data. All functions return freshly
// computed values and never mutate their inputs; they are safe to recompute
// on every dependency change.

// PointInTimeSeries returns one point per calendar day carrying activity,
// sorted by date, with same-day amounts summed.
func PointInTimeSeries(records []domain.Record) []domain.SeriesPoint {
	byDay := make(map[time.Time]float64)
	for _, rec := range records {
		byDay[domain.DateOnly(rec.Date)] += rec.Amount
	}

	out := make([]domain.SeriesPoint, 0, len(byDay))
	for day, amount := range byDay {
		out = append(out, domain.SeriesPoint{Date: day, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// CumulativeSeries returns the running sum over records sorted by date, one
// point per record. Day-level merging happens later, in FillCumulativeGaps,
// which carries the last known value forward across quiet days.
func CumulativeSeries(records []domain.Record) []domain.SeriesPoint {
	sorted := make([]domain.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]domain.SeriesPoint, 0, len(sorted))
	sum := 0.0
	for _, rec := range sorted {
		sum += rec.Amount
		out = append(out, domain.SeriesPoint{Date: domain.DateOnly(rec.Date), Amount: sum})
	}
	return out
}

// CategoryBreakdown groups record amounts by category name. Records without
// a resolvable category fold into the Uncategorized bucket. Percentages are
// of the grand total, 0 when the total is 0. Values and percentages are
// rounded to two decimals.
func CategoryBreakdown(records []domain.Record, namesByID map[string]string) []domain.CategorySlice {
	values := make(map[string]float64)
	total := 0.0
	for _, rec := range records {
		name, ok := namesByID[rec.CategoryID]
		if rec.CategoryID == "" || !ok {
			name = domain.UncategorizedName
		}
		values[name] += rec.Amount
		total += rec.Amount
	}

	out := make([]domain.CategorySlice, 0, len(values))
	for name, value := range values {
		pct := 0.0
		if total != 0 {
			pct = value / total * 100
		}
		out = append(out, domain.CategorySlice{
			Name:       name,
			Value:      domain.Round2(value),
			Percentage: domain.Round2(pct),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FillPointGaps expands a point-in-time series so that every calendar day in
// [start, end] appears exactly once; days without activity get amount 0.
func FillPointGaps(series []domain.SeriesPoint, start, end time.Time) []domain.SeriesPoint {
	byDay := make(map[time.Time]float64, len(series))
	for _, p := range series {
		byDay[domain.DateOnly(p.Date)] += p.Amount
	}

	var out []domain.SeriesPoint
	for day := domain.DateOnly(start); !day.After(domain.DateOnly(end)); day = day.AddDate(0, 0, 1) {
		out = append(out, domain.SeriesPoint{Date: day, Amount: byDay[day]})
	}
	return out
}

// FillCumulativeGaps expands a cumulative series so that every calendar day
// in [start, end] appears exactly once, carrying the last known running
// value forward across days with no activity. The series never resets to
// zero mid-range; days before the first point are 0.
func FillCumulativeGaps(series []domain.SeriesPoint, start, end time.Time) []domain.SeriesPoint {
	// Multiple points may share a day (one point per record); the day's
	// value is the last one, i.e. the running sum after that day's records.
	lastByDay := make(map[time.Time]float64, len(series))
	for _, p := range series {
		lastByDay[domain.DateOnly(p.Date)] = p.Amount
	}

	var out []domain.SeriesPoint
	carry := 0.0
	for day := domain.DateOnly(start); !day.After(domain.DateOnly(end)); day = day.AddDate(0, 0, 1) {
		if v, ok := lastByDay[day]; ok {
			carry = v
		}
		out = append(out, domain.SeriesPoint{Date: day, Amount: carry})
	}
	return out
}
