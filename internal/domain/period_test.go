package domain_test

import (
	"testing"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodValid(t *testing.T) {
	assert.True(t, domain.PeriodAll.Valid())
	assert.True(t, domain.PeriodMonthly.Valid())
	assert.True(t, domain.PeriodYearly.Valid())
	assert.False(t, domain.Period("weekly").Valid())
	assert.False(t, domain.Period("").Valid())
}

func TestRange_Monthly(t *testing.T) {
	sel := domain.PeriodSelection{Period: domain.PeriodMonthly, Anchor: date(2024, time.February, 15)}

	start, end, bounded := sel.Range()
	require.True(t, bounded)
	assert.Equal(t, date(2024, time.February, 1), start)
	assert.Equal(t, date(2024, time.February, 29), end) // leap year
}

func TestRange_Yearly(t *testing.T) {
	sel := domain.PeriodSelection{Period: domain.PeriodYearly, Anchor: date(2023, time.June, 10)}

	start, end, bounded := sel.Range()
	require.True(t, bounded)
	assert.Equal(t, date(2023, time.January, 1), start)
	assert.Equal(t, date(2023, time.December, 31), end)
}

func TestRange_AllIsUnbounded(t *testing.T) {
	sel := domain.PeriodSelection{Period: domain.PeriodAll, Anchor: date(2024, time.June, 1)}

	_, _, bounded := sel.Range()
	assert.False(t, bounded)
}

// The all selection is unbounded for filtering but charts still need a
// finite window, so ChartRange synthesizes the anchor's full year.
func TestChartRange_AllSynthesizesAnchorYear(t *testing.T) {
	sel := domain.PeriodSelection{Period: domain.PeriodAll, Anchor: date(2024, time.June, 1)}

	start, end := sel.ChartRange()
	assert.Equal(t, date(2024, time.January, 1), start)
	assert.Equal(t, date(2024, time.December, 31), end)
}

func TestChartRange_MatchesRangeWhenBounded(t *testing.T) {
	sel := domain.PeriodSelection{Period: domain.PeriodMonthly, Anchor: date(2024, time.March, 15)}

	start, end := sel.ChartRange()
	rStart, rEnd, _ := sel.Range()
	assert.Equal(t, rStart, start)
	assert.Equal(t, rEnd, end)
}

func TestContains_DayGranularityInclusive(t *testing.T) {
	sel := domain.PeriodSelection{Period: domain.PeriodMonthly, Anchor: date(2024, time.March, 15)}

	// Bounds are inclusive and time-of-day is ignored.
	assert.True(t, sel.Contains(time.Date(2024, time.March, 1, 0, 0, 1, 0, time.UTC)))
	assert.True(t, sel.Contains(time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, sel.Contains(date(2024, time.February, 29)))
	assert.False(t, sel.Contains(date(2024, time.April, 1)))
}

func TestContains_AllContainsEverything(t *testing.T) {
	sel := domain.PeriodSelection{Period: domain.PeriodAll, Anchor: date(2024, time.March, 15)}
	assert.True(t, sel.Contains(date(1999, time.January, 1)))
	assert.True(t, sel.Contains(date(2077, time.December, 31)))
}

func TestSameInstance(t *testing.T) {
	monthly := domain.PeriodSelection{Period: domain.PeriodMonthly, Anchor: date(2024, time.March, 15)}
	assert.True(t, monthly.SameInstance(date(2024, time.March, 1)))
	assert.False(t, monthly.SameInstance(date(2024, time.April, 1)))
	assert.False(t, monthly.SameInstance(date(2023, time.March, 1)))

	yearly := domain.PeriodSelection{Period: domain.PeriodYearly, Anchor: date(2024, time.March, 15)}
	assert.True(t, yearly.SameInstance(date(2024, time.December, 31)))
	assert.False(t, yearly.SameInstance(date(2023, time.December, 31)))

	all := domain.PeriodSelection{Period: domain.PeriodAll, Anchor: date(2024, time.March, 15)}
	assert.True(t, all.SameInstance(date(1999, time.January, 1)))
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, time.March, 15, 18, 42, 7, 999, time.FixedZone("X", 3600))
	assert.Equal(t, date(2024, time.March, 15), domain.DateOnly(in))
}
