package regime

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/reporate/internal/series"
	"github.com/seenimoa/reporate/pkg/models"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func obs(d, rate string) models.RateObservation {
	return models.NewRateObservation(date(d), decimal.RequireFromString(rate), "test")
}

func reg(label string, typ models.RegimeType, start, end string) models.Regime {
	return models.Regime{Label: label, Type: typ, StartDate: date(start), EndDate: date(end)}
}

// ── Cycle aggregation ──

func TestBuildCycleWorkedExample(t *testing.T) {
	r := reg("Easing 2020", models.RegimeEasing, "2020-01-01", "2020-05-01")
	c := BuildCycle(r, series.Derive([]models.RateObservation{
		obs("2019-12-01", "6.75"),
		obs("2020-01-01", "6.50"),
		obs("2020-05-01", "6.00"),
		obs("2020-06-01", "5.75"),
	}))

	assert.Equal(t, -50, c.TotalBps)
	assert.Equal(t, 4, c.DurationMonths)
	assert.Equal(t, "-12.5", c.AvgBpsPerMonth.StringFixed(1))
	require.Len(t, c.Observations, 2)
	assert.Equal(t, "2020-01-01", c.Observations[0].Date.String())
	assert.Equal(t, "2020-05-01", c.Observations[1].Date.String())
}

func TestBuildCycleZeroDuration(t *testing.T) {
	r := reg("Flash", models.RegimeTightening, "2022-05-04", "2022-05-04")
	c := BuildCycle(r, []models.RateObservation{obs("2022-05-04", "4.40")})

	assert.Equal(t, 0, c.DurationMonths)
	assert.True(t, c.AvgBpsPerMonth.IsZero())
	assert.Equal(t, 0, c.TotalBps, "a single observation has no move")
}

func TestBuildCycleShortSpanRoundsToZeroMonths(t *testing.T) {
	// 15 days / 30.44 = 0.49 months
	r := reg("Blip", models.RegimeEasing, "2020-03-01", "2020-03-16")
	c := BuildCycle(r, []models.RateObservation{
		obs("2020-03-01", "5.15"),
		obs("2020-03-16", "4.40"),
	})
	assert.Equal(t, -75, c.TotalBps)
	assert.Equal(t, 0, c.DurationMonths)
	assert.True(t, c.AvgBpsPerMonth.IsZero())
}

func TestBuildCycleEmptySpan(t *testing.T) {
	r := reg("Nothing", models.RegimeEasing, "2010-01-01", "2010-12-31")
	c := BuildCycle(r, []models.RateObservation{obs("2020-01-01", "5.15")})
	assert.Empty(t, c.Observations)
	assert.NotNil(t, c.Observations)
	assert.Equal(t, 0, c.TotalBps)
	assert.Equal(t, 12, c.DurationMonths)
}

func TestDurationMonths(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2020-01-01", "2020-05-01", 4},  // 121 days
		{"2022-05-04", "2023-04-05", 11}, // 336 days
		{"2020-01-01", "2020-01-16", 0},  // 15 days
		{"2020-01-01", "2020-01-17", 1},  // 16 days rounds up
		{"2020-01-01", "2020-01-01", 0},
	}
	for _, tt := range tests {
		t.Run(tt.start+"_"+tt.end, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationMonths(reg("x", models.RegimeEasing, tt.start, tt.end)))
		})
	}
}

func TestSharedBoundaryDateCountsInBothRegimes(t *testing.T) {
	a := reg("A", models.RegimeEasing, "2020-01-01", "2020-06-30")
	b := reg("B", models.RegimeTightening, "2020-06-30", "2020-12-31")
	data := []models.RateObservation{
		obs("2020-01-01", "5.00"),
		obs("2020-06-30", "4.50"),
		obs("2020-12-31", "5.25"),
	}
	ca, cb := BuildCycle(a, data), BuildCycle(b, data)
	assert.Len(t, ca.Observations, 2)
	assert.Len(t, cb.Observations, 2)
	assert.Equal(t, -50, ca.TotalBps)
	assert.Equal(t, 75, cb.TotalBps)
}

func TestCyclesSkipsPause(t *testing.T) {
	regimes := []models.Regime{
		reg("Easing", models.RegimeEasing, "2019-01-01", "2019-12-31"),
		reg("Pause", models.RegimePause, "2020-01-01", "2020-12-31"),
		reg("Tightening", models.RegimeTightening, "2021-01-01", "2021-12-31"),
	}
	cycles := Cycles(regimes, nil)
	require.Len(t, cycles, 2)
	assert.Equal(t, "Easing", cycles[0].Regime.Label)
	assert.Equal(t, "Tightening", cycles[1].Regime.Label)

	assert.Empty(t, Cycles(nil, nil))
}

// ── Current regime ──

func TestCurrentAndLabel(t *testing.T) {
	_, ok := Current(nil)
	assert.False(t, ok)
	assert.Equal(t, models.UnknownRegimeLabel, Label(Current(nil)))

	regimes := []models.Regime{
		reg("Old", models.RegimeEasing, "2019-01-01", "2019-12-31"),
		reg("Now", models.RegimePause, "2020-01-01", "2020-12-31"),
	}
	cur, ok := Current(regimes)
	require.True(t, ok)
	assert.Equal(t, "Now", cur.Label)
	assert.Equal(t, "Now", Label(cur, ok))
}

// ── Comparison ──

func TestRebaseAndCompare(t *testing.T) {
	data := series.Derive([]models.RateObservation{
		obs("2019-02-07", "6.50"),
		obs("2019-04-04", "6.25"),
		obs("2019-06-06", "5.75"),
		obs("2022-05-04", "4.40"),
		obs("2022-06-08", "4.90"),
	})
	easing := BuildCycle(reg("Easing", models.RegimeEasing, "2019-02-07", "2019-06-06"), data)
	tight := BuildCycle(reg("Tight", models.RegimeTightening, "2022-05-04", "2022-06-08"), data)

	curve := Rebase(easing)
	require.Len(t, curve, 3)
	assert.Equal(t, 0, curve[0].DayOffset)
	assert.Equal(t, 0, curve[0].RateDelta)
	assert.Equal(t, 56, curve[1].DayOffset)
	assert.Equal(t, -25, curve[1].RateDelta)
	assert.Equal(t, -75, curve[2].RateDelta)

	cmp := Compare(easing, tight)
	assert.Equal(t, 50-(-75), cmp.DeltaBps)
	assert.Equal(t, curve[2].DayOffset, cmp.MaxDayOffset)
	assert.Len(t, cmp.CurveB, 2)

	assert.Empty(t, Rebase(models.Cycle{}))
}

// ── Tiling ──

func TestCheckTiling(t *testing.T) {
	clean := []models.Regime{
		reg("A", models.RegimeEasing, "2019-01-01", "2019-12-31"),
		reg("B", models.RegimePause, "2020-01-01", "2020-12-31"),
	}
	assert.Empty(t, CheckTiling(clean, []models.RateObservation{obs("2020-06-01", "4.00")}))

	messy := []models.Regime{
		reg("A", models.RegimeEasing, "2019-01-01", "2019-12-31"),
		reg("B", models.RegimePause, "2020-02-01", "2020-12-31"),    // gap in January
		reg("C", models.RegimeTightening, "2020-12-01", "2021-06-30"), // overlaps B
		reg("D", models.RegimeEasing, "2021-09-01", "2021-07-01"),     // inverted
	}
	issues := CheckTiling(messy, []models.RateObservation{obs("2020-01-15", "5.15")})

	kinds := make([]IssueKind, 0, len(issues))
	for _, i := range issues {
		kinds = append(kinds, i.Kind)
	}
	assert.Contains(t, kinds, IssueGap)
	assert.Contains(t, kinds, IssueOverlap)
	assert.Contains(t, kinds, IssueInverted)
	assert.Contains(t, kinds, IssueUncover)

	assert.Equal(t, "2020-01-01", issues[0].From.String())
	assert.Equal(t, "2020-01-31", issues[0].To.String())
}

func TestCheckTilingSharedBoundary(t *testing.T) {
	shared := []models.Regime{
		reg("A", models.RegimeEasing, "2019-01-01", "2019-12-31"),
		reg("B", models.RegimePause, "2019-12-31", "2020-12-31"),
	}
	assert.Empty(t, CheckTiling(shared, []models.RateObservation{obs("2019-12-31", "5.15")}))

	// one day further back is a real overlap
	shared[1] = reg("B", models.RegimePause, "2019-12-30", "2020-12-31")
	issues := CheckTiling(shared, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueOverlap, issues[0].Kind)
	assert.Equal(t, "2019-12-30", issues[0].From.String())
}

func TestTilingErrorUnwraps(t *testing.T) {
	err := error(&TilingError{Issues: []TilingIssue{{Kind: IssueGap, Label: "B", Detail: "x"}}})
	assert.True(t, errors.Is(err, ErrRegimeTiling))
	assert.Contains(t, err.Error(), "gap")
}
