// Package regime aggregates rate observations into per-regime cycle
// statistics and checks how regimes tile the calendar.
package regime

import (
	"github.com/shopspring/decimal"

	"github.com/seenimoa/reporate/internal/series"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

// daysPerMonth is the average Gregorian month length used for durations.
var daysPerMonth = decimal.RequireFromString("30.44")

// Span returns the observations whose date falls inside r, inclusive at
// both ends. Adjacent regimes that share a boundary date both get it.
func Span(r models.Regime, obs []models.RateObservation) []models.RateObservation {
	out := make([]models.RateObservation, 0)
	for _, o := range obs {
		if r.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out
}

// DurationMonths is the regime length in days / 30.44, rounded half away
// from zero.
func DurationMonths(r models.Regime) int {
	days := decimal.NewFromInt(int64(utils.DaysBetween(r.StartDate, r.EndDate)))
	return int(days.Div(daysPerMonth).Round(0).IntPart())
}

// BuildCycle computes the statistics of one regime over obs.
func BuildCycle(r models.Regime, obs []models.RateObservation) models.Cycle {
	span := Span(r, obs)

	total := 0
	if len(span) > 1 {
		total = series.Bps(span[len(span)-1].Rate.Sub(span[0].Rate))
	}

	months := DurationMonths(r)
	avg := decimal.Zero
	if months != 0 {
		avg = decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(months))).Round(1)
	}

	return models.Cycle{
		Regime:         r,
		Observations:   span,
		TotalBps:       total,
		DurationMonths: months,
		AvgBpsPerMonth: avg,
	}
}

// Cycles builds a cycle for every easing or tightening regime, in regime
// order. Pause regimes are skipped.
func Cycles(regimes []models.Regime, obs []models.RateObservation) []models.Cycle {
	out := make([]models.Cycle, 0, len(regimes))
	for _, r := range regimes {
		if r.Type == models.RegimePause {
			continue
		}
		out = append(out, BuildCycle(r, obs))
	}
	return out
}

// Current returns the last regime in order.
func Current(regimes []models.Regime) (models.Regime, bool) {
	if len(regimes) == 0 {
		return models.Regime{}, false
	}
	return regimes[len(regimes)-1], true
}

// Label returns r's label, or "Unknown" when there is no regime.
func Label(r models.Regime, ok bool) string {
	if !ok || r.Label == "" {
		return models.UnknownRegimeLabel
	}
	return r.Label
}
