package regime

import (
	"github.com/seenimoa/reporate/internal/series"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

// Rebase aligns a cycle to its first observation: day 0, delta 0 bps.
func Rebase(c models.Cycle) []models.CyclePoint {
	if len(c.Observations) == 0 {
		return []models.CyclePoint{}
	}
	base := c.Observations[0]
	out := make([]models.CyclePoint, len(c.Observations))
	for i, o := range c.Observations {
		out[i] = models.CyclePoint{
			DayOffset: utils.DaysBetween(base.Date, o.Date),
			RateDelta: series.Bps(o.Rate.Sub(base.Rate)),
			Rate:      o.Rate,
			Date:      o.Date,
		}
	}
	return out
}

// Comparison lines up two cycles on a common t=0 axis.
type Comparison struct {
	A      models.Cycle        `json:"a"`
	B      models.Cycle        `json:"b"`
	CurveA []models.CyclePoint `json:"curve_a"`
	CurveB []models.CyclePoint `json:"curve_b"`
	// DeltaBps is B's total move minus A's.
	DeltaBps int `json:"delta_bps"`
	// MaxDayOffset is the longer of the two curves, for a shared x axis.
	MaxDayOffset int `json:"max_day_offset"`
}

// Compare rebases both cycles.
func Compare(a, b models.Cycle) Comparison {
	ca, cb := Rebase(a), Rebase(b)
	maxDay := 0
	for _, curve := range [][]models.CyclePoint{ca, cb} {
		if n := len(curve); n > 0 && curve[n-1].DayOffset > maxDay {
			maxDay = curve[n-1].DayOffset
		}
	}
	return Comparison{
		A:            a,
		B:            b,
		CurveA:       ca,
		CurveB:       cb,
		DeltaBps:     b.TotalBps - a.TotalBps,
		MaxDayOffset: maxDay,
	}
}
