package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RegimeType is the directional stance of a policy regime.
type RegimeType string

const (
	RegimeEasing     RegimeType = "easing"
	RegimeTightening RegimeType = "tightening"
	RegimePause      RegimeType = "pause"
)

// Valid reports whether t is one of the known regime types.
func (t RegimeType) Valid() bool {
	switch t {
	case RegimeEasing, RegimeTightening, RegimePause:
		return true
	}
	return false
}

// UnknownRegimeLabel is shown wherever no regime applies.
const UnknownRegimeLabel = "Unknown"

// Regime is a labelled span of policy stance, inclusive at both ends.
type Regime struct {
	Label     string     `json:"label"`
	Type      RegimeType `json:"type"`
	StartDate civil.Date `json:"start_date"`
	EndDate   civil.Date `json:"end_date"`
}

// Contains reports whether d falls inside the regime span (inclusive).
func (r Regime) Contains(d civil.Date) bool {
	return !d.Before(r.StartDate) && !d.After(r.EndDate)
}

// Overlaps reports whether the regime span intersects the range. Open
// range ends always match.
func (r Regime) Overlaps(dr DateRange) bool {
	if dr.Start != nil && r.EndDate.Before(*dr.Start) {
		return false
	}
	if dr.End != nil && r.StartDate.After(*dr.End) {
		return false
	}
	return true
}

// Cycle summarises a non-pause regime against the observations in its span.
type Cycle struct {
	Regime         Regime            `json:"regime"`
	Observations   []RateObservation `json:"observations"`
	TotalBps       int               `json:"total_bps"`
	DurationMonths int               `json:"duration_months"`
	AvgBpsPerMonth decimal.Decimal   `json:"avg_bps_per_month"` // one decimal place
}

// CyclePoint is one observation of a cycle re-based to the cycle start.
type CyclePoint struct {
	DayOffset int             `json:"day_offset"`
	RateDelta int             `json:"rate_delta_bps"`
	Rate      decimal.Decimal `json:"rate"`
	Date      civil.Date      `json:"date"`
}
