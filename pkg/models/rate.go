package models

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// --- Policy Rate ---

// RateObservation is one published policy rate, effective from Date.
// ChangeBps is the move from the previous observation in basis points and
// is 0 for the first observation of a series.
type RateObservation struct {
	Date      civil.Date      `json:"date"`
	Rate      decimal.Decimal `json:"rate"` // percent, e.g. 6.50
	Source    string          `json:"source"`
	ChangeBps int             `json:"change_bps"`
}

// NewRateObservation builds an observation with no computed delta.
func NewRateObservation(date civil.Date, rate decimal.Decimal, source string) RateObservation {
	return RateObservation{Date: date, Rate: rate, Source: source}
}

// WithChange returns a copy of o carrying the given delta. Date, Rate and
// Source are inherited unchanged.
func (o RateObservation) WithChange(bps int) RateObservation {
	return RateObservation{
		Date:      o.Date,
		Rate:      o.Rate,
		Source:    o.Source,
		ChangeBps: bps,
	}
}

// --- Macro Events ---

// EventType classifies a macro event. The set is open; unknown values are
// carried through as-is.
type EventType string

const (
	EventPolicy   EventType = "policy"
	EventMacro    EventType = "macro"
	EventExternal EventType = "external"
)

// MacroEvent is a dated, cited event shown alongside the rate series.
type MacroEvent struct {
	Date        civil.Date `json:"date"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Type        EventType  `json:"type"`
	Citation    string     `json:"citation,omitempty"`
}
