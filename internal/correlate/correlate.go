// Package correlate links one point in time to the regime active on that
// date and to the macro events published on it.
package correlate

import (
	"cloud.google.com/go/civil"

	"github.com/seenimoa/reporate/pkg/models"
)

// Correlation is the context shown when inspecting a single observation.
type Correlation struct {
	Regime         *models.Regime      `json:"regime"`
	SameDateEvents []models.MacroEvent `json:"same_date_events"`
}

// Correlate returns the first regime, in the order given, whose span holds
// o's date, and every event dated exactly on it. No match is not an error.
func Correlate(o models.RateObservation, regimes []models.Regime, events []models.MacroEvent) Correlation {
	return At(o.Date, regimes, events)
}

// At is Correlate for a bare date.
func At(d civil.Date, regimes []models.Regime, events []models.MacroEvent) Correlation {
	c := Correlation{SameDateEvents: make([]models.MacroEvent, 0)}
	for i := range regimes {
		if regimes[i].Contains(d) {
			r := regimes[i]
			c.Regime = &r
			break
		}
	}
	for _, e := range events {
		if e.Date == d {
			c.SameDateEvents = append(c.SameDateEvents, e)
		}
	}
	return c
}

// RegimeLabel returns the matched regime's label or "Unknown".
func RegimeLabel(c Correlation) string {
	if c.Regime == nil || c.Regime.Label == "" {
		return models.UnknownRegimeLabel
	}
	return c.Regime.Label
}

// FirstEventLabel returns the first same-date event label, or "".
func FirstEventLabel(c Correlation) string {
	if len(c.SameDateEvents) == 0 {
		return ""
	}
	return c.SameDateEvents[0].Label
}
