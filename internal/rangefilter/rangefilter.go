// Package rangefilter narrows observations, events and regimes to a date
// range. Point entities use the inclusive point-in-time rule; regimes use
// the span overlap rule so a chart band is never cut to an empty sliver.
package rangefilter

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/reporate/internal/normalize"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

// Observations keeps observations with start <= date <= end.
func Observations(obs []models.RateObservation, r models.DateRange) []models.RateObservation {
	out := make([]models.RateObservation, 0, len(obs))
	for _, o := range obs {
		if r.Contains(o.Date) {
			out = append(out, o)
		}
	}
	return out
}

// Events keeps events with start <= date <= end.
func Events(events []models.MacroEvent, r models.DateRange) []models.MacroEvent {
	out := make([]models.MacroEvent, 0, len(events))
	for _, e := range events {
		if r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// Regimes keeps regimes whose span overlaps the range at all.
func Regimes(regimes []models.Regime, r models.DateRange) []models.Regime {
	out := make([]models.Regime, 0, len(regimes))
	for _, rg := range regimes {
		if rg.Overlaps(r) {
			out = append(out, rg)
		}
	}
	return out
}

// Preset is a named range relative to today.
type Preset string

const (
	Preset1Y     Preset = "1Y"
	Preset5Y     Preset = "5Y"
	Preset10Y    Preset = "10Y"
	PresetAll    Preset = "ALL"
	PresetCustom Preset = "CUSTOM"
)

// Presets lists the quick-select ranges in display order.
var Presets = []Preset{Preset1Y, Preset5Y, Preset10Y, PresetAll}

var presetYears = map[Preset]int{
	Preset1Y:  1,
	Preset5Y:  5,
	Preset10Y: 10,
}

// ParsePreset accepts a preset name case-insensitively.
func ParsePreset(s string) (Preset, error) {
	p := Preset(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case Preset1Y, Preset5Y, Preset10Y, PresetAll, PresetCustom:
		return p, nil
	}
	return "", fmt.Errorf("unknown range preset %q", s)
}

// PresetRange resolves p against today. ALL is unbounded; CUSTOM has no
// implicit bounds and also returns an unbounded range.
func PresetRange(p Preset, today civil.Date) (models.DateRange, error) {
	switch p {
	case PresetAll, PresetCustom:
		return models.Unbounded(), nil
	}
	years, ok := presetYears[p]
	if !ok {
		return models.DateRange{}, fmt.Errorf("unknown range preset %q", p)
	}
	return models.NewDateRange(utils.YearsBefore(today, years), today), nil
}

// ParseRange builds a range from optional YYYY-MM-DD bounds. Empty strings
// leave that side open.
func ParseRange(start, end string) (models.DateRange, error) {
	var r models.DateRange
	if s := strings.TrimSpace(start); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("%w: start %q: %v", normalize.ErrMalformedDate, s, err)
		}
		r.Start = &d
	}
	if s := strings.TrimSpace(end); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			return models.DateRange{}, fmt.Errorf("%w: end %q: %v", normalize.ErrMalformedDate, s, err)
		}
		r.End = &d
	}
	return r, nil
}

// MatchPreset reports which preset r corresponds to for today, or CUSTOM.
func MatchPreset(r models.DateRange, today civil.Date) Preset {
	if r.Start == nil && r.End == nil {
		return PresetAll
	}
	for _, p := range []Preset{Preset1Y, Preset5Y, Preset10Y} {
		pr, _ := PresetRange(p, today)
		if r.Start != nil && r.End != nil && *r.Start == *pr.Start && *r.End == *pr.End {
			return p
		}
	}
	return PresetCustom
}
