// Package series derives basis-point moves from an ordered rate series.
package series

import (
	"github.com/shopspring/decimal"

	"github.com/seenimoa/reporate/pkg/models"
)

// DefaultExtremeThresholdBps marks moves of this size or more as extreme.
const DefaultExtremeThresholdBps = 50

var hundred = decimal.NewFromInt(100)

// Bps converts a percentage-point difference to whole basis points,
// rounding half away from zero.
func Bps(diff decimal.Decimal) int {
	return int(diff.Mul(hundred).Round(0).IntPart())
}

// Derive returns a fresh copy of obs with ChangeBps filled in. The input
// must already be ascending by date. The first element always gets 0.
func Derive(obs []models.RateObservation) []models.RateObservation {
	out := make([]models.RateObservation, len(obs))
	for i, o := range obs {
		if i == 0 {
			out[i] = o.WithChange(0)
			continue
		}
		out[i] = o.WithChange(Bps(o.Rate.Sub(obs[i-1].Rate)))
	}
	return out
}

// Current returns the latest observation.
func Current(obs []models.RateObservation) (models.RateObservation, bool) {
	if len(obs) == 0 {
		return models.RateObservation{}, false
	}
	return obs[len(obs)-1], true
}

// Previous returns the observation before the latest one.
func Previous(obs []models.RateObservation) (models.RateObservation, bool) {
	if len(obs) < 2 {
		return models.RateObservation{}, false
	}
	return obs[len(obs)-2], true
}

// RateChanges keeps only observations that moved the rate, in order and
// with their deltas untouched.
func RateChanges(obs []models.RateObservation) []models.RateObservation {
	out := make([]models.RateObservation, 0, len(obs))
	for _, o := range obs {
		if o.ChangeBps != 0 {
			out = append(out, o)
		}
	}
	return out
}

// IsExtreme reports whether a move is at least thresholdBps in size.
func IsExtreme(o models.RateObservation, thresholdBps int) bool {
	bps := o.ChangeBps
	if bps < 0 {
		bps = -bps
	}
	return bps != 0 && bps >= thresholdBps
}

// Direction names a move the way the front end styles it.
type Direction string

const (
	DirectionCut       Direction = "cut"
	DirectionHike      Direction = "hike"
	DirectionUnchanged Direction = "unchanged"
)

// DirectionOf classifies a basis-point move.
func DirectionOf(bps int) Direction {
	switch {
	case bps < 0:
		return DirectionCut
	case bps > 0:
		return DirectionHike
	default:
		return DirectionUnchanged
	}
}
