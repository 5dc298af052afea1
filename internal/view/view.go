// Package view builds the immutable, fully derived view of one snapshot
// that every consumer (CLI, API, export) reads from. Derivation happens
// once, in Load; accessors only hand out copies.
package view

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/reporate/internal/correlate"
	"github.com/seenimoa/reporate/internal/normalize"
	"github.com/seenimoa/reporate/internal/rangefilter"
	"github.com/seenimoa/reporate/internal/regime"
	"github.com/seenimoa/reporate/internal/series"
	"github.com/seenimoa/reporate/internal/snapshot"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

// ErrNoObservation is returned when a date has no rate observation.
var ErrNoObservation = errors.New("no observation on date")

// Options control how a snapshot is loaded.
type Options struct {
	// Clock supplies "today" for presets and the fallback display id.
	// Defaults to the system clock.
	Clock utils.Clock
	// VerifyChecksum rejects documents whose stored checksum does not match
	// their rates.
	VerifyChecksum bool
	// StrictRegimes rejects documents whose regimes leave gaps or overlap.
	// Otherwise tiling problems are only logged.
	StrictRegimes bool
	// ExtremeThresholdBps flags moves at least this large. Zero means
	// series.DefaultExtremeThresholdBps.
	ExtremeThresholdBps int
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// SnapshotView is the derived, read-only state of one snapshot.
type SnapshotView struct {
	meta         models.SnapshotMeta
	observations []models.RateObservation
	changes      []models.RateObservation
	events       []models.MacroEvent
	regimes      []models.Regime
	cycles       []models.Cycle
	tiling       []regime.TilingIssue

	clock     utils.Clock
	threshold int
}

// Load validates, normalizes and derives everything a view needs from doc.
func Load(doc *snapshot.Document, opts Options) (*SnapshotView, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", snapshot.ErrMalformedSnapshot)
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "view").Logger()
	}
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock
	}
	if opts.ExtremeThresholdBps <= 0 {
		opts.ExtremeThresholdBps = series.DefaultExtremeThresholdBps
	}

	if opts.VerifyChecksum {
		if err := doc.VerifyChecksum(); err != nil {
			return nil, err
		}
	}

	ds, err := normalize.Normalize(doc)
	if err != nil {
		return nil, err
	}

	v := &SnapshotView{
		meta:         ds.Meta,
		observations: series.Derive(ds.Observations),
		events:       ds.Events,
		regimes:      ds.Regimes,
		clock:        opts.Clock,
		threshold:    opts.ExtremeThresholdBps,
	}
	v.changes = series.RateChanges(v.observations)
	v.cycles = regime.Cycles(v.regimes, v.observations)
	v.tiling = regime.CheckTiling(v.regimes, v.observations)

	if len(v.tiling) > 0 {
		if opts.StrictRegimes {
			return nil, &regime.TilingError{Issues: v.tiling}
		}
		for _, issue := range v.tiling {
			log.Warn().Str("kind", string(issue.Kind)).Str("regime", issue.Label).Msg(issue.Detail)
		}
	}

	log.Debug().
		Str("snapshot", v.DisplayID()).
		Int("observations", len(v.observations)).
		Int("changes", len(v.changes)).
		Int("events", len(v.events)).
		Int("regimes", len(v.regimes)).
		Int("cycles", len(v.cycles)).
		Msg("snapshot view loaded")

	return v, nil
}

// LoadFile reads and loads the snapshot at path.
func LoadFile(path string, opts Options) (*SnapshotView, error) {
	doc, err := snapshot.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(doc, opts)
}

// ── Accessors ──

func (v *SnapshotView) Meta() models.SnapshotMeta { return v.meta }

// Observations returns the full series with deltas, oldest first.
func (v *SnapshotView) Observations() []models.RateObservation { return slices.Clone(v.observations) }

// RateChanges returns only the observations that moved the rate.
func (v *SnapshotView) RateChanges() []models.RateObservation { return slices.Clone(v.changes) }

func (v *SnapshotView) Events() []models.MacroEvent { return slices.Clone(v.events) }

func (v *SnapshotView) Regimes() []models.Regime { return slices.Clone(v.regimes) }

// Cycles returns the easing and tightening cycles.
func (v *SnapshotView) Cycles() []models.Cycle {
	out := make([]models.Cycle, len(v.cycles))
	for i, c := range v.cycles {
		c.Observations = slices.Clone(c.Observations)
		out[i] = c
	}
	return out
}

// Cycle finds a cycle by regime label.
func (v *SnapshotView) Cycle(label string) (models.Cycle, bool) {
	for _, c := range v.cycles {
		if c.Regime.Label == label {
			c.Observations = slices.Clone(c.Observations)
			return c, true
		}
	}
	return models.Cycle{}, false
}

// TilingIssues lists regime coverage problems found at load time.
func (v *SnapshotView) TilingIssues() []regime.TilingIssue { return slices.Clone(v.tiling) }

func (v *SnapshotView) CurrentRate() (models.RateObservation, bool) {
	return series.Current(v.observations)
}

func (v *SnapshotView) PreviousRate() (models.RateObservation, bool) {
	return series.Previous(v.observations)
}

// CurrentRegime is the last regime; ok is false when there are none.
func (v *SnapshotView) CurrentRegime() (models.Regime, bool) {
	return regime.Current(v.regimes)
}

// IsExtreme applies the configured extreme-move threshold.
func (v *SnapshotView) IsExtreme(o models.RateObservation) bool {
	return series.IsExtreme(o, v.threshold)
}

// Today is the current IST date according to the view's clock.
func (v *SnapshotView) Today() civil.Date { return utils.TodayIST(v.clock) }

// DisplayID is the snapshot id, or "<today>-local" for documents that
// carry none.
func (v *SnapshotView) DisplayID() string {
	if v.meta.ID != "" {
		return v.meta.ID
	}
	return v.Today().String() + "-local"
}

// ── Summary ──

// Summary holds the headline figures of a snapshot.
type Summary struct {
	SnapshotID     string            `json:"snapshot_id"`
	UpdatedAt      time.Time         `json:"updated_at"`
	HasRate        bool              `json:"has_rate"`
	AsOf           civil.Date        `json:"as_of"`
	CurrentRate    decimal.Decimal   `json:"current_rate"`
	PreviousRate   decimal.Decimal   `json:"previous_rate"`
	LastActionBps  int               `json:"last_action_bps"`
	LastActionDate *civil.Date       `json:"last_action_date,omitempty"`
	Direction      series.Direction  `json:"direction"`
	Extreme        bool              `json:"extreme"`
	Regime         string            `json:"regime"`
	RegimeType     models.RegimeType `json:"regime_type,omitempty"`
	Observations   int               `json:"observations"`
	Changes        int               `json:"changes"`
}

// Summary computes the headline figures. The last action is the latest
// observation's own delta, so a hold reports 0 bps and unchanged.
func (v *SnapshotView) Summary() Summary {
	s := Summary{
		SnapshotID:   v.DisplayID(),
		UpdatedAt:    v.meta.FetchedAt,
		Direction:    series.DirectionUnchanged,
		Observations: len(v.observations),
		Changes:      len(v.changes),
	}
	if cur, ok := v.CurrentRate(); ok {
		d := cur.Date
		s.HasRate = true
		s.AsOf = cur.Date
		s.CurrentRate = cur.Rate
		s.PreviousRate = cur.Rate
		s.LastActionBps = cur.ChangeBps
		s.LastActionDate = &d
		s.Direction = series.DirectionOf(cur.ChangeBps)
		s.Extreme = v.IsExtreme(cur)
	}
	if prev, ok := v.PreviousRate(); ok {
		s.PreviousRate = prev.Rate
	}
	r, ok := v.CurrentRegime()
	s.Regime = regime.Label(r, ok)
	if ok {
		s.RegimeType = r.Type
	}
	return s
}

// ── Windows ──

// Window is everything one chart needs for one date range.
type Window struct {
	Range        models.DateRange         `json:"range"`
	Observations []models.RateObservation `json:"observations"`
	RateChanges  []models.RateObservation `json:"rate_changes"`
	Events       []models.MacroEvent      `json:"events"`
	Regimes      []models.Regime          `json:"regimes"`
}

// Filter narrows the view to r. Deltas keep their full-series values.
func (v *SnapshotView) Filter(r models.DateRange) Window {
	return Window{
		Range:        r,
		Observations: rangefilter.Observations(v.observations, r),
		RateChanges:  rangefilter.Observations(v.changes, r),
		Events:       rangefilter.Events(v.events, r),
		Regimes:      rangefilter.Regimes(v.regimes, r),
	}
}

// Presets resolves a preset against the view's clock.
func (v *SnapshotView) Presets(p rangefilter.Preset) (models.DateRange, error) {
	return rangefilter.PresetRange(p, v.Today())
}

// FilterPreset is Filter for a named preset.
func (v *SnapshotView) FilterPreset(p rangefilter.Preset) (Window, error) {
	r, err := v.Presets(p)
	if err != nil {
		return Window{}, err
	}
	return v.Filter(r), nil
}

// ── Correlation ──

// Inspection is an observation together with its regime and same-day
// events.
type Inspection struct {
	Observation models.RateObservation `json:"observation"`
	correlate.Correlation
	RegimeLabel string `json:"regime_label"`
	Extreme     bool   `json:"extreme"`
}

func byDate(o models.RateObservation, d civil.Date) int {
	switch {
	case o.Date.Before(d):
		return -1
	case o.Date.After(d):
		return 1
	}
	return 0
}

// Correlate inspects the observation published on d.
func (v *SnapshotView) Correlate(d civil.Date) (Inspection, error) {
	i, found := slices.BinarySearchFunc(v.observations, d, byDate)
	if !found {
		return Inspection{}, fmt.Errorf("%w %s", ErrNoObservation, d)
	}
	return v.inspect(v.observations[i]), nil
}

// Nearest returns the observation closest to d in calendar days. A date
// equidistant from two observations resolves to the earlier one. The
// second value is false only for an empty series.
func (v *SnapshotView) Nearest(d civil.Date) (models.RateObservation, bool) {
	if len(v.observations) == 0 {
		return models.RateObservation{}, false
	}
	i, found := slices.BinarySearchFunc(v.observations, d, byDate)
	switch {
	case found:
		return v.observations[i], true
	case i == 0:
		return v.observations[0], true
	case i == len(v.observations):
		return v.observations[i-1], true
	}
	before, after := v.observations[i-1], v.observations[i]
	if d.DaysSince(before.Date) <= after.Date.DaysSince(d) {
		return before, true
	}
	return after, true
}

// CorrelateNearest inspects the observation nearest to d.
func (v *SnapshotView) CorrelateNearest(d civil.Date) (Inspection, error) {
	o, ok := v.Nearest(d)
	if !ok {
		return Inspection{}, fmt.Errorf("%w %s: series is empty", ErrNoObservation, d)
	}
	return v.inspect(o), nil
}

func (v *SnapshotView) inspect(o models.RateObservation) Inspection {
	c := correlate.Correlate(o, v.regimes, v.events)
	return Inspection{
		Observation: o,
		Correlation: c,
		RegimeLabel: correlate.RegimeLabel(c),
		Extreme:     v.IsExtreme(o),
	}
}
