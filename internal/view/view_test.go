package view_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/reporate/internal/fixture"
	"github.com/seenimoa/reporate/internal/normalize"
	"github.com/seenimoa/reporate/internal/rangefilter"
	"github.com/seenimoa/reporate/internal/regime"
	"github.com/seenimoa/reporate/internal/series"
	"github.com/seenimoa/reporate/internal/snapshot"
	"github.com/seenimoa/reporate/internal/view"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

var clock = utils.FixedClock(time.Date(2025, time.August, 10, 12, 0, 0, 0, time.UTC))

func load(t *testing.T, mutate func(*snapshot.Document), opts view.Options) (*view.SnapshotView, error) {
	t.Helper()
	doc := fixture.Document(t)
	if mutate != nil {
		mutate(doc)
	}
	if opts.Clock == nil {
		opts.Clock = clock
	}
	return view.Load(doc, opts)
}

func mustLoad(t *testing.T) *view.SnapshotView {
	t.Helper()
	v, err := load(t, nil, view.Options{VerifyChecksum: true, StrictRegimes: true})
	require.NoError(t, err)
	return v
}

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ── Load ──

func TestLoadFixture(t *testing.T) {
	v := mustLoad(t)

	assert.Len(t, v.Observations(), 22)
	assert.Len(t, v.Events(), 7)
	assert.Len(t, v.Regimes(), 5)
	assert.Len(t, v.Cycles(), 4)
	assert.Empty(t, v.TilingIssues())

	meta := v.Meta()
	assert.Equal(t, "2025-08-10-v1", meta.ID)
	assert.Equal(t, fixture.Checksum, meta.Checksum)
	assert.Equal(t, time.Date(2025, time.August, 10, 6, 30, 0, 0, time.UTC), meta.FetchedAt.UTC())

	obs := v.Observations()
	assert.Zero(t, obs[0].ChangeBps)
	for i := 1; i < len(obs); i++ {
		assert.True(t, obs[i-1].Date.Before(obs[i].Date))
	}
}

func TestLoadRejectsChecksumMismatch(t *testing.T) {
	_, err := load(t, func(d *snapshot.Document) { d.Rates[0].Rate = "7.00" }, view.Options{VerifyChecksum: true})
	assert.True(t, errors.Is(err, snapshot.ErrChecksumMismatch))

	// Without verification the same document loads.
	_, err = load(t, func(d *snapshot.Document) { d.Rates[0].Rate = "7.00" }, view.Options{})
	assert.NoError(t, err)
}

func TestLoadPropagatesMalformedDate(t *testing.T) {
	_, err := load(t, func(d *snapshot.Document) { d.Events[2].Date = "24/02/2022" }, view.Options{})
	assert.True(t, errors.Is(err, normalize.ErrMalformedDate))

	_, err = view.Load(nil, view.Options{})
	assert.True(t, errors.Is(err, snapshot.ErrMalformedSnapshot))
}

func TestLoadRegimeTiling(t *testing.T) {
	gap := func(d *snapshot.Document) { d.Regimes[1].EndDate = "2022-04-30" }

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	v, err := load(t, gap, view.Options{Logger: &logger})
	require.NoError(t, err, "permissive by default")
	require.NotEmpty(t, v.TilingIssues())
	assert.Equal(t, regime.IssueGap, v.TilingIssues()[0].Kind)
	assert.Contains(t, buf.String(), `"kind":"gap"`)

	_, err = load(t, gap, view.Options{StrictRegimes: true})
	var te *regime.TilingError
	require.True(t, errors.As(err, &te))
	assert.True(t, errors.Is(err, regime.ErrRegimeTiling))
}

func TestLoadEmptySeries(t *testing.T) {
	v, err := load(t, func(d *snapshot.Document) {
		d.Rates = []snapshot.RawRate{}
		d.Regimes = nil
		d.Checksum = ""
	}, view.Options{})
	require.NoError(t, err)

	_, ok := v.CurrentRate()
	assert.False(t, ok)
	_, ok = v.CurrentRegime()
	assert.False(t, ok)

	s := v.Summary()
	assert.False(t, s.HasRate)
	assert.Equal(t, models.UnknownRegimeLabel, s.Regime)
	assert.Equal(t, series.DirectionUnchanged, s.Direction)
	assert.Empty(t, v.Filter(models.Unbounded()).Observations)
}

// ── Derived figures ──

func TestCurrentAndPreviousRate(t *testing.T) {
	v := mustLoad(t)

	cur, ok := v.CurrentRate()
	require.True(t, ok)
	assert.Equal(t, "2025-08-06", cur.Date.String())
	assert.Equal(t, "5.50", cur.Rate.StringFixed(2))
	assert.Zero(t, cur.ChangeBps)

	prev, ok := v.PreviousRate()
	require.True(t, ok)
	assert.Equal(t, "2025-06-06", prev.Date.String())
	assert.Equal(t, -50, prev.ChangeBps)
}

func TestSummary(t *testing.T) {
	s := mustLoad(t).Summary()

	assert.Equal(t, "2025-08-10-v1", s.SnapshotID)
	assert.True(t, s.HasRate)
	assert.Equal(t, "5.50", s.CurrentRate.StringFixed(2))
	assert.Equal(t, "5.50", s.PreviousRate.StringFixed(2))
	// 2025-08-06 held at 5.50, so the last action is that hold.
	assert.Equal(t, 0, s.LastActionBps)
	require.NotNil(t, s.LastActionDate)
	assert.Equal(t, "2025-08-06", s.LastActionDate.String())
	assert.Equal(t, series.DirectionUnchanged, s.Direction)
	assert.False(t, s.Extreme)
	assert.Equal(t, "Easing 2025", s.Regime)
	assert.Equal(t, models.RegimeEasing, s.RegimeType)
}

func TestSummaryLatestHold(t *testing.T) {
	v, err := load(t, func(d *snapshot.Document) {
		d.Rates = []snapshot.RawRate{
			{Date: "2025-02-07", Rate: "6.25", Source: "RBI"},
			{Date: "2025-04-09", Rate: "6.00", Source: "RBI"},
			{Date: "2025-08-06", Rate: "6.00", Source: "RBI"},
		}
		d.Checksum = ""
	}, view.Options{})
	require.NoError(t, err)

	s := v.Summary()
	assert.Equal(t, 0, s.LastActionBps)
	require.NotNil(t, s.LastActionDate)
	assert.Equal(t, "2025-08-06", s.LastActionDate.String())
	assert.Equal(t, series.DirectionUnchanged, s.Direction)
	assert.Equal(t, "6.00", s.PreviousRate.StringFixed(2))
}

func TestSummaryLatestMove(t *testing.T) {
	v, err := load(t, func(d *snapshot.Document) {
		d.Rates = d.Rates[:len(d.Rates)-1] // drop the 2025-08-06 hold
		d.Checksum = ""
	}, view.Options{})
	require.NoError(t, err)

	s := v.Summary()
	assert.Equal(t, -50, s.LastActionBps)
	require.NotNil(t, s.LastActionDate)
	assert.Equal(t, "2025-06-06", s.LastActionDate.String())
	assert.Equal(t, series.DirectionCut, s.Direction)
	assert.True(t, s.Extreme)
}

func TestExtremeThresholdOption(t *testing.T) {
	dropHold := func(d *snapshot.Document) {
		d.Rates = d.Rates[:len(d.Rates)-1]
		d.Checksum = ""
	}
	v, err := load(t, dropHold, view.Options{ExtremeThresholdBps: 75})
	require.NoError(t, err)
	assert.Equal(t, -50, v.Summary().LastActionBps)
	assert.False(t, v.Summary().Extreme)

	in, err := v.Correlate(date("2020-03-27"))
	require.NoError(t, err)
	assert.True(t, in.Extreme)
}

func TestRateChanges(t *testing.T) {
	changes := mustLoad(t).RateChanges()
	for _, c := range changes {
		assert.NotZero(t, c.ChangeBps, c.Date.String())
	}
	// 22 observations, 5 of which repeat the prior rate (first is 0 too).
	assert.Len(t, changes, 16)
}

func TestCycles(t *testing.T) {
	v := mustLoad(t)
	tests := []struct {
		label  string
		total  int
		months int
		avg    string
	}{
		{"Tightening 2018", 0, 8, "0.0"},
		{"Easing 2019-20", -225, 39, "-5.8"},
		{"Tightening 2022-23", 210, 11, "19.1"},
		{"Easing 2025", -75, 11, "-6.8"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			c, ok := v.Cycle(tt.label)
			require.True(t, ok)
			assert.Equal(t, tt.total, c.TotalBps)
			assert.Equal(t, tt.months, c.DurationMonths)
			assert.Equal(t, tt.avg, c.AvgBpsPerMonth.StringFixed(1))
		})
	}
	_, ok := v.Cycle("Pause 2023-24")
	assert.False(t, ok)
}

// ── Immutability ──

func TestAccessorsReturnCopies(t *testing.T) {
	v := mustLoad(t)

	obs := v.Observations()
	obs[0].ChangeBps = 999
	assert.Zero(t, v.Observations()[0].ChangeBps)

	cycles := v.Cycles()
	cycles[1].Observations[0].Source = "changed"
	assert.NotEqual(t, "changed", v.Cycles()[1].Observations[0].Source)

	regs := v.Regimes()
	regs[0].Label = "changed"
	assert.Equal(t, "Tightening 2018", v.Regimes()[0].Label)
}

// ── Windows ──

func TestFilterWindow(t *testing.T) {
	v := mustLoad(t)
	w := v.Filter(models.NewDateRange(date("2020-03-01"), date("2020-04-01")))

	require.Len(t, w.Observations, 1)
	assert.Equal(t, "2020-03-27", w.Observations[0].Date.String())
	assert.Equal(t, -75, w.Observations[0].ChangeBps, "delta is from the full series")
	assert.Len(t, w.RateChanges, 1)
	require.Len(t, w.Events, 2)
	assert.Equal(t, "National lockdown", w.Events[0].Label)
	require.Len(t, w.Regimes, 1)
	assert.Equal(t, "Easing 2019-20", w.Regimes[0].Label)
}

func TestFilterPreset(t *testing.T) {
	v := mustLoad(t)

	r, err := v.Presets(rangefilter.Preset1Y)
	require.NoError(t, err)
	assert.Equal(t, "2024-08-10_2025-08-10", r.Key())

	w, err := v.FilterPreset(rangefilter.Preset1Y)
	require.NoError(t, err)
	assert.Len(t, w.Observations, 5) // 2024-10-09 onward
	assert.Len(t, w.Regimes, 2)

	all, err := v.FilterPreset(rangefilter.PresetAll)
	require.NoError(t, err)
	assert.Len(t, all.Observations, 22)
}

// ── Correlation ──

func TestCorrelate(t *testing.T) {
	v := mustLoad(t)

	in, err := v.Correlate(date("2022-05-04"))
	require.NoError(t, err)
	assert.Equal(t, 40, in.Observation.ChangeBps)
	assert.Equal(t, "Tightening 2022-23", in.RegimeLabel)
	require.Len(t, in.SameDateEvents, 2)
	assert.Equal(t, "Off-cycle hike", in.SameDateEvents[0].Label)

	in, err = v.Correlate(date("2019-12-05"))
	require.NoError(t, err)
	assert.Empty(t, in.SameDateEvents)

	_, err = v.Correlate(date("2020-03-24"))
	assert.True(t, errors.Is(err, view.ErrNoObservation))
}

func TestNearest(t *testing.T) {
	v := mustLoad(t)
	tests := []struct {
		date string
		want string
	}{
		{"2022-05-04", "2022-05-04"}, // exact
		{"2020-03-24", "2020-03-27"},
		{"2022-05-05", "2022-05-04"},
		{"2019-03-07", "2019-02-07"}, // 28 days either side, earlier wins
		{"2019-03-08", "2019-04-04"},
		{"2000-01-01", "2018-08-01"},
		{"2030-01-01", "2025-08-06"},
	}
	for _, tt := range tests {
		o, ok := v.Nearest(date(tt.date))
		require.True(t, ok, tt.date)
		assert.Equal(t, tt.want, o.Date.String(), tt.date)
	}

	in, err := v.CorrelateNearest(date("2022-05-05"))
	require.NoError(t, err)
	assert.Equal(t, "2022-05-04", in.Observation.Date.String())
	assert.Equal(t, "Tightening 2022-23", in.RegimeLabel)
	assert.Len(t, in.SameDateEvents, 2)
}

func TestNearestEmptySeries(t *testing.T) {
	v, err := load(t, func(d *snapshot.Document) {
		d.Rates = []snapshot.RawRate{}
		d.Checksum = ""
	}, view.Options{})
	require.NoError(t, err)

	_, ok := v.Nearest(date("2025-01-01"))
	assert.False(t, ok)
	_, err = v.CorrelateNearest(date("2025-01-01"))
	assert.True(t, errors.Is(err, view.ErrNoObservation))
}

func TestCorrelateOutsideAnyRegime(t *testing.T) {
	v, err := load(t, func(d *snapshot.Document) { d.Regimes = d.Regimes[1:] }, view.Options{})
	require.NoError(t, err)

	in, err := v.Correlate(date("2018-08-01"))
	require.NoError(t, err)
	assert.Nil(t, in.Regime)
	assert.Equal(t, models.UnknownRegimeLabel, in.RegimeLabel)
}

// ── Display id ──

func TestDisplayIDFallback(t *testing.T) {
	assert.Equal(t, "2025-08-10-v1", mustLoad(t).DisplayID())

	late := utils.FixedClock(time.Date(2025, time.August, 10, 20, 0, 0, 0, time.UTC)) // already 11th in India
	v, err := load(t, func(d *snapshot.Document) { d.SnapshotID = "" }, view.Options{Clock: late})
	require.NoError(t, err)
	assert.Equal(t, "2025-08-11-local", v.DisplayID())
}
