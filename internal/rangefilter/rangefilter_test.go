package rangefilter

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/reporate/internal/normalize"
	"github.com/seenimoa/reporate/pkg/models"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func closed(start, end string) models.DateRange {
	return models.NewDateRange(date(start), date(end))
}

func series() []models.RateObservation {
	dates := []string{"2019-12-05", "2020-01-15", "2020-02-06", "2020-03-01", "2020-03-27", "2020-04-01", "2020-05-22", "2020-08-06"}
	out := make([]models.RateObservation, len(dates))
	for i, d := range dates {
		out[i] = models.NewRateObservation(date(d), decimal.NewFromInt(int64(6-i%3)), "test")
	}
	return out
}

func dateStrings(obs []models.RateObservation) []string {
	out := make([]string, len(obs))
	for i, o := range obs {
		out[i] = o.Date.String()
	}
	return out
}

// ── Point rule ──

func TestObservationsInclusiveBounds(t *testing.T) {
	got := Observations(series(), closed("2020-03-01", "2020-04-01"))
	assert.Equal(t, []string{"2020-03-01", "2020-03-27", "2020-04-01"}, dateStrings(got))
}

func TestObservationsOpenEnds(t *testing.T) {
	start := date("2020-05-01")
	got := Observations(series(), models.DateRange{Start: &start})
	assert.Equal(t, []string{"2020-05-22", "2020-08-06"}, dateStrings(got))

	end := date("2019-12-31")
	got = Observations(series(), models.DateRange{End: &end})
	assert.Equal(t, []string{"2019-12-05"}, dateStrings(got))

	assert.Len(t, Observations(series(), models.Unbounded()), len(series()))
}

func TestObservationsEmptyResults(t *testing.T) {
	assert.Empty(t, Observations(series(), closed("2030-01-01", "2030-12-31")))
	// start after end is not an error, just empty
	assert.Empty(t, Observations(series(), closed("2020-04-01", "2020-03-01")))
	assert.NotNil(t, Observations(nil, models.Unbounded()))
}

func TestEventsPointRule(t *testing.T) {
	events := []models.MacroEvent{
		{Date: date("2020-03-11"), Label: "WHO declares pandemic"},
		{Date: date("2020-03-27"), Label: "Emergency cut"},
		{Date: date("2020-05-22"), Label: "Second cut"},
	}
	got := Events(events, closed("2020-03-27", "2020-05-22"))
	require.Len(t, got, 2)
	assert.Equal(t, "Emergency cut", got[0].Label)
}

func TestFilteringReturnsFreshSlice(t *testing.T) {
	in := series()
	got := Observations(in, models.Unbounded())
	got[0].Source = "mutated"
	assert.Equal(t, "test", in[0].Source)
}

func TestMonotoneUnderNarrowing(t *testing.T) {
	in := series()
	ranges := []struct {
		a, b models.DateRange
	}{
		{closed("2019-01-01", "2021-01-01"), closed("2020-02-06", "2020-05-22")},
		{models.Unbounded(), closed("2020-03-01", "2020-03-01")},
		{closed("2020-01-01", "2020-12-31"), closed("2020-01-01", "2020-12-31")},
	}
	for _, tt := range ranges {
		t.Run(tt.a.Key()+"->"+tt.b.Key(), func(t *testing.T) {
			twice := Observations(Observations(in, tt.a), tt.b)
			once := Observations(in, tt.b)
			assert.Equal(t, once, twice)

			// idempotent under the same range
			assert.Equal(t, once, Observations(once, tt.b))
		})
	}
}

// ── Overlap rule ──

func TestRegimesOverlapRule(t *testing.T) {
	regimes := []models.Regime{
		{Label: "Easing 2020", Type: models.RegimeEasing, StartDate: date("2020-01-01"), EndDate: date("2020-06-30")},
		{Label: "Pause", Type: models.RegimePause, StartDate: date("2020-07-01"), EndDate: date("2021-12-31")},
	}
	r := closed("2020-03-01", "2020-04-01")

	got := Regimes(regimes, r)
	require.Len(t, got, 1)
	assert.Equal(t, "Easing 2020", got[0].Label)

	// The regime survives even though its early observations do not.
	obs := []models.RateObservation{
		models.NewRateObservation(date("2020-01-01"), decimal.RequireFromString("5.15"), "t"),
		models.NewRateObservation(date("2020-03-27"), decimal.RequireFromString("4.40"), "t"),
	}
	assert.Len(t, Observations(obs, r), 1)

	// Touching a boundary day counts as overlap.
	assert.Len(t, Regimes(regimes, closed("2020-06-30", "2020-06-30")), 1)
	assert.Len(t, Regimes(regimes, closed("2020-06-30", "2020-07-01")), 2)
	assert.Empty(t, Regimes(regimes, closed("2022-01-01", "2022-12-31")))
	assert.Len(t, Regimes(regimes, models.Unbounded()), 2)
}

// ── Presets and parsing ──

func TestPresetRange(t *testing.T) {
	today := date("2025-08-10")
	tests := []struct {
		p     Preset
		start string
	}{
		{Preset1Y, "2024-08-10"},
		{Preset5Y, "2020-08-10"},
		{Preset10Y, "2015-08-10"},
	}
	for _, tt := range tests {
		t.Run(string(tt.p), func(t *testing.T) {
			r, err := PresetRange(tt.p, today)
			require.NoError(t, err)
			assert.Equal(t, tt.start, r.Start.String())
			assert.Equal(t, "2025-08-10", r.End.String())
			assert.Equal(t, tt.p, MatchPreset(r, today))
		})
	}

	r, err := PresetRange(PresetAll, today)
	require.NoError(t, err)
	assert.Nil(t, r.Start)
	assert.Nil(t, r.End)
	assert.Equal(t, PresetAll, MatchPreset(r, today))

	_, err = PresetRange("3Y", today)
	assert.Error(t, err)

	assert.Equal(t, PresetCustom, MatchPreset(closed("2021-01-01", "2021-06-30"), today))
}

func TestPresetRangeLeapDay(t *testing.T) {
	r, err := PresetRange(Preset1Y, date("2024-02-29"))
	require.NoError(t, err)
	assert.Equal(t, "2023-03-01", r.Start.String())
}

func TestParsePreset(t *testing.T) {
	p, err := ParsePreset(" 5y ")
	require.NoError(t, err)
	assert.Equal(t, Preset5Y, p)

	_, err = ParsePreset("forever")
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("", "")
	require.NoError(t, err)
	assert.Equal(t, models.Unbounded(), r)

	r, err = ParseRange("2020-01-01", "")
	require.NoError(t, err)
	require.NotNil(t, r.Start)
	assert.Nil(t, r.End)

	r, err = ParseRange("2020-01-01", "2020-12-31")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01_2020-12-31", r.Key())

	for _, bad := range [][2]string{{"2020-13-01", ""}, {"", "2020-02-30"}, {"yesterday", ""}} {
		_, err := ParseRange(bad[0], bad[1])
		assert.True(t, errors.Is(err, normalize.ErrMalformedDate), "%v", bad)
	}
}
