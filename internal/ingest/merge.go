package ingest

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/reporate/internal/snapshot"
)

// MergeStats counts what Merge added.
type MergeStats struct {
	AddedRates   int
	AddedEvents  int
	SkippedRates int
}

// Merge returns a copy of baseline with new rates appended for dates it
// does not have yet and new events for (date, label) pairs it does not
// have yet. Rates stay ascending by date and the checksum is recomputed.
// A rate that disagrees with the baseline on an existing date is an
// error; the baseline is never modified.
func Merge(baseline *snapshot.Document, rates []snapshot.RawRate, events []snapshot.RawEvent) (*snapshot.Document, MergeStats, error) {
	var stats MergeStats
	doc := baseline.Clone()

	known := make(map[string]json.Number, len(doc.Rates))
	for _, r := range doc.Rates {
		known[r.Date] = r.Rate
	}
	for _, r := range rates {
		if existing, ok := known[r.Date]; ok {
			if !sameRate(existing, r.Rate) {
				return nil, MergeStats{}, fmt.Errorf("%w %s: snapshot has %s, input has %s", ErrRateConflict, r.Date, existing, r.Rate)
			}
			stats.SkippedRates++
			continue
		}
		known[r.Date] = r.Rate
		doc.Rates = append(doc.Rates, r)
		stats.AddedRates++
	}
	sort.SliceStable(doc.Rates, func(i, j int) bool { return doc.Rates[i].Date < doc.Rates[j].Date })

	seen := make(map[[2]string]bool, len(doc.Events))
	for _, e := range doc.Events {
		seen[[2]string{e.Date, e.Label}] = true
	}
	for _, e := range events {
		key := [2]string{e.Date, e.Label}
		if seen[key] {
			continue
		}
		seen[key] = true
		doc.Events = append(doc.Events, e)
		stats.AddedEvents++
	}
	sort.SliceStable(doc.Events, func(i, j int) bool { return doc.Events[i].Date < doc.Events[j].Date })

	sum, err := snapshot.Checksum(doc.Rates)
	if err != nil {
		return nil, MergeStats{}, err
	}
	doc.Checksum = sum
	return doc, stats, nil
}

func sameRate(a, b json.Number) bool {
	da, errA := decimal.NewFromString(string(a))
	db, errB := decimal.NewFromString(string(b))
	if errA != nil || errB != nil {
		return a == b
	}
	return da.Equal(db)
}

// numberOf spells a rate the way snapshot files store it.
func numberOf(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
