// Package normalize turns a raw snapshot document into typed, comparable
// values exactly once, so every later stage compares calendar dates and
// decimals instead of strings.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/reporate/internal/snapshot"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

var (
	// ErrMalformedDate is returned when any date in the snapshot fails to parse.
	ErrMalformedDate = errors.New("malformed date")
	// ErrDuplicateDate is returned when two rate observations share a date.
	ErrDuplicateDate = errors.New("duplicate observation date")
	// ErrUnknownRegimeType is returned for a regime type outside easing/tightening/pause.
	ErrUnknownRegimeType = errors.New("unknown regime type")
)

// DateError pinpoints the entity whose date could not be parsed.
type DateError struct {
	Entity string // "rates", "events", "regimes" or "snapshot"
	Index  int
	Field  string
	Value  string
	Err    error
}

func (e *DateError) Error() string {
	if e.Entity == "snapshot" {
		return fmt.Sprintf("%s: %s %q: %v", ErrMalformedDate, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %s[%d].%s %q: %v", ErrMalformedDate, e.Entity, e.Index, e.Field, e.Value, e.Err)
}

func (e *DateError) Unwrap() []error { return []error{ErrMalformedDate, e.Err} }

// Dataset is the normalized content of one snapshot. Observations are
// sorted ascending by date and carry no deltas yet.
type Dataset struct {
	Meta         models.SnapshotMeta
	Observations []models.RateObservation
	Events       []models.MacroEvent
	Regimes      []models.Regime
}

// Normalize parses every date and rate in doc. The first malformed value
// rejects the whole snapshot.
func Normalize(doc *snapshot.Document) (*Dataset, error) {
	ds := &Dataset{
		Meta: models.SnapshotMeta{
			ID:        doc.SnapshotID,
			SourceURL: doc.SourceURL,
			Checksum:  doc.Checksum,
		},
	}

	if doc.FetchedAt != "" {
		ts, err := time.Parse(time.RFC3339, doc.FetchedAt)
		if err != nil {
			return nil, &DateError{Entity: "snapshot", Field: "fetched_at", Value: doc.FetchedAt, Err: err}
		}
		ds.Meta.FetchedAt = ts
	}

	ds.Observations = make([]models.RateObservation, 0, len(doc.Rates))
	for i, r := range doc.Rates {
		d, err := parseDate("rates", i, "date", r.Date)
		if err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(r.Rate.String())
		if err != nil {
			return nil, fmt.Errorf("%w: rates[%d].rate %q", snapshot.ErrMalformedSnapshot, i, r.Rate)
		}
		ds.Observations = append(ds.Observations, models.NewRateObservation(d, rate, r.Source))
	}
	if err := sortObservations(ds.Observations); err != nil {
		return nil, err
	}

	ds.Events = make([]models.MacroEvent, 0, len(doc.Events))
	for i, e := range doc.Events {
		d, err := parseDate("events", i, "date", e.Date)
		if err != nil {
			return nil, err
		}
		ds.Events = append(ds.Events, models.MacroEvent{
			Date:        d,
			Label:       e.Label,
			Description: e.Description,
			Type:        models.EventType(e.Type),
			Citation:    e.Citation,
		})
	}

	ds.Regimes = make([]models.Regime, 0, len(doc.Regimes))
	for i, r := range doc.Regimes {
		start, err := parseDate("regimes", i, "startDate", r.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := parseDate("regimes", i, "endDate", r.EndDate)
		if err != nil {
			return nil, err
		}
		typ := models.RegimeType(r.Type)
		if !typ.Valid() {
			return nil, fmt.Errorf("%w: regimes[%d] %q has type %q", ErrUnknownRegimeType, i, r.Label, r.Type)
		}
		ds.Regimes = append(ds.Regimes, models.Regime{Label: r.Label, Type: typ, StartDate: start, EndDate: end})
	}

	return ds, nil
}

// Renormalize re-applies the normalization invariants to an already
// normalized dataset. On valid input it returns an equal dataset.
func Renormalize(ds *Dataset) (*Dataset, error) {
	out := &Dataset{
		Meta:         ds.Meta,
		Observations: append([]models.RateObservation(nil), ds.Observations...),
		Events:       append([]models.MacroEvent(nil), ds.Events...),
		Regimes:      append([]models.Regime(nil), ds.Regimes...),
	}
	for i, o := range out.Observations {
		if !o.Date.IsValid() {
			return nil, &DateError{Entity: "rates", Index: i, Field: "date", Value: o.Date.String(), Err: errors.New("invalid date")}
		}
	}
	if err := sortObservations(out.Observations); err != nil {
		return nil, err
	}
	return out, nil
}

// Document re-emits the dataset in raw document form. Normalizing the
// result yields a dataset equal to ds.
func (ds *Dataset) Document() *snapshot.Document {
	doc := &snapshot.Document{
		SnapshotID: ds.Meta.ID,
		SourceURL:  ds.Meta.SourceURL,
		Checksum:   ds.Meta.Checksum,
	}
	if !ds.Meta.FetchedAt.IsZero() {
		doc.FetchedAt = ds.Meta.FetchedAt.Format(time.RFC3339Nano)
	}
	doc.Rates = make([]snapshot.RawRate, len(ds.Observations))
	for i, o := range ds.Observations {
		doc.Rates[i] = snapshot.RawRate{Date: o.Date.String(), Rate: jsonNumber(o.Rate), Source: o.Source}
	}
	doc.Events = make([]snapshot.RawEvent, len(ds.Events))
	for i, e := range ds.Events {
		doc.Events[i] = snapshot.RawEvent{
			Date:        e.Date.String(),
			Label:       e.Label,
			Description: e.Description,
			Type:        string(e.Type),
			Citation:    e.Citation,
		}
	}
	doc.Regimes = make([]snapshot.RawRegime, len(ds.Regimes))
	for i, r := range ds.Regimes {
		doc.Regimes[i] = snapshot.RawRegime{
			Label:     r.Label,
			Type:      string(r.Type),
			StartDate: r.StartDate.String(),
			EndDate:   r.EndDate.String(),
		}
	}
	return doc
}

func parseDate(entity string, index int, field, value string) (civil.Date, error) {
	d, err := utils.ParseDate(value)
	if err != nil {
		return civil.Date{}, &DateError{Entity: entity, Index: index, Field: field, Value: value, Err: err}
	}
	return d, nil
}

// sortObservations orders by date and rejects duplicates.
func sortObservations(obs []models.RateObservation) error {
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	for i := 1; i < len(obs); i++ {
		if obs[i].Date == obs[i-1].Date {
			return fmt.Errorf("%w: %s", ErrDuplicateDate, obs[i].Date)
		}
	}
	return nil
}

// jsonNumber writes d with its own precision so 6.50 stays "6.50".
func jsonNumber(d decimal.Decimal) json.Number {
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return json.Number(d.StringFixed(places))
}
