package models

import (
	"time"

	"cloud.google.com/go/civil"
)

// SnapshotMeta describes where a snapshot came from. It is never mutated
// after load; a new pull produces a new snapshot.
type SnapshotMeta struct {
	ID        string    `json:"id"`
	FetchedAt time.Time `json:"fetched_at"`
	SourceURL string    `json:"source_url"`
	Checksum  string    `json:"checksum"`
}

// ManifestEntry points at one immutable snapshot file.
type ManifestEntry struct {
	ID       string `json:"id"`
	Date     string `json:"date"` // YYYY-MM-DD
	File     string `json:"file"` // relative to the manifest directory
	Checksum string `json:"checksum"`
}

// Manifest lists every published snapshot, oldest first.
type Manifest struct {
	Snapshots []ManifestEntry `json:"snapshots"`
	Latest    string          `json:"latest,omitempty"`
}

// Entry returns the manifest entry published on date, if any.
func (m *Manifest) Entry(date string) (ManifestEntry, bool) {
	for _, e := range m.Snapshots {
		if e.Date == date {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// DateRange bounds a query. A nil side is unbounded.
type DateRange struct {
	Start *civil.Date `json:"start,omitempty"`
	End   *civil.Date `json:"end,omitempty"`
}

// Unbounded returns a range that matches every date.
func Unbounded() DateRange { return DateRange{} }

// NewDateRange builds a closed range.
func NewDateRange(start, end civil.Date) DateRange {
	return DateRange{Start: &start, End: &end}
}

// Contains applies the point-in-time rule: start <= d <= end.
func (r DateRange) Contains(d civil.Date) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}
	if r.End != nil && d.After(*r.End) {
		return false
	}
	return true
}

// Within reports whether r is fully inside outer.
func (r DateRange) Within(outer DateRange) bool {
	if outer.Start != nil && (r.Start == nil || r.Start.Before(*outer.Start)) {
		return false
	}
	if outer.End != nil && (r.End == nil || r.End.After(*outer.End)) {
		return false
	}
	return true
}

// Key is a stable string form, used for cache keys and file names.
func (r DateRange) Key() string {
	start, end := "all", "all"
	if r.Start != nil {
		start = r.Start.String()
	}
	if r.End != nil {
		end = r.End.String()
	}
	return start + "_" + end
}
