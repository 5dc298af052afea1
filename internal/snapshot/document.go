// Package snapshot reads, checksums and publishes the immutable snapshot
// documents the rest of the application derives its views from.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrMalformedSnapshot is returned when a document is not valid snapshot JSON.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrChecksumMismatch is returned when the stored checksum does not match the rates.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

// RawRate is a rate row exactly as stored in the document.
type RawRate struct {
	Date   string      `json:"date"`
	Rate   json.Number `json:"rate"`
	Source string      `json:"source"`
}

// RawEvent is a macro event row as stored in the document.
type RawEvent struct {
	Date        string `json:"date"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Citation    string `json:"citation"`
}

// RawRegime is a regime row as stored in the document.
type RawRegime struct {
	Label     string `json:"label"`
	Type      string `json:"type"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Document is the on-disk snapshot. Dates are still strings here; the
// normalizer turns them into calendar dates.
type Document struct {
	SnapshotID string      `json:"snapshot_id"`
	FetchedAt  string      `json:"fetched_at"`
	SourceURL  string      `json:"source_url"`
	Checksum   string      `json:"checksum"`
	Rates      []RawRate   `json:"rates"`
	Events     []RawEvent  `json:"events"`
	Regimes    []RawRegime `json:"regimes"`
}

// Decode reads exactly one snapshot document. Unknown fields and any
// data after the document are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedSnapshot)
	}
	if doc.Rates == nil {
		return nil, fmt.Errorf("%w: missing rates array", ErrMalformedSnapshot)
	}
	for i, r := range doc.Rates {
		if r.Rate == "" {
			return nil, fmt.Errorf("%w: rates[%d] has no rate", ErrMalformedSnapshot, i)
		}
	}
	return &doc, nil
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Encode writes doc as indented JSON, the layout published files use.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// VerifyChecksum recomputes the rates checksum and compares it with the
// stored one.
func (d *Document) VerifyChecksum() error {
	sum, err := Checksum(d.Rates)
	if err != nil {
		return err
	}
	if sum != d.Checksum {
		return fmt.Errorf("%w: stored %q, computed %q", ErrChecksumMismatch, d.Checksum, sum)
	}
	return nil
}

// Clone returns a deep copy so callers can derive a new document without
// touching the original.
func (d *Document) Clone() *Document {
	out := *d
	out.Rates = append([]RawRate(nil), d.Rates...)
	out.Events = append([]RawEvent(nil), d.Events...)
	out.Regimes = append([]RawRegime(nil), d.Regimes...)
	return &out
}
