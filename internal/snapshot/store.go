package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

// ErrSnapshotExists is returned when publishing would overwrite a file.
var ErrSnapshotExists = errors.New("snapshot file already exists")

// Store manages the versioned snapshot directory and its manifest.
// Published snapshot files are never rewritten.
type Store struct {
	root  string // directory holding manifest.json and snapshots/
	clock utils.Clock
	log   zerolog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, clock utils.Clock, log zerolog.Logger) *Store {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &Store{
		root:  dir,
		clock: clock,
		log:   log.With().Str("component", "snapshot_store").Logger(),
	}
}

// ManifestPath returns the manifest location.
func (s *Store) ManifestPath() string {
	return filepath.Join(s.root, "manifest.json")
}

// LoadManifest reads the manifest. A missing manifest is an empty one.
func (s *Store) LoadManifest() (*models.Manifest, error) {
	data, err := os.ReadFile(s.ManifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Manifest{}, nil
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m models.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

func (s *Store) saveManifest(m *models.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.ManifestPath(), append(data, '\n'))
}

// Latest opens the snapshot the manifest marks as latest.
func (s *Store) Latest() (*Document, models.ManifestEntry, error) {
	m, err := s.LoadManifest()
	if err != nil {
		return nil, models.ManifestEntry{}, err
	}
	entry, ok := m.Entry(m.Latest)
	if !ok {
		return nil, models.ManifestEntry{}, fmt.Errorf("manifest has no latest snapshot")
	}
	doc, err := s.Open(entry)
	return doc, entry, err
}

// Open reads the snapshot file an entry points to.
func (s *Store) Open(entry models.ManifestEntry) (*Document, error) {
	return ReadFile(filepath.Join(s.root, filepath.FromSlash(entry.File)))
}

// Publish writes a new immutable snapshot derived from baseline and
// records it in the manifest. The baseline document is not modified.
func (s *Store) Publish(baseline *Document) (models.ManifestEntry, *Document, error) {
	now := s.clock().UTC()
	date := utils.TodayIST(func() time.Time { return now }).String()

	sum, err := Checksum(baseline.Rates)
	if err != nil {
		return models.ManifestEntry{}, nil, err
	}

	doc := baseline.Clone()
	doc.SnapshotID = date + "-v1"
	doc.FetchedAt = now.Format(time.RFC3339Nano)
	doc.Checksum = sum

	m, err := s.LoadManifest()
	if err != nil {
		return models.ManifestEntry{}, nil, err
	}

	rel := path.Join("snapshots", date+".json")
	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return models.ManifestEntry{}, nil, fmt.Errorf("creating snapshot dir: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return models.ManifestEntry{}, nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := writeFileExclusive(target, buf.Bytes()); err != nil {
		return models.ManifestEntry{}, nil, err
	}

	entry := models.ManifestEntry{ID: doc.SnapshotID, Date: date, File: rel, Checksum: sum}
	if _, exists := m.Entry(date); !exists {
		m.Snapshots = append(m.Snapshots, entry)
	}
	m.Latest = date
	if err := s.saveManifest(m); err != nil {
		return models.ManifestEntry{}, nil, fmt.Errorf("writing manifest: %w", err)
	}

	s.log.Info().
		Str("snapshot_id", doc.SnapshotID).
		Str("file", rel).
		Str("checksum", sum).
		Int("rates", len(doc.Rates)).
		Msg("published snapshot")
	return entry, doc, nil
}

func writeFileExclusive(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrSnapshotExists, name)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFileAtomic(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, name)
}
