package snapshot

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/reporate/pkg/models"
)

// VerifyResult is the outcome of checking one manifest entry.
type VerifyResult struct {
	Entry models.ManifestEntry `json:"entry"`
	Err   error                `json:"-"`
}

// OK reports whether the entry verified cleanly.
func (r VerifyResult) OK() bool { return r.Err == nil }

// verifyConcurrency bounds how many snapshot files are read at once.
const verifyConcurrency = 4

// VerifyAll re-reads every snapshot in the manifest and checks that its
// rates still hash to the checksum recorded both in the file and in the
// manifest. Results are returned in manifest order; per-entry failures are
// reported in the result, not as the returned error.
func (s *Store) VerifyAll(ctx context.Context) ([]VerifyResult, error) {
	m, err := s.LoadManifest()
	if err != nil {
		return nil, err
	}

	results := make([]VerifyResult, len(m.Snapshots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for i, entry := range m.Snapshots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := VerifyResult{Entry: entry, Err: s.verifyEntry(entry)}
			results[i] = res
			if res.Err != nil {
				s.log.Warn().Err(res.Err).Str("snapshot_id", entry.ID).Msg("snapshot failed verification")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) verifyEntry(entry models.ManifestEntry) error {
	doc, err := s.Open(entry)
	if err != nil {
		return err
	}
	if err := doc.VerifyChecksum(); err != nil {
		return err
	}
	if doc.Checksum != entry.Checksum {
		return fmt.Errorf("%w: manifest records %q, file has %q", ErrChecksumMismatch, entry.Checksum, doc.Checksum)
	}
	return nil
}
