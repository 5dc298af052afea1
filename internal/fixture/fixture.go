// Package fixture carries a small, real-shaped snapshot used by tests across
// the module.
package fixture

import (
	"bytes"
	_ "embed"
	"testing"

	"github.com/seenimoa/reporate/internal/snapshot"
)

//go:embed testdata/snapshot.json
var snapshotJSON []byte

// Checksum is the checksum stored in (and valid for) the fixture snapshot.
const Checksum = "sha256:39474b042a4e"

// SnapshotJSON returns a copy of the raw fixture document.
func SnapshotJSON() []byte {
	return bytes.Clone(snapshotJSON)
}

// Document decodes the fixture, failing the test on error.
func Document(t testing.TB) *snapshot.Document {
	t.Helper()
	doc, err := snapshot.Decode(bytes.NewReader(snapshotJSON))
	if err != nil {
		t.Fatalf("decoding fixture snapshot: %v", err)
	}
	return doc
}
