package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// checksumPrefix and checksumHexLen define the published checksum format,
// e.g. "sha256:3f2a9c01b7de".
const (
	checksumPrefix = "sha256:"
	checksumHexLen = 12
)

// canonicalRate fixes key order for hashing.
type canonicalRate struct {
	Date   string      `json:"date"`
	Rate   json.Number `json:"rate"`
	Source string      `json:"source"`
}

// Checksum hashes the compact serialization of the rates array. Numbers are
// written in shortest form ("6.50" hashes as 6.5), so the same logical
// content always yields the same checksum.
func Checksum(rates []RawRate) (string, error) {
	canon := make([]canonicalRate, len(rates))
	for i, r := range rates {
		n, err := canonicalNumber(r.Rate)
		if err != nil {
			return "", fmt.Errorf("rates[%d]: %w", i, err)
		}
		canon[i] = canonicalRate{Date: r.Date, Rate: n, Source: r.Source}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(canon); err != nil {
		return "", fmt.Errorf("serializing rates: %w", err)
	}
	payload := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	sum := sha256.Sum256(payload)
	return checksumPrefix + hex.EncodeToString(sum[:])[:checksumHexLen], nil
}

func canonicalNumber(n json.Number) (json.Number, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return "", fmt.Errorf("%w: rate %q is not a number", ErrMalformedSnapshot, n)
	}
	return json.Number(d.String()), nil
}
