// Package ingest turns hand-saved central bank pages into snapshot rows.
// Nothing here touches the network: the operator downloads the page or
// feed, checks it, and feeds the file in.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/reporate/internal/snapshot"
)

var (
	// ErrMalformedRow is returned for a table row whose date or rate cannot be read.
	ErrMalformedRow = errors.New("malformed rate row")
	// ErrNoRateTable is returned when the page holds no usable rows.
	ErrNoRateTable = errors.New("no rate table found")
	// ErrRateConflict is returned when one date carries two different rates.
	ErrRateConflict = errors.New("conflicting rates for date")
)

// RowError pinpoints a rejected table row. Row is 1-based and counts the
// rows of data tables in page order, headers included.
type RowError struct {
	Row  int
	Cell string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s %d: %q: %v", ErrMalformedRow, e.Row, e.Cell, e.Err)
}

func (e *RowError) Unwrap() []error { return []error{ErrMalformedRow, e.Err} }

// dateLayouts are the spellings seen on the policy rate pages.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan. 2, 2006",
}

var spaces = regexp.MustCompile(`\s+`)

// ParseDateCell reads an effective date in any known layout.
func ParseDateCell(s string) (civil.Date, error) {
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseRateCell reads a percentage like "6.50", "6.50 %" or "6.50 per cent".
func ParseRateCell(s string) (decimal.Decimal, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "per cent")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unrecognised rate %q", s)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative rate %s", d)
	}
	return d, nil
}

// ParseRateTable extracts (effective date, rate) rows from the first table
// on the page that has a date column and a rate column. Header cells
// mentioning "date" and "rate" choose the columns; without a header the
// first two columns are used. Blank rows are skipped and the result is
// ascending by date.
func ParseRateTable(r io.Reader, source string) ([]snapshot.RawRate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing rate page: %w", err)
	}

	var (
		rates  []snapshot.RawRate
		rowErr error
		rowNum int
	)

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		// Layout tables wrap the data table; only leaf tables hold rows.
		if table.Find("table").Length() > 0 {
			return true
		}
		dateCol, rateCol := 0, 1

		table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			rowNum++

			cells := row.Find("th, td")
			texts := make([]string, cells.Length())
			blank := true
			cells.Each(func(i int, cell *goquery.Selection) {
				texts[i] = strings.TrimSpace(spaces.ReplaceAllString(cell.Text(), " "))
				if texts[i] != "" {
					blank = false
				}
			})
			if blank {
				return true
			}
			if isHeader(row, texts) {
				dateCol, rateCol = headerColumns(texts, dateCol, rateCol)
				return true
			}
			if len(texts) <= dateCol || len(texts) <= rateCol {
				rowErr = &RowError{Row: rowNum, Cell: strings.Join(texts, " | "), Err: errors.New("too few cells")}
				return false
			}

			d, err := ParseDateCell(texts[dateCol])
			if err != nil {
				rowErr = &RowError{Row: rowNum, Cell: texts[dateCol], Err: err}
				return false
			}
			rate, err := ParseRateCell(texts[rateCol])
			if err != nil {
				rowErr = &RowError{Row: rowNum, Cell: texts[rateCol], Err: err}
				return false
			}
			rates = append(rates, snapshot.RawRate{Date: d.String(), Rate: numberOf(rate), Source: source})
			return true
		})
		// Stop at the first table that yielded rows.
		return rowErr == nil && len(rates) == 0
	})

	if rowErr != nil {
		return nil, rowErr
	}
	if len(rates) == 0 {
		return nil, ErrNoRateTable
	}
	return sortRates(rates)
}

// isHeader reports whether a row labels columns: all <th> cells, or text
// cells naming a date column where a date should be.
func isHeader(row *goquery.Selection, texts []string) bool {
	if row.Find("td").Length() == 0 {
		return true
	}
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), "date") {
			if _, err := ParseDateCell(t); err != nil {
				return true
			}
		}
	}
	return false
}

func headerColumns(texts []string, dateCol, rateCol int) (int, int) {
	for i, t := range texts {
		label := strings.ToLower(t)
		switch {
		case strings.Contains(label, "date"):
			dateCol = i
		case strings.Contains(label, "rate"):
			rateCol = i
		}
	}
	return dateCol, rateCol
}

// sortRates orders rows by date and folds exact repeats. The same date
// with two rates is an error.
func sortRates(rates []snapshot.RawRate) ([]snapshot.RawRate, error) {
	sort.SliceStable(rates, func(i, j int) bool { return rates[i].Date < rates[j].Date })

	out := rates[:0]
	for _, r := range rates {
		if n := len(out); n > 0 && out[n-1].Date == r.Date {
			if !sameRate(out[n-1].Rate, r.Rate) {
				return nil, fmt.Errorf("%w %s: %s vs %s", ErrRateConflict, r.Date, out[n-1].Rate, r.Rate)
			}
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
