// Package export writes filtered rate windows to CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/seenimoa/reporate/internal/correlate"
	"github.com/seenimoa/reporate/internal/view"
	"github.com/seenimoa/reporate/pkg/models"
)

// Header is the first CSV row.
var Header = []string{"Date", "Rate (%)", "Change (bps)", "Event", "Regime"}

// WriteCSV writes one row per observation in win. Event is the first event
// on the same date and Regime the first regime containing it; both are
// empty when nothing matches.
func WriteCSV(w io.Writer, win view.Window) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range win.Observations {
		c := correlate.Correlate(o, win.Regimes, win.Events)
		regime := ""
		if c.Regime != nil {
			regime = c.Regime.Label
		}
		row := []string{
			o.Date.String(),
			o.Rate.String(),
			strconv.Itoa(o.ChangeBps),
			correlate.FirstEventLabel(c),
			regime,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", o.Date, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// FileName is the download name for r, with "all" for an open side.
func FileName(r models.DateRange) string {
	return "rbi_repo_rate_" + r.Key() + ".csv"
}
