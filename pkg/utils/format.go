// Package utils provides formatting and calendar helpers shared by the CLI,
// the API and the exporters.
package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatRate formats a policy rate with two decimals, e.g. 6.5 → "6.50%".
func FormatRate(rate decimal.Decimal) string {
	return rate.StringFixed(2) + "%"
}

// FormatBps formats a basis-point move with an explicit sign for hikes,
// e.g. 25 → "+25 bps", -50 → "-50 bps", 0 → "0 bps".
func FormatBps(bps int) string {
	if bps > 0 {
		return fmt.Sprintf("+%d bps", bps)
	}
	return fmt.Sprintf("%d bps", bps)
}

// FormatBpsPerMonth formats an average pace, e.g. -12.5 → "-12.5 bps/mo".
func FormatBpsPerMonth(avg decimal.Decimal) string {
	return avg.StringFixed(1) + " bps/mo"
}
