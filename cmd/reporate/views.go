package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/reporate/internal/correlate"
	"github.com/seenimoa/reporate/internal/export"
	"github.com/seenimoa/reporate/internal/rangefilter"
	"github.com/seenimoa/reporate/internal/regime"
	"github.com/seenimoa/reporate/internal/view"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

func init() {
	for _, c := range []*cobra.Command{ratesCmd, eventsCmd, exportCmd} {
		addRangeFlags(c)
	}
	for _, c := range []*cobra.Command{summaryCmd, ratesCmd, eventsCmd, cyclesCmd, compareCmd, correlateCmd} {
		c.Flags().Bool("json", false, "print JSON instead of a table")
	}
	exportCmd.Flags().StringP("output", "o", "", "output file (default: the standard download name in the current directory, - for stdout)")

	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(correlateCmd)
	rootCmd.AddCommand(exportCmd)
}

// --- Range flags ---

func addRangeFlags(c *cobra.Command) {
	c.Flags().String("preset", "", "range preset: 1Y, 5Y, 10Y or ALL")
	c.Flags().String("start", "", "range start, YYYY-MM-DD (inclusive)")
	c.Flags().String("end", "", "range end, YYYY-MM-DD (inclusive)")
}

// rangeFromFlags mirrors the API: a preset wins over explicit bounds.
func rangeFromFlags(cmd *cobra.Command, v *view.SnapshotView) (models.DateRange, error) {
	if p, _ := cmd.Flags().GetString("preset"); p != "" {
		preset, err := rangefilter.ParsePreset(p)
		if err != nil {
			return models.DateRange{}, err
		}
		if preset != rangefilter.PresetCustom {
			return v.Presets(preset)
		}
	}
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	return rangefilter.ParseRange(start, end)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func wantJSON(cmd *cobra.Command) bool {
	b, _ := cmd.Flags().GetBool("json")
	return b
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// --- Summary Command ---

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the current rate, last action and regime",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadView()
		if err != nil {
			return err
		}
		s := v.Summary()
		if wantJSON(cmd) {
			return printJSON(s)
		}

		fmt.Printf("📈 RBI Repo Rate — snapshot %s\n", s.SnapshotID)
		if !s.HasRate {
			fmt.Println("   No observations in snapshot.")
			return nil
		}
		fmt.Printf("   Current rate:  %s (as of %s)\n", utils.FormatRate(s.CurrentRate), utils.FormatDisplay(s.AsOf))
		fmt.Printf("   Previous:      %s\n", utils.FormatRate(s.PreviousRate))
		if s.LastActionDate != nil {
			extreme := ""
			if s.Extreme {
				extreme = "  ⚡ extreme move"
			}
			fmt.Printf("   Last action:   %s %s on %s%s\n",
				s.Direction, utils.FormatBps(s.LastActionBps), utils.FormatDisplay(*s.LastActionDate), extreme)
		}
		fmt.Printf("   Regime:        %s\n", s.Regime)
		fmt.Printf("   Observations:  %d (%d rate changes)\n", s.Observations, s.Changes)
		return nil
	},
}

// --- Rates Command ---

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "List rate observations in a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadView()
		if err != nil {
			return err
		}
		r, err := rangeFromFlags(cmd, v)
		if err != nil {
			return err
		}
		changesOnly, _ := cmd.Flags().GetBool("changes")
		win := v.Filter(r)
		obs := win.Observations
		if changesOnly {
			obs = win.RateChanges
		}
		if wantJSON(cmd) {
			return printJSON(obs)
		}

		fmt.Printf("%-12s %8s %10s  %s\n", "DATE", "RATE", "CHANGE", "REGIME")
		for _, o := range obs {
			c := correlate.Correlate(o, win.Regimes, win.Events)
			marker := ""
			if v.IsExtreme(o) {
				marker = " ⚡"
			}
			fmt.Printf("%-12s %8s %10s  %s%s\n",
				o.Date, utils.FormatRate(o.Rate), utils.FormatBps(o.ChangeBps), correlate.RegimeLabel(c), marker)
		}
		fmt.Printf("\n%d observations (%s)\n", len(obs), rangefilter.MatchPreset(r, v.Today()))
		return nil
	},
}

func init() {
	ratesCmd.Flags().Bool("changes", false, "only list observations that moved the rate")
	correlateCmd.Flags().Bool("nearest", false, "use the observation nearest the date when none falls on it")
}

// --- Events Command ---

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List macro events in a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadView()
		if err != nil {
			return err
		}
		r, err := rangeFromFlags(cmd, v)
		if err != nil {
			return err
		}
		events := v.Filter(r).Events
		if wantJSON(cmd) {
			return printJSON(events)
		}
		for _, e := range events {
			fmt.Printf("%-12s %-9s %s\n", e.Date, e.Type, e.Label)
			if e.Description != "" {
				fmt.Printf("%-22s %s\n", "", e.Description)
			}
		}
		fmt.Printf("\n%d events\n", len(events))
		return nil
	},
}

// --- Cycles Command ---

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Show hiking and easing cycle statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadView()
		if err != nil {
			return err
		}
		cycles := v.Cycles()
		if wantJSON(cmd) {
			return printJSON(cycles)
		}

		fmt.Printf("%-22s %-11s %-25s %10s %7s %14s\n", "CYCLE", "TYPE", "SPAN", "TOTAL", "MONTHS", "PACE")
		for _, c := range cycles {
			span := fmt.Sprintf("%s → %s", c.Regime.StartDate, c.Regime.EndDate)
			fmt.Printf("%-22s %-11s %-25s %10s %7d %14s\n",
				c.Regime.Label, c.Regime.Type, span, utils.FormatBps(c.TotalBps), c.DurationMonths,
				utils.FormatBpsPerMonth(c.AvgBpsPerMonth))
		}
		return nil
	},
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare [cycle-a] [cycle-b]",
	Short: "Compare two cycles on a common day-zero axis",
	Example: `  reporate compare "Easing 2019-20" "Easing 2025"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadView()
		if err != nil {
			return err
		}
		a, ok := v.Cycle(args[0])
		if !ok {
			return fmt.Errorf("unknown cycle %q", args[0])
		}
		b, ok := v.Cycle(args[1])
		if !ok {
			return fmt.Errorf("unknown cycle %q", args[1])
		}
		cmp := regime.Compare(a, b)
		if wantJSON(cmd) {
			return printJSON(cmp)
		}

		for _, side := range []struct {
			c     models.Cycle
			curve []models.CyclePoint
		}{{cmp.A, cmp.CurveA}, {cmp.B, cmp.CurveB}} {
			fmt.Printf("%s (%s, %d months)\n", side.c.Regime.Label, utils.FormatBps(side.c.TotalBps), side.c.DurationMonths)
			for _, p := range side.curve {
				fmt.Printf("   day %4d  %s  %s\n", p.DayOffset, utils.FormatRate(p.Rate), utils.FormatBps(p.RateDelta))
			}
		}
		fmt.Printf("\nDifference (B − A): %s\n", utils.FormatBps(cmp.DeltaBps))
		return nil
	},
}

// --- Correlate Command ---

var correlateCmd = &cobra.Command{
	Use:   "correlate [date]",
	Short: "Show the regime and events for the observation on a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := utils.ParseDate(args[0])
		if err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
		v, err := loadView()
		if err != nil {
			return err
		}
		lookup := v.Correlate
		if nearest, _ := cmd.Flags().GetBool("nearest"); nearest {
			lookup = v.CorrelateNearest
		}
		insp, err := lookup(d)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(insp)
		}

		o := insp.Observation
		fmt.Printf("🔎 %s\n", utils.FormatDisplay(o.Date))
		fmt.Printf("   Rate:    %s (%s)\n", utils.FormatRate(o.Rate), utils.FormatBps(o.ChangeBps))
		fmt.Printf("   Regime:  %s\n", insp.RegimeLabel)
		if insp.Extreme {
			fmt.Println("   ⚡ extreme move")
		}
		for _, e := range insp.SameDateEvents {
			fmt.Printf("   • %s — %s\n", e.Label, e.Description)
		}
		return nil
	},
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a date range to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadView()
		if err != nil {
			return err
		}
		r, err := rangeFromFlags(cmd, v)
		if err != nil {
			return err
		}
		win := v.Filter(r)

		out, _ := cmd.Flags().GetString("output")
		if out == "-" {
			return export.WriteCSV(os.Stdout, win)
		}
		if out == "" {
			out = export.FileName(r)
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		if err := export.WriteCSV(f, win); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("📄 Wrote %d rows to %s\n", len(win.Observations), out)
		return nil
	},
}
