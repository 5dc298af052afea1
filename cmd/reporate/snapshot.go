package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/seenimoa/reporate/internal/ingest"
	"github.com/seenimoa/reporate/internal/normalize"
	"github.com/seenimoa/reporate/internal/snapshot"
	"github.com/seenimoa/reporate/pkg/utils"
)

func init() {
	snapshotCmd.AddCommand(snapshotPublishCmd)
	snapshotCmd.AddCommand(snapshotVerifyCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	rootCmd.AddCommand(snapshotCmd)

	for _, c := range []*cobra.Command{ingestRatesCmd, ingestEventsCmd} {
		c.Flags().Bool("publish", false, "publish the merged document as today's snapshot")
		c.Flags().StringP("output", "o", "", "write the merged document to this file instead (- for stdout)")
	}
	ingestRatesCmd.Flags().String("source", "RBI Monetary Policy Statement", "source recorded on each parsed rate")
	ingestEventsCmd.Flags().StringSlice("keyword", nil, "title keywords that mark a policy release (default: built-in list)")
	ingestEventsCmd.Flags().String("since", "", "drop releases published before this date, YYYY-MM-DD")
	ingestCmd.AddCommand(ingestRatesCmd)
	ingestCmd.AddCommand(ingestEventsCmd)
	rootCmd.AddCommand(ingestCmd)
}

// --- Snapshot Commands ---

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage versioned snapshots in the data directory",
}

var snapshotPublishCmd = &cobra.Command{
	Use:   "publish [file]",
	Short: "Publish a document as today's immutable snapshot",
	Long: `Publish validates a baseline document, stamps it with today's IST date,
a fresh checksum and fetch time, writes it under snapshots/ and marks it
as latest in the manifest. Without a file the currently loaded snapshot
is republished.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			doc *snapshot.Document
			err error
		)
		if len(args) == 1 {
			doc, err = snapshot.ReadFile(args[0])
		} else {
			doc, _, err = loadDocument()
		}
		if err != nil {
			return err
		}
		return publish(doc)
	},
}

// publish validates doc the way loading would, then writes it to the store.
func publish(doc *snapshot.Document) error {
	if _, err := normalize.Normalize(doc); err != nil {
		return fmt.Errorf("refusing to publish: %w", err)
	}
	entry, _, err := newStore().Publish(doc)
	if err != nil {
		return err
	}
	fmt.Printf("📦 Published %s → %s (%s)\n", entry.ID, entry.File, entry.Checksum)
	return nil
}

var snapshotVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-check the checksum of every published snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		results, err := newStore().VerifyAll(ctx)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			if r.OK() {
				fmt.Printf("  ✅ %-16s %s\n", r.Entry.ID, r.Entry.Checksum)
				continue
			}
			failed++
			fmt.Printf("  ❌ %-16s %v\n", r.Entry.ID, r.Err)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d snapshots failed verification", failed, len(results))
		}
		fmt.Printf("%d snapshots verified\n", len(results))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newStore().LoadManifest()
		if err != nil {
			return err
		}
		if len(m.Snapshots) == 0 {
			fmt.Printf("No snapshots in %s\n", cfg.Snapshot.Dir)
			return nil
		}
		for _, e := range m.Snapshots {
			marker := " "
			if e.Date == m.Latest {
				marker = "*"
			}
			fmt.Printf("%s %-16s %-32s %s\n", marker, e.ID, e.File, e.Checksum)
		}
		return nil
	},
}

// --- Ingest Commands ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Merge newly published rate decisions or press releases into a snapshot",
}

var ingestRatesCmd = &cobra.Command{
	Use:   "rates [file]",
	Short: "Parse a saved RBI policy rate table (HTML) and merge new decisions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")
		body, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer body.Close()

		rates, err := ingest.ParseRateTable(body, source)
		if err != nil {
			return err
		}
		logger.Info().Int("rates", len(rates)).Str("input", args[0]).Msg("parsed rate table")
		return mergeAndWrite(cmd, rates, nil)
	},
}

var ingestEventsCmd = &cobra.Command{
	Use:   "events [file]",
	Short: "Parse a saved RBI press-release feed (RSS/Atom) and merge policy events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ingest.FeedFilter{}
		filter.Keywords, _ = cmd.Flags().GetStringSlice("keyword")
		if since, _ := cmd.Flags().GetString("since"); since != "" {
			d, err := utils.ParseDate(since)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			filter.Since = &d
		}

		body, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer body.Close()

		events, err := ingest.ParsePressFeed(body, filter)
		if err != nil {
			return err
		}
		logger.Info().Int("events", len(events)).Str("input", args[0]).Msg("parsed press feed")
		return mergeAndWrite(cmd, nil, events)
	},
}

// mergeAndWrite merges into the loaded snapshot and then publishes, writes
// to --output, or just reports what would change.
func mergeAndWrite(cmd *cobra.Command, rates []snapshot.RawRate, events []snapshot.RawEvent) error {
	baseline, _, err := loadDocument()
	if err != nil {
		return err
	}
	merged, stats, err := ingest.Merge(baseline, rates, events)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "➕ %d new rates, %d new events (%d rates already present)\n",
		stats.AddedRates, stats.AddedEvents, stats.SkippedRates)

	if doPublish, _ := cmd.Flags().GetBool("publish"); doPublish {
		return publish(merged)
	}
	switch out, _ := cmd.Flags().GetString("output"); out {
	case "":
		fmt.Println("Dry run: use --publish or --output to keep the result.")
		return nil
	case "-":
		return snapshot.Encode(os.Stdout, merged)
	default:
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		if err := snapshot.Encode(f, merged); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

// openInput opens a local file, or stdin for "-".
func openInput(src string) (io.ReadCloser, error) {
	if src == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(src)
}
