// Command reporate serves and inspects RBI policy repo rate history, regimes and cycles.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/reporate/api"
	"github.com/seenimoa/reporate/internal/config"
	"github.com/seenimoa/reporate/internal/logging"
	"github.com/seenimoa/reporate/internal/snapshot"
	"github.com/seenimoa/reporate/internal/view"
	"github.com/seenimoa/reporate/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reporate",
	Short: "reporate — RBI repo rate history, regimes and cycles",
	Long: `reporate loads versioned snapshots of the RBI policy repo rate and
derives basis-point moves, policy regimes, cycle statistics and
event correlations from them. It can print them, export CSV, ingest new
decisions and serve the derived data over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if l, _ := cmd.Flags().GetString("log-level"); l != "" {
			level = l
		}
		logger = logging.New(logging.Config{Level: level, Format: cfg.Logging.Format})
		logging.SetGlobalLogger(logger)

		if path, _ := cmd.Flags().GetString("snapshot"); path != "" {
			cfg.Snapshot.Path = path
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("snapshot", "", "snapshot file to load instead of the latest in the data directory")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reporate %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Snapshot loading ---

func newStore() *snapshot.Store {
	return snapshot.NewStore(cfg.Snapshot.Dir, utils.SystemClock, logger)
}

// loadDocument reads the configured snapshot file, or the latest published
// snapshot when no file is configured. The second value names the source.
func loadDocument() (*snapshot.Document, string, error) {
	if cfg.Snapshot.Path != "" {
		doc, err := snapshot.ReadFile(cfg.Snapshot.Path)
		return doc, cfg.Snapshot.Path, err
	}
	store := newStore()
	doc, entry, err := store.Latest()
	if err != nil {
		return nil, "", fmt.Errorf("loading latest snapshot from %s: %w", cfg.Snapshot.Dir, err)
	}
	return doc, entry.File, nil
}

func viewOptions() view.Options {
	l := logging.Component(logger, "view")
	return view.Options{
		Clock:               utils.SystemClock,
		VerifyChecksum:      cfg.Snapshot.VerifyChecksum,
		StrictRegimes:       cfg.Snapshot.StrictRegimes,
		ExtremeThresholdBps: cfg.Analysis.ExtremeThresholdBps,
		Logger:              &l,
	}
}

func loadView() (*view.SnapshotView, error) {
	doc, source, err := loadDocument()
	if err != nil {
		return nil, err
	}
	v, err := view.Load(doc, viewOptions())
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source, err)
	}
	logger.Debug().Str("source", source).Str("snapshot", v.DisplayID()).Msg("snapshot loaded")
	return v, nil
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		if dir, _ := cmd.Flags().GetString("static"); dir != "" {
			cfg.API.StaticDir = dir
		}

		v, err := loadView()
		if err != nil {
			return err
		}

		api.Version = version
		srv := api.NewServer(cfg, v, api.Options{Clock: utils.SystemClock, Logger: &logger})

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		fmt.Printf("🌐 Serving snapshot %s on http://%s\n", v.DisplayID(), cfg.API.Addr())
		return srv.ListenAndServe(ctx, cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
	serveCmd.Flags().String("static", "", "directory of a built front end to serve at /")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"config"},
	Short:   "Show configuration and snapshot status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  reporate — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time (IST):    %s\n", utils.FormatDateTimeIST(utils.SystemClock()))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Verify checksum:  %t\n", cfg.Snapshot.VerifyChecksum)
		fmt.Printf("    Strict regimes:   %t\n", cfg.Snapshot.StrictRegimes)
		fmt.Printf("    Extreme move:     %d bps\n", cfg.Analysis.ExtremeThresholdBps)
		fmt.Printf("    API Server:       %s\n", cfg.API.Addr())
		fmt.Println()

		fmt.Println("  Paths:")
		for _, p := range config.CheckPaths(cfg) {
			status := "❌ not set"
			switch {
			case p.Path != "" && p.Exists:
				status = fmt.Sprintf("✅ %s (%s)", p.Path, p.Source)
			case p.Path != "":
				status = fmt.Sprintf("⚠️  %s (%s, missing)", p.Path, p.Source)
			}
			fmt.Printf("    %-18s %s\n", p.Name+":", status)
		}

		if v, err := loadView(); err != nil {
			fmt.Printf("\n  Snapshot:      ❌ %v\n", err)
		} else {
			fmt.Printf("\n  Snapshot:      %s (%d observations)\n", v.DisplayID(), len(v.Observations()))
			for _, issue := range v.TilingIssues() {
				fmt.Printf("    ⚠️  %s\n", issue)
			}
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
