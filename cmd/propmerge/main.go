package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/propmerge/internal/audit"
	"github.com/propmerge/internal/classify"
	"github.com/propmerge/internal/config"
	"github.com/propmerge/internal/db"
	"github.com/propmerge/internal/debug"
	"github.com/propmerge/internal/enrich"
	"github.com/propmerge/internal/extract"
	"github.com/propmerge/internal/match"
	"github.com/propmerge/internal/pipeline"
	"github.com/propmerge/internal/zoning"
)

var (
	cfg *config.Config

	flagDebug      bool
	promptPassword bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "propmerge",
		Short: "Commercial property listing merge pipeline",
		Long:  `Merges Sales, For Sale and For Rent property exports into one styled workbook, reconciling zoning per unique address and marking allowable use for the configured business type`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setup()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable verbose trace logging")
	rootCmd.PersistentFlags().BoolVar(&promptPassword, "prompt-password", false, "Prompt for the database password instead of using PGPASSWORD")

	rootCmd.AddCommand(createMergeCmd())
	rootCmd.AddCommand(createZoningCmd())
	rootCmd.AddCommand(createClassifyCmd())
	rootCmd.AddCommand(createCacheCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the logger before any subcommand
// runs.
func setup() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if flagDebug {
		cfg.Debug = true
	}

	zcfg := zap.NewDevelopmentConfig()
	if !cfg.Debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	debug.SetLogger(logger)

	if promptPassword {
		cfg.Database.Password = readPassword()
	}
}

// readPassword prompts on the terminal so the password never lands in shell
// history or a process listing.
func readPassword() string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		log.Fatalf("Cannot prompt for password: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Database password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	return string(pw)
}

// connectDB opens the configured database, or returns nil when the database
// block is disabled.
func connectDB() *db.Connection {
	if !cfg.Database.Enabled {
		return nil
	}
	conn, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return conn
}

// requireDB is connectDB for commands that cannot run without a database.
func requireDB() *db.Connection {
	if !cfg.Database.Enabled {
		log.Fatalf("Database is not enabled; set PGENABLED=true or database.enabled in config.yaml")
	}
	return connectDB()
}

// Export workbooks carry fixed filename prefixes per search type.
var exportPrefixes = []struct {
	prefix string
	kind   extract.Kind
}{
	{"recentSaleExport", extract.KindSales},
	{"forSaleExport", extract.KindForSale},
	{"forRentExport", extract.KindForRent},
}

// createMergeCmd creates the merge subcommand
func createMergeCmd() *cobra.Command {
	var (
		dir           string
		salesFile     string
		forSaleFile   string
		forRentFile   string
		locations     []string
		zoningFrom    string
		overridesFile string
		referenceFile string
		fetchPages    bool
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge property exports into one workbook",
		Long:  `Extracts every export workbook found, reconciles zoning per unique address, marks allowable use and writes the merged workbook with embedded photos and listing hyperlinks`,
		Run: func(cmd *cobra.Command, args []string) {
			sources := resolveSources(dir, salesFile, forSaleFile, forRentFile)
			if len(sources) == 0 {
				log.Fatalf("No export workbooks found; use --dir or the --sales/--for-sale/--for-rent flags")
			}

			job := pipeline.Job{
				Sources:       sources,
				Locations:     locations,
				ReferencePath: referenceFile,
			}

			if zoningFrom != "" {
				job.ZoningSource = zoningSourceFor(zoningFrom)
			}
			if overridesFile != "" {
				ov, err := zoning.LoadOverrides(overridesFile)
				if err != nil {
					log.Fatalf("Failed to load zoning overrides: %v", err)
				}
				job.Overrides = ov
			}

			var enricher enrich.Enricher
			if fetchPages {
				enricher = enrich.NewPageEnricher(cfg.Fetch, cfg.Debug)
			}

			var recorder pipeline.Recorder
			if conn := connectDB(); conn != nil {
				defer conn.Close()
				recorder = audit.NewTracker(conn.DB, cfg.Debug)
				if job.ZoningSource != nil {
					job.ZoningSource = zoning.NewCachedSource(conn.DB, job.ZoningSource, cfg.Debug)
				}
			}

			job.Progress = func(pct int, msg string) bool {
				fmt.Printf("[%3d%%] %s\n", pct, msg)
				return true
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-stop
				fmt.Println("\nStopping after the current phase...")
				cancel()
			}()

			runner := pipeline.NewRunner(cfg, enricher, recorder, cfg.Debug)
			artifact, stats, err := runner.Run(ctx, job)
			if err != nil {
				log.Fatalf("Merge failed: %v", err)
			}

			printMergeResults(artifact, stats)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory holding the export workbooks (default: the configured download dir)")
	cmd.Flags().StringVar(&salesFile, "sales", "", "Sales export workbook")
	cmd.Flags().StringVar(&forSaleFile, "for-sale", "", "For Sale export workbook")
	cmd.Flags().StringVar(&forRentFile, "for-rent", "", "For Rent export workbook")
	cmd.Flags().StringSliceVar(&locations, "location", nil, "Searched location, repeatable; used in the output filename")
	cmd.Flags().StringVar(&zoningFrom, "zoning-from", "", "Zoning source: a csv/xlsx mapping file, an HTML table file, or an http(s) URL")
	cmd.Flags().StringVar(&overridesFile, "overrides", "", "YAML file of address: zoning pairs applied over the source")
	cmd.Flags().StringVar(&referenceFile, "reference", "", "Allowable-use reference workbook (default: search the usual directories)")
	cmd.Flags().BoolVar(&fetchPages, "fetch-pages", false, "Visit each listing page to fill missing photos and contact phones")

	return cmd
}

// resolveSources returns the explicitly named workbooks when any file flag
// is set, otherwise scans dir for the exporter's filename prefixes, first
// match per search type.
func resolveSources(dir, salesFile, forSaleFile, forRentFile string) []extract.Source {
	explicit := []extract.Source{
		{Path: salesFile, Kind: extract.KindSales},
		{Path: forSaleFile, Kind: extract.KindForSale},
		{Path: forRentFile, Kind: extract.KindForRent},
	}

	var sources []extract.Source
	for _, s := range explicit {
		if s.Path != "" {
			sources = append(sources, s)
		}
	}
	if len(sources) > 0 {
		return sources
	}

	if dir == "" {
		dir = cfg.Paths.DownloadDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("Failed to read export directory %s: %v", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".xlsx") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, ep := range exportPrefixes {
		for _, name := range names {
			if strings.HasPrefix(name, ep.prefix) {
				sources = append(sources, extract.Source{Path: filepath.Join(dir, name), Kind: ep.kind})
				break
			}
		}
	}
	return sources
}

// zoningSourceFor picks a source implementation from the location shape.
// URLs and .html files parse as an HTML table; anything else reads as a
// csv/xlsx mapping file.
func zoningSourceFor(location string) zoning.Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") ||
		strings.HasSuffix(location, ".html") || strings.HasSuffix(location, ".htm") {
		return zoning.NewHTMLSource(location, cfg.Debug)
	}
	return zoning.NewFileSource(location)
}

func printMergeResults(artifact string, stats pipeline.RunStats) {
	fmt.Printf("\n=== Merge Results ===\n")
	fmt.Printf("Run ID: %s\n", stats.RunID)

	fmt.Printf("Rows Extracted: %d", stats.Extract.Rows)
	var parts []string
	for _, kind := range []extract.Kind{extract.KindSales, extract.KindForSale, extract.KindForRent} {
		if n, ok := stats.Extract.PerSource[kind.String()]; ok {
			parts = append(parts, fmt.Sprintf("%s %d", kind, n))
		}
	}
	if len(parts) > 0 {
		fmt.Printf(" (%s)", strings.Join(parts, ", "))
	}
	fmt.Println()
	for _, f := range stats.Extract.Failures {
		fmt.Printf("  Skipped %s: %v\n", f.Source, f.Err)
	}

	fmt.Printf("Unique Addresses: %d\n", stats.Unique)
	fmt.Printf("Zoning Accepted: %d", stats.Zoning.Accepted)
	if len(stats.Zoning.ByMethod) > 0 {
		methods := make([]string, 0, len(stats.Zoning.ByMethod))
		for m := range stats.Zoning.ByMethod {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		parts = parts[:0]
		for _, m := range methods {
			parts = append(parts, fmt.Sprintf("%s %d", m, stats.Zoning.ByMethod[m]))
		}
		fmt.Printf(" (%s)", strings.Join(parts, ", "))
	}
	fmt.Println()
	fmt.Printf("Zoning Unresolved: %d\n", stats.Zoning.Unresolved)
	fmt.Printf("Classified: %d\n", stats.Classified)
	fmt.Printf("Images Embedded: %d (%d fallbacks)\n", stats.Assemble.ImagesEmbedded, stats.Assemble.ImageFallbacks)
	fmt.Printf("Hyperlinks: %d\n", stats.Assemble.Hyperlinks)
	fmt.Printf("Elapsed: %v\n", stats.Elapsed.Round(10*time.Millisecond))
	fmt.Printf("Output: %s\n", artifact)
}

// createZoningCmd creates the zoning lookup diagnostics subcommand
func createZoningCmd() *cobra.Command {
	var (
		zoningFrom    string
		overridesFile string
		suggestLimit  int
	)

	cmd := &cobra.Command{
		Use:   "zoning [address ...]",
		Short: "Diagnose zoning lookups for specific addresses",
		Long:  `Resolves each address against the zoning source through the exact, normalized and street-fuzzy strategies, printing the method used and near-miss source addresses for anything left unresolved`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if zoningFrom == "" {
				log.Fatalf("--zoning-from is required")
			}

			source := zoningSourceFor(zoningFrom)
			if conn := connectDB(); conn != nil {
				defer conn.Close()
				source = zoning.NewCachedSource(conn.DB, source, cfg.Debug)
			}

			mapping, err := source.Lookup(context.Background(), args)
			if err != nil {
				log.Fatalf("Zoning lookup failed: %v", err)
			}
			if overridesFile != "" {
				ov, err := zoning.LoadOverrides(overridesFile)
				if err != nil {
					log.Fatalf("Failed to load zoning overrides: %v", err)
				}
				mapping = ov.Apply(mapping)
			}
			fmt.Printf("Source %s: %d entries\n\n", source.Name(), len(mapping))

			chain := match.DefaultChain()
			candidates := zoning.Candidates(mapping)

			var resolutions []zoning.Resolution
			for _, addr := range args {
				res := chain.Match(cfg.Debug, addr, candidates)
				rec := zoning.Resolution{Address: addr}
				if res.Matched {
					rec.Method = res.Method
					rec.Value = res.Value
					rec.Accepted = zoning.Accepted(res.Value)
				}
				resolutions = append(resolutions, rec)

				switch {
				case rec.Accepted:
					fmt.Printf("  %-50s -> %s (%s)\n", addr, rec.Value, rec.Method)
				case rec.Method != "":
					fmt.Printf("  %-50s -> rejected %q (%s)\n", addr, rec.Value, rec.Method)
				default:
					fmt.Printf("  %-50s -> no match\n", addr)
				}
			}

			suggestions := zoning.Report(resolutions, mapping, suggestLimit)
			if len(suggestions) > 0 {
				fmt.Printf("\nNear misses:\n")
				for _, s := range suggestions {
					fmt.Printf("  %s\n", s.Address)
					for _, c := range s.Candidates {
						fmt.Printf("    did you mean %q (%s)\n", c, mapping[c])
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&zoningFrom, "zoning-from", "", "Zoning source: a csv/xlsx mapping file, an HTML table file, or an http(s) URL")
	cmd.Flags().StringVar(&overridesFile, "overrides", "", "YAML file of address: zoning pairs applied over the source")
	cmd.Flags().IntVar(&suggestLimit, "suggestions", 3, "Near-miss candidates to show per unresolved address")

	return cmd
}

// createClassifyCmd creates the reference table dump subcommand
func createClassifyCmd() *cobra.Command {
	var referenceFile string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show the allowable-use reference table",
		Run: func(cmd *cobra.Command, args []string) {
			path := referenceFile
			if path == "" {
				var err error
				path, err = classify.Locate(classify.DefaultFilename, []string{cfg.Paths.ReferenceDir})
				if err != nil {
					log.Fatalf("Failed to locate reference table: %v", err)
				}
			}

			table, err := classify.Load(path, cfg.BusinessType, cfg.Debug)
			if err != nil {
				log.Fatalf("Failed to load reference table: %v", err)
			}

			entries := table.Entries()
			zones := make([]string, 0, len(entries))
			for z := range entries {
				zones = append(zones, z)
			}
			sort.Strings(zones)

			fmt.Printf("%d zones for business type %s (%s)\n\n", table.Len(), cfg.BusinessType, path)
			for _, z := range zones {
				fmt.Printf("  %-45s %s\n", z, entries[z])
			}
		},
	}

	cmd.Flags().StringVar(&referenceFile, "reference", "", "Reference workbook path (default: search the usual directories)")

	return cmd
}

// createCacheCmd creates the cache subcommand
func createCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the zoning cache and run audit database",
	}

	cacheCmd.AddCommand(createCacheMigrateCmd())
	cacheCmd.AddCommand(createCacheStatsCmd())
	cacheCmd.AddCommand(createCacheForgetCmd())

	return cacheCmd
}

func createCacheMigrateCmd() *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Run: func(cmd *cobra.Command, args []string) {
			conn := requireDB()
			defer conn.Close()

			if err := conn.Migrate(migrationsPath); err != nil {
				log.Fatalf("Failed to migrate: %v", err)
			}
			fmt.Println("Migrations applied")
		},
	}

	cmd.Flags().StringVar(&migrationsPath, "source", "", "Migrations source URL (default: "+db.MigrationsPath+")")

	return cmd
}

func createCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show zoning cache size and recorded run count",
		Run: func(cmd *cobra.Command, args []string) {
			conn := requireDB()
			defer conn.Close()

			cache := zoning.NewCachedSource(conn.DB, nil, cfg.Debug)
			stats, err := cache.Stats(context.Background())
			if err != nil {
				log.Fatalf("Failed to read cache stats: %v", err)
			}

			fmt.Printf("Cached zonings: %d\n", stats.Entries)
			if !stats.LastFetched.IsZero() {
				fmt.Printf("Last fetched:   %s\n", stats.LastFetched.Format("2006-01-02 15:04:05"))
			}

			var runs int
			if err := conn.DB.QueryRow("SELECT COUNT(*) FROM merge_runs").Scan(&runs); err != nil {
				log.Printf("Error counting merge runs: %v", err)
			} else {
				fmt.Printf("Recorded runs:  %d\n", runs)
			}
		},
	}
}

func createCacheForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget [address ...]",
		Short: "Evict addresses from the zoning cache",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			conn := requireDB()
			defer conn.Close()

			cache := zoning.NewCachedSource(conn.DB, nil, cfg.Debug)
			n, err := cache.Forget(context.Background(), args)
			if err != nil {
				log.Fatalf("Failed to evict cache entries: %v", err)
			}
			fmt.Printf("Evicted %d of %d addresses\n", n, len(args))
		},
	}
}
