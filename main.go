// seriesbridge — CLI bridge to the DataSetIQ time-series API.
//
// Exposes the spreadsheet formula operations (table, latest, value, yoy,
// meta) as subcommands, plus search, ingestion and the local store for
// the credential, favorites and templates.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"seriesbridge/internal/config"
	"seriesbridge/internal/coordinator"
	"seriesbridge/internal/datasetiq"
	"seriesbridge/internal/functions"
	"seriesbridge/internal/storage"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

const fetchTimeout = 30 * time.Second

// Wired in PersistentPreRunE, shared by every subcommand.
var (
	cfg    *config.Config
	client *datasetiq.Client
	store  *storage.FileStore
	funcs  *functions.Funcs
)

func main() {
	// Cancel outstanding fetches on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seriesbridge",
	Short: "Bridge to the DataSetIQ time-series API",
	Long: `seriesbridge fetches economic and financial time series from DataSetIQ.

Without an API key, fetches run on the free tier and data responses are
capped at the 100 most recent observations. Store a key with "key set"
for full access.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			setLogLevel(level)
		}

		client = datasetiq.New(cfg.BaseURL)
		store = storage.NewFileStore(afero.NewOsFs(), cfg.StoreDir)
		funcs = functions.New(client, store)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(valueCmd)
	rootCmd.AddCommand(yoyCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(favCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(batchCmd)
}

func setLogLevel(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// fetchContext bounds a single command's network work.
func fetchContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), fetchTimeout)
}

// renderErr prints the not-connected prompt as plain output, the way a
// spreadsheet cell would show it, and passes everything else through.
func renderErr(err error) error {
	if errors.Is(err, functions.ErrNotConnected) {
		fmt.Println(err.Error())
		return nil
	}
	return err
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("seriesbridge %s (%s)\n", version, commit)
	},
}

// --- Fetch Command (table mode) ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [series_id]",
	Short: "Fetch a series as a date/value table",
	Long: `Fetch a series and print it as a table, most recent observations first.

Examples:
  seriesbridge fetch GDP
  seriesbridge fetch FRED_UNRATE --freq m --start 2020-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		freq, _ := cmd.Flags().GetString("freq")
		start, _ := cmd.Flags().GetString("start")

		ctx, cancel := fetchContext(cmd)
		defer cancel()

		rows, err := funcs.Table(ctx, args[0], freq, start)
		if err != nil {
			return renderErr(err)
		}
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = fmt.Sprintf("%v", cell)
			}
			fmt.Println(strings.Join(cells, "\t"))
		}
		return store.AddRecent(args[0])
	},
}

func init() {
	fetchCmd.Flags().String("freq", "", "observation frequency (d, w, m, q, a)")
	fetchCmd.Flags().String("start", "", "earliest observation date (YYYY-MM-DD)")
}

// --- Scalar Commands ---

var latestCmd = &cobra.Command{
	Use:   "latest [series_id]",
	Short: "Print the most recent value of a series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := fetchContext(cmd)
		defer cancel()

		v, err := funcs.Latest(ctx, args[0])
		if err != nil {
			return renderErr(err)
		}
		fmt.Printf("%g\n", v)
		return store.AddRecent(args[0])
	},
}

var valueCmd = &cobra.Command{
	Use:   "value [series_id] [date]",
	Short: "Print the value of a series on a given date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := fetchContext(cmd)
		defer cancel()

		v, err := funcs.ValueOnDate(ctx, args[0], args[1])
		if err != nil {
			return renderErr(err)
		}
		fmt.Printf("%g\n", v)
		return store.AddRecent(args[0])
	},
}

var yoyCmd = &cobra.Command{
	Use:   "yoy [series_id]",
	Short: "Print the year-over-year change of a series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := fetchContext(cmd)
		defer cancel()

		v, err := funcs.YoY(ctx, args[0])
		if err != nil {
			return renderErr(err)
		}
		fmt.Printf("%g\n", v)
		return store.AddRecent(args[0])
	},
}

var metaCmd = &cobra.Command{
	Use:   "meta [series_id] [field]",
	Short: "Print one metadata field of a series",
	Long: `Print one field from the series metadata record.

Examples:
  seriesbridge meta GDP title
  seriesbridge meta FRED_UNRATE units`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := fetchContext(cmd)
		defer cancel()

		v, err := funcs.MetaField(ctx, args[0], args[1])
		if err != nil {
			return renderErr(err)
		}
		fmt.Println(v)
		return nil
	},
}

// --- Search / Browse Commands ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the series index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")

		ctx, cancel := fetchContext(cmd)
		defer cancel()

		key, _ := store.APIKey()
		results, err := client.Search(ctx, key, args[0], source)
		if err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("source", "", "restrict to one data source (e.g. FRED)")
}

var browseCmd = &cobra.Command{
	Use:   "browse [source]",
	Short: "List series from one data source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := fetchContext(cmd)
		defer cancel()

		key, _ := store.APIKey()
		results, err := client.BrowseBySource(ctx, key, args[0])
		if err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the available data sources",
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range datasetiq.Sources {
			fmt.Printf("%-12s %s\n", s.ID, s.Name)
		}
	},
}

func printResults(results []datasetiq.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	for _, r := range results {
		fmt.Printf("%-24s %s", r.ID, r.Title)
		if r.Frequency != "" {
			fmt.Printf(" [%s]", r.Frequency)
		}
		fmt.Println()
	}
}

// --- Ingest Command ---

var ingestCmd = &cobra.Command{
	Use:   "ingest [series_id]",
	Short: "Ask DataSetIQ to ingest the full dataset for a series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := fetchContext(cmd)
		defer cancel()

		key, _ := store.APIKey()
		msg, err := client.RequestIngestion(ctx, key, args[0])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

// --- Key Commands ---

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored DataSetIQ API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [api_key]",
	Short: "Store an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.SetAPIKey(args[0]); err != nil {
			return err
		}
		fmt.Println("API key stored.")
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show whether an API key is stored",
	Run: func(cmd *cobra.Command, args []string) {
		key, supported := store.APIKey()
		switch {
		case !supported:
			fmt.Println("Key storage is unavailable.")
		case key == "":
			fmt.Println("No API key stored (free tier).")
		default:
			fmt.Printf("API key stored: %s\n", maskKey(key))
		}
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.ClearAPIKey(); err != nil {
			return err
		}
		fmt.Println("API key cleared.")
		return nil
	},
}

var keyCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the stored API key against DataSetIQ",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := store.APIKey()
		if key == "" {
			key = cfg.APIKey
		}

		ctx, cancel := fetchContext(cmd)
		defer cancel()

		if err := client.CheckKey(ctx, key); err != nil {
			if errors.Is(err, datasetiq.ErrInvalidKey) {
				fmt.Println("API key was rejected. Reconnect at datasetiq.com/dashboard/api-keys")
				return nil
			}
			return err
		}
		fmt.Println("API key is valid.")
		return nil
	},
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyClearCmd)
	keyCmd.AddCommand(keyCheckCmd)
}

// --- Favorites / Recents Commands ---

var favCmd = &cobra.Command{
	Use:   "fav",
	Short: "Manage favorite series",
}

var favListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorite series",
	Run: func(cmd *cobra.Command, args []string) {
		favorites := store.Favorites()
		if len(favorites) == 0 {
			fmt.Println("No favorites.")
			return
		}
		for _, id := range favorites {
			fmt.Println(id)
		}
	},
}

var favAddCmd = &cobra.Command{
	Use:   "add [series_id]",
	Short: "Add a series to favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.AddFavorite(args[0])
	},
}

var favRemoveCmd = &cobra.Command{
	Use:   "remove [series_id]",
	Short: "Remove a series from favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.RemoveFavorite(args[0])
	},
}

func init() {
	favCmd.AddCommand(favListCmd)
	favCmd.AddCommand(favAddCmd)
	favCmd.AddCommand(favRemoveCmd)
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently fetched series",
	Run: func(cmd *cobra.Command, args []string) {
		recents := store.Recents()
		if len(recents) == 0 {
			fmt.Println("No recent series.")
			return
		}
		for _, id := range recents {
			fmt.Println(id)
		}
	},
}

// --- Template Commands ---

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Export and import formula templates",
}

var templateExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export stored templates to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !datasetiq.IsPaidPlan(cfg.Plan) {
			fmt.Println(datasetiq.UpgradeMessage(datasetiq.FeatureTemplates))
			return nil
		}
		data, err := store.ExportTemplates()
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], data, 0o600); err != nil {
			return err
		}
		fmt.Printf("Exported %d templates to %s\n", len(store.Templates()), args[0])
		return nil
	},
}

var templateImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import templates from an exported JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !datasetiq.IsPaidPlan(cfg.Plan) {
			fmt.Println(datasetiq.UpgradeMessage(datasetiq.FeatureTemplates))
			return nil
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		n, err := store.ImportTemplates(data)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d templates.\n", n)
		return nil
	},
}

func init() {
	templateCmd.AddCommand(templateExportCmd)
	templateCmd.AddCommand(templateImportCmd)
}

// --- Batch Command ---

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Fetch the latest value for every configured series",
	Long: `Fetch the latest value for every series in the SERIES_IDS configuration,
concurrently, and print results as they arrive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := fetchContext(cmd)
		defer cancel()

		fmt.Println("Fetching latest values...")
		fmt.Println("=========================")
		coord := coordinator.New(funcs.Latest, cfg.SeriesIDs)
		if err := coord.Run(ctx); err != nil {
			return err
		}
		fmt.Println("=========================")
		return nil
	},
}
