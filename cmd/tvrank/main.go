// Command tvrank is a local, in-memory search engine over the IMDB
// public title catalog (spec §1 overview). It exposes the embeddable
// engine's query and scan operations as a CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tvrank "github.com/tvrank/tvrank"
	"github.com/tvrank/tvrank/internal/config"
	"github.com/tvrank/tvrank/internal/logging"
	"github.com/tvrank/tvrank/internal/progress"
	"github.com/tvrank/tvrank/internal/query"
	"github.com/tvrank/tvrank/internal/scan"
	"github.com/tvrank/tvrank/internal/title"
)

// Version information (set by the build system via ldflags, matching
// the teacher's convention).
var (
	Version   = "v0.1.0"
	GitCommit = "unknown"
)

type globalFlags struct {
	configFile  string
	cacheDir    string
	forceUpdate bool
	sortByYear  bool
	verbosity   int
	color       bool
	output      string
}

func main() {
	flags := &globalFlags{}
	runID := uuid.New().String()

	rootCmd := &cobra.Command{
		Use:   "tvrank",
		Short: "Search the IMDB public title catalog from the command line",
		Version: Version + " (" + GitCommit + ")",
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", "", "override the cache directory")
	rootCmd.PersistentFlags().BoolVar(&flags.forceUpdate, "force-update", false, "bypass the freshness check and re-fetch both dumps")
	rootCmd.PersistentFlags().BoolVar(&flags.sortByYear, "sort-by-year", false, "sort results by year instead of by score")
	rootCmd.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")
	rootCmd.PersistentFlags().BoolVar(&flags.color, "color", true, "colorize console output")
	rootCmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "table", "output format: table, json, yaml")

	rootCmd.AddCommand(
		newSearchCmd(flags, runID),
		newScanCmd(flags, runID, title.Movies, "scan-movies", "resolve a directory of movie folders against the catalog"),
		newScanCmd(flags, runID, title.Series, "scan-series", "resolve a directory of series folders against the catalog"),
		newMarkCmd(flags, runID),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads config layered under flags and opens the engine,
// returning it plus a request-scoped logger tagged with runID (spec's
// ambient logging stack: every invocation's log lines are correlated
// by a single id, grounded on stormdb's per-execution uuid).
func setup(flags *globalFlags, runID string) (*tvrank.Engine, logging.Logger, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, nil, err
	}
	if flags.cacheDir != "" {
		cfg.CacheDir = flags.cacheDir
	}
	cfg.ForceUpdate = flags.forceUpdate
	cfg.Verbosity = minInt(flags.verbosity, 2)
	if flags.sortByYear {
		cfg.SortMode = config.SortByYear
	}
	switch flags.output {
	case "json":
		cfg.Output = config.OutputJSON
	case "yaml":
		cfg.Output = config.OutputYAML
	default:
		cfg.Output = config.OutputTable
	}
	cfg.Color = flags.color

	baseLogger := logging.NewDefault(cfg.Verbosity)
	logger := baseLogger.With(zap.String("run_id", runID))

	var sink progress.Sink = progress.Nop{}
	if cfg.Verbosity > 0 {
		sink = progress.NewTerminal()
	}

	engine, err := tvrank.Open(context.Background(), tvrank.FromConfig(cfg, sink, logger))
	if err != nil {
		return nil, nil, err
	}
	return engine, logger, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func sortMode(flags *globalFlags) config.SortMode {
	if flags.sortByYear {
		return config.SortByYear
	}
	return config.SortByScore
}

func newSearchCmd(flags *globalFlags, runID string) *cobra.Command {
	var (
		idFlag    string
		titleFlag string
		yearFlag  int
		which     string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search [keywords...]",
		Short: "Look up titles by id, exact title, title+year, or keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, logger, err := setup(flags, runID)
			if err != nil {
				return err
			}
			defer logger.Sync()

			opts := query.Options{Sort: sortMode(flags), Limit: limit}
			if which != "" {
				w, err := parseWhich(which)
				if err != nil {
					return err
				}
				opts.Which = &w
			}

			ctx := context.Background()
			var records []title.Record

			svc := engine.QueryService()
			switch {
			case idFlag != "":
				id, err := title.ParseId(idFlag)
				if err != nil {
					return err
				}
				rec, ok := svc.ByID(id)
				if !ok {
					return nil
				}
				records = []title.Record{rec}
			case titleFlag != "" && yearFlag > 0:
				records, err = svc.ByTitleAndYear(ctx, titleFlag, uint16(yearFlag), opts)
			case titleFlag != "":
				records, err = svc.ByExactTitle(ctx, titleFlag, opts)
			case len(args) > 0:
				records, err = svc.ByKeywords(ctx, args, opts)
			default:
				return fmt.Errorf("search requires --id, --title, or one or more keyword arguments")
			}
			if err != nil {
				return err
			}

			outputFormat := config.OutputTable
			switch flags.output {
			case "json":
				outputFormat = config.OutputJSON
			case "yaml":
				outputFormat = config.OutputYAML
			}
			return renderRecords(os.Stdout, records, outputFormat)
		},
	}

	cmd.Flags().StringVar(&idFlag, "id", "", "look up a single record by its IMDB id (ttNNNNNNN)")
	cmd.Flags().StringVar(&titleFlag, "title", "", "look up by exact title")
	cmd.Flags().IntVar(&yearFlag, "year", 0, "disambiguate --title by release year")
	cmd.Flags().StringVar(&which, "which", "", "restrict results to movies or series")
	cmd.Flags().IntVar(&limit, "limit", 0, "limit the number of results (0 = unlimited)")
	return cmd
}

func parseWhich(s string) (title.Which, error) {
	switch s {
	case "movies":
		return title.Movies, nil
	case "series":
		return title.Series, nil
	default:
		return 0, fmt.Errorf("invalid --which: %s (valid: movies, series)", s)
	}
}

func newScanCmd(flags *globalFlags, runID string, which title.Which, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <directory>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, logger, err := setup(flags, runID)
			if err != nil {
				return err
			}
			defer logger.Sync()

			matches, err := scan.Scan(context.Background(), args[0], engine.QueryService(), which)
			if err != nil {
				return err
			}
			printScanMatches(os.Stdout, matches)
			return nil
		},
	}
}

func printScanMatches(w io.Writer, matches []scan.Match) {
	for _, m := range matches {
		switch m.Status {
		case scan.StatusOverride:
			fmt.Fprintf(w, "%s -> %s %s (override)\n", m.Name, m.Record.Id, m.Record.Title())
		case scan.StatusMatched:
			fmt.Fprintf(w, "%s -> %s %s\n", m.Name, m.Record.Id, m.Record.Title())
		case scan.StatusAmbiguous:
			fmt.Fprintf(w, "%s -> ambiguous (%d candidates)\n", m.Name, len(m.Matches))
		case scan.StatusNotFound:
			fmt.Fprintf(w, "%s -> no match\n", m.Name)
		case scan.StatusUnparsed:
			fmt.Fprintf(w, "%s -> skipped (no usable title or override)\n", m.Name)
		}
		for _, warning := range m.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}
}

func newMarkCmd(flags *globalFlags, runID string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "mark <directory> <imdb-id>",
		Short: "Pin a directory to an exact IMDB id, overriding name-based matching",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := title.ParseId(args[1])
			if err != nil {
				return err
			}
			return scan.Mark(args[0], id, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing mark")
	return cmd
}
