package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/cache"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/config"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/database"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/logging"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/filmfluent/internal/tracing"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

type analyzeOptions struct {
	batch            bool
	db               bool
	saveJSON         bool
	includeStopwords bool
	workers          int
	top              int
	format           string
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Parse and analyze a subtitle file or a directory of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("include-stopwords") {
				cfg.Analysis.IncludeStopwords = opts.includeStopwords
			}
			if opts.saveJSON {
				cfg.Analysis.SaveJSON = true
			}
			if opts.workers > 0 {
				cfg.Analysis.WorkerCount = opts.workers
			}
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("unknown output format %q", opts.format)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runAnalyze(ctx, cfg, logger, opts, args[0], cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.batch, "batch", false, "treat path as a directory and process every .srt file in it")
	f.BoolVar(&opts.db, "db", false, "store results in PostgreSQL")
	f.BoolVar(&opts.saveJSON, "json", false, "save the analysis next to each file as <name>.analysis.json")
	f.BoolVar(&opts.includeStopwords, "include-stopwords", false, "keep stopwords in word frequencies")
	f.IntVar(&opts.workers, "workers", 0, "parallel files in batch mode (default from config)")
	f.IntVar(&opts.top, "top", 10, "number of top words to print")
	f.StringVar(&opts.format, "format", "text", "output format: text or json")
	return cmd
}

func runAnalyze(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts *analyzeOptions, path string, out io.Writer) error {
	_, closer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
	} else {
		defer closer.Close()
	}

	procOpts := []pipeline.Option{pipeline.WithLogger(logger)}

	if opts.db {
		db, err := database.New(cfg.Database)
		if err != nil {
			logger.WithError(err).Warn("Database unavailable")
			fmt.Fprintln(out, "Failed to connect to database. Continuing without database storage.")
		} else {
			defer db.Close()
			procOpts = append(procOpts, pipeline.WithStore(database.NewRepository(db)))

			if cfg.Redis.Enabled && cfg.Analysis.UseCache {
				c, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
				if err != nil {
					logger.WithError(err).Warn("Redis unavailable, deduplicating through the database only")
				} else {
					defer c.Close()
					procOpts = append(procOpts, pipeline.WithCache(c))
				}
			}
		}
	}

	p := pipeline.FromConfig(cfg.Analysis, procOpts...)

	if opts.batch {
		batch, err := p.ProcessBatch(ctx, path)
		if batch == nil {
			return err
		}
		if werr := printBatch(out, batch, opts.format); werr != nil {
			return werr
		}
		return err
	}

	res, err := p.ProcessFile(ctx, path)
	switch {
	case errors.Is(err, pipeline.ErrAlreadyProcessed):
		return printDuplicate(out, res, opts.format, opts.top)
	case errors.Is(err, pipeline.ErrNoSubtitles):
		fmt.Fprintf(out, "%s: no subtitles were parsed, skipping\n", path)
		return nil
	case err != nil:
		return err
	}
	return printResult(out, res, opts.format, opts.top)
}

func printResult(out io.Writer, res *pipeline.Result, format string, top int) error {
	if format == "json" {
		return writeJSON(out, res)
	}

	a := res.Analysis
	fmt.Fprintf(out, "File:       %s\n", res.Source)
	fmt.Fprintf(out, "Title:      %s\n", res.Movie.Title)
	if res.Movie.ReleaseYear != nil {
		fmt.Fprintf(out, "Year:       %d\n", *res.Movie.ReleaseYear)
	}
	detected := "default"
	if res.Report.Detected {
		detected = "detected"
	}
	fmt.Fprintf(out, "Encoding:   %s (%s)\n", res.Report.Encoding, detected)
	fmt.Fprintf(out, "Subtitles:  %d parsed, %d skipped\n", res.Report.Parsed, res.Report.SkippedTotal())
	printAnalysis(out, a, top)

	if res.ExportPath != "" {
		fmt.Fprintf(out, "Saved:      %s\n", res.ExportPath)
	}
	if res.ExportErr != nil {
		fmt.Fprintf(out, "Export failed: %v\n", res.ExportErr)
	}
	if res.Stored != nil {
		fmt.Fprintf(out, "Stored:     movie %s, file %s (%d words, %d sentences)\n",
			res.Stored.MovieID, res.Stored.FileID, res.Stored.WordCount, res.Stored.SentenceCount)
	}
	if res.StoreErr != nil {
		fmt.Fprintf(out, "Store failed: %v\n", res.StoreErr)
	}
	return nil
}

// printDuplicate reports a file that was already stored, with its cached
// analysis when one is available
func printDuplicate(out io.Writer, res *pipeline.Result, format string, top int) error {
	if format == "json" {
		return writeJSON(out, res)
	}
	fmt.Fprintf(out, "%s: already processed, skipping\n", res.Source)
	if res.Analysis != nil {
		fmt.Fprintln(out, "Cached analysis:")
		printAnalysis(out, res.Analysis, top)
	}
	return nil
}

func printAnalysis(out io.Writer, a *models.AnalysisResult, top int) {
	fmt.Fprintf(out, "Words:      %d total, %d unique\n", a.TotalWords, a.UniqueWords)
	fmt.Fprintf(out, "Sentences:  %d\n", a.TotalSentences)

	if top > len(a.TopWords) {
		top = len(a.TopWords)
	}
	if top > 0 {
		fmt.Fprintln(out, "Top words:")
		for i, wc := range a.TopWords[:top] {
			fmt.Fprintf(out, "  %3d. %-20s %d\n", i+1, wc.Word, wc.Count)
		}
	}
}

func printBatch(out io.Writer, batch *pipeline.BatchResult, format string) error {
	if format == "json" {
		return writeJSON(out, batch)
	}

	for _, res := range batch.Results {
		line := fmt.Sprintf("%-10s %s", res.Status, res.Source)
		if res.Analysis != nil {
			line += fmt.Sprintf(" (%d words, %d unique)", res.Analysis.TotalWords, res.Analysis.UniqueWords)
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "Processed %d of %d files (%d duplicates, %d skipped, %d failed)\n",
		batch.Processed, batch.Files, batch.Duplicates, batch.Skipped, batch.Failed)
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
