// Command bookreport loads a crawled metadata table and renders summary
// statistics and charts as Markdown. It never writes to its input.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"readscrape/analysis"
	"readscrape/config"
)

func main() {
	_ = godotenv.Load()

	inputDefault := "output/books.csv"
	if value, ok := config.EnvString("READSCRAPE_OUTPUT"); ok {
		inputDefault = value
	}

	inputFile := flag.String("input", inputDefault, "Metadata table to analyse")
	outputFile := flag.String("output", "", "Report destination (default stdout)")
	topN := flag.Int("top", 10, "How many entries to keep in ranked tables")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	books, skipped, err := analysis.LoadBooks(*inputFile)
	if err != nil {
		slog.Error("loading metadata table", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Debug("metadata table loaded",
		slog.Int("books", len(books)),
		slog.Int("skipped", skipped),
	)

	summary := analysis.Summarize(books, *topN)
	summary.SkippedRows = skipped

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			slog.Error("creating report file", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := f.Close(); err != nil {
				slog.Error("close report file", slog.Any("error", err))
			}
		}()
		out = f
	}

	if err := analysis.WriteMarkdown(out, summary); err != nil {
		slog.Error("writing report", slog.Any("error", err))
		os.Exit(1)
	}

	if *outputFile != "" {
		fmt.Fprintf(os.Stderr, "report written to %s (%d books, %d rows skipped)\n",
			*outputFile, summary.TotalBooks, skipped)
	}
}
