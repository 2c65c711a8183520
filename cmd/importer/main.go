// Command importer ingests documentation snippets for one library (or all
// of them) into Qdrant.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/docsnips/docsnips/engine/ingest"
	"github.com/docsnips/docsnips/engine/semantic"
	"github.com/docsnips/docsnips/engine/source"
	"github.com/docsnips/docsnips/engine/version"
	"github.com/docsnips/docsnips/pkg/embed"
	"github.com/docsnips/docsnips/pkg/metrics"
)

var met = metrics.New(nil)

var (
	mSnippets = func(library string) *metrics.Counter {
		return met.Counter(metrics.Labeled("docsnips_snippets_total", "library", library), "Snippets extracted")
	}
	mUpserted = func(library string) *metrics.Counter {
		return met.Counter(metrics.Labeled("docsnips_points_upserted_total", "library", library), "Points written to the vector store")
	}
	mSourceErrors = met.Counter("docsnips_source_errors_total", "Sources that failed during ingestion")
	mRunDur       = met.Histogram("docsnips_run_duration_seconds", "Whole-run ingestion time", nil)
	mLibsFailed   = met.Counter("docsnips_libraries_failed_total", "Libraries whose run returned an error")
)

func main() {
	var (
		library      = flag.String("library", "", "library name to ingest, or \"all\"")
		librariesDir = flag.String("libraries-dir", "./libraries", "directory of per-library JSON records")
		qdrantAddr   = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection   = flag.String("collection", "docsnips", "Qdrant collection name")
		model        = flag.String("model", embed.DefaultModel, "OpenAI embedding model")
		strict       = flag.Bool("strict", false, "fail a library on its first source error")
		workers      = flag.Int("workers", 8, "per-source file parallelism")
		maxPages     = flag.Int("max-pages", 256, "page limit per website source")
		crawlDelay   = flag.Duration("crawl-delay", 500*time.Millisecond, "minimum delay between page fetches")
		timeout      = flag.Duration("timeout", 30*time.Minute, "whole-run timeout")
		metricsPort  = flag.Int("metrics-port", 9091, "port for the /metrics endpoint")
	)
	flag.Parse()

	log := slog.Default()
	if *library == "" {
		fmt.Fprintln(os.Stderr, "usage: importer -library <name|all> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	met.ServeAsync(*metricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	embedder, err := embed.NewOpenAI(os.Getenv("OPENAI_API_KEY"), *model)
	if err != nil {
		log.Error("embedder init failed", "error", err)
		os.Exit(1)
	}

	vs, err := semantic.New(*qdrantAddr, *collection, os.Getenv("QDRANT_API_KEY"), log)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer vs.Close()
	if err := vs.EnsureSchema(ctx, embedder.VectorName(), embedder.VectorSize()); err != nil {
		log.Error("qdrant schema failed", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Qdrant",
		"collection", *collection, "vector", embedder.VectorName(), "dims", embedder.VectorSize())

	clones := source.NewCloneCache(log)
	defer clones.Close()
	crawler := source.NewCrawler(source.CrawlerOpts{
		Rate:     *crawlDelay,
		MaxPages: *maxPages,
		Logger:   log,
	})

	importer := ingest.NewImporter(ingest.Deps{
		LibrariesDir: *librariesDir,
		Clones:       clones,
		Resolver:     version.NewResolver(version.ResolverOpts{Logger: log}),
		Driver:       source.NewDriver(clones, crawler, *workers, log),
		Sink:         vs,
		Embedder:     embedder,
		Strict:       *strict,
		Log:          log,
	})

	started := time.Now()
	var reports []ingest.Report
	var runErr error
	if *library == "all" {
		reports, runErr = importer.ImportAll(ctx)
	} else {
		var report ingest.Report
		report, runErr = importer.ImportLibrary(ctx, *library)
		reports = []ingest.Report{report}
	}
	mRunDur.Since(started)

	failed := 0
	for _, r := range reports {
		mSnippets(r.Library).Add(int64(r.Snippets))
		mUpserted(r.Library).Add(int64(r.Upserted))
		mSourceErrors.Add(int64(len(r.Errors)))

		fmt.Printf("%s: %d snippets, %d upserted\n", r.Library, r.Snippets, r.Upserted)
		for _, se := range r.Errors {
			failed++
			fmt.Printf("  source %s: %v\n", se.Source, se.Err)
		}
	}
	if runErr != nil {
		mLibsFailed.Inc()
		log.Error("ingestion failed", "error", runErr)
		os.Exit(1)
	}
	if failed > 0 {
		log.Warn("ingestion finished with source failures", "failed_sources", failed)
	}
}
